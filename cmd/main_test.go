package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/okian/arcadeboard/internal/config"
	"github.com/okian/arcadeboard/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

const testDataset = "User Name,# of Skill Badges Completed,# of Arcade Games Completed,Google Cloud Skills Boost Profile URL\n" +
	"Ada,3,2,https://skills.example/ada\n" +
	"Bob,4,1,\n" +
	"Cy,1,1,\n"

func setenv(key, value string) {
	prev, had := os.LookupEnv(key)
	_ = os.Setenv(key, value)
	convey.Reset(func() {
		if had {
			_ = os.Setenv(key, prev)
			return
		}
		_ = os.Unsetenv(key)
	})
}

func TestMainFunction(t *testing.T) {
	_ = logger.Init(logger.WithWriter(io.Discard))

	convey.Convey("Given the main application", t, func() {
		path := filepath.Join(t.TempDir(), "leaderboard.csv")
		convey.So(os.WriteFile(path, []byte(testDataset), 0o600), convey.ShouldBeNil)

		convey.Convey("When testing configuration loading", func() {
			setenv("ARCADEBOARD_ADDR", ":8080")
			setenv("ARCADEBOARD_SOURCE", path)
			setenv("ARCADEBOARD_REFRESH_INTERVAL", "0s")

			convey.Convey("Then configuration should be loadable", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.Source, convey.ShouldEqual, path)
				convey.So(cfg.RefreshInterval, convey.ShouldEqual, time.Duration(0))
			})
		})

		convey.Convey("When building the service from configuration", func() {
			cfg := config.New()
			cfg.Source = path
			cfg.RefreshInterval = 0

			svc, err := newService(cfg, logger.Get())
			convey.So(err, convey.ShouldBeNil)
			convey.So(svc.Start(context.Background()), convey.ShouldBeNil)
			defer svc.Stop()

			convey.Convey("Then the dataset is loaded and ranked", func() {
				board, err := svc.Leaderboard(context.Background(), "")
				convey.So(err, convey.ShouldBeNil)
				convey.So(board.Total, convey.ShouldEqual, 3)
				convey.So(board.Entries[0].Name, convey.ShouldEqual, "Ada")
			})

			convey.Convey("And the mux serves the API and docs", func() {
				srv := httptest.NewServer(newMux(context.Background(), cfg, svc))
				defer srv.Close()

				for _, route := range []string{"/healthz", "/leaderboard", "/countdown", "/summary", "/openapi.yaml"} {
					resp, err := http.Get(srv.URL + route)
					convey.So(err, convey.ShouldBeNil)
					_ = resp.Body.Close()
					convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
				}

				resp, err := http.Get(srv.URL + "/rank?key=" + "https://skills.example/ada")
				convey.So(err, convey.ShouldBeNil)
				body, _ := io.ReadAll(resp.Body)
				_ = resp.Body.Close()
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
				convey.So(string(body), convey.ShouldContainSubstring, `"rank":1`)
			})
		})

		convey.Convey("When the source location is not supported", func() {
			cfg := config.New()
			cfg.Source = "ftp://example.com/leaderboard.csv"

			convey.Convey("Then the service cannot be built", func() {
				svc, err := newService(cfg, logger.Get())
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(svc, convey.ShouldBeNil)
			})
		})
	})
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given main application components", t, func() {
		convey.Convey("When testing system metrics updater", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()

			convey.Convey("Then it should return once the context is done", func() {
				done := make(chan struct{})
				go func() {
					startSystemMetricsUpdater(ctx)
					close(done)
				}()

				select {
				case <-done:
				case <-time.After(time.Second):
					convey.So("system metrics updater did not stop", convey.ShouldBeEmpty)
				}
			})
		})

		convey.Convey("When updating system metrics directly", func() {
			convey.Convey("Then it should not panic", func() {
				convey.So(updateSystemMetrics, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When the service has an unreachable dataset", func() {
			_ = logger.Init(logger.WithWriter(io.Discard))
			cfg := config.New()
			cfg.Source = filepath.Join(os.TempDir(), "arcadeboard-missing", "leaderboard.csv")
			cfg.RefreshInterval = 0

			svc, err := newService(cfg, logger.Get())
			convey.So(err, convey.ShouldBeNil)
			convey.So(svc.Start(context.Background()), convey.ShouldBeNil)
			defer svc.Stop()

			convey.Convey("Then the API reports the failure instead of stale data", func() {
				rec := httptest.NewRecorder()
				newMux(context.Background(), cfg, svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/leaderboard", nil))
				convey.So(rec.Code, convey.ShouldEqual, http.StatusServiceUnavailable)
				convey.So(strings.Contains(rec.Body.String(), `"status":"error"`), convey.ShouldBeTrue)
			})
		})
	})
}
