package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/arcadeboard/internal/config"
	"github.com/okian/arcadeboard/internal/domain/ranking"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.Source, convey.ShouldEqual, "data/leaderboard.csv")
			convey.So(cfg.RefreshInterval, convey.ShouldEqual, time.Duration(0))
			convey.So(cfg.FetchTimeout, convey.ShouldEqual, 15*time.Second)
			convey.So(cfg.KeyFallback, convey.ShouldEqual, config.KeyFallbackUUID)
			convey.So(cfg.Columns(), convey.ShouldResemble, ranking.DefaultColumns())
			convey.So(cfg.PlaceholderName, convey.ShouldEqual, "Unknown")
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then the deadline is the end of October 2025", func() {
			want := time.Date(2025, time.October, 31, 23, 59, 59, 0, time.UTC)
			convey.So(cfg.DeadlineTime().Equal(want), convey.ShouldBeTrue)
		})
	})
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			setenv(config.EnvConfigFile, "")
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldResemble, config.New())
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			setenv("ARCADEBOARD_ADDR", ":8080")
			setenv("ARCADEBOARD_SOURCE", "https://example.com/board.csv")
			setenv("ARCADEBOARD_REFRESH_INTERVAL", "30s")
			setenv("ARCADEBOARD_KEY_FALLBACK", "positional")
			setenv("ARCADEBOARD_RELOAD_BURST", "5")
			setenv("ARCADEBOARD_S3_ACCESS_KEY_ID", "AKIA")
			setenv("ARCADEBOARD_S3_SECRET_ACCESS_KEY", "secret")

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.Source, convey.ShouldEqual, "https://example.com/board.csv")
				convey.So(cfg.RefreshInterval, convey.ShouldEqual, 30*time.Second)
				convey.So(cfg.KeyFallback, convey.ShouldEqual, config.KeyFallbackPositional)
				convey.So(cfg.ReloadBurst, convey.ShouldEqual, 5)
				convey.So(cfg.S3AccessKeyID, convey.ShouldEqual, "AKIA")
				convey.So(cfg.S3SecretAccessKey, convey.ShouldEqual, "secret")
			})

			convey.Convey("And untouched keys keep their defaults", func() {
				convey.So(cfg.FetchTimeout, convey.ShouldEqual, 15*time.Second)
				convey.So(cfg.NameColumn, convey.ShouldEqual, "User Name")
			})
		})

		convey.Convey("When loading config from a YAML file", func() {
			path := filepath.Join(t.TempDir(), "arcadeboard.yaml")
			yaml := "addr: \":7070\"\n" +
				"deadline: \"2026-01-15T12:00:00+01:00\"\n" +
				"name_column: \"Player\"\n" +
				"fetch_timeout: 5s\n" +
				"placeholder_name: \"Anonymous\"\n"
			convey.So(os.WriteFile(path, []byte(yaml), 0o600), convey.ShouldBeNil)
			setenv(config.EnvConfigFile, path)
			setenv("ARCADEBOARD_ADDR", ":6060")

			cfg, err := config.Load(ctx)

			convey.Convey("Then file values apply and env wins over the file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":6060")
				convey.So(cfg.NameColumn, convey.ShouldEqual, "Player")
				convey.So(cfg.FetchTimeout, convey.ShouldEqual, 5*time.Second)
				convey.So(cfg.PlaceholderName, convey.ShouldEqual, "Anonymous")
				want := time.Date(2026, time.January, 15, 11, 0, 0, 0, time.UTC)
				convey.So(cfg.DeadlineTime().Equal(want), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the config file is missing", func() {
			setenv(config.EnvConfigFile, filepath.Join(t.TempDir(), "missing.yaml"))
			_, err := config.Load(ctx)

			convey.Convey("Then loading fails", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When values are invalid", func() {
			cases := map[string]string{
				"ARCADEBOARD_KEY_FALLBACK":  "sequential",
				"ARCADEBOARD_DEADLINE":      "31/10/2025",
				"ARCADEBOARD_LOG_FORMAT":    "xml",
				"ARCADEBOARD_FETCH_TIMEOUT": "0s",
				"ARCADEBOARD_RELOAD_BURST":  "0",
				"ARCADEBOARD_S3_ENDPOINT":   "not a url",
			}

			convey.Convey("Then each one is rejected", func() {
				for key, value := range cases {
					convey.So(validateWith(t, key, value), convey.ShouldBeTrue)
				}
			})
		})

		convey.Convey("When only half of the S3 credentials are set", func() {
			setenv("ARCADEBOARD_S3_ACCESS_KEY_ID", "AKIA")
			_, err := config.Load(ctx)

			convey.Convey("Then the secret is reported missing", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "S3SecretAccessKey")
			})
		})
	})
}

func TestConfig_NormalizerOptions(t *testing.T) {
	convey.Convey("Given a positional key fallback", t, func() {
		cfg := config.New()
		cfg.KeyFallback = config.KeyFallbackPositional
		cfg.PlaceholderName = "Anonymous"

		convey.Convey("Then the normalizer uses row positions and the placeholder", func() {
			n := ranking.NewNormalizer(cfg.NormalizerOptions()...)
			p := n.Normalize(4, nil)
			convey.So(p.Key, convey.ShouldEqual, "row-5")
			convey.So(p.Name, convey.ShouldEqual, "Anonymous")
		})
	})
}

// setenv sets an environment variable for the current Convey leaf only.
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

// validateWith loads with a single override and reports whether it was rejected.
func validateWith(t *testing.T, key, value string) bool {
	t.Helper()
	prev, had := os.LookupEnv(key)
	_ = os.Setenv(key, value)
	defer func() {
		if had {
			_ = os.Setenv(key, prev)
			return
		}
		_ = os.Unsetenv(key)
	}()

	_, err := config.Load(context.Background())
	return errors.Is(err, config.ErrInvalidConfig)
}
