package api

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/okian/arcadeboard/internal/domain/types"
	"github.com/okian/arcadeboard/pkg/metrics"
)

const (
	defaultReloadPerMinute = 6
	defaultReloadBurst     = 2
)

// ReloadDependencies defines the interface for manual reloads.
type ReloadDependencies interface {
	Reload(ctx context.Context) error
	Leaderboard(ctx context.Context, query string) (types.Board, error)
}

// ReloadHandler handles reload requests.
type ReloadHandler struct {
	deps    ReloadDependencies
	limiter *rate.Limiter
}

// NewReloadHandler creates a reload handler allowing perMinute reloads with burst.
func NewReloadHandler(deps ReloadDependencies, perMinute float64, burst int) *ReloadHandler {
	h := &ReloadHandler{deps: deps}
	h.setLimit(perMinute, burst)
	return h
}

func (h *ReloadHandler) setLimit(perMinute float64, burst int) {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Limit(perMinute / 60)
	}
	h.limiter = rate.NewLimiter(limit, burst)
}

type reloadResponse struct {
	Status     string    `json:"status"`
	Generation uint64    `json:"generation"`
	Total      int       `json:"total"`
	LoadedAt   time.Time `json:"loaded_at,omitzero"`
}

// HandlePostReload handles POST /reload requests. The dataset is re-read
// synchronously; concurrent requests share one load.
func (h *ReloadHandler) HandlePostReload(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_reload"
	if r.Method != http.MethodPost {
		writeFailure(w, NewKind(op, ErrMethodNotAllowed))
		return
	}

	res := h.limiter.Reserve()
	if delay := res.Delay(); delay > 0 {
		res.Cancel()
		metrics.RecordReloadRateLimited()
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
		writeFailure(w, NewKind(op, ErrRateLimited))
		return
	}

	if err := h.deps.Reload(r.Context()); err != nil {
		writeFailure(w, WrapKind(op, ErrLoadFailed, err))
		return
	}

	board, err := h.deps.Leaderboard(r.Context(), "")
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, reloadResponse{
		Status:     board.Status,
		Generation: board.Generation,
		Total:      board.Total,
		LoadedAt:   board.LoadedAt,
	})
}
