// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/okian/arcadeboard/internal/domain/types"
)

// LeaderboardDependencies defines the interface for leaderboard operations.
type LeaderboardDependencies interface {
	Leaderboard(ctx context.Context, query string) (types.Board, error)
}

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	deps LeaderboardDependencies
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps}
}

// HandleGetLeaderboard handles GET /leaderboard?q=name requests. The body is
// always the board view-model; a board that is loading or failed is served
// with 503 so clients can tell it apart from an empty dataset.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	if r.Method != http.MethodGet {
		writeFailure(w, NewKind(op, ErrMethodNotAllowed))
		return
	}

	board, err := h.deps.Leaderboard(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}

	status := http.StatusOK
	if !board.Ready() {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, board)
}
