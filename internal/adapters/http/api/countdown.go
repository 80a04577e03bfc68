package api

import (
	"context"
	"net/http"

	"github.com/okian/arcadeboard/internal/domain/types"
)

// CountdownDependencies defines the interface for the deadline countdown.
type CountdownDependencies interface {
	Countdown(ctx context.Context) types.Countdown
}

// CountdownHandler handles countdown requests.
type CountdownHandler struct {
	deps CountdownDependencies
}

// NewCountdownHandler creates a new countdown handler.
func NewCountdownHandler(deps CountdownDependencies) *CountdownHandler {
	return &CountdownHandler{deps: deps}
}

// HandleGetCountdown handles GET /countdown requests.
func (h *CountdownHandler) HandleGetCountdown(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeFailure(w, NewKind("api.get_countdown", ErrMethodNotAllowed))
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Countdown(r.Context()))
}
