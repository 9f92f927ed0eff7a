// internal/app/features/jobs/handler.go

// Package jobs exposes manual triggers for the billing cycle jobs.
// Each endpoint runs one job synchronously and reports the outcome;
// the scheduler's non-overlap lock still applies, so a trigger cannot
// race a running cycle.
package jobs

import (
	"encoding/json"
	"net/http"

	"github.com/subpoolhq/subpool/internal/app/system/tasks"

	"go.uber.org/zap"
)

// Handler holds dependencies for the job trigger endpoints.
type Handler struct {
	Runner *tasks.Runner
	Log    *zap.Logger
}

// NewHandler constructs a jobs Handler around the cycle runner.
func NewHandler(runner *tasks.Runner, logger *zap.Logger) *Handler {
	return &Handler{Runner: runner, Log: logger}
}

// jobResponse is the JSON structure for a trigger response.
type jobResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// trigger runs the named job and writes the outcome.
//
// On success: 200 and {"code":200,"message":"success"}
// On failure: 500 and {"code":500,"message":"…"}
func (h *Handler) trigger(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if err := h.Runner.RunOne(r.Context(), name); err != nil {
			h.Log.Error("job trigger failed", zap.String("job", name), zap.Error(err))
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(jobResponse{Code: http.StatusInternalServerError, Message: err.Error()})
			return
		}

		h.Log.Info("job trigger completed", zap.String("job", name))
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(jobResponse{Code: http.StatusOK, Message: "success"})
	}
}
