package rest

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rocketscienceinc/tictactoe-agent/internal/usecase"
)

type startResponse struct {
	Started  bool             `json:"started"`
	Progress usecase.Progress `json:"progress"`
}

func (that *Server) progressHandler(w http.ResponseWriter, _ *http.Request) {
	that.writeJSON(w, http.StatusOK, that.trainer.Progress())
}

// startHandler answers 202 when a run was launched and 200 when the request was ignored.
func (that *Server) startHandler(ctx context.Context, w http.ResponseWriter, _ *http.Request) {
	started := that.trainer.Start(ctx)

	status := http.StatusOK
	if started {
		status = http.StatusAccepted
		that.logger.Info("training started over http")
	}

	that.writeJSON(w, status, startResponse{
		Started:  started,
		Progress: that.trainer.Progress(),
	})
}

func (that *Server) stopHandler(w http.ResponseWriter, _ *http.Request) {
	that.trainer.Stop()

	that.writeJSON(w, http.StatusOK, that.trainer.Progress())
}

func (that *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		that.logger.Error("failed to write response", "error", err)
	}
}
