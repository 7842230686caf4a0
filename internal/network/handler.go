package network

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-neighbor/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-neighbor/internal/auth"
)

type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Handler{svc: svc, logger: logger}
}

// Analyze handles GET /network/{otherID}.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		apperr.WriteJSON(w, http.StatusUnauthorized, apperr.ErrorBody{Error: "unauthenticated"})
		return
	}
	other := r.PathValue("otherID")
	analysis, err := h.svc.Analyze(r.Context(), actor, other)
	if err != nil {
		if apperr.HTTPStatus(err) >= http.StatusInternalServerError {
			h.logger.Warnw("network analysis failed", "viewer", actor, "other", other, "err", err)
		} else {
			h.logger.Debugw("network analysis rejected", "viewer", actor, "other", other, "err", err)
		}
		apperr.WriteError(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, analysis)
}
