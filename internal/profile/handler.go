package profile

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-neighbor/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-neighbor/internal/auth"
)

// Handler exposes profile reads and the member's own profile edits.
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

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, "get profile failed", err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, p)
}

// Trust handles GET /profiles/{id}/trust.
func (h *Handler) Trust(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.Trust(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, "get trust failed", err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, v)
}

const maxBodyBytes = 1 << 16

// UpdateMe handles PUT /profiles/me.
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		apperr.WriteJSON(w, http.StatusUnauthorized, apperr.ErrorBody{Error: "unauthenticated"})
		return
	}
	var u Update
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		h.logger.Debugw("invalid profile payload", "err", err)
		apperr.WriteError(w, apperr.Validation("invalid payload"))
		return
	}
	p, err := h.svc.UpdateOwn(r.Context(), actor, u)
	if err != nil {
		h.fail(w, "update profile failed", err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, p)
}

// DeactivateMe handles DELETE /profiles/me.
func (h *Handler) DeactivateMe(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		apperr.WriteJSON(w, http.StatusUnauthorized, apperr.ErrorBody{Error: "unauthenticated"})
		return
	}
	if err := h.svc.Deactivate(r.Context(), actor); err != nil {
		h.fail(w, "deactivate profile failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	if apperr.HTTPStatus(err) >= http.StatusInternalServerError {
		h.logger.Warnw(msg, "err", err)
	} else {
		h.logger.Debugw(msg, "err", err)
	}
	apperr.WriteError(w, err)
}
