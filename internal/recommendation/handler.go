package recommendation

import (
	"net/http"
	"strconv"

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

// List handles GET /recommendations?limit=&prioritize_proximity=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		apperr.WriteJSON(w, http.StatusUnauthorized, apperr.ErrorBody{Error: "unauthenticated"})
		return
	}
	var opts Options
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			apperr.WriteError(w, apperr.Validation("limit must be a non-negative integer"))
			return
		}
		opts.Limit = n
	}
	if v := q.Get("prioritize_proximity"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			apperr.WriteError(w, apperr.Validation("prioritize_proximity must be a boolean"))
			return
		}
		opts.PrioritizeProximity = b
	}

	recs, err := h.svc.Recommend(r.Context(), actor, opts)
	if err != nil {
		h.fail(w, "recommend failed", err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, recs)
}

// Dismiss handles POST /recommendations/{candidateID}/dismiss.
func (h *Handler) Dismiss(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		apperr.WriteJSON(w, http.StatusUnauthorized, apperr.ErrorBody{Error: "unauthenticated"})
		return
	}
	if err := h.svc.Dismiss(r.Context(), actor, r.PathValue("candidateID")); err != nil {
		h.fail(w, "dismiss failed", err)
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
