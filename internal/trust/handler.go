package trust

import (
	"net/http"
	"strconv"

	"github.com/ovaphlow/pitchfork/service-neighbor/internal/apperr"
)

// Handler serves the static trust band table.
type Handler struct {
	scorer *Scorer
}

func NewHandler(scorer *Scorer) *Handler {
	if scorer == nil {
		scorer = NewScorer(nil)
	}
	return &Handler{scorer: scorer}
}

// Levels handles GET /trust/levels.
func (h *Handler) Levels(w http.ResponseWriter, r *http.Request) {
	apperr.WriteJSON(w, http.StatusOK, Levels())
}

// LevelForScore handles GET /trust/levels/{score}. Out of range scores are
// clamped, not rejected.
func (h *Handler) LevelForScore(w http.ResponseWriter, r *http.Request) {
	score, err := strconv.Atoi(r.PathValue("score"))
	if err != nil {
		apperr.WriteError(w, apperr.Validation("score must be an integer"))
		return
	}
	apperr.WriteJSON(w, http.StatusOK, h.scorer.Level(score))
}
