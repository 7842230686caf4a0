package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-neighbor/internal/recommendation/entity"
	"github.com/ovaphlow/pitchfork/service-neighbor/pkg/utilities"
)

// DismissalRepo persists the per-viewer exclusion set.
type DismissalRepo struct {
	db *sqlx.DB
}

func NewDismissalRepo(db *sqlx.DB) *DismissalRepo { return &DismissalRepo{db: db} }

// EnsureTable creates the dismissals table if not exists.
func (r *DismissalRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS recommendation_dismissals (
  id TEXT PRIMARY KEY,
  viewer_id TEXT NOT NULL,
  candidate_id TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  UNIQUE (viewer_id, candidate_id)
);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// Dismiss records the dismissal; repeating it is a no-op.
func (r *DismissalRepo) Dismiss(ctx context.Context, viewerID, candidateID string) error {
	d := entity.Dismissal{
		ID:          utilities.NewKSUID(),
		ViewerID:    viewerID,
		CandidateID: candidateID,
		CreatedAt:   time.Now().UTC(),
	}
	const q = `INSERT INTO recommendation_dismissals (id, viewer_id, candidate_id, created_at)
		VALUES (:id, :viewer_id, :candidate_id, :created_at)
		ON CONFLICT (viewer_id, candidate_id) DO NOTHING`
	if _, err := r.db.NamedExecContext(ctx, q, d); err != nil {
		return fmt.Errorf("dismiss recommendation: %w", err)
	}
	return nil
}

// ListDismissed returns the candidate ids viewerID dismissed.
func (r *DismissalRepo) ListDismissed(ctx context.Context, viewerID string) (map[string]struct{}, error) {
	var ids []string
	const q = `SELECT candidate_id FROM recommendation_dismissals WHERE viewer_id=$1`
	if err := r.db.SelectContext(ctx, &ids, q, viewerID); err != nil {
		return nil, fmt.Errorf("list dismissals: %w", err)
	}
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out, nil
}
