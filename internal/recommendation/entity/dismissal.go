package entity

import "time"

// Dismissal records that ViewerID no longer wants CandidateID recommended.
// One row per (viewer, candidate).
type Dismissal struct {
	ID          string    `db:"id" json:"id"`
	ViewerID    string    `db:"viewer_id" json:"viewer_id"`
	CandidateID string    `db:"candidate_id" json:"candidate_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
