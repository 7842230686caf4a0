package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ovaphlow/pitchfork/service-neighbor/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-neighbor/internal/connection/entity"
)

// pq error code for unique_violation
const uniqueViolation = "23505"

// ConnectionRepo stores one row per unordered user pair. Writes use the
// version column for optimistic concurrency.
type ConnectionRepo struct {
	db *sqlx.DB
}

func NewConnectionRepo(db *sqlx.DB) *ConnectionRepo { return &ConnectionRepo{db: db} }

// EnsureTable creates the connections table and its indexes if missing.
func (r *ConnectionRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS connections (
  id TEXT PRIMARY KEY,
  user_low TEXT NOT NULL,
  user_high TEXT NOT NULL,
  from_user_id TEXT NOT NULL,
  to_user_id TEXT NOT NULL,
  connection_type TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL,
  initiated_by TEXT NOT NULL DEFAULT '',
  blocked_by TEXT NOT NULL DEFAULT '',
  metadata JSONB,
  version BIGINT NOT NULL DEFAULT 1,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  accepted_at TIMESTAMPTZ,
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_connections_pair ON connections(user_low, user_high);
CREATE INDEX IF NOT EXISTS idx_connections_from ON connections(from_user_id, status);
CREATE INDEX IF NOT EXISTS idx_connections_to ON connections(to_user_id, status);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

const connectionColumns = `id, from_user_id, to_user_id, connection_type, status, initiated_by, blocked_by,
	metadata, version, created_at, accepted_at, updated_at`

type connectionRow struct {
	ID          string     `db:"id"`
	FromUserID  string     `db:"from_user_id"`
	ToUserID    string     `db:"to_user_id"`
	Type        string     `db:"connection_type"`
	Status      string     `db:"status"`
	InitiatedBy string     `db:"initiated_by"`
	BlockedBy   string     `db:"blocked_by"`
	Metadata    []byte     `db:"metadata"`
	Version     int64      `db:"version"`
	CreatedAt   time.Time  `db:"created_at"`
	AcceptedAt  *time.Time `db:"accepted_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

func (row connectionRow) toEntity() (*entity.Connection, error) {
	c := &entity.Connection{
		ID:          row.ID,
		FromUserID:  row.FromUserID,
		ToUserID:    row.ToUserID,
		Type:        entity.Type(row.Type),
		Status:      entity.Status(row.Status),
		InitiatedBy: row.InitiatedBy,
		BlockedBy:   row.BlockedBy,
		Version:     row.Version,
		CreatedAt:   row.CreatedAt,
		AcceptedAt:  row.AcceptedAt,
		UpdatedAt:   row.UpdatedAt,
	}
	if len(row.Metadata) > 0 && string(row.Metadata) != "null" {
		var m entity.Metadata
		if err := json.Unmarshal(row.Metadata, &m); err != nil {
			return nil, fmt.Errorf("decode metadata of %s: %w", row.ID, err)
		}
		c.Metadata = &m
	}
	return c, nil
}

// GetConnection returns the record for the unordered pair {userA, userB}.
func (r *ConnectionRepo) GetConnection(ctx context.Context, userA, userB string) (*entity.Connection, error) {
	low, high := ordered(userA, userB)
	q := `SELECT ` + connectionColumns + ` FROM connections WHERE user_low=$1 AND user_high=$2`
	return r.getOne(ctx, q, entity.PairKey(userA, userB), low, high)
}

// GetConnectionByID returns the record with the given id.
func (r *ConnectionRepo) GetConnectionByID(ctx context.Context, id string) (*entity.Connection, error) {
	q := `SELECT ` + connectionColumns + ` FROM connections WHERE id=$1`
	return r.getOne(ctx, q, id, id)
}

func (r *ConnectionRepo) getOne(ctx context.Context, q, key string, args ...any) (*entity.Connection, error) {
	var row connectionRow
	if err := r.db.GetContext(ctx, &row, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("connection", key)
		}
		return nil, fmt.Errorf("get connection: %w", err)
	}
	return row.toEntity()
}

// ListConnections returns every record involving userID that matches filter,
// newest first.
func (r *ConnectionRepo) ListConnections(ctx context.Context, userID string, filter entity.Filter) ([]*entity.Connection, error) {
	q := `SELECT ` + connectionColumns + ` FROM connections
		WHERE (from_user_id=$1 OR to_user_id=$1)
		  AND (cardinality($2::text[]) = 0 OR status = ANY($2))
		  AND (cardinality($3::text[]) = 0 OR connection_type = ANY($3))
		ORDER BY updated_at DESC, id`
	statuses := make([]string, 0, len(filter.Statuses))
	for _, s := range filter.Statuses {
		statuses = append(statuses, string(s))
	}
	types := make([]string, 0, len(filter.Types))
	for _, t := range filter.Types {
		types = append(types, string(t))
	}
	var rows []connectionRow
	if err := r.db.SelectContext(ctx, &rows, q, userID, pq.Array(statuses), pq.Array(types)); err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	out := make([]*entity.Connection, 0, len(rows))
	for _, row := range rows {
		c, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// SaveConnection inserts c when Version is 0, otherwise updates the row only
// if its stored version still equals c.Version. A lost race on either path is
// reported as apperr.ErrConcurrencyConflict. The returned copy carries the new
// version.
func (r *ConnectionRepo) SaveConnection(ctx context.Context, c *entity.Connection) (*entity.Connection, error) {
	var meta sql.NullString
	if c.Metadata != nil {
		b, err := json.Marshal(c.Metadata)
		if err != nil {
			return nil, fmt.Errorf("encode metadata: %w", err)
		}
		meta = sql.NullString{String: string(b), Valid: true}
	}
	low, high := ordered(c.FromUserID, c.ToUserID)
	out := c.Clone()

	if c.Version == 0 {
		const q = `INSERT INTO connections (id, user_low, user_high, from_user_id, to_user_id, connection_type, status,
			initiated_by, blocked_by, metadata, version, created_at, accepted_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,1,$11,$12,$13)`
		_, err := r.db.ExecContext(ctx, q, c.ID, low, high, c.FromUserID, c.ToUserID, string(c.Type), string(c.Status),
			c.InitiatedBy, c.BlockedBy, meta, c.CreatedAt, c.AcceptedAt, c.UpdatedAt)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
				return nil, fmt.Errorf("insert connection %s: %w", entity.PairKey(c.FromUserID, c.ToUserID), apperr.ErrConcurrencyConflict)
			}
			return nil, fmt.Errorf("insert connection: %w", err)
		}
		out.Version = 1
		return out, nil
	}

	const q = `UPDATE connections SET from_user_id=$3, to_user_id=$4, connection_type=$5, status=$6,
		initiated_by=$7, blocked_by=$8, metadata=$9, accepted_at=$10, updated_at=$11, version=version+1
		WHERE id=$1 AND version=$2`
	res, err := r.db.ExecContext(ctx, q, c.ID, c.Version, c.FromUserID, c.ToUserID, string(c.Type), string(c.Status),
		c.InitiatedBy, c.BlockedBy, meta, c.AcceptedAt, c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("update connection: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update connection: %w", err)
	}
	if rows == 0 {
		return nil, fmt.Errorf("update connection %s at version %d: %w", c.ID, c.Version, apperr.ErrConcurrencyConflict)
	}
	out.Version = c.Version + 1
	return out, nil
}

func ordered(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}
