package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ovaphlow/pitchfork/service-neighbor/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-neighbor/internal/profile/entity"
)

// ProfileRepo provides data access for the profiles table using sqlx.
type ProfileRepo struct {
	db *sqlx.DB
}

func NewProfileRepo(db *sqlx.DB) *ProfileRepo { return &ProfileRepo{db: db} }

// EnsureTable creates the profiles table if not exists (idempotent).
// Convenient for early development; prefer migrations in production.
func (r *ProfileRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS profiles (
  id TEXT PRIMARY KEY,
  display_name TEXT NOT NULL DEFAULT '',
  estate_id TEXT NOT NULL DEFAULT '',
  estate_name TEXT NOT NULL DEFAULT '',
  building_id TEXT NOT NULL DEFAULT '',
  area TEXT NOT NULL DEFAULT '',
  verification_level TEXT NOT NULL DEFAULT 'basic',
  phone_verified BOOLEAN NOT NULL DEFAULT false,
  identity_verified BOOLEAN NOT NULL DEFAULT false,
  address_verified BOOLEAN NOT NULL DEFAULT false,
  endorsements INT NOT NULL DEFAULT 0,
  events_organized INT NOT NULL DEFAULT 0,
  interests TEXT[] NOT NULL DEFAULT '{}',
  badges TEXT[] NOT NULL DEFAULT '{}',
  allow_connections BOOLEAN NOT NULL DEFAULT true,
  require_approval BOOLEAN NOT NULL DEFAULT true,
  show_location BOOLEAN NOT NULL DEFAULT true,
  show_activity BOOLEAN NOT NULL DEFAULT true,
  show_mutual_connections BOOLEAN NOT NULL DEFAULT true,
  active BOOLEAN NOT NULL DEFAULT true,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_profiles_estate ON profiles(estate_id) WHERE active;
CREATE INDEX IF NOT EXISTS idx_profiles_area ON profiles(area) WHERE active;
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

const profileColumns = `id, display_name, estate_id, estate_name, building_id, area, verification_level,
	phone_verified, identity_verified, address_verified, endorsements, events_organized,
	interests, badges, allow_connections, require_approval, show_location, show_activity,
	show_mutual_connections, active, created_at, updated_at`

type profileRow struct {
	ID                    string         `db:"id"`
	DisplayName           string         `db:"display_name"`
	EstateID              string         `db:"estate_id"`
	EstateName            string         `db:"estate_name"`
	BuildingID            string         `db:"building_id"`
	Area                  string         `db:"area"`
	VerificationLevel     string         `db:"verification_level"`
	PhoneVerified         bool           `db:"phone_verified"`
	IdentityVerified      bool           `db:"identity_verified"`
	AddressVerified       bool           `db:"address_verified"`
	Endorsements          int            `db:"endorsements"`
	EventsOrganized       int            `db:"events_organized"`
	Interests             pq.StringArray `db:"interests"`
	Badges                pq.StringArray `db:"badges"`
	AllowConnections      bool           `db:"allow_connections"`
	RequireApproval       bool           `db:"require_approval"`
	ShowLocation          bool           `db:"show_location"`
	ShowActivity          bool           `db:"show_activity"`
	ShowMutualConnections bool           `db:"show_mutual_connections"`
	Active                bool           `db:"active"`
	CreatedAt             time.Time      `db:"created_at"`
	UpdatedAt             time.Time      `db:"updated_at"`
}

func (row profileRow) toEntity() *entity.Profile {
	return &entity.Profile{
		ID:          row.ID,
		DisplayName: row.DisplayName,
		Location: entity.Location{
			EstateID:   row.EstateID,
			EstateName: row.EstateName,
			BuildingID: row.BuildingID,
			Area:       row.Area,
		},
		VerificationLevel: entity.VerificationLevel(row.VerificationLevel),
		PhoneVerified:     row.PhoneVerified,
		IdentityVerified:  row.IdentityVerified,
		AddressVerified:   row.AddressVerified,
		Endorsements:      row.Endorsements,
		EventsOrganized:   row.EventsOrganized,
		Interests:         []string(row.Interests),
		Badges:            []string(row.Badges),
		Privacy: entity.Privacy{
			AllowConnections:      row.AllowConnections,
			RequireApproval:       row.RequireApproval,
			ShowLocation:          row.ShowLocation,
			ShowActivity:          row.ShowActivity,
			ShowMutualConnections: row.ShowMutualConnections,
		},
		Active:    row.Active,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

// GetProfile fetches a profile by id; missing rows map to apperr.ErrNotFound.
func (r *ProfileRepo) GetProfile(ctx context.Context, id string) (*entity.Profile, error) {
	q := `SELECT ` + profileColumns + ` FROM profiles WHERE id=$1`
	var row profileRow
	if err := r.db.GetContext(ctx, &row, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("profile", id)
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return row.toEntity(), nil
}

// ListCandidates returns active profiles in estateID not present in excluding,
// ordered by id.
func (r *ProfileRepo) ListCandidates(ctx context.Context, estateID string, excluding map[string]struct{}) ([]*entity.Profile, error) {
	q := `SELECT ` + profileColumns + ` FROM profiles WHERE estate_id=$1 AND active AND NOT (id = ANY($2)) ORDER BY id`
	return r.list(ctx, q, estateID, excluding)
}

// ListCandidatesInArea is ListCandidates widened to a whole area.
func (r *ProfileRepo) ListCandidatesInArea(ctx context.Context, area string, excluding map[string]struct{}) ([]*entity.Profile, error) {
	q := `SELECT ` + profileColumns + ` FROM profiles WHERE area=$1 AND active AND NOT (id = ANY($2)) ORDER BY id`
	return r.list(ctx, q, area, excluding)
}

func (r *ProfileRepo) list(ctx context.Context, q, key string, excluding map[string]struct{}) ([]*entity.Profile, error) {
	var rows []profileRow
	if err := r.db.SelectContext(ctx, &rows, q, key, pq.Array(idList(excluding))); err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	out := make([]*entity.Profile, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toEntity())
	}
	return out, nil
}

// Upsert inserts p. For an existing profile it only replaces the member
// editable columns (name, location, interests, privacy) and reactivates it;
// verification flags, counters and badges keep their stored values.
func (r *ProfileRepo) Upsert(ctx context.Context, p *entity.Profile) error {
	const q = `INSERT INTO profiles (id, display_name, estate_id, estate_name, building_id, area, verification_level,
		phone_verified, identity_verified, address_verified, endorsements, events_organized, interests, badges,
		allow_connections, require_approval, show_location, show_activity, show_mutual_connections, active)
	VALUES (:id, :display_name, :estate_id, :estate_name, :building_id, :area, :verification_level,
		:phone_verified, :identity_verified, :address_verified, :endorsements, :events_organized, :interests, :badges,
		:allow_connections, :require_approval, :show_location, :show_activity, :show_mutual_connections, true)
	ON CONFLICT (id) DO UPDATE SET
		display_name=EXCLUDED.display_name, estate_id=EXCLUDED.estate_id, estate_name=EXCLUDED.estate_name,
		building_id=EXCLUDED.building_id, area=EXCLUDED.area, interests=EXCLUDED.interests,
		allow_connections=EXCLUDED.allow_connections, require_approval=EXCLUDED.require_approval,
		show_location=EXCLUDED.show_location, show_activity=EXCLUDED.show_activity,
		show_mutual_connections=EXCLUDED.show_mutual_connections, active=true, updated_at=NOW()`
	params := map[string]any{
		"id":                      p.ID,
		"display_name":            p.DisplayName,
		"estate_id":               p.Location.EstateID,
		"estate_name":             p.Location.EstateName,
		"building_id":             p.Location.BuildingID,
		"area":                    p.Location.Area,
		"verification_level":      string(p.VerificationLevel),
		"phone_verified":          p.PhoneVerified,
		"identity_verified":       p.IdentityVerified,
		"address_verified":        p.AddressVerified,
		"endorsements":            p.Endorsements,
		"events_organized":        p.EventsOrganized,
		"interests":               pq.Array(nonNil(p.Interests)),
		"badges":                  pq.Array(nonNil(p.Badges)),
		"allow_connections":       p.Privacy.AllowConnections,
		"require_approval":        p.Privacy.RequireApproval,
		"show_location":           p.Privacy.ShowLocation,
		"show_activity":           p.Privacy.ShowActivity,
		"show_mutual_connections": p.Privacy.ShowMutualConnections,
	}
	if _, err := r.db.NamedExecContext(ctx, q, params); err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// Deactivate marks a profile inactive; profiles are never deleted.
func (r *ProfileRepo) Deactivate(ctx context.Context, id string) error {
	const q = `UPDATE profiles SET active=false, updated_at=NOW() WHERE id=$1`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return fmt.Errorf("deactivate profile: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("profile", id)
	}
	return nil
}

func idList(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
