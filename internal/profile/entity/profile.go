package entity

import "time"

// VerificationLevel is the KYC tier a member has reached.
type VerificationLevel string

const (
	VerificationBasic    VerificationLevel = "basic"
	VerificationEnhanced VerificationLevel = "enhanced"
	VerificationPremium  VerificationLevel = "premium"
)

// Location places a member inside an estate.
type Location struct {
	EstateID   string `json:"estate_id"`
	EstateName string `json:"estate_name,omitempty"`
	BuildingID string `json:"building_id,omitempty"`
	Area       string `json:"area,omitempty"` // LGA / district
}

// Privacy holds the member controlled visibility flags.
type Privacy struct {
	AllowConnections      bool `json:"allow_connections"`
	RequireApproval       bool `json:"require_approval"`
	ShowLocation          bool `json:"show_location"`
	ShowActivity          bool `json:"show_activity"`
	ShowMutualConnections bool `json:"show_mutual_connections"`
}

// Profile represents a community member row in the `profiles` table.
// Profiles are never deleted; Active=false marks a deactivated member.
type Profile struct {
	ID                string            `json:"id"`
	DisplayName       string            `json:"display_name"`
	Location          Location          `json:"location"`
	VerificationLevel VerificationLevel `json:"verification_level"`
	PhoneVerified     bool              `json:"phone_verified"`
	IdentityVerified  bool              `json:"identity_verified"`
	AddressVerified   bool              `json:"address_verified"`
	Endorsements      int               `json:"endorsements"`
	EventsOrganized   int               `json:"events_organized"`
	Interests         []string          `json:"interests,omitempty"`
	Badges            []string          `json:"badges,omitempty"`
	Privacy           Privacy           `json:"privacy"`
	Active            bool              `json:"active"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// HasBadge reports whether the profile carries badge b.
func (p *Profile) HasBadge(b string) bool {
	for _, x := range p.Badges {
		if x == b {
			return true
		}
	}
	return false
}

// SharedInterests returns the interests present on both profiles, in the
// order they appear on p. Comparison is exact on the normalized tag.
func (p *Profile) SharedInterests(other *Profile) []string {
	if p == nil || other == nil {
		return nil
	}
	theirs := make(map[string]struct{}, len(other.Interests))
	for _, i := range other.Interests {
		theirs[i] = struct{}{}
	}
	var out []string
	seen := make(map[string]struct{}, len(p.Interests))
	for _, i := range p.Interests {
		if _, dup := seen[i]; dup {
			continue
		}
		seen[i] = struct{}{}
		if _, ok := theirs[i]; ok {
			out = append(out, i)
		}
	}
	return out
}
