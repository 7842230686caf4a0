package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProximity(t *testing.T) {
	nearby := func(a, b string) bool {
		return (a == "lekki-1" && b == "lekki-2") || (a == "lekki-2" && b == "lekki-1")
	}
	me := &Profile{Location: Location{EstateID: "lekki-1", BuildingID: "b7", Area: "eti-osa"}}

	tests := []struct {
		name  string
		other *Profile
		fn    NearbyFunc
		want  ProximityLevel
	}{
		{"same building", &Profile{Location: Location{EstateID: "lekki-1", BuildingID: "b7"}}, nil, ProximitySameBuilding},
		{"same building id in another estate", &Profile{Location: Location{EstateID: "ikoyi", BuildingID: "b7"}}, nil, ProximityNone},
		{"same estate", &Profile{Location: Location{EstateID: "lekki-1", BuildingID: "b9"}}, nil, ProximitySameEstate},
		{"same estate without building", &Profile{Location: Location{EstateID: "lekki-1"}}, nil, ProximitySameEstate},
		{"nearby estate", &Profile{Location: Location{EstateID: "lekki-2", Area: "eti-osa"}}, nearby, ProximityNearbyEstate},
		{"nearby unknown falls back to area", &Profile{Location: Location{EstateID: "lekki-2", Area: "eti-osa"}}, nil, ProximitySameArea},
		{"different area", &Profile{Location: Location{EstateID: "gwarinpa", Area: "amac"}}, nearby, ProximityNone},
		{"nil", nil, nil, ProximityNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Proximity(me, tt.other, tt.fn))
		})
	}
}

func TestSharedInterests(t *testing.T) {
	a := &Profile{Interests: []string{"football", "cooking", "football", "jazz"}}
	b := &Profile{Interests: []string{"jazz", "football", "tennis"}}

	assert.Equal(t, []string{"football", "jazz"}, a.SharedInterests(b))
	assert.Empty(t, a.SharedInterests(&Profile{}))
	assert.Nil(t, a.SharedInterests(nil))
}

func TestHasBadge(t *testing.T) {
	p := &Profile{Badges: []string{"verified_resident", "first_aider"}}

	assert.True(t, p.HasBadge("first_aider"))
	assert.False(t, p.HasBadge("security_volunteer"))
}
