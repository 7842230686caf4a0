package trust

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ovaphlow/pitchfork/service-neighbor/internal/profile/entity"
)

func TestScorer_Score(t *testing.T) {
	s := NewScorer(nil)

	tests := []struct {
		name    string
		profile *entity.Profile
		want    int
	}{
		{"nil profile", nil, 0},
		{"empty profile", &entity.Profile{}, 0},
		{"phone only", &entity.Profile{PhoneVerified: true}, 20},
		{"phone and identity, six endorsements", &entity.Profile{PhoneVerified: true, IdentityVerified: true, Endorsements: 6}, 62},
		{"endorsements capped", &entity.Profile{Endorsements: 40}, 10},
		{"events capped", &entity.Profile{EventsOrganized: 25}, 10},
		{"negative counters ignored", &entity.Profile{PhoneVerified: true, Endorsements: -3, EventsOrganized: -1}, 20},
		{"everything", &entity.Profile{
			PhoneVerified: true, IdentityVerified: true, AddressVerified: true,
			Endorsements: 5, EventsOrganized: 10,
		}, 100},
		{"everything over caps", &entity.Profile{
			PhoneVerified: true, IdentityVerified: true, AddressVerified: true,
			Endorsements: 500, EventsOrganized: 500,
		}, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Score(tt.profile))
		})
	}
}

func TestScorer_ScoreAlwaysInRange(t *testing.T) {
	s := NewScorer(nil)
	for mask := 0; mask < 8; mask++ {
		for endorsements := -2; endorsements <= 12; endorsements++ {
			for events := -2; events <= 12; events++ {
				p := &entity.Profile{
					PhoneVerified:    mask&1 != 0,
					IdentityVerified: mask&2 != 0,
					AddressVerified:  mask&4 != 0,
					Endorsements:     endorsements,
					EventsOrganized:  events,
				}
				score := s.Score(p)
				require.GreaterOrEqual(t, score, MinScore)
				require.LessOrEqual(t, score, MaxScore)
			}
		}
	}
}

func TestScorer_LevelCoversRangeWithoutGaps(t *testing.T) {
	s := NewScorer(nil)
	for score := MinScore; score <= MaxScore; score++ {
		matches := 0
		for _, l := range Levels() {
			if score >= l.Min && score <= l.Max {
				matches++
			}
		}
		require.Equal(t, 1, matches, "score %d must fall in exactly one band", score)

		l := s.Level(score)
		assert.True(t, score >= l.Min && score <= l.Max, "score %d mapped to %s", score, l.ID)
	}
}

func TestScorer_LevelBoundaries(t *testing.T) {
	s := NewScorer(nil)
	tests := []struct {
		score int
		want  LevelID
	}{
		{0, LevelNewNeighbor},
		{24, LevelNewNeighbor},
		{25, LevelKnownNeighbor},
		{49, LevelKnownNeighbor},
		{50, LevelTrustedNeighbor},
		{62, LevelTrustedNeighbor},
		{74, LevelTrustedNeighbor},
		{75, LevelCommunityPillar},
		{89, LevelCommunityPillar},
		{90, LevelEstateElder},
		{100, LevelEstateElder},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, s.Level(tt.score).ID, "score %d", tt.score)
	}
}

func TestScorer_LevelClampsAndLogs(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	s := NewScorer(zap.New(core).Sugar())

	assert.Equal(t, LevelNewNeighbor, s.Level(-5).ID)
	assert.Equal(t, LevelEstateElder, s.Level(140).ID)
	assert.Equal(t, 2, logs.FilterMessage("trust score out of range, clamping").Len())

	s.Level(50)
	assert.Equal(t, 2, logs.Len(), "in-range scores are not logged")
}

func TestScorer_AssessScenario(t *testing.T) {
	s := NewScorer(nil)
	score, level := s.Assess(&entity.Profile{PhoneVerified: true, IdentityVerified: true, Endorsements: 6})

	assert.Equal(t, 62, score)
	assert.Equal(t, "Trusted Neighbor", level.Name)
	assert.True(t, level.HasPrivilege("sell_in_marketplace"))
}

func TestLevels_ReturnsCopy(t *testing.T) {
	ls := Levels()
	ls[0].Privileges[0] = "mutated"
	ls[0].Name = "mutated"

	fresh := Levels()
	assert.Equal(t, "New Neighbor", fresh[0].Name)
	assert.Equal(t, "view_public_posts", fresh[0].Privileges[0])
}

func TestScorer_LevelDetachedFromTable(t *testing.T) {
	s := NewScorer(nil)

	tests := []struct {
		name string
		get  func() Level
	}{
		{"Level", func() Level { return s.Level(62) }},
		{"Assess", func() Level {
			_, l := s.Assess(&entity.Profile{PhoneVerified: true, IdentityVerified: true, Endorsements: 6})
			return l
		}},
		{"LevelByID", func() Level {
			l, _ := LevelByID("TRUSTED_NEIGHBOR")
			return l
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := tt.get()
			require.NotEmpty(t, l.Privileges)
			want := l.Privileges[0]
			l.Privileges[0] = "mutated"

			assert.Equal(t, want, tt.get().Privileges[0])
			assert.Equal(t, want, s.Level(62).Privileges[0])
		})
	}
}

func TestLevelByID(t *testing.T) {
	l, ok := LevelByID("ESTATE_ELDER")
	require.True(t, ok)
	assert.Equal(t, 90, l.Min)

	_, ok = LevelByID("mayor")
	assert.False(t, ok)
}
