package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillloop/skillloop-server/internal/model"
)

func fullWeekSlots() []model.Slot {
	return []model.Slot{{Day: 1, StartMin: 540, EndMin: 540 + 180}}
}

func TestFindMatches_ExactCompositeScore(t *testing.T) {
	loc := &model.GeoPoint{Lat: 52.52, Lng: 13.405}
	actor := &model.Entity{
		ID:             "actor",
		WantsToLearn:   []string{"Math"},
		CanTeach:       []string{"Art"},
		Availability:   fullWeekSlots(),
		Location:       loc,
		LearningStyles: []string{"visual"},
	}
	cand := &model.Entity{
		ID:             "cand",
		WantsToLearn:   []string{"Art"},
		CanTeach:       []string{"Math"},
		Availability:   fullWeekSlots(),
		Location:       loc,
		LearningStyles: []string{"visual"},
	}

	out := FindMatches(actor, []*model.Entity{cand}, Params{})
	require.Len(t, out, 1)

	// 0.45*1 + 0.20*1 + 0.15*1 + 0.10*0.8 + 0.10*1 = 0.98 for default ratings.
	m := out[0]
	assert.Equal(t, "cand", m.CandidateID)
	assert.InDelta(t, 0.98, m.Score, 0.00005)
	assert.Equal(t, 1.0, m.SubjectScore)
	assert.Equal(t, 1.0, m.AvailabilityScore)
	assert.Equal(t, 1.0, m.LocationScore)
	assert.InDelta(t, 0.8, m.RatingScore, 1e-9)
	assert.Equal(t, 1.0, m.StyleScore)
}

func TestFindMatches_NonReciprocalExcluded(t *testing.T) {
	actor := &model.Entity{
		ID:           "actor",
		WantsToLearn: []string{"Math"},
		CanTeach:     []string{"Art"},
	}
	// Teaches what the actor wants but needs nothing the actor offers.
	oneWay := &model.Entity{
		ID:           "oneway",
		WantsToLearn: []string{"Chess"},
		CanTeach:     []string{"Math"},
	}
	// Perfect everything else; still excluded.
	oneWay.Availability = fullWeekSlots()
	oneWay.LearningStyles = []string{"visual"}

	out := FindMatches(actor, []*model.Entity{oneWay}, Params{})
	assert.Empty(t, out)
}

func TestFindMatches_EmptyPool(t *testing.T) {
	actor := &model.Entity{ID: "actor", WantsToLearn: []string{"Math"}}
	assert.Empty(t, FindMatches(actor, nil, Params{}))
}

func TestFindMatches_SkipsSelf(t *testing.T) {
	actor := &model.Entity{
		ID:           "actor",
		WantsToLearn: []string{"Math"},
		CanTeach:     []string{"Math"},
	}
	out := FindMatches(actor, []*model.Entity{actor}, Params{})
	assert.Empty(t, out)
}

func TestFindMatches_SubjectScoreUsesReciprocityMinimum(t *testing.T) {
	actor := &model.Entity{
		ID:           "actor",
		WantsToLearn: []string{"Math", "Music"},
		CanTeach:     []string{"Art", "Chess"},
	}
	// Candidate satisfies both actor needs but only needs one actor subject.
	cand := &model.Entity{
		ID:           "cand",
		WantsToLearn: []string{"Art"},
		CanTeach:     []string{"Math", "Music"},
	}
	out := FindMatches(actor, []*model.Entity{cand}, Params{})
	require.Len(t, out, 1)
	// min(2, 1) / max(1, 2) = 0.5
	assert.Equal(t, 0.5, out[0].SubjectScore)
}

func TestFindMatches_MissingLocationIsNeutral(t *testing.T) {
	actor := &model.Entity{
		ID:           "actor",
		WantsToLearn: []string{"Math"},
		CanTeach:     []string{"Art"},
		Location:     &model.GeoPoint{Lat: 1, Lng: 1},
	}
	cand := &model.Entity{
		ID:           "cand",
		WantsToLearn: []string{"Art"},
		CanTeach:     []string{"Math"},
	}
	out := FindMatches(actor, []*model.Entity{cand}, Params{})
	require.Len(t, out, 1)
	assert.Equal(t, 0.5, out[0].LocationScore)
}

func TestFindMatches_DistanceBeyondMaxScoresZero(t *testing.T) {
	actor := &model.Entity{
		ID:           "actor",
		WantsToLearn: []string{"Math"},
		CanTeach:     []string{"Art"},
		Location:     &model.GeoPoint{Lat: 52.52, Lng: 13.405}, // Berlin
	}
	cand := &model.Entity{
		ID:           "cand",
		WantsToLearn: []string{"Art"},
		CanTeach:     []string{"Math"},
		Location:     &model.GeoPoint{Lat: 48.8566, Lng: 2.3522}, // Paris
	}
	out := FindMatches(actor, []*model.Entity{cand}, Params{MaxDistanceKm: 30})
	require.Len(t, out, 1)
	assert.Equal(t, 0.0, out[0].LocationScore)
}

func TestFindMatches_RankingAndLimit(t *testing.T) {
	actor := &model.Entity{
		ID:           "actor",
		WantsToLearn: []string{"Math"},
		CanTeach:     []string{"Art"},
	}
	mk := func(id string, rating float64) *model.Entity {
		return &model.Entity{
			ID:           id,
			WantsToLearn: []string{"Art"},
			CanTeach:     []string{"Math"},
			Rating:       &rating,
		}
	}
	pool := []*model.Entity{mk("c", 3), mk("a", 5), mk("b", 4)}

	out := FindMatches(actor, pool, Params{Limit: 2})
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].CandidateID)
	assert.Equal(t, "b", out[1].CandidateID)
}

func TestFindMatches_TieBreaksByCandidateID(t *testing.T) {
	actor := &model.Entity{
		ID:           "actor",
		WantsToLearn: []string{"Math"},
		CanTeach:     []string{"Art"},
	}
	mk := func(id string) *model.Entity {
		return &model.Entity{ID: id, WantsToLearn: []string{"Art"}, CanTeach: []string{"Math"}}
	}
	pool := []*model.Entity{mk("zeta"), mk("alpha"), mk("mid")}

	out := FindMatches(actor, pool, Params{})
	require.Len(t, out, 3)
	assert.Equal(t, "alpha", out[0].CandidateID)
	assert.Equal(t, "mid", out[1].CandidateID)
	assert.Equal(t, "zeta", out[2].CandidateID)
}
