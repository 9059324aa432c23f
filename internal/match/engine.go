// Package match ranks reciprocal peer matches. The engine is pure: it
// takes the actor and a candidate pool as values and never touches the
// store, so a matching pass is deterministic for identical inputs.
package match

import (
	"math"

	"github.com/skillloop/skillloop-server/internal/model"
	"github.com/skillloop/skillloop-server/internal/score"
)

// Params tune one matching pass. Zero values fall back to defaults.
type Params struct {
	DesiredMinutes int     // availability target, default 120
	MaxDistanceKm  float64 // distance at which location score reaches 0, default 30
	Limit          int     // max results, default 20
}

const (
	defaultDesiredMinutes = 120
	defaultMaxDistanceKm  = 30
	defaultLimit          = 20
)

func (p Params) withDefaults() Params {
	if p.DesiredMinutes <= 0 {
		p.DesiredMinutes = defaultDesiredMinutes
	}
	if p.MaxDistanceKm <= 0 {
		p.MaxDistanceKm = defaultMaxDistanceKm
	}
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	return p
}

// Match is one ranked result with its component scores echoed for the
// caller's UI.
type Match struct {
	CandidateID       string  `json:"candidateId"`
	Score             float64 `json:"score"`
	SubjectScore      float64 `json:"subjectScore"`
	AvailabilityScore float64 `json:"availabilityScore"`
	LocationScore     float64 `json:"locationScore"`
	RatingScore       float64 `json:"ratingScore"`
	StyleScore        float64 `json:"styleScore"`
}

// Composite weights. Subject reciprocity dominates.
const (
	wSubject      = 0.45
	wAvailability = 0.20
	wLocation     = 0.15
	wRating       = 0.10
	wStyle        = 0.10
)

// FindMatches scores every reciprocal candidate in the pool against the
// actor and returns up to p.Limit results in descending score order.
// Candidates without reciprocity (neither side offers what the other
// needs) are excluded before any scoring happens. The actor itself is
// skipped if present in the pool.
func FindMatches(actor *model.Entity, pool []*model.Entity, p Params) []Match {
	p = p.withDefaults()

	byID := make(map[string]Match, len(pool))
	top := NewTopK(len(pool))

	for _, cand := range pool {
		if cand.ID == actor.ID {
			continue
		}
		m, ok := scoreCandidate(actor, cand, p)
		if !ok {
			continue
		}
		byID[cand.ID] = m
		top.Push(Candidate{ID: cand.ID, Score: m.Score})
	}

	out := make([]Match, 0, min(p.Limit, top.Len()))
	for len(out) < p.Limit {
		c, ok := top.Pop()
		if !ok {
			break
		}
		out = append(out, byID[c.ID])
	}
	return out
}

// scoreCandidate computes the weighted composite for one pair. The
// second return is false when the pair is not reciprocal.
func scoreCandidate(actor, cand *model.Entity, p Params) (Match, bool) {
	actorNeedsMet := intersectCount(actor.WantsToLearn, cand.CanTeach)
	candNeedsMet := intersectCount(cand.WantsToLearn, actor.CanTeach)
	if actorNeedsMet == 0 || candNeedsMet == 0 {
		return Match{}, false
	}

	subject := float64(min(actorNeedsMet, candNeedsMet)) / math.Max(1, float64(len(actor.WantsToLearn)))

	overlap := score.OverlapMinutes(actor.Availability, cand.Availability)
	availability := math.Min(1, float64(overlap)/float64(p.DesiredMinutes))

	// Missing coordinates are neutral, not a penalty.
	location := 0.5
	if d := score.HaversineKm(actor.Location, cand.Location); d != nil {
		location = math.Max(0, 1-*d/p.MaxDistanceKm)
	}

	rating := (actor.RatingOrDefault() + cand.RatingOrDefault()) / 10

	style := score.Jaccard(actor.LearningStyles, cand.LearningStyles)

	composite := wSubject*subject + wAvailability*availability +
		wLocation*location + wRating*rating + wStyle*style

	return Match{
		CandidateID:       cand.ID,
		Score:             math.Round(composite*10000) / 10000,
		SubjectScore:      subject,
		AvailabilityScore: availability,
		LocationScore:     location,
		RatingScore:       rating,
		StyleScore:        style,
	}, true
}

func intersectCount(a, b []string) int {
	set := make(map[string]struct{}, len(b))
	for _, x := range b {
		set[x] = struct{}{}
	}
	n := 0
	seen := make(map[string]struct{}, len(a))
	for _, x := range a {
		if _, dup := seen[x]; dup {
			continue
		}
		seen[x] = struct{}{}
		if _, ok := set[x]; ok {
			n++
		}
	}
	return n
}
