// Package insights computes the batch business metrics: RFM, CLV, NPS,
// lifecycle funnel, subject demand, and activity windows. All functions
// are pure over the records passed in; the analytics service is
// responsible for loading inputs and persisting snapshots.
package insights

import (
	"math"
	"sort"
	"time"

	"github.com/skillloop/skillloop-server/internal/model"
)

// DefaultSessionAmount substitutes for sessions recorded without an
// amount.
const DefaultSessionAmount = 10.0

// CLVMultiplier projects lifetime value from observed monetary total.
const CLVMultiplier = 1.2

// RFM is the per-actor recency/frequency/monetary row.
type RFM struct {
	ActorID     string  `json:"actorId"`
	RecencyDays int     `json:"recencyDays"`
	Frequency   int     `json:"frequency"`
	Monetary    float64 `json:"monetary"`
	CLV         float64 `json:"clv"`
}

// ComputeRFM aggregates sessions per actor. Recency is whole days from
// the most recent session to now. Rows come back sorted by actor ID so
// output is stable across runs.
func ComputeRFM(sessions []model.Session, now time.Time) []RFM {
	type acc struct {
		last     time.Time
		count    int
		monetary float64
	}
	byActor := make(map[string]*acc)
	for _, s := range sessions {
		a := byActor[s.ActorID]
		if a == nil {
			a = &acc{}
			byActor[s.ActorID] = a
		}
		a.count++
		amount := DefaultSessionAmount
		if s.Amount != nil {
			amount = *s.Amount
		}
		a.monetary += amount
		if s.CreatedAt.After(a.last) {
			a.last = s.CreatedAt
		}
	}

	out := make([]RFM, 0, len(byActor))
	for id, a := range byActor {
		recency := int(math.Round(now.Sub(a.last).Hours() / 24))
		out = append(out, RFM{
			ActorID:     id,
			RecencyDays: recency,
			Frequency:   a.count,
			Monetary:    a.monetary,
			CLV:         a.monetary * CLVMultiplier,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ActorID < out[j].ActorID })
	return out
}

// AverageCLV is the mean CLV over actors with at least one session.
func AverageCLV(rows []RFM) float64 {
	total := 0.0
	n := 0
	for _, r := range rows {
		if r.Frequency == 0 {
			continue
		}
		total += r.CLV
		n++
	}
	if n == 0 {
		return 0
	}
	return total / float64(n)
}

// NPSBreakdown is the promoter/passive/detractor split plus the score.
type NPSBreakdown struct {
	Promoters  int `json:"promoters"`
	Passives   int `json:"passives"`
	Detractors int `json:"detractors"`
	Total      int `json:"total"`
	Score      int `json:"score"`
}

// ComputeNPS classifies 0-10 scores: >=9 promoter, <=6 detractor,
// everything else passive. Score is round((promoters-detractors)/total
// * 100), 0 for an empty input.
func ComputeNPS(scores []int) NPSBreakdown {
	var b NPSBreakdown
	for _, s := range scores {
		b.Total++
		switch {
		case s >= 9:
			b.Promoters++
		case s <= 6:
			b.Detractors++
		default:
			b.Passives++
		}
	}
	if b.Total == 0 {
		return b
	}
	b.Score = int(math.Round(float64(b.Promoters-b.Detractors) / float64(b.Total) * 100))
	return b
}

// StageFunnel counts entities per lifecycle stage. Records without a
// stage count as prospects.
func StageFunnel(entities []*model.Entity) map[string]int {
	funnel := map[string]int{
		model.StageProspect:  0,
		model.StageQualified: 0,
		model.StageCustomer:  0,
		model.StageLoyal:     0,
	}
	for _, e := range entities {
		stage := e.Stage
		if stage == "" {
			stage = model.StageProspect
		}
		if _, ok := funnel[stage]; ok {
			funnel[stage]++
		}
	}
	return funnel
}

// SessionStatusCounts tallies sessions per status. Unknown statuses
// count as pending.
func SessionStatusCounts(sessions []model.Session) map[string]int {
	counts := map[string]int{
		model.SessionPending:   0,
		model.SessionAccepted:  0,
		model.SessionCompleted: 0,
		model.SessionRejected:  0,
	}
	for _, s := range sessions {
		status := s.Status
		if _, ok := counts[status]; !ok {
			status = model.SessionPending
		}
		counts[status]++
	}
	return counts
}

// SubjectCount pairs a subject with the number of providers teaching it.
type SubjectCount struct {
	Subject string `json:"subject"`
	Count   int    `json:"count"`
}

// TopSubjects returns the most-taught subjects, descending by count with
// ties broken alphabetically, truncated to limit.
func TopSubjects(entities []*model.Entity, limit int) []SubjectCount {
	counts := map[string]int{}
	for _, e := range entities {
		for _, s := range e.CanTeach {
			counts[s]++
		}
	}
	out := make([]SubjectCount, 0, len(counts))
	for s, n := range counts {
		out = append(out, SubjectCount{Subject: s, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Subject < out[j].Subject
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// CountActiveSince returns how many entities were last active inside
// the window ending at now.
func CountActiveSince(entities []*model.Entity, window time.Duration, now time.Time) int {
	start := now.Add(-window)
	n := 0
	for _, e := range entities {
		if e.LastActiveAt == nil {
			continue
		}
		at := *e.LastActiveAt
		if !at.Before(start) && !at.After(now) {
			n++
		}
	}
	return n
}

// LowStock filters inventory below the threshold. No pagination; the
// caller gets the full list.
func LowStock(items []model.InventoryItem, threshold int) []model.InventoryItem {
	var out []model.InventoryItem
	for _, it := range items {
		if it.QtyAvailable < threshold {
			out = append(out, it)
		}
	}
	return out
}
