package insights

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillloop/skillloop-server/internal/model"
)

func amount(v float64) *float64 { return &v }

func TestComputeRFM(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	sessions := []model.Session{
		{ActorID: "u1", Amount: amount(30), CreatedAt: now.AddDate(0, 0, -10)},
		{ActorID: "u1", Amount: amount(20), CreatedAt: now.AddDate(0, 0, -2)},
		{ActorID: "u2", CreatedAt: now.AddDate(0, 0, -5)}, // no amount -> default 10
	}

	rows := ComputeRFM(sessions, now)
	require.Len(t, rows, 2)

	u1 := rows[0]
	assert.Equal(t, "u1", u1.ActorID)
	assert.Equal(t, 2, u1.RecencyDays)
	assert.Equal(t, 2, u1.Frequency)
	assert.Equal(t, 50.0, u1.Monetary)
	assert.InDelta(t, 60.0, u1.CLV, 1e-9)

	u2 := rows[1]
	assert.Equal(t, "u2", u2.ActorID)
	assert.Equal(t, 5, u2.RecencyDays)
	assert.Equal(t, 1, u2.Frequency)
	assert.Equal(t, DefaultSessionAmount, u2.Monetary)
}

func TestComputeRFM_Empty(t *testing.T) {
	assert.Empty(t, ComputeRFM(nil, time.Now()))
}

func TestAverageCLV(t *testing.T) {
	rows := []RFM{
		{ActorID: "a", Frequency: 1, CLV: 12},
		{ActorID: "b", Frequency: 3, CLV: 36},
		{ActorID: "c", Frequency: 0, CLV: 999}, // excluded
	}
	assert.InDelta(t, 24.0, AverageCLV(rows), 1e-9)
	assert.Equal(t, 0.0, AverageCLV(nil))
}

func TestComputeNPS(t *testing.T) {
	tests := []struct {
		name   string
		scores []int
		want   NPSBreakdown
	}{
		{
			name:   "balanced promoters and detractors",
			scores: []int{10, 10, 1, 1},
			want:   NPSBreakdown{Promoters: 2, Detractors: 2, Total: 4, Score: 0},
		},
		{
			name:   "all promoters",
			scores: []int{9, 10},
			want:   NPSBreakdown{Promoters: 2, Total: 2, Score: 100},
		},
		{
			name:   "passives dilute",
			scores: []int{10, 7, 8, 3},
			want:   NPSBreakdown{Promoters: 1, Passives: 2, Detractors: 1, Total: 4, Score: 0},
		},
		{
			name:   "empty is zero not NaN",
			scores: nil,
			want:   NPSBreakdown{},
		},
		{
			name:   "boundary six is detractor",
			scores: []int{6},
			want:   NPSBreakdown{Detractors: 1, Total: 1, Score: -100},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeNPS(tt.scores))
		})
	}
}

func TestStageFunnel(t *testing.T) {
	entities := []*model.Entity{
		{Stage: model.StageProspect},
		{Stage: ""},
		{Stage: model.StageCustomer},
		{Stage: model.StageLoyal},
		{Stage: "bogus"},
	}
	funnel := StageFunnel(entities)
	assert.Equal(t, 2, funnel[model.StageProspect])
	assert.Equal(t, 0, funnel[model.StageQualified])
	assert.Equal(t, 1, funnel[model.StageCustomer])
	assert.Equal(t, 1, funnel[model.StageLoyal])
}

func TestSessionStatusCounts(t *testing.T) {
	sessions := []model.Session{
		{Status: model.SessionCompleted},
		{Status: model.SessionCompleted},
		{Status: model.SessionRejected},
		{Status: ""},
	}
	counts := SessionStatusCounts(sessions)
	assert.Equal(t, 2, counts[model.SessionCompleted])
	assert.Equal(t, 1, counts[model.SessionRejected])
	assert.Equal(t, 1, counts[model.SessionPending])
}

func TestTopSubjects(t *testing.T) {
	entities := []*model.Entity{
		{CanTeach: []string{"Math", "Art"}},
		{CanTeach: []string{"Math"}},
		{CanTeach: []string{"Chess"}},
	}
	top := TopSubjects(entities, 2)
	require.Len(t, top, 2)
	assert.Equal(t, SubjectCount{Subject: "Math", Count: 2}, top[0])
	// Art and Chess tie at 1; alphabetical wins.
	assert.Equal(t, SubjectCount{Subject: "Art", Count: 1}, top[1])
}

func TestCountActiveSince(t *testing.T) {
	now := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	in := now.AddDate(0, 0, -3)
	out := now.AddDate(0, 0, -10)
	entities := []*model.Entity{
		{LastActiveAt: &in},
		{LastActiveAt: &out},
		{},
	}
	assert.Equal(t, 1, CountActiveSince(entities, 7*24*time.Hour, now))
}

func TestLowStock(t *testing.T) {
	items := []model.InventoryItem{
		{SKU: "a", QtyAvailable: 3},
		{SKU: "b", QtyAvailable: 10},
		{SKU: "c", QtyAvailable: 9},
	}
	low := LowStock(items, 10)
	require.Len(t, low, 2)
	assert.Equal(t, "a", low[0].SKU)
	assert.Equal(t, "c", low[1].SKU)
}
