package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/skillloop/skillloop-server/internal/insights"
	"github.com/skillloop/skillloop-server/internal/model"
	"github.com/skillloop/skillloop-server/internal/store/memory"
)

func TestComputeAggregates_WritesSnapshots(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	svc := NewAnalyticsService(st, zerolog.Nop())

	amount := 120.0
	_, err := svc.RecordSession(ctx, &model.Session{ActorID: "u1", Amount: &amount, Status: model.SessionCompleted})
	require.NoError(t, err)
	_, err = svc.RecordSession(ctx, &model.Session{ActorID: "u1", Status: model.SessionPending})
	require.NoError(t, err)

	for _, n := range []int{10, 10, 1, 1} {
		require.NoError(t, svc.RecordFeedback(ctx, &model.FeedbackScore{ActorID: "u1", Score: n}))
	}
	require.NoError(t, st.Inventory().Upsert(ctx, &model.InventoryItem{SKU: "low", Name: "Low", Price: 1, QtyAvailable: 2}))
	require.NoError(t, st.Inventory().Upsert(ctx, &model.InventoryItem{SKU: "ok", Name: "OK", Price: 1, QtyAvailable: 50}))

	_, err = NewUserService(st).CreateUser(ctx, &model.Entity{
		Email: "u@example.com", Phone: "1", Name: "U", CanTeach: []string{"go"},
	})
	require.NoError(t, err)

	require.NoError(t, svc.ComputeAggregates(ctx))

	nps, err := svc.GetMetric(ctx, "nps")
	require.NoError(t, err)
	var breakdown insights.NPSBreakdown
	require.NoError(t, json.Unmarshal(nps.Payload, &breakdown))
	require.Equal(t, 0, breakdown.Score)
	require.Equal(t, 2, breakdown.Promoters)
	require.Equal(t, 2, breakdown.Detractors)

	low, err := svc.GetMetric(ctx, "low_stock")
	require.NoError(t, err)
	var items []model.InventoryItem
	require.NoError(t, json.Unmarshal(low.Payload, &items))
	require.Len(t, items, 1)
	require.Equal(t, "low", items[0].SKU)

	rfm, err := svc.GetMetric(ctx, "rfm")
	require.NoError(t, err)
	var rows []insights.RFM
	require.NoError(t, json.Unmarshal(rfm.Payload, &rows))
	require.Len(t, rows, 1)
	require.Equal(t, 2, rows[0].Frequency)
	// 120 + default 10 for the amount-less session.
	require.InDelta(t, 130, rows[0].Monetary, 1e-9)

	for _, name := range []string{"clv", "funnel", "session_status", "top_subjects", "active_users"} {
		snap, err := svc.GetMetric(ctx, name)
		require.NoError(t, err, name)
		require.NotEmpty(t, snap.Payload, name)
		require.False(t, snap.ComputedAt.IsZero(), name)
	}
}

func TestRecordFeedback_RejectsOutOfRange(t *testing.T) {
	svc := NewAnalyticsService(memory.New(), zerolog.Nop())
	err := svc.RecordFeedback(context.Background(), &model.FeedbackScore{ActorID: "u1", Score: 11})
	require.ErrorIs(t, err, model.ErrInvalidArgument)
}

func TestReachAndPath(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	svc := NewAnalyticsService(st, zerolog.Nop())

	now := time.Now().UTC()
	for _, e := range [][2]string{{"a", "b"}, {"b", "c"}, {"c", "a"}} {
		require.NoError(t, svc.AddReferral(ctx, &model.Referral{ReferrerID: e[0], RefereeID: e[1], CreatedAt: now}))
	}

	res, err := svc.Reach(ctx, "a", 3)
	require.NoError(t, err)
	require.Equal(t, 2, res.Reach)
	require.Equal(t, 3, res.NodeCount)

	path, err := svc.FindPath(ctx, "a", "c")
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, path)

	_, err = svc.FindPath(ctx, "c", "zzz")
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestAddReferral_RejectsSelf(t *testing.T) {
	svc := NewAnalyticsService(memory.New(), zerolog.Nop())
	err := svc.AddReferral(context.Background(), &model.Referral{ReferrerID: "a", RefereeID: "a"})
	require.ErrorIs(t, err, model.ErrInvalidArgument)
}
