package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/skillloop/skillloop-server/internal/graph"
	"github.com/skillloop/skillloop-server/internal/insights"
	"github.com/skillloop/skillloop-server/internal/model"
	"github.com/skillloop/skillloop-server/internal/store"
)

const (
	lowStockThreshold = 10
	rfmSnapshotCap    = 50
	topSubjectsLimit  = 10
	activeUserWindow  = 7 * 24 * time.Hour
)

// AnalyticsService records activity events and computes the aggregate
// metric snapshots plus referral-graph queries.
type AnalyticsService struct {
	store store.Store
	log   zerolog.Logger
}

func NewAnalyticsService(s store.Store, log zerolog.Logger) *AnalyticsService {
	return &AnalyticsService{store: s, log: log}
}

func (s *AnalyticsService) RecordSession(ctx context.Context, sess *model.Session) (*model.Session, error) {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	if sess.Status == "" {
		sess.Status = model.SessionPending
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now().UTC()
	}
	return s.store.Sessions().Create(ctx, sess)
}

func (s *AnalyticsService) RecordFeedback(ctx context.Context, f *model.FeedbackScore) error {
	if f.Score < 0 || f.Score > 10 {
		return fmt.Errorf("nps score %d out of range: %w", f.Score, model.ErrInvalidArgument)
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	return s.store.Feedback().Create(ctx, f)
}

func (s *AnalyticsService) AddReferral(ctx context.Context, r *model.Referral) error {
	if r.ReferrerID == r.RefereeID {
		return fmt.Errorf("self-referral: %w", model.ErrInvalidArgument)
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	return s.store.Referrals().Create(ctx, r)
}

// Reach loads the referral graph and runs a breadth-first traversal
// from startID, bounded by maxDepth.
func (s *AnalyticsService) Reach(ctx context.Context, startID string, maxDepth int) (graph.ReachResult, error) {
	edges, err := s.store.Referrals().List(ctx)
	if err != nil {
		return graph.ReachResult{}, err
	}
	return graph.New(edges).Reach(startID, maxDepth), nil
}

// FindPath returns the first depth-first referral chain from one member
// to another, or NotFound when no chain exists.
func (s *AnalyticsService) FindPath(ctx context.Context, fromID, toID string) ([]string, error) {
	edges, err := s.store.Referrals().List(ctx)
	if err != nil {
		return nil, err
	}
	path := graph.New(edges).FindPath(fromID, toID)
	if path == nil {
		return nil, fmt.Errorf("no referral path from %s to %s: %w", fromID, toID, model.ErrNotFound)
	}
	return path, nil
}

func (s *AnalyticsService) LowStock(ctx context.Context) ([]model.InventoryItem, error) {
	return s.store.Inventory().Below(ctx, lowStockThreshold)
}

func (s *AnalyticsService) GetMetric(ctx context.Context, name string) (*model.MetricsSnapshot, error) {
	return s.store.Metrics().Get(ctx, name)
}

// ComputeAggregates runs one full aggregation pass and writes a metrics
// snapshot per measure. It is externally triggered; each call reads the
// current collections and replaces the previous snapshots.
func (s *AnalyticsService) ComputeAggregates(ctx context.Context) error {
	now := time.Now().UTC()

	sessions, err := s.store.Sessions().List(ctx)
	if err != nil {
		return err
	}
	scores, err := s.store.Feedback().Scores(ctx)
	if err != nil {
		return err
	}
	leads, err := s.store.Leads().List(ctx)
	if err != nil {
		return err
	}
	users, err := s.store.Users().List(ctx)
	if err != nil {
		return err
	}
	low, err := s.store.Inventory().Below(ctx, lowStockThreshold)
	if err != nil {
		return err
	}

	everyone := make([]*model.Entity, 0, len(leads)+len(users))
	everyone = append(everyone, leads...)
	everyone = append(everyone, users...)

	rfm := insights.ComputeRFM(sessions, now)
	rfmOut := rfm
	if len(rfmOut) > rfmSnapshotCap {
		rfmOut = rfmOut[:rfmSnapshotCap]
	}

	snapshots := map[string]any{
		"rfm":            rfmOut,
		"clv":            map[string]float64{"average": insights.AverageCLV(rfm)},
		"nps":            insights.ComputeNPS(scores),
		"low_stock":      low,
		"funnel":         insights.StageFunnel(everyone),
		"session_status": insights.SessionStatusCounts(sessions),
		"top_subjects":   insights.TopSubjects(users, topSubjectsLimit),
		"active_users":   map[string]int{"count": insights.CountActiveSince(users, activeUserWindow, now)},
	}
	for name, v := range snapshots {
		payload, err := json.Marshal(v)
		if err != nil {
			return err
		}
		snap := &model.MetricsSnapshot{Name: name, Payload: payload, ComputedAt: now}
		if err := s.store.Metrics().Put(ctx, snap); err != nil {
			return err
		}
	}
	s.log.Info().Int("snapshots", len(snapshots)).Msg("aggregation pass complete")
	return nil
}
