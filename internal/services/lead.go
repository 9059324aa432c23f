package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/skillloop/skillloop-server/internal/model"
	"github.com/skillloop/skillloop-server/internal/score"
	"github.com/skillloop/skillloop-server/internal/store"
)

// LeadService handles lead intake, claiming and conversion.
type LeadService struct {
	store store.Store
	log   zerolog.Logger
}

func NewLeadService(s store.Store, log zerolog.Logger) *LeadService {
	return &LeadService{store: s, log: log}
}

// CreateLead runs the intake pipeline: fingerprint, duplicate detection
// against both leads and users, priority scoring, and queue insertion.
func (s *LeadService) CreateLead(ctx context.Context, lead *model.Entity) (*model.Entity, error) {
	if lead.ID == "" {
		lead.ID = uuid.NewString()
	}
	if lead.Stage == "" {
		lead.Stage = model.StageProspect
	}
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = time.Now().UTC()
	}
	lead.Fingerprint = score.Fingerprint(lead.Email, lead.Phone, lead.Name)

	dup, err := s.hasFingerprint(ctx, lead.Fingerprint)
	if err != nil {
		return nil, err
	}
	lead.Duplicate = dup
	lead.Score = score.LeadScore(lead)

	created, err := s.store.Leads().Create(ctx, lead)
	if err != nil {
		return nil, err
	}
	err = s.store.Queue().Insert(ctx, &model.QueueEntry{
		EntityID:  created.ID,
		Score:     created.Score,
		CreatedAt: created.CreatedAt,
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("lead_id", created.ID).Float64("score", created.Score).
		Bool("duplicate", created.Duplicate).Msg("lead created")
	return created, nil
}

func (s *LeadService) hasFingerprint(ctx context.Context, fp string) (bool, error) {
	leads, err := s.store.Leads().FindByFingerprint(ctx, fp)
	if err != nil {
		return false, err
	}
	if len(leads) > 0 {
		return true, nil
	}
	users, err := s.store.Users().FindByFingerprint(ctx, fp)
	if err != nil {
		return false, err
	}
	return len(users) > 0, nil
}

func (s *LeadService) GetLead(ctx context.Context, id string) (*model.Entity, error) {
	return s.store.Leads().Get(ctx, id)
}

// ClaimTopLeads walks the queue in priority order and attempts to claim
// up to limit leads for the requester. Each entry runs in its own
// transaction so one conflict does not abort the batch. Already-assigned
// leads are skipped; entries pointing at deleted leads are removed.
func (s *LeadService) ClaimTopLeads(ctx context.Context, requesterID string, limit int) ([]*model.Entity, error) {
	entries, err := s.store.Queue().TopByScore(ctx, limit)
	if err != nil {
		return nil, err
	}

	var assigned []*model.Entity
	for _, entry := range entries {
		var claimed *model.Entity
		err := s.store.InTx(ctx, func(tx store.Tx) error {
			if _, err := tx.GetQueueEntry(ctx, entry.EntityID); err != nil {
				// Already consumed by a concurrent claimer.
				if errors.Is(err, model.ErrNotFound) {
					return nil
				}
				return err
			}
			lead, err := tx.GetLead(ctx, entry.EntityID)
			if errors.Is(err, model.ErrNotFound) {
				// Stale entry, the lead is gone. Garbage-collect it.
				return tx.DeleteQueueEntry(ctx, entry.EntityID)
			}
			if err != nil {
				return err
			}
			if lead.AssignedTo != nil {
				return nil
			}
			at := time.Now().UTC()
			if err := tx.AssignLead(ctx, lead.ID, requesterID, at); err != nil {
				return err
			}
			if err := tx.DeleteQueueEntry(ctx, entry.EntityID); err != nil {
				return err
			}
			out := *lead
			out.AssignedTo = &requesterID
			out.AssignedAt = &at
			out.Stage = model.StageQualified
			claimed = &out
			return nil
		})
		if err != nil {
			if errors.Is(err, model.ErrConflict) {
				// A concurrent claimer won this entry.
				s.log.Debug().Str("entity_id", entry.EntityID).Msg("claim lost to concurrent transaction")
				continue
			}
			return nil, err
		}
		if claimed != nil {
			assigned = append(assigned, claimed)
		}
	}
	s.log.Info().Str("requester_id", requesterID).Int("assigned", len(assigned)).Msg("lead claim batch complete")
	return assigned, nil
}

// ConvertLead promotes a lead to a customer: a user entity is created
// from the lead's profile and the lead is marked converted.
func (s *LeadService) ConvertLead(ctx context.Context, leadID string) (*model.Entity, error) {
	lead, err := s.store.Leads().Get(ctx, leadID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	user := &model.Entity{
		ID:             uuid.NewString(),
		Email:          lead.Email,
		Phone:          lead.Phone,
		Name:           lead.Name,
		Role:           "member",
		CanTeach:       lead.CanTeach,
		WantsToLearn:   lead.WantsToLearn,
		Availability:   lead.Availability,
		Location:       lead.Location,
		LearningStyles: lead.LearningStyles,
		Stage:          model.StageCustomer,
		Fingerprint:    lead.Fingerprint,
		CreatedAt:      now,
	}
	created, err := s.store.Users().Create(ctx, user)
	if err != nil {
		return nil, err
	}

	lead.Stage = model.StageCustomer
	lead.ConvertedAt = &now
	lead.CustomerID = &created.ID
	if err := s.store.Leads().Update(ctx, lead); err != nil {
		return nil, err
	}
	s.log.Info().Str("lead_id", leadID).Str("customer_id", created.ID).Msg("lead converted")
	return created, nil
}
