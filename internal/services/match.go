package services

import (
	"context"

	"github.com/skillloop/skillloop-server/internal/match"
	"github.com/skillloop/skillloop-server/internal/model"
	"github.com/skillloop/skillloop-server/internal/store"
)

// MatchService builds candidate pools and runs the matching engine.
type MatchService struct {
	store store.Store
}

func NewMatchService(s store.Store) *MatchService { return &MatchService{store: s} }

// FindMatches loads the actor, gathers every member able to teach at
// least one subject the actor wants, and ranks reciprocal matches.
func (s *MatchService) FindMatches(ctx context.Context, actorID string, p match.Params) ([]match.Match, error) {
	actor, err := s.store.Users().Get(ctx, actorID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var pool []*model.Entity
	for _, subject := range actor.WantsToLearn {
		cands, err := s.store.Users().FindByTeachSubject(ctx, subject)
		if err != nil {
			return nil, err
		}
		for _, c := range cands {
			if c.ID == actor.ID || seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			pool = append(pool, c)
		}
	}
	return match.FindMatches(actor, pool, p), nil
}
