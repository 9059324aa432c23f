package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillloop/skillloop-server/internal/model"
	"github.com/skillloop/skillloop-server/internal/store"
	"github.com/skillloop/skillloop-server/internal/store/storetest"
)

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return New() })
}

// Two goroutines race to claim the same queue entry; exactly one may
// win and the loser must leave the lead untouched.
func TestConcurrentClaim_SingleWinner(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now().UTC()

	_, err := s.Leads().Create(ctx, &model.Entity{ID: "l1", Stage: model.StageProspect, CreatedAt: now})
	require.NoError(t, err)
	require.NoError(t, s.Queue().Insert(ctx, &model.QueueEntry{EntityID: "l1", Score: 0.7, CreatedAt: now}))

	claim := func(rep string) bool {
		won := false
		err := s.InTx(ctx, func(tx store.Tx) error {
			lead, err := tx.GetLead(ctx, "l1")
			if err != nil {
				return err
			}
			if lead.AssignedTo != nil {
				return nil // raced and lost, expected outcome
			}
			if err := tx.AssignLead(ctx, "l1", rep, now); err != nil {
				return err
			}
			if err := tx.DeleteQueueEntry(ctx, "l1"); err != nil {
				return err
			}
			won = true
			return nil
		})
		require.NoError(t, err)
		return won
	}

	var wg sync.WaitGroup
	results := make([]bool, 2)
	for i, rep := range []string{"rep-a", "rep-b"} {
		wg.Add(1)
		go func(i int, rep string) {
			defer wg.Done()
			results[i] = claim(rep)
		}(i, rep)
	}
	wg.Wait()

	wins := 0
	for _, w := range results {
		if w {
			wins++
		}
	}
	assert.Equal(t, 1, wins)

	lead, err := s.Leads().Get(ctx, "l1")
	require.NoError(t, err)
	require.NotNil(t, lead.AssignedTo)
	assert.Contains(t, []string{"rep-a", "rep-b"}, *lead.AssignedTo)

	top, err := s.Queue().TopByScore(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, top)
}

func TestGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, err := s.Users().Create(ctx, &model.Entity{ID: "u1", Name: "Ada", CreatedAt: time.Now().UTC()})
	require.NoError(t, err)

	got, err := s.Users().Get(ctx, "u1")
	require.NoError(t, err)
	got.Name = "mutated"

	again, err := s.Users().Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", again.Name)
}
