package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/skillloop/skillloop-server/internal/match"
	"github.com/skillloop/skillloop-server/internal/model"
	"github.com/skillloop/skillloop-server/internal/store/memory"
)

func TestFindMatches_PoolFromTeachSubjects(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	usvc := NewUserService(st)
	msvc := NewMatchService(st)

	actor, err := usvc.CreateUser(ctx, &model.Entity{
		Email: "actor@example.com", Phone: "1", Name: "Actor",
		CanTeach:     []string{"piano"},
		WantsToLearn: []string{"go", "sql"},
	})
	require.NoError(t, err)

	// Reciprocal on both subject directions.
	good, err := usvc.CreateUser(ctx, &model.Entity{
		Email: "good@example.com", Phone: "2", Name: "Good",
		CanTeach:     []string{"go", "sql"},
		WantsToLearn: []string{"piano"},
	})
	require.NoError(t, err)

	// Teaches a wanted subject but wants nothing the actor can teach.
	_, err = usvc.CreateUser(ctx, &model.Entity{
		Email: "oneway@example.com", Phone: "3", Name: "OneWay",
		CanTeach:     []string{"go"},
		WantsToLearn: []string{"spanish"},
	})
	require.NoError(t, err)

	// Teaches nothing the actor wants; never enters the pool.
	_, err = usvc.CreateUser(ctx, &model.Entity{
		Email: "irrelevant@example.com", Phone: "4", Name: "Irrelevant",
		CanTeach:     []string{"spanish"},
		WantsToLearn: []string{"piano"},
	})
	require.NoError(t, err)

	matches, err := msvc.FindMatches(ctx, actor.ID, match.Params{})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, good.ID, matches[0].CandidateID)
	require.Greater(t, matches[0].Score, 0.0)
}

func TestFindMatches_ActorNotFound(t *testing.T) {
	msvc := NewMatchService(memory.New())
	_, err := msvc.FindMatches(context.Background(), "ghost", match.Params{})
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestFindMatches_CandidateInBothSubjectScansOnce(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	usvc := NewUserService(st)
	msvc := NewMatchService(st)

	actor, err := usvc.CreateUser(ctx, &model.Entity{
		Email: "a@example.com", Phone: "1", Name: "A",
		CanTeach:     []string{"piano"},
		WantsToLearn: []string{"go", "sql"},
	})
	require.NoError(t, err)
	_, err = usvc.CreateUser(ctx, &model.Entity{
		Email: "b@example.com", Phone: "2", Name: "B",
		CanTeach:     []string{"go", "sql"},
		WantsToLearn: []string{"piano"},
	})
	require.NoError(t, err)

	matches, err := msvc.FindMatches(ctx, actor.ID, match.Params{})
	require.NoError(t, err)
	require.Len(t, matches, 1)
}
