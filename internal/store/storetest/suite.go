// Package storetest holds a driver-agnostic conformance suite for
// store.Store implementations. The memory driver runs it in unit
// tests; SQL drivers can run it against a provisioned database.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillloop/skillloop-server/internal/model"
	"github.com/skillloop/skillloop-server/internal/store"
)

// Factory builds a fresh, empty store per subtest.
type Factory func(t *testing.T) store.Store

// Run exercises the full Store contract against the given factory.
func Run(t *testing.T, newStore Factory) {
	t.Run("LeadsRoundTrip", func(t *testing.T) { testLeadsRoundTrip(t, newStore(t)) })
	t.Run("DuplicateCreateConflicts", func(t *testing.T) { testDuplicateCreateConflicts(t, newStore(t)) })
	t.Run("FingerprintScan", func(t *testing.T) { testFingerprintScan(t, newStore(t)) })
	t.Run("TeachSubjectScan", func(t *testing.T) { testTeachSubjectScan(t, newStore(t)) })
	t.Run("QueueOrdering", func(t *testing.T) { testQueueOrdering(t, newStore(t)) })
	t.Run("TxClaimLead", func(t *testing.T) { testTxClaimLead(t, newStore(t)) })
	t.Run("TxRollback", func(t *testing.T) { testTxRollback(t, newStore(t)) })
	t.Run("InventoryBelow", func(t *testing.T) { testInventoryBelow(t, newStore(t)) })
	t.Run("MetricsRoundTrip", func(t *testing.T) { testMetricsRoundTrip(t, newStore(t)) })
}

func testLeadsRoundTrip(t *testing.T, s store.Store) {
	ctx := context.Background()

	lead := &model.Entity{ID: "l1", Email: "a@b.com", Name: "Ada", Stage: model.StageProspect, CreatedAt: time.Now().UTC()}
	created, err := s.Leads().Create(ctx, lead)
	require.NoError(t, err)
	assert.Equal(t, "l1", created.ID)

	got, err := s.Leads().Get(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", got.Email)

	got.Stage = model.StageCustomer
	require.NoError(t, s.Leads().Update(ctx, got))
	again, err := s.Leads().Get(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, model.StageCustomer, again.Stage)

	_, err = s.Leads().Get(ctx, "nope")
	assert.ErrorIs(t, err, model.ErrNotFound)

	require.NoError(t, s.Leads().Delete(ctx, "l1"))
	_, err = s.Leads().Get(ctx, "l1")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func testDuplicateCreateConflicts(t *testing.T, s store.Store) {
	ctx := context.Background()

	_, err := s.Leads().Create(ctx, &model.Entity{ID: "l1", Email: "a@b.com", CreatedAt: time.Now().UTC()})
	require.NoError(t, err)

	_, err = s.Leads().Create(ctx, &model.Entity{ID: "l1", Email: "other@b.com", CreatedAt: time.Now().UTC()})
	assert.ErrorIs(t, err, model.ErrConflict)

	// The original row is untouched.
	got, err := s.Leads().Get(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", got.Email)
}

func testFingerprintScan(t *testing.T, s store.Store) {
	ctx := context.Background()
	for _, e := range []*model.Entity{
		{ID: "a", Fingerprint: "fp1", CreatedAt: time.Now().UTC()},
		{ID: "b", Fingerprint: "fp1", CreatedAt: time.Now().UTC()},
		{ID: "c", Fingerprint: "fp2", CreatedAt: time.Now().UTC()},
	} {
		_, err := s.Leads().Create(ctx, e)
		require.NoError(t, err)
	}

	got, err := s.Leads().FindByFingerprint(ctx, "fp1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
}

func testTeachSubjectScan(t *testing.T, s store.Store) {
	ctx := context.Background()
	for _, e := range []*model.Entity{
		{ID: "u1", CanTeach: []string{"Math", "Art"}, CreatedAt: time.Now().UTC()},
		{ID: "u2", CanTeach: []string{"Chess"}, CreatedAt: time.Now().UTC()},
		{ID: "u3", CanTeach: []string{"Math"}, CreatedAt: time.Now().UTC()},
	} {
		_, err := s.Users().Create(ctx, e)
		require.NoError(t, err)
	}

	got, err := s.Users().FindByTeachSubject(ctx, "Math")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "u1", got[0].ID)
	assert.Equal(t, "u3", got[1].ID)
}

func testQueueOrdering(t *testing.T, s store.Store) {
	ctx := context.Background()
	now := time.Now().UTC()
	for _, qe := range []*model.QueueEntry{
		{EntityID: "low", Score: 0.2, CreatedAt: now},
		{EntityID: "hi", Score: 0.9, CreatedAt: now},
		{EntityID: "mid-b", Score: 0.5, CreatedAt: now},
		{EntityID: "mid-a", Score: 0.5, CreatedAt: now},
	} {
		require.NoError(t, s.Queue().Insert(ctx, qe))
	}

	top, err := s.Queue().TopByScore(ctx, 3)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, "hi", top[0].EntityID)
	assert.Equal(t, "mid-a", top[1].EntityID)
	assert.Equal(t, "mid-b", top[2].EntityID)
}

func testTxClaimLead(t *testing.T, s store.Store) {
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := s.Leads().Create(ctx, &model.Entity{ID: "l1", Stage: model.StageProspect, CreatedAt: now})
	require.NoError(t, err)
	require.NoError(t, s.Queue().Insert(ctx, &model.QueueEntry{EntityID: "l1", Score: 0.8, CreatedAt: now}))

	err = s.InTx(ctx, func(tx store.Tx) error {
		if _, err := tx.GetQueueEntry(ctx, "l1"); err != nil {
			return err
		}
		if err := tx.AssignLead(ctx, "l1", "rep-1", now); err != nil {
			return err
		}
		return tx.DeleteQueueEntry(ctx, "l1")
	})
	require.NoError(t, err)

	lead, err := s.Leads().Get(ctx, "l1")
	require.NoError(t, err)
	require.NotNil(t, lead.AssignedTo)
	assert.Equal(t, "rep-1", *lead.AssignedTo)
	assert.Equal(t, model.StageQualified, lead.Stage)

	top, err := s.Queue().TopByScore(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, top)
}

func testTxRollback(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.Inventory().Upsert(ctx, &model.InventoryItem{SKU: "sku1", Price: 5, QtyAvailable: 3}))
	_, err := s.Users().Create(ctx, &model.Entity{ID: "u1", CreatedAt: time.Now().UTC()})
	require.NoError(t, err)

	err = s.InTx(ctx, func(tx store.Tx) error {
		if err := tx.DecrementInventory(ctx, "sku1", 2); err != nil {
			return err
		}
		if err := tx.AddLifetimeValue(ctx, "u1", 10); err != nil {
			return err
		}
		// Second decrement exceeds stock and must undo everything.
		return tx.DecrementInventory(ctx, "sku1", 2)
	})
	require.ErrorIs(t, err, model.ErrOutOfStock)

	it, err := s.Inventory().Get(ctx, "sku1")
	require.NoError(t, err)
	assert.Equal(t, 3, it.QtyAvailable)

	u, err := s.Users().Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0.0, u.LifetimeValue)
}

func testInventoryBelow(t *testing.T, s store.Store) {
	ctx := context.Background()
	for _, it := range []*model.InventoryItem{
		{SKU: "a", QtyAvailable: 2},
		{SKU: "b", QtyAvailable: 50},
		{SKU: "c", QtyAvailable: 9},
	} {
		require.NoError(t, s.Inventory().Upsert(ctx, it))
	}

	low, err := s.Inventory().Below(ctx, 10)
	require.NoError(t, err)
	require.Len(t, low, 2)
	assert.Equal(t, "a", low[0].SKU)
	assert.Equal(t, "c", low[1].SKU)
}

func testMetricsRoundTrip(t *testing.T, s store.Store) {
	ctx := context.Background()
	snap := &model.MetricsSnapshot{Name: "nps", Payload: []byte(`{"score":42}`), ComputedAt: time.Now().UTC()}
	require.NoError(t, s.Metrics().Put(ctx, snap))

	got, err := s.Metrics().Get(ctx, "nps")
	require.NoError(t, err)
	assert.JSONEq(t, `{"score":42}`, string(got.Payload))

	_, err = s.Metrics().Get(ctx, "absent")
	assert.ErrorIs(t, err, model.ErrNotFound)
}
