// Package memory is an in-process store used by unit tests and the
// "memory" build target. A single RWMutex serializes transactions, so
// every closure observes a consistent snapshot and commits atomically;
// failed closures stage their writes and never touch the base maps.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/skillloop/skillloop-server/internal/model"
	"github.com/skillloop/skillloop-server/internal/store"
)

// Store implements store.Store entirely in memory.
type Store struct {
	mu sync.RWMutex

	leads     map[string]*model.Entity
	users     map[string]*model.Entity
	queue     map[string]*model.QueueEntry
	referrals []model.Referral
	sessions  []model.Session
	orders    []model.Order
	inventory map[string]*model.InventoryItem
	feedback  []model.FeedbackScore
	metrics   map[string]*model.MetricsSnapshot
}

// New returns an empty store.
func New() *Store {
	return &Store{
		leads:     map[string]*model.Entity{},
		users:     map[string]*model.Entity{},
		queue:     map[string]*model.QueueEntry{},
		inventory: map[string]*model.InventoryItem{},
		metrics:   map[string]*model.MetricsSnapshot{},
	}
}

func (s *Store) Leads() store.Entities      { return &entities{s: s, coll: s.leads} }
func (s *Store) Users() store.Entities      { return &entities{s: s, coll: s.users} }
func (s *Store) Queue() store.Queue         { return &queue{s} }
func (s *Store) Referrals() store.Referrals { return &referrals{s} }
func (s *Store) Sessions() store.Sessions   { return &sessions{s} }
func (s *Store) Orders() store.Orders       { return &orders{s} }
func (s *Store) Inventory() store.Inventory { return &inventory{s} }
func (s *Store) Feedback() store.Feedback   { return &feedback{s} }
func (s *Store) Metrics() store.Metrics     { return &metrics{s} }

func (s *Store) HealthPing(ctx context.Context) error { return ctx.Err() }

// InTx serializes the closure under the write lock and stages mutations
// so an error drops them wholesale.
func (s *Store) InTx(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := newTxView(s)
	if err := fn(tx); err != nil {
		return err
	}
	tx.apply()
	return nil
}

func cloneEntity(e *model.Entity) *model.Entity {
	cp := *e
	return &cp
}

// --- entities ---

type entities struct {
	s    *Store
	coll map[string]*model.Entity
}

func (c *entities) Create(ctx context.Context, e *model.Entity) (*model.Entity, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if _, exists := c.coll[e.ID]; exists {
		return nil, model.ErrConflict
	}
	cp := cloneEntity(e)
	c.coll[e.ID] = cp
	return cloneEntity(cp), nil
}

func (c *entities) Get(ctx context.Context, id string) (*model.Entity, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	e, ok := c.coll[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return cloneEntity(e), nil
}

func (c *entities) Update(ctx context.Context, e *model.Entity) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if _, ok := c.coll[e.ID]; !ok {
		return model.ErrNotFound
	}
	c.coll[e.ID] = cloneEntity(e)
	return nil
}

func (c *entities) FindByFingerprint(ctx context.Context, fp string) ([]*model.Entity, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	var out []*model.Entity
	for _, e := range c.coll {
		if e.Fingerprint == fp {
			out = append(out, cloneEntity(e))
		}
	}
	sortEntities(out)
	return out, nil
}

func (c *entities) FindByTeachSubject(ctx context.Context, subject string) ([]*model.Entity, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	var out []*model.Entity
	for _, e := range c.coll {
		for _, s := range e.CanTeach {
			if s == subject {
				out = append(out, cloneEntity(e))
				break
			}
		}
	}
	sortEntities(out)
	return out, nil
}

func (c *entities) List(ctx context.Context) ([]*model.Entity, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	out := make([]*model.Entity, 0, len(c.coll))
	for _, e := range c.coll {
		out = append(out, cloneEntity(e))
	}
	sortEntities(out)
	return out, nil
}

func (c *entities) Delete(ctx context.Context, id string) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if _, ok := c.coll[id]; !ok {
		return model.ErrNotFound
	}
	delete(c.coll, id)
	return nil
}

func sortEntities(es []*model.Entity) {
	sort.Slice(es, func(i, j int) bool { return es[i].ID < es[j].ID })
}

// --- queue ---

type queue struct{ s *Store }

func (q *queue) Insert(ctx context.Context, qe *model.QueueEntry) error {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	cp := *qe
	q.s.queue[qe.EntityID] = &cp
	return nil
}

func (q *queue) TopByScore(ctx context.Context, limit int) ([]*model.QueueEntry, error) {
	q.s.mu.RLock()
	defer q.s.mu.RUnlock()
	out := make([]*model.QueueEntry, 0, len(q.s.queue))
	for _, qe := range q.s.queue {
		cp := *qe
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].EntityID < out[j].EntityID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- referrals ---

type referrals struct{ s *Store }

func (r *referrals) Create(ctx context.Context, ref *model.Referral) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.referrals = append(r.s.referrals, *ref)
	return nil
}

func (r *referrals) List(ctx context.Context) ([]model.Referral, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]model.Referral, len(r.s.referrals))
	copy(out, r.s.referrals)
	return out, nil
}

// --- sessions ---

type sessions struct{ s *Store }

func (c *sessions) Create(ctx context.Context, sess *model.Session) (*model.Session, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	cp := *sess
	c.s.sessions = append(c.s.sessions, cp)
	return &cp, nil
}

func (c *sessions) List(ctx context.Context) ([]model.Session, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	out := make([]model.Session, len(c.s.sessions))
	copy(out, c.s.sessions)
	return out, nil
}

// --- orders ---

type orders struct{ s *Store }

func (c *orders) List(ctx context.Context) ([]model.Order, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	out := make([]model.Order, len(c.s.orders))
	copy(out, c.s.orders)
	return out, nil
}

// --- inventory ---

type inventory struct{ s *Store }

func (c *inventory) Upsert(ctx context.Context, it *model.InventoryItem) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	cp := *it
	c.s.inventory[it.SKU] = &cp
	return nil
}

func (c *inventory) Get(ctx context.Context, sku string) (*model.InventoryItem, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	it, ok := c.s.inventory[sku]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *it
	return &cp, nil
}

func (c *inventory) Below(ctx context.Context, threshold int) ([]model.InventoryItem, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	var out []model.InventoryItem
	for _, it := range c.s.inventory {
		if it.QtyAvailable < threshold {
			out = append(out, *it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out, nil
}

// --- feedback ---

type feedback struct{ s *Store }

func (c *feedback) Create(ctx context.Context, f *model.FeedbackScore) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	c.s.feedback = append(c.s.feedback, *f)
	return nil
}

func (c *feedback) Scores(ctx context.Context) ([]int, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	out := make([]int, 0, len(c.s.feedback))
	for _, f := range c.s.feedback {
		out = append(out, f.Score)
	}
	return out, nil
}

// --- metrics ---

type metrics struct{ s *Store }

func (c *metrics) Put(ctx context.Context, snap *model.MetricsSnapshot) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	cp := *snap
	cp.Payload = append([]byte(nil), snap.Payload...)
	c.s.metrics[snap.Name] = &cp
	return nil
}

func (c *metrics) Get(ctx context.Context, name string) (*model.MetricsSnapshot, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	snap, ok := c.s.metrics[name]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *snap
	cp.Payload = append([]byte(nil), snap.Payload...)
	return &cp, nil
}

// --- transaction view ---

// txView stages mutations against the locked base maps. Reads see
// staged writes first, then base state. apply() publishes everything.
type txView struct {
	s *Store

	leadWrites   map[string]*model.Entity
	userWrites   map[string]*model.Entity
	queueDeletes map[string]struct{}
	invWrites    map[string]*model.InventoryItem
	orderWrites  []model.Order
}

func newTxView(s *Store) *txView {
	return &txView{
		s:            s,
		leadWrites:   map[string]*model.Entity{},
		userWrites:   map[string]*model.Entity{},
		queueDeletes: map[string]struct{}{},
		invWrites:    map[string]*model.InventoryItem{},
	}
}

func (t *txView) apply() {
	for id, e := range t.leadWrites {
		t.s.leads[id] = e
	}
	for id, e := range t.userWrites {
		t.s.users[id] = e
	}
	for id := range t.queueDeletes {
		delete(t.s.queue, id)
	}
	for sku, it := range t.invWrites {
		t.s.inventory[sku] = it
	}
	t.s.orders = append(t.s.orders, t.orderWrites...)
}

func (t *txView) GetQueueEntry(ctx context.Context, entityID string) (*model.QueueEntry, error) {
	if _, gone := t.queueDeletes[entityID]; gone {
		return nil, model.ErrNotFound
	}
	qe, ok := t.s.queue[entityID]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *qe
	return &cp, nil
}

func (t *txView) DeleteQueueEntry(ctx context.Context, entityID string) error {
	t.queueDeletes[entityID] = struct{}{}
	return nil
}

func (t *txView) GetLead(ctx context.Context, id string) (*model.Entity, error) {
	if e, ok := t.leadWrites[id]; ok {
		return cloneEntity(e), nil
	}
	e, ok := t.s.leads[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return cloneEntity(e), nil
}

func (t *txView) AssignLead(ctx context.Context, id, assignee string, at time.Time) error {
	e, err := t.GetLead(ctx, id)
	if err != nil {
		return err
	}
	e.AssignedTo = &assignee
	e.AssignedAt = &at
	e.Stage = model.StageQualified
	t.leadWrites[id] = e
	return nil
}

func (t *txView) GetUser(ctx context.Context, id string) (*model.Entity, error) {
	if e, ok := t.userWrites[id]; ok {
		return cloneEntity(e), nil
	}
	e, ok := t.s.users[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return cloneEntity(e), nil
}

func (t *txView) AddLifetimeValue(ctx context.Context, userID string, amount float64) error {
	e, err := t.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	e.LifetimeValue += amount
	t.userWrites[userID] = e
	return nil
}

func (t *txView) GetInventoryItem(ctx context.Context, sku string) (*model.InventoryItem, error) {
	if it, ok := t.invWrites[sku]; ok {
		cp := *it
		return &cp, nil
	}
	it, ok := t.s.inventory[sku]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *it
	return &cp, nil
}

func (t *txView) DecrementInventory(ctx context.Context, sku string, qty int) error {
	it, err := t.GetInventoryItem(ctx, sku)
	if err != nil {
		return err
	}
	if it.QtyAvailable < qty {
		return model.ErrOutOfStock
	}
	it.QtyAvailable -= qty
	t.invWrites[sku] = it
	return nil
}

func (t *txView) InsertOrder(ctx context.Context, o *model.Order) error {
	t.orderWrites = append(t.orderWrites, *o)
	return nil
}
