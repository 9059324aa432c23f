// Package store defines the persistence contract the core needs from
// the document store: point reads, filtered scans, and multi-record
// atomic transactions with conflict retry. Implementations live under
// internal/store/<driver>/ (postgres, sqlite, memory).
package store

import (
	"context"
	"time"

	"github.com/skillloop/skillloop-server/internal/model"
)

// Store exposes per-collection operations plus a transaction runner.
type Store interface {
	Leads() Entities
	Users() Entities
	Queue() Queue
	Referrals() Referrals
	Sessions() Sessions
	Orders() Orders
	Inventory() Inventory
	Feedback() Feedback
	Metrics() Metrics

	// InTx runs fn atomically. All reads inside fn see a consistent
	// snapshot; on write conflict the whole closure is retried up to
	// the driver's bound, then surfaced as model.ErrConflict. Partial
	// effects of a failed closure are never visible.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	HealthPing(ctx context.Context) error
}

// Entities covers both the leads and users collections; the two share
// a shape and differ only in lifecycle.
type Entities interface {
	Create(ctx context.Context, e *model.Entity) (*model.Entity, error)
	Get(ctx context.Context, id string) (*model.Entity, error)
	Update(ctx context.Context, e *model.Entity) error
	// FindByFingerprint is a filtered scan on the fingerprint field.
	FindByFingerprint(ctx context.Context, fp string) ([]*model.Entity, error)
	// FindByTeachSubject scans for entities whose capability set
	// contains the subject.
	FindByTeachSubject(ctx context.Context, subject string) ([]*model.Entity, error)
	List(ctx context.Context) ([]*model.Entity, error)
	Delete(ctx context.Context, id string) error
}

// Queue is the allocation queue of scored leads.
type Queue interface {
	Insert(ctx context.Context, qe *model.QueueEntry) error
	// TopByScore returns up to limit entries ordered by score
	// descending, entity ID ascending on ties.
	TopByScore(ctx context.Context, limit int) ([]*model.QueueEntry, error)
}

type Referrals interface {
	Create(ctx context.Context, r *model.Referral) error
	List(ctx context.Context) ([]model.Referral, error)
}

type Sessions interface {
	Create(ctx context.Context, s *model.Session) (*model.Session, error)
	List(ctx context.Context) ([]model.Session, error)
}

type Orders interface {
	List(ctx context.Context) ([]model.Order, error)
}

type Inventory interface {
	Upsert(ctx context.Context, it *model.InventoryItem) error
	Get(ctx context.Context, sku string) (*model.InventoryItem, error)
	// Below is a filtered scan: quantity under threshold.
	Below(ctx context.Context, threshold int) ([]model.InventoryItem, error)
}

type Feedback interface {
	Create(ctx context.Context, f *model.FeedbackScore) error
	Scores(ctx context.Context) ([]int, error)
}

type Metrics interface {
	Put(ctx context.Context, s *model.MetricsSnapshot) error
	Get(ctx context.Context, name string) (*model.MetricsSnapshot, error)
}

// Tx is the transactional view used by the allocation protocol. Every
// method reads or writes inside the enclosing transaction; nothing is
// visible to other callers until the closure commits.
type Tx interface {
	GetQueueEntry(ctx context.Context, entityID string) (*model.QueueEntry, error)
	DeleteQueueEntry(ctx context.Context, entityID string) error

	GetLead(ctx context.Context, id string) (*model.Entity, error)
	// AssignLead marks the lead claimed: assignedTo, assignedAt and
	// stage qualified in one write.
	AssignLead(ctx context.Context, id, assignee string, at time.Time) error

	GetUser(ctx context.Context, id string) (*model.Entity, error)
	AddLifetimeValue(ctx context.Context, userID string, amount float64) error

	GetInventoryItem(ctx context.Context, sku string) (*model.InventoryItem, error)
	DecrementInventory(ctx context.Context, sku string, qty int) error

	InsertOrder(ctx context.Context, o *model.Order) error
}
