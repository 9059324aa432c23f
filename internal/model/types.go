package model

import "time"

// Lifecycle stages for an entity, in funnel order.
const (
	StageProspect  = "prospect"
	StageQualified = "qualified"
	StageCustomer  = "customer"
	StageLoyal     = "loyal"
)

// Session statuses.
const (
	SessionPending   = "pending"
	SessionAccepted  = "accepted"
	SessionCompleted = "completed"
	SessionRejected  = "rejected"
)

// GeoPoint is a WGS84 coordinate.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Slot is a weekly availability window. Day is 0 (Sunday) through 6,
// minutes are offsets from midnight.
type Slot struct {
	Day      int `json:"day"`
	StartMin int `json:"startMin"`
	EndMin   int `json:"endMin"`
}

// Intent captures buying signals collected on the lead form.
type Intent struct {
	RequestedDemo  bool `json:"requestedDemo"`
	ClickedPricing bool `json:"clickedPricing"`
}

// Entity is a person record: a lead, a member, or both. Leads and
// members live in separate collections but share this shape.
type Entity struct {
	ID             string     `json:"id"`
	Email          string     `json:"email"`
	Phone          string     `json:"phone"`
	Name           string     `json:"name"`
	Role           string     `json:"role,omitempty"`
	CanTeach       []string   `json:"canTeach,omitempty"`
	WantsToLearn   []string   `json:"wantsToLearn,omitempty"`
	Availability   []Slot     `json:"availability,omitempty"`
	Location       *GeoPoint  `json:"location,omitempty"`
	Rating         *float64   `json:"rating,omitempty"`
	LearningStyles []string   `json:"learningStyles,omitempty"`
	Stage          string     `json:"stage"`
	Intent         Intent     `json:"intent"`
	Fingerprint    string     `json:"fingerprint,omitempty"`
	Duplicate      bool       `json:"duplicate"`
	Score          float64    `json:"score"`
	AssignedTo     *string    `json:"assignedTo,omitempty"`
	AssignedAt     *time.Time `json:"assignedAt,omitempty"`
	ConvertedAt    *time.Time `json:"convertedAt,omitempty"`
	CustomerID     *string    `json:"customerId,omitempty"`
	LifetimeValue  float64    `json:"lifetimeValue"`
	LastActiveAt   *time.Time `json:"lastActiveAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// DefaultRating is assumed when an entity has no rating yet (1-5 scale).
const DefaultRating = 4.0

// RatingOrDefault returns the entity rating, or DefaultRating when unset.
func (e *Entity) RatingOrDefault() float64 {
	if e.Rating == nil {
		return DefaultRating
	}
	return *e.Rating
}

// QueueEntry is a single-claim pointer to a scored lead awaiting
// assignment. Consumed exactly once by the claim protocol.
type QueueEntry struct {
	EntityID  string    `json:"entityId"`
	Score     float64   `json:"score"`
	CreatedAt time.Time `json:"createdAt"`
}

// Referral is a directed edge in the referral graph. Append-only;
// cycles are possible and must be tolerated by traversals.
type Referral struct {
	ReferrerID string    `json:"referrerId"`
	RefereeID  string    `json:"refereeId"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Session is a transaction-log record consumed by the aggregation
// engine. Amount is optional; aggregation substitutes a default unit
// value when absent.
type Session struct {
	ID        string    `json:"id"`
	ActorID   string    `json:"actorId"`
	Amount    *float64  `json:"amount,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// OrderItem is one line of an order.
type OrderItem struct {
	SKU       string  `json:"sku"`
	Qty       int     `json:"qty"`
	UnitPrice float64 `json:"unitPrice"`
}

// Order is written atomically with its inventory decrements.
type Order struct {
	ID        string      `json:"id"`
	AccountID string      `json:"accountId"`
	Items     []OrderItem `json:"items"`
	Total     float64     `json:"total"`
	Channel   string      `json:"channel"`
	CreatedAt time.Time   `json:"createdAt"`
}

// InventoryItem tracks a sellable unit.
type InventoryItem struct {
	SKU          string  `json:"sku"`
	Name         string  `json:"name"`
	Price        float64 `json:"price"`
	QtyAvailable int     `json:"qtyAvailable"`
}

// FeedbackScore is a single NPS response (0-10).
type FeedbackScore struct {
	ActorID   string    `json:"actorId"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"createdAt"`
}

// MetricsSnapshot is one named aggregation result, stored as raw JSON.
type MetricsSnapshot struct {
	Name       string    `json:"name"`
	Payload    []byte    `json:"payload"`
	ComputedAt time.Time `json:"computedAt"`
}
