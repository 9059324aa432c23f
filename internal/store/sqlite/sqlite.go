// Package sqlite implements store.Store on modernc.org/sqlite for the
// local build target. Writers are serialized by a store-level mutex on
// top of WAL, which gives InTx closures the snapshot+atomic-commit
// semantics the allocation protocol needs without server-side locking.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	sqlite3 "modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"

	"github.com/skillloop/skillloop-server/internal/model"
	"github.com/skillloop/skillloop-server/internal/store"
)

// Store implements store.Store over a SQLite database.
type Store struct {
	db *sql.DB
	// wmu serializes transactions; SQLite has a single writer anyway
	// and failing fast on BUSY complicates the claim protocol.
	wmu sync.Mutex
}

// New wires a Store over an opened connection and ensures the schema.
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	if err := EnsureSchema(ctx, db); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Leads() store.Entities      { return &entities{db: s.db, table: "leads"} }
func (s *Store) Users() store.Entities      { return &entities{db: s.db, table: "users"} }
func (s *Store) Queue() store.Queue         { return &queue{db: s.db} }
func (s *Store) Referrals() store.Referrals { return &referrals{db: s.db} }
func (s *Store) Sessions() store.Sessions   { return &sessions{db: s.db} }
func (s *Store) Orders() store.Orders       { return &orders{db: s.db} }
func (s *Store) Inventory() store.Inventory { return &inventory{db: s.db} }
func (s *Store) Feedback() store.Feedback   { return &feedback{db: s.db} }
func (s *Store) Metrics() store.Metrics     { return &metrics{db: s.db} }

func (s *Store) HealthPing(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) InTx(ctx context.Context, fn func(tx store.Tx) error) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&txView{tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

// --- entity marshaling ---

const entityColumnList = `id, email, phone, name, role, can_teach, wants_to_learn, availability,
    lat, lng, rating, learning_styles, stage, requested_demo, clicked_pricing,
    fingerprint, duplicate, score, assigned_to, assigned_at, converted_at,
    customer_id, lifetime_value, last_active_at, created_at`

// isUniqueViolation matches any SQLITE_CONSTRAINT code; the extended
// unique/primary-key codes share the low byte.
func isUniqueViolation(err error) bool {
	var se *sqlite3.Error
	return errors.As(err, &se) && se.Code()&0xff == sqlitelib.SQLITE_CONSTRAINT
}

func jsonOrNil(v any, n int) any {
	if n == 0 {
		return nil
	}
	b, _ := json.Marshal(v)
	return string(b)
}

func entityArgs(e *model.Entity) []any {
	var lat, lng any
	if e.Location != nil {
		lat, lng = e.Location.Lat, e.Location.Lng
	}
	var rating any
	if e.Rating != nil {
		rating = *e.Rating
	}
	return []any{
		e.ID, e.Email, e.Phone, e.Name, e.Role,
		jsonOrNil(e.CanTeach, len(e.CanTeach)),
		jsonOrNil(e.WantsToLearn, len(e.WantsToLearn)),
		jsonOrNil(e.Availability, len(e.Availability)),
		lat, lng, rating,
		jsonOrNil(e.LearningStyles, len(e.LearningStyles)),
		e.Stage, e.Intent.RequestedDemo, e.Intent.ClickedPricing,
		e.Fingerprint, e.Duplicate, e.Score,
		e.AssignedTo, e.AssignedAt, e.ConvertedAt,
		e.CustomerID, e.LifetimeValue, e.LastActiveAt, e.CreatedAt,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntity(row rowScanner) (*model.Entity, error) {
	var (
		e                              model.Entity
		canTeach, wants, avail, styles sql.NullString
		lat, lng, rating               sql.NullFloat64
		assignedTo, customerID         sql.NullString
		assignedAt, convertedAt        sql.NullTime
		lastActiveAt                   sql.NullTime
	)
	err := row.Scan(
		&e.ID, &e.Email, &e.Phone, &e.Name, &e.Role,
		&canTeach, &wants, &avail,
		&lat, &lng, &rating, &styles,
		&e.Stage, &e.Intent.RequestedDemo, &e.Intent.ClickedPricing,
		&e.Fingerprint, &e.Duplicate, &e.Score,
		&assignedTo, &assignedAt, &convertedAt,
		&customerID, &e.LifetimeValue, &lastActiveAt, &e.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if canTeach.Valid {
		_ = json.Unmarshal([]byte(canTeach.String), &e.CanTeach)
	}
	if wants.Valid {
		_ = json.Unmarshal([]byte(wants.String), &e.WantsToLearn)
	}
	if avail.Valid {
		_ = json.Unmarshal([]byte(avail.String), &e.Availability)
	}
	if styles.Valid {
		_ = json.Unmarshal([]byte(styles.String), &e.LearningStyles)
	}
	if lat.Valid && lng.Valid {
		e.Location = &model.GeoPoint{Lat: lat.Float64, Lng: lng.Float64}
	}
	if rating.Valid {
		e.Rating = &rating.Float64
	}
	if assignedTo.Valid {
		e.AssignedTo = &assignedTo.String
	}
	if assignedAt.Valid {
		e.AssignedAt = &assignedAt.Time
	}
	if convertedAt.Valid {
		e.ConvertedAt = &convertedAt.Time
	}
	if customerID.Valid {
		e.CustomerID = &customerID.String
	}
	if lastActiveAt.Valid {
		e.LastActiveAt = &lastActiveAt.Time
	}
	return &e, nil
}

func scanEntities(rows *sql.Rows) ([]*model.Entity, error) {
	defer func() { _ = rows.Close() }()
	var out []*model.Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// --- entities ---

type entities struct {
	db    *sql.DB
	table string
}

func (c *entities) Create(ctx context.Context, e *model.Entity) (*model.Entity, error) {
	q := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`, c.table, entityColumnList)
	if _, err := c.db.ExecContext(ctx, q, entityArgs(e)...); err != nil {
		if isUniqueViolation(err) {
			return nil, model.ErrConflict
		}
		return nil, err
	}
	out := *e
	return &out, nil
}

func (c *entities) Get(ctx context.Context, id string) (*model.Entity, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, entityColumnList, c.table)
	return scanEntity(c.db.QueryRowContext(ctx, q, id))
}

func (c *entities) Update(ctx context.Context, e *model.Entity) error {
	q := fmt.Sprintf(`UPDATE %s SET
        email=?, phone=?, name=?, role=?, can_teach=?, wants_to_learn=?, availability=?,
        lat=?, lng=?, rating=?, learning_styles=?, stage=?, requested_demo=?, clicked_pricing=?,
        fingerprint=?, duplicate=?, score=?, assigned_to=?, assigned_at=?, converted_at=?,
        customer_id=?, lifetime_value=?, last_active_at=?, created_at=?
        WHERE id=?`, c.table)
	args := entityArgs(e)
	args = append(args[1:], e.ID)
	res, err := c.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (c *entities) FindByFingerprint(ctx context.Context, fp string) ([]*model.Entity, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE fingerprint = ? ORDER BY id`, entityColumnList, c.table)
	rows, err := c.db.QueryContext(ctx, q, fp)
	if err != nil {
		return nil, err
	}
	return scanEntities(rows)
}

func (c *entities) FindByTeachSubject(ctx context.Context, subject string) ([]*model.Entity, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s
        WHERE can_teach IS NOT NULL
          AND EXISTS (SELECT 1 FROM json_each(%s.can_teach) WHERE json_each.value = ?)
        ORDER BY id`, entityColumnList, c.table, c.table)
	rows, err := c.db.QueryContext(ctx, q, subject)
	if err != nil {
		return nil, err
	}
	return scanEntities(rows)
}

func (c *entities) List(ctx context.Context) ([]*model.Entity, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s ORDER BY id`, entityColumnList, c.table)
	rows, err := c.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	return scanEntities(rows)
}

func (c *entities) Delete(ctx context.Context, id string) error {
	res, err := c.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, c.table), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

// --- queue ---

type queue struct{ db *sql.DB }

func (q *queue) Insert(ctx context.Context, qe *model.QueueEntry) error {
	_, err := q.db.ExecContext(ctx, `
        INSERT INTO lead_queue (entity_id, score, created_at) VALUES (?,?,?)
        ON CONFLICT(entity_id) DO UPDATE SET score=excluded.score`,
		qe.EntityID, qe.Score, qe.CreatedAt)
	return err
}

func (q *queue) TopByScore(ctx context.Context, limit int) ([]*model.QueueEntry, error) {
	rows, err := q.db.QueryContext(ctx, `
        SELECT entity_id, score, created_at FROM lead_queue
        ORDER BY score DESC, entity_id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []*model.QueueEntry
	for rows.Next() {
		var qe model.QueueEntry
		if err := rows.Scan(&qe.EntityID, &qe.Score, &qe.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &qe)
	}
	return out, rows.Err()
}

// --- referrals ---

type referrals struct{ db *sql.DB }

func (r *referrals) Create(ctx context.Context, ref *model.Referral) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO referrals (referrer_id, referee_id, created_at) VALUES (?,?,?)`,
		ref.ReferrerID, ref.RefereeID, ref.CreatedAt)
	return err
}

func (r *referrals) List(ctx context.Context) ([]model.Referral, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT referrer_id, referee_id, created_at FROM referrals`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []model.Referral
	for rows.Next() {
		var ref model.Referral
		if err := rows.Scan(&ref.ReferrerID, &ref.RefereeID, &ref.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}

// --- sessions ---

type sessions struct{ db *sql.DB }

func (c *sessions) Create(ctx context.Context, s *model.Session) (*model.Session, error) {
	var amount any
	if s.Amount != nil {
		amount = *s.Amount
	}
	if _, err := c.db.ExecContext(ctx,
		`INSERT INTO sessions (id, actor_id, amount, status, created_at) VALUES (?,?,?,?,?)`,
		s.ID, s.ActorID, amount, s.Status, s.CreatedAt); err != nil {
		return nil, err
	}
	out := *s
	return &out, nil
}

func (c *sessions) List(ctx context.Context) ([]model.Session, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT id, actor_id, amount, status, created_at FROM sessions`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []model.Session
	for rows.Next() {
		var s model.Session
		var amount sql.NullFloat64
		if err := rows.Scan(&s.ID, &s.ActorID, &amount, &s.Status, &s.CreatedAt); err != nil {
			return nil, err
		}
		if amount.Valid {
			s.Amount = &amount.Float64
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// --- orders ---

type orders struct{ db *sql.DB }

func (c *orders) List(ctx context.Context) ([]model.Order, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT id, account_id, items, total, channel, created_at FROM orders`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []model.Order
	for rows.Next() {
		var o model.Order
		var items string
		if err := rows.Scan(&o.ID, &o.AccountID, &items, &o.Total, &o.Channel, &o.CreatedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(items), &o.Items)
		out = append(out, o)
	}
	return out, rows.Err()
}

// --- inventory ---

type inventory struct{ db *sql.DB }

func (c *inventory) Upsert(ctx context.Context, it *model.InventoryItem) error {
	_, err := c.db.ExecContext(ctx, `
        INSERT INTO inventory (sku, name, price, qty_available) VALUES (?,?,?,?)
        ON CONFLICT(sku) DO UPDATE SET name=excluded.name, price=excluded.price, qty_available=excluded.qty_available`,
		it.SKU, it.Name, it.Price, it.QtyAvailable)
	return err
}

func (c *inventory) Get(ctx context.Context, sku string) (*model.InventoryItem, error) {
	var it model.InventoryItem
	err := c.db.QueryRowContext(ctx,
		`SELECT sku, name, price, qty_available FROM inventory WHERE sku = ?`, sku).
		Scan(&it.SKU, &it.Name, &it.Price, &it.QtyAvailable)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (c *inventory) Below(ctx context.Context, threshold int) ([]model.InventoryItem, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT sku, name, price, qty_available FROM inventory WHERE qty_available < ? ORDER BY sku`, threshold)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []model.InventoryItem
	for rows.Next() {
		var it model.InventoryItem
		if err := rows.Scan(&it.SKU, &it.Name, &it.Price, &it.QtyAvailable); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// --- feedback ---

type feedback struct{ db *sql.DB }

func (c *feedback) Create(ctx context.Context, f *model.FeedbackScore) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO feedback (actor_id, score, created_at) VALUES (?,?,?)`,
		f.ActorID, f.Score, f.CreatedAt)
	return err
}

func (c *feedback) Scores(ctx context.Context) ([]int, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT score FROM feedback`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []int
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// --- metrics ---

type metrics struct{ db *sql.DB }

func (c *metrics) Put(ctx context.Context, s *model.MetricsSnapshot) error {
	_, err := c.db.ExecContext(ctx, `
        INSERT INTO metrics (name, payload, computed_at) VALUES (?,?,?)
        ON CONFLICT(name) DO UPDATE SET payload=excluded.payload, computed_at=excluded.computed_at`,
		s.Name, string(s.Payload), s.ComputedAt)
	return err
}

func (c *metrics) Get(ctx context.Context, name string) (*model.MetricsSnapshot, error) {
	var s model.MetricsSnapshot
	var payload string
	err := c.db.QueryRowContext(ctx,
		`SELECT name, payload, computed_at FROM metrics WHERE name = ?`, name).
		Scan(&s.Name, &payload, &s.ComputedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s.Payload = []byte(payload)
	return &s, nil
}

// --- transaction view ---

type txView struct{ tx *sql.Tx }

func (t *txView) GetQueueEntry(ctx context.Context, entityID string) (*model.QueueEntry, error) {
	var qe model.QueueEntry
	err := t.tx.QueryRowContext(ctx,
		`SELECT entity_id, score, created_at FROM lead_queue WHERE entity_id = ?`, entityID).
		Scan(&qe.EntityID, &qe.Score, &qe.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &qe, nil
}

func (t *txView) DeleteQueueEntry(ctx context.Context, entityID string) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM lead_queue WHERE entity_id = ?`, entityID)
	return err
}

func (t *txView) GetLead(ctx context.Context, id string) (*model.Entity, error) {
	q := fmt.Sprintf(`SELECT %s FROM leads WHERE id = ?`, entityColumnList)
	return scanEntity(t.tx.QueryRowContext(ctx, q, id))
}

func (t *txView) AssignLead(ctx context.Context, id, assignee string, at time.Time) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE leads SET assigned_to = ?, assigned_at = ?, stage = ? WHERE id = ?`,
		assignee, at, model.StageQualified, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (t *txView) GetUser(ctx context.Context, id string) (*model.Entity, error) {
	q := fmt.Sprintf(`SELECT %s FROM users WHERE id = ?`, entityColumnList)
	return scanEntity(t.tx.QueryRowContext(ctx, q, id))
}

func (t *txView) AddLifetimeValue(ctx context.Context, userID string, amount float64) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE users SET lifetime_value = lifetime_value + ? WHERE id = ?`, amount, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (t *txView) GetInventoryItem(ctx context.Context, sku string) (*model.InventoryItem, error) {
	var it model.InventoryItem
	err := t.tx.QueryRowContext(ctx,
		`SELECT sku, name, price, qty_available FROM inventory WHERE sku = ?`, sku).
		Scan(&it.SKU, &it.Name, &it.Price, &it.QtyAvailable)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (t *txView) DecrementInventory(ctx context.Context, sku string, qty int) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE inventory SET qty_available = qty_available - ? WHERE sku = ? AND qty_available >= ?`,
		qty, sku, qty)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrOutOfStock
	}
	return nil
}

func (t *txView) InsertOrder(ctx context.Context, o *model.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(ctx,
		`INSERT INTO orders (id, account_id, items, total, channel, created_at) VALUES (?,?,?,?,?,?)`,
		o.ID, o.AccountID, string(items), o.Total, o.Channel, o.CreatedAt)
	return err
}
