// Package postgres implements store.Store on PostgreSQL through the
// pgx stdlib driver. Transactions run at SERIALIZABLE and the closure
// is retried with bounded backoff on serialization failures, which is
// what gives concurrent claim attempts at-most-one winner.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/skillloop/skillloop-server/internal/model"
	"github.com/skillloop/skillloop-server/internal/store"
)

// Open opens a PostgreSQL connection and verifies connectivity.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Store implements store.Store over a migrated PostgreSQL database.
type Store struct{ db *sql.DB }

// New wires a Store over an opened connection.
func New(db *sql.DB) *Store { return &Store{db: db} }

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

const txMaxRetries = 5

// InTx runs fn at SERIALIZABLE isolation, retrying the whole closure
// on SQLSTATE 40001/40P01. When retries are exhausted the error
// surfaces as model.ErrConflict so callers can treat it as transient.
func (s *Store) InTx(ctx context.Context, fn func(tx store.Tx) error) error {
	attempt := func() error {
		tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
		if err != nil {
			return backoff.Permanent(err)
		}
		defer func() { _ = tx.Rollback() }()

		if err := fn(&txView{tx: tx}); err != nil {
			if isSerializationFailure(err) {
				return err // retryable
			}
			return backoff.Permanent(err)
		}
		if err := tx.Commit(); err != nil {
			if isSerializationFailure(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(
			backoff.WithInitialInterval(10*time.Millisecond),
			backoff.WithMaxInterval(200*time.Millisecond),
		), txMaxRetries),
		ctx,
	)
	if err := backoff.Retry(attempt, policy); err != nil {
		if isSerializationFailure(err) {
			return fmt.Errorf("transaction retries exhausted: %w", model.ErrConflict)
		}
		return err
	}
	return nil
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// --- entity marshaling ---

const entityColumnList = `id, email, phone, name, role, can_teach, wants_to_learn, availability,
    lat, lng, rating, learning_styles, stage, requested_demo, clicked_pricing,
    fingerprint, duplicate, score, assigned_to, assigned_at, converted_at,
    customer_id, lifetime_value, last_active_at, created_at`

const entityPlaceholders = `$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25`

func jsonOrNil(v any, n int) any {
	if n == 0 {
		return nil
	}
	b, _ := json.Marshal(v)
	return b
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
		canTeach, wants, avail, styles []byte
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
	if len(canTeach) > 0 {
		_ = json.Unmarshal(canTeach, &e.CanTeach)
	}
	if len(wants) > 0 {
		_ = json.Unmarshal(wants, &e.WantsToLearn)
	}
	if len(avail) > 0 {
		_ = json.Unmarshal(avail, &e.Availability)
	}
	if len(styles) > 0 {
		_ = json.Unmarshal(styles, &e.LearningStyles)
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
	q := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`, c.table, entityColumnList, entityPlaceholders)
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
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, entityColumnList, c.table)
	return scanEntity(c.db.QueryRowContext(ctx, q, id))
}

func (c *entities) Update(ctx context.Context, e *model.Entity) error {
	q := fmt.Sprintf(`UPDATE %s SET
        email=$2, phone=$3, name=$4, role=$5, can_teach=$6, wants_to_learn=$7, availability=$8,
        lat=$9, lng=$10, rating=$11, learning_styles=$12, stage=$13, requested_demo=$14,
        clicked_pricing=$15, fingerprint=$16, duplicate=$17, score=$18, assigned_to=$19,
        assigned_at=$20, converted_at=$21, customer_id=$22, lifetime_value=$23,
        last_active_at=$24, created_at=$25
        WHERE id=$1`, c.table)
	res, err := c.db.ExecContext(ctx, q, entityArgs(e)...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (c *entities) FindByFingerprint(ctx context.Context, fp string) ([]*model.Entity, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE fingerprint = $1 ORDER BY id`, entityColumnList, c.table)
	rows, err := c.db.QueryContext(ctx, q, fp)
	if err != nil {
		return nil, err
	}
	return scanEntities(rows)
}

func (c *entities) FindByTeachSubject(ctx context.Context, subject string) ([]*model.Entity, error) {
	sub, _ := json.Marshal([]string{subject})
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE can_teach @> $1 ORDER BY id`, entityColumnList, c.table)
	rows, err := c.db.QueryContext(ctx, q, sub)
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
	res, err := c.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, c.table), id)
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
        INSERT INTO lead_queue (entity_id, score, created_at) VALUES ($1,$2,$3)
        ON CONFLICT (entity_id) DO UPDATE SET score = EXCLUDED.score`,
		qe.EntityID, qe.Score, qe.CreatedAt)
	return err
}

func (q *queue) TopByScore(ctx context.Context, limit int) ([]*model.QueueEntry, error) {
	rows, err := q.db.QueryContext(ctx, `
        SELECT entity_id, score, created_at FROM lead_queue
        ORDER BY score DESC, entity_id ASC LIMIT $1`, limit)
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
		`INSERT INTO referrals (referrer_id, referee_id, created_at) VALUES ($1,$2,$3)`,
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
		`INSERT INTO sessions (id, actor_id, amount, status, created_at) VALUES ($1,$2,$3,$4,$5)`,
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
		var items []byte
		if err := rows.Scan(&o.ID, &o.AccountID, &items, &o.Total, &o.Channel, &o.CreatedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(items, &o.Items)
		out = append(out, o)
	}
	return out, rows.Err()
}

// --- inventory ---

type inventory struct{ db *sql.DB }

func (c *inventory) Upsert(ctx context.Context, it *model.InventoryItem) error {
	_, err := c.db.ExecContext(ctx, `
        INSERT INTO inventory (sku, name, price, qty_available) VALUES ($1,$2,$3,$4)
        ON CONFLICT (sku) DO UPDATE SET name=EXCLUDED.name, price=EXCLUDED.price, qty_available=EXCLUDED.qty_available`,
		it.SKU, it.Name, it.Price, it.QtyAvailable)
	return err
}

func (c *inventory) Get(ctx context.Context, sku string) (*model.InventoryItem, error) {
	var it model.InventoryItem
	err := c.db.QueryRowContext(ctx,
		`SELECT sku, name, price, qty_available FROM inventory WHERE sku = $1`, sku).
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
		`SELECT sku, name, price, qty_available FROM inventory WHERE qty_available < $1 ORDER BY sku`, threshold)
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
		`INSERT INTO feedback (actor_id, score, created_at) VALUES ($1,$2,$3)`,
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
        INSERT INTO metrics (name, payload, computed_at) VALUES ($1,$2,$3)
        ON CONFLICT (name) DO UPDATE SET payload=EXCLUDED.payload, computed_at=EXCLUDED.computed_at`,
		s.Name, s.Payload, s.ComputedAt)
	return err
}

func (c *metrics) Get(ctx context.Context, name string) (*model.MetricsSnapshot, error) {
	var s model.MetricsSnapshot
	err := c.db.QueryRowContext(ctx,
		`SELECT name, payload, computed_at FROM metrics WHERE name = $1`, name).
		Scan(&s.Name, &s.Payload, &s.ComputedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// --- transaction view ---

type txView struct{ tx *sql.Tx }

func (t *txView) GetQueueEntry(ctx context.Context, entityID string) (*model.QueueEntry, error) {
	var qe model.QueueEntry
	err := t.tx.QueryRowContext(ctx,
		`SELECT entity_id, score, created_at FROM lead_queue WHERE entity_id = $1`, entityID).
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
	_, err := t.tx.ExecContext(ctx, `DELETE FROM lead_queue WHERE entity_id = $1`, entityID)
	return err
}

func (t *txView) GetLead(ctx context.Context, id string) (*model.Entity, error) {
	q := fmt.Sprintf(`SELECT %s FROM leads WHERE id = $1`, entityColumnList)
	return scanEntity(t.tx.QueryRowContext(ctx, q, id))
}

func (t *txView) AssignLead(ctx context.Context, id, assignee string, at time.Time) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE leads SET assigned_to = $2, assigned_at = $3, stage = $4 WHERE id = $1`,
		id, assignee, at, model.StageQualified)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (t *txView) GetUser(ctx context.Context, id string) (*model.Entity, error) {
	q := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, entityColumnList)
	return scanEntity(t.tx.QueryRowContext(ctx, q, id))
}

func (t *txView) AddLifetimeValue(ctx context.Context, userID string, amount float64) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE users SET lifetime_value = lifetime_value + $2 WHERE id = $1`, userID, amount)
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
		`SELECT sku, name, price, qty_available FROM inventory WHERE sku = $1`, sku).
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
		`UPDATE inventory SET qty_available = qty_available - $2 WHERE sku = $1 AND qty_available >= $2`,
		sku, qty)
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
		`INSERT INTO orders (id, account_id, items, total, channel, created_at) VALUES ($1,$2,$3,$4,$5,$6)`,
		o.ID, o.AccountID, items, o.Total, o.Channel, o.CreatedAt)
	return err
}
