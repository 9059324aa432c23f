package sqlite

import (
	"context"
	"database/sql"
)

// Entities (leads and users) share a column set; list-valued fields are
// stored as JSON text.
const entityColumns = `
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL DEFAULT '',
    phone TEXT NOT NULL DEFAULT '',
    name TEXT NOT NULL DEFAULT '',
    role TEXT NOT NULL DEFAULT '',
    can_teach TEXT,
    wants_to_learn TEXT,
    availability TEXT,
    lat REAL,
    lng REAL,
    rating REAL,
    learning_styles TEXT,
    stage TEXT NOT NULL DEFAULT 'prospect',
    requested_demo INTEGER NOT NULL DEFAULT 0,
    clicked_pricing INTEGER NOT NULL DEFAULT 0,
    fingerprint TEXT NOT NULL DEFAULT '',
    duplicate INTEGER NOT NULL DEFAULT 0,
    score REAL NOT NULL DEFAULT 0,
    assigned_to TEXT,
    assigned_at TIMESTAMP,
    converted_at TIMESTAMP,
    customer_id TEXT,
    lifetime_value REAL NOT NULL DEFAULT 0,
    last_active_at TIMESTAMP,
    created_at TIMESTAMP NOT NULL`

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS leads (` + entityColumns + `)`,
	`CREATE TABLE IF NOT EXISTS users (` + entityColumns + `)`,
	`CREATE INDEX IF NOT EXISTS idx_leads_fingerprint ON leads(fingerprint)`,
	`CREATE INDEX IF NOT EXISTS idx_users_fingerprint ON users(fingerprint)`,
	`CREATE TABLE IF NOT EXISTS lead_queue (
        entity_id TEXT PRIMARY KEY,
        score REAL NOT NULL,
        created_at TIMESTAMP NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS idx_lead_queue_score ON lead_queue(score DESC)`,
	`CREATE TABLE IF NOT EXISTS referrals (
        referrer_id TEXT NOT NULL,
        referee_id TEXT NOT NULL,
        created_at TIMESTAMP NOT NULL
    )`,
	`CREATE TABLE IF NOT EXISTS sessions (
        id TEXT PRIMARY KEY,
        actor_id TEXT NOT NULL,
        amount REAL,
        status TEXT NOT NULL DEFAULT 'pending',
        created_at TIMESTAMP NOT NULL
    )`,
	`CREATE TABLE IF NOT EXISTS orders (
        id TEXT PRIMARY KEY,
        account_id TEXT NOT NULL,
        items TEXT NOT NULL,
        total REAL NOT NULL,
        channel TEXT NOT NULL DEFAULT 'unknown',
        created_at TIMESTAMP NOT NULL
    )`,
	`CREATE TABLE IF NOT EXISTS inventory (
        sku TEXT PRIMARY KEY,
        name TEXT NOT NULL DEFAULT '',
        price REAL NOT NULL DEFAULT 0,
        qty_available INTEGER NOT NULL DEFAULT 0
    )`,
	`CREATE TABLE IF NOT EXISTS feedback (
        actor_id TEXT NOT NULL,
        score INTEGER NOT NULL,
        created_at TIMESTAMP NOT NULL
    )`,
	`CREATE TABLE IF NOT EXISTS metrics (
        name TEXT PRIMARY KEY,
        payload TEXT NOT NULL,
        computed_at TIMESTAMP NOT NULL
    )`,
}

// EnsureSchema creates all tables and indexes when absent. Safe to run
// on every startup.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
