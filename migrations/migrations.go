package migrations

import (
	"database/sql"
	"fmt"
)

var db *sql.DB

// Init sets the DB connection for migrations
func Init(database *sql.DB) {
	db = database
}

// Migrate creates required tables if they do not exist
func Migrate() error {
	if db == nil {
		return fmt.Errorf("db is not initialized")
	}

	// One record per user; absence is an implicit free plan, so rows
	// only appear once a user first touches the subscription layer.
	createSubs := `
	CREATE TABLE IF NOT EXISTS user_subscriptions (
		user_id VARCHAR(128) PRIMARY KEY,
		plan VARCHAR(20) NOT NULL DEFAULT 'free',
		start_date BIGINT NOT NULL DEFAULT 0,
		end_date BIGINT NULL,
		is_active TINYINT(1) NOT NULL DEFAULT 1,
		stripe_customer_id VARCHAR(191) NOT NULL DEFAULT '',
		stripe_subscription_id VARCHAR(191) NOT NULL DEFAULT ''
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`
	if _, err := db.Exec(createSubs); err != nil {
		return err
	}

	// timestamp is the semantic observation time in epoch milliseconds,
	// distinct from the row insert time.
	createEntries := `
	CREATE TABLE IF NOT EXISTS insect_entries (
		id VARCHAR(36) PRIMARY KEY,
		name VARCHAR(191) NOT NULL,
		memo TEXT,
		image_url VARCHAR(512) NOT NULL,
		latitude DOUBLE NOT NULL,
		longitude DOUBLE NOT NULL,
		timestamp BIGINT NOT NULL,
		user_id VARCHAR(128) NOT NULL,
		ai_description TEXT,
		ai_links JSON NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_entries_user (user_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`
	if _, err := db.Exec(createEntries); err != nil {
		return err
	}

	createMarkers := `
	CREATE TABLE IF NOT EXISTS user_marker_settings (
		user_id VARCHAR(128) PRIMARY KEY,
		color VARCHAR(16) NOT NULL DEFAULT '#10b981',
		icon_type VARCHAR(32) NOT NULL DEFAULT 'default',
		updated_at BIGINT NOT NULL DEFAULT 0
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`
	if _, err := db.Exec(createMarkers); err != nil {
		return err
	}
	return nil
}
