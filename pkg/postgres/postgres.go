package postgres

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/mcp-events/ticketflow/config"

	_ "github.com/lib/pq"
)

func NewPostgresDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Successfully connected to PostgreSQL")
	return db, nil
}

func RunMigrations(db *sql.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			title VARCHAR(255) NOT NULL,
			date DATE NOT NULL,
			start_time VARCHAR(16) NOT NULL DEFAULT '',
			end_time VARCHAR(16) NOT NULL DEFAULT '',
			location TEXT NOT NULL DEFAULT '',
			price BIGINT,
			fee BIGINT NOT NULL DEFAULT 0,
			membership_fee BIGINT NOT NULL DEFAULT 0,
			lineup TEXT[] NOT NULL DEFAULT '{}',
			note TEXT NOT NULL DEFAULT '',
			active BOOLEAN NOT NULL DEFAULT FALSE,
			image_url TEXT NOT NULL DEFAULT '',
			only_members BOOLEAN NOT NULL DEFAULT FALSE,
			purchase_policy VARCHAR(64) NOT NULL DEFAULT '',
			photos_ready BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS members (
			id TEXT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			surname VARCHAR(255) NOT NULL,
			email VARCHAR(255) UNIQUE NOT NULL,
			birthdate VARCHAR(10) NOT NULL DEFAULT '',
			source VARCHAR(64) NOT NULL DEFAULT 'admin',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS purchases (
			id TEXT PRIMARY KEY,
			event_id TEXT REFERENCES events(id),
			provider_order_id TEXT UNIQUE NOT NULL,
			purchase_type VARCHAR(64) NOT NULL DEFAULT 'event_ticket',
			status VARCHAR(20) NOT NULL DEFAULT 'created',
			quantity INTEGER NOT NULL,
			amount BIGINT NOT NULL,
			payment_method VARCHAR(64) NOT NULL DEFAULT '',
			purchase_mode VARCHAR(64) NOT NULL DEFAULT 'public',
			participants JSONB NOT NULL DEFAULT '[]',
			non_members TEXT[] NOT NULL DEFAULT '{}',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS tickets (
			id TEXT PRIMARY KEY,
			purchase_id TEXT REFERENCES purchases(id),
			event_id TEXT REFERENCES events(id),
			name VARCHAR(255) NOT NULL,
			surname VARCHAR(255) NOT NULL,
			email VARCHAR(255) NOT NULL,
			phone VARCHAR(64) NOT NULL DEFAULT '',
			birthdate VARCHAR(10) NOT NULL DEFAULT '',
			newsletter_consent BOOLEAN NOT NULL DEFAULT FALSE,
			checked_in_at TIMESTAMP,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_purchases_event_id ON purchases(event_id)`,
		`CREATE INDEX IF NOT EXISTS idx_purchases_status ON purchases(status)`,
		`CREATE INDEX IF NOT EXISTS idx_tickets_event_id ON tickets(event_id)`,
		`CREATE INDEX IF NOT EXISTS idx_tickets_event_email ON tickets(event_id, email)`,
		`CREATE INDEX IF NOT EXISTS idx_members_name_match ON members(LOWER(name), LOWER(surname), birthdate)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("failed to execute migration: %v", err)
		}
	}

	log.Println("Database migrations completed successfully")
	return nil
}
