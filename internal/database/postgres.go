package database

import (
	"database/sql"
	"log"
	"time"

	_ "github.com/lib/pq"
)

var PostgresDB *sql.DB

// ConnectPostgres connects to PostgreSQL database
func ConnectPostgres(postgresURI string) error {
	var err error

	PostgresDB, err = sql.Open("postgres", postgresURI)
	if err != nil {
		return err
	}

	// Set connection pool settings
	PostgresDB.SetMaxOpenConns(25)
	PostgresDB.SetMaxIdleConns(5)
	PostgresDB.SetConnMaxLifetime(5 * time.Minute)

	// Test connection
	if err = PostgresDB.Ping(); err != nil {
		return err
	}

	log.Println("✅ Connected to PostgreSQL")

	// Initialize tables
	if err = InitPostgresTables(); err != nil {
		return err
	}

	return nil
}

// InitPostgresTables creates all necessary tables if they don't exist
func InitPostgresTables() error {
	queries := []string{
		// Registration form submissions. id is SERIAL so insertion order
		// matches id order, which the paginated listing relies on.
		`CREATE TABLE IF NOT EXISTS user_data (
			id SERIAL PRIMARY KEY,
			first_name VARCHAR(255) NOT NULL,
			last_name VARCHAR(255) NOT NULL,
			email VARCHAR(255) NOT NULL,
			gender VARCHAR(50) NOT NULL,
			age INTEGER NOT NULL,
			country VARCHAR(255) NOT NULL,
			bio TEXT,
			dob DATE,
			notification VARCHAR(10) NOT NULL DEFAULT 'email'
		)`,

		// Indexes backing the case-insensitive substring search
		`CREATE INDEX IF NOT EXISTS idx_user_data_first_name_lower ON user_data(LOWER(first_name))`,
		`CREATE INDEX IF NOT EXISTS idx_user_data_last_name_lower ON user_data(LOWER(last_name))`,
		`CREATE INDEX IF NOT EXISTS idx_user_data_email_lower ON user_data(LOWER(email))`,
	}

	for _, query := range queries {
		if _, err := PostgresDB.Exec(query); err != nil {
			return err
		}
	}

	log.Println("✅ PostgreSQL tables initialized")
	return nil
}

// DisconnectPostgres closes the PostgreSQL connection
func DisconnectPostgres() error {
	if PostgresDB != nil {
		return PostgresDB.Close()
	}
	return nil
}
