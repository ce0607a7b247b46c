package postgres

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/bloodlink/backend/config"

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
		`CREATE TABLE IF NOT EXISTS hospitals (
			id SERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			city VARCHAR(100) NOT NULL,
			contact_person VARCHAR(255) NOT NULL DEFAULT '',
			phone VARCHAR(50) NOT NULL DEFAULT '',
			latitude DOUBLE PRECISION,
			longitude DOUBLE PRECISION,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS donors (
			id SERIAL PRIMARY KEY,
			full_name VARCHAR(255) NOT NULL,
			email VARCHAR(255) UNIQUE NOT NULL,
			phone VARCHAR(50) NOT NULL DEFAULT '',
			blood_group VARCHAR(3) NOT NULL,
			city VARCHAR(100) NOT NULL,
			available BOOLEAN NOT NULL DEFAULT TRUE,
			latitude DOUBLE PRECISION,
			longitude DOUBLE PRECISION,
			last_donation_date TIMESTAMP,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS patients (
			id SERIAL PRIMARY KEY,
			full_name VARCHAR(255) NOT NULL,
			email VARCHAR(255) UNIQUE NOT NULL,
			phone VARCHAR(50) NOT NULL DEFAULT '',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS admins (
			id SERIAL PRIMARY KEY,
			full_name VARCHAR(255) NOT NULL,
			email VARCHAR(255) UNIQUE NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS blood_requests (
			id SERIAL PRIMARY KEY,
			patient_id INTEGER REFERENCES patients(id),
			hospital_id INTEGER NOT NULL REFERENCES hospitals(id),
			donor_id INTEGER REFERENCES donors(id),
			blood_group VARCHAR(3) NOT NULL,
			component VARCHAR(20) NOT NULL DEFAULT 'whole_blood',
			units_required INTEGER NOT NULL,
			units_fulfilled INTEGER NOT NULL DEFAULT 0,
			urgency VARCHAR(20) NOT NULL DEFAULT 'Normal',
			reason TEXT NOT NULL DEFAULT '',
			required_by TIMESTAMP,
			request_city VARCHAR(100) NOT NULL DEFAULT '',
			request_latitude DOUBLE PRECISION,
			request_longitude DOUBLE PRECISION,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			fulfilled_at TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS inventory (
			id SERIAL PRIMARY KEY,
			hospital_id INTEGER NOT NULL REFERENCES hospitals(id),
			blood_group VARCHAR(3) NOT NULL,
			component VARCHAR(20) NOT NULL DEFAULT 'whole_blood',
			units_available INTEGER NOT NULL DEFAULT 0 CHECK (units_available >= 0),
			units_reserved INTEGER NOT NULL DEFAULT 0 CHECK (units_reserved >= 0),
			UNIQUE (hospital_id, blood_group, component)
		)`,

		`CREATE TABLE IF NOT EXISTS donor_responses (
			id SERIAL PRIMARY KEY,
			request_id INTEGER NOT NULL REFERENCES blood_requests(id),
			donor_id INTEGER NOT NULL REFERENCES donors(id),
			response VARCHAR(10) NOT NULL DEFAULT 'pending',
			notes TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (request_id, donor_id)
		)`,

		`CREATE TABLE IF NOT EXISTS notifications (
			id SERIAL PRIMARY KEY,
			recipient_key VARCHAR(60) NOT NULL,
			title VARCHAR(255) NOT NULL,
			body TEXT NOT NULL,
			request_id INTEGER REFERENCES blood_requests(id),
			read_at TIMESTAMP,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS donations (
			id SERIAL PRIMARY KEY,
			donor_id INTEGER NOT NULL REFERENCES donors(id),
			request_id INTEGER REFERENCES blood_requests(id),
			hospital_id INTEGER NOT NULL REFERENCES hospitals(id),
			blood_group VARCHAR(3) NOT NULL,
			component VARCHAR(20) NOT NULL DEFAULT 'whole_blood',
			units INTEGER NOT NULL DEFAULT 1,
			donation_date TIMESTAMP NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_requests_hospital_id ON blood_requests(hospital_id)`,
		`CREATE INDEX IF NOT EXISTS idx_requests_patient_id ON blood_requests(patient_id)`,
		`CREATE INDEX IF NOT EXISTS idx_requests_status ON blood_requests(status)`,
		`CREATE INDEX IF NOT EXISTS idx_requests_status_created ON blood_requests(status, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_inventory_hospital ON inventory(hospital_id)`,
		`CREATE INDEX IF NOT EXISTS idx_responses_request_id ON donor_responses(request_id)`,
		`CREATE INDEX IF NOT EXISTS idx_responses_donor_id ON donor_responses(donor_id)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON notifications(recipient_key, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_donors_city_group ON donors(city, blood_group)`,
		`CREATE INDEX IF NOT EXISTS idx_donations_donor_id ON donations(donor_id)`,
		`CREATE INDEX IF NOT EXISTS idx_donations_hospital_id ON donations(hospital_id)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("failed to execute migration: %v", err)
		}
	}

	log.Println("Database migrations completed successfully")
	return nil
}
