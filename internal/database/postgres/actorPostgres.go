package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bloodlink/backend/internal/entity"
)

type hospitalRepository struct {
	db *sql.DB
}

func NewHospitalRepository(db *sql.DB) HospitalRepository {
	return &hospitalRepository{db: db}
}

func (r *hospitalRepository) GetByID(ctx context.Context, id int64) (*entity.Hospital, error) {
	query := `
		SELECT id, name, city, contact_person, phone, latitude, longitude
		FROM hospitals WHERE id = $1
	`

	var h entity.Hospital
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&h.ID, &h.Name, &h.City, &h.ContactPerson, &h.Phone, &h.Latitude, &h.Longitude,
	)
	if err == sql.ErrNoRows {
		return nil, entity.ErrHospitalNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get hospital: %w", err)
	}
	return &h, nil
}

func (r *hospitalRepository) List(ctx context.Context) ([]*entity.Hospital, error) {
	query := `
		SELECT id, name, city, contact_person, phone, latitude, longitude
		FROM hospitals ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query hospitals: %w", err)
	}
	defer rows.Close()

	var hospitals []*entity.Hospital
	for rows.Next() {
		var h entity.Hospital
		if err := rows.Scan(
			&h.ID, &h.Name, &h.City, &h.ContactPerson, &h.Phone, &h.Latitude, &h.Longitude,
		); err != nil {
			return nil, fmt.Errorf("failed to scan hospital: %w", err)
		}
		hospitals = append(hospitals, &h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating hospitals: %w", err)
	}
	return hospitals, nil
}

type donorRepository struct {
	db *sql.DB
}

func NewDonorRepository(db *sql.DB) DonorRepository {
	return &donorRepository{db: db}
}

func (r *donorRepository) GetByID(ctx context.Context, id int64) (*entity.Donor, error) {
	query := `
		SELECT id, full_name, email, phone, blood_group, city, available, latitude, longitude, last_donation_date
		FROM donors WHERE id = $1
	`

	var d entity.Donor
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&d.ID, &d.FullName, &d.Email, &d.Phone, &d.BloodGroup,
		&d.City, &d.Available, &d.Latitude, &d.Longitude, &d.LastDonationDate,
	)
	if err == sql.ErrNoRows {
		return nil, entity.ErrDonorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get donor: %w", err)
	}
	return &d, nil
}

func (r *donorRepository) SetLastDonation(ctx context.Context, donorID int64, date time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE donors SET last_donation_date = $1 WHERE id = $2
	`, date, donorID)
	if err != nil {
		return fmt.Errorf("failed to set last donation date: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return entity.ErrDonorNotFound
	}
	return nil
}

type adminRepository struct {
	db *sql.DB
}

func NewAdminRepository(db *sql.DB) AdminRepository {
	return &adminRepository{db: db}
}

func (r *adminRepository) ListIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM admins ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query admins: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan admin id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating admins: %w", err)
	}
	return ids, nil
}

type donationRepository struct {
	db *sql.DB
}

func NewDonationRepository(db *sql.DB) DonationRepository {
	return &donationRepository{db: db}
}

func (r *donationRepository) Create(ctx context.Context, donation *entity.Donation) error {
	query := `
		INSERT INTO donations (donor_id, request_id, hospital_id, blood_group, component, units, donation_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		donation.DonorID, donation.RequestID, donation.HospitalID,
		donation.BloodGroup, donation.Component, donation.Units,
		donation.DonationDate, now,
	).Scan(&donation.ID)
	if err != nil {
		return fmt.Errorf("failed to create donation: %w", err)
	}

	donation.CreatedAt = now
	return nil
}

func (r *donationRepository) ListByDonor(ctx context.Context, donorID int64, limit int) ([]*entity.Donation, error) {
	query := `
		SELECT id, donor_id, request_id, hospital_id, blood_group, component, units, donation_date, created_at
		FROM donations WHERE donor_id = $1
		ORDER BY donation_date DESC LIMIT $2
	`
	return r.list(ctx, query, donorID, limit)
}

func (r *donationRepository) ListByHospital(ctx context.Context, hospitalID int64, limit int) ([]*entity.Donation, error) {
	query := `
		SELECT id, donor_id, request_id, hospital_id, blood_group, component, units, donation_date, created_at
		FROM donations WHERE hospital_id = $1
		ORDER BY donation_date DESC LIMIT $2
	`
	return r.list(ctx, query, hospitalID, limit)
}

func (r *donationRepository) list(ctx context.Context, query string, id int64, limit int) ([]*entity.Donation, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, query, id, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query donations: %w", err)
	}
	defer rows.Close()

	var donations []*entity.Donation
	for rows.Next() {
		var d entity.Donation
		if err := rows.Scan(
			&d.ID, &d.DonorID, &d.RequestID, &d.HospitalID, &d.BloodGroup,
			&d.Component, &d.Units, &d.DonationDate, &d.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan donation: %w", err)
		}
		donations = append(donations, &d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating donations: %w", err)
	}
	return donations, nil
}
