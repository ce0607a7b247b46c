package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bloodlink/backend/internal/entity"
)

const requestColumns = `
	id, patient_id, hospital_id, donor_id, blood_group, component,
	units_required, units_fulfilled, urgency, reason, required_by,
	request_city, request_latitude, request_longitude, status,
	created_at, fulfilled_at`

type requestRepository struct {
	db *sql.DB
}

func NewRequestRepository(db *sql.DB) RequestRepository {
	return &requestRepository{db: db}
}

func scanRequest(row interface{ Scan(...interface{}) error }) (*entity.BloodRequest, error) {
	var r entity.BloodRequest
	err := row.Scan(
		&r.ID,
		&r.PatientID,
		&r.HospitalID,
		&r.DonorID,
		&r.BloodGroup,
		&r.Component,
		&r.UnitsRequired,
		&r.UnitsFulfilled,
		&r.Urgency,
		&r.Reason,
		&r.RequiredBy,
		&r.RequestCity,
		&r.Latitude,
		&r.Longitude,
		&r.Status,
		&r.CreatedAt,
		&r.FulfilledAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *requestRepository) Create(ctx context.Context, request *entity.BloodRequest) error {
	query := `
		INSERT INTO blood_requests (
			patient_id, hospital_id, blood_group, component, units_required,
			units_fulfilled, urgency, reason, required_by, request_city,
			request_latitude, request_longitude, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id
	`

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		request.PatientID,
		request.HospitalID,
		request.BloodGroup,
		request.Component,
		request.UnitsRequired,
		request.UnitsFulfilled,
		request.Urgency,
		request.Reason,
		request.RequiredBy,
		request.RequestCity,
		request.Latitude,
		request.Longitude,
		request.Status,
		now,
	).Scan(&request.ID)
	if err != nil {
		return fmt.Errorf("failed to create blood request: %w", err)
	}

	request.CreatedAt = now
	return nil
}

func (r *requestRepository) GetByID(ctx context.Context, id int64) (*entity.BloodRequest, error) {
	query := `SELECT` + requestColumns + ` FROM blood_requests WHERE id = $1`

	request, err := scanRequest(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, entity.ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get blood request: %w", err)
	}
	return request, nil
}

func (r *requestRepository) List(ctx context.Context, filter RequestFilter) ([]*entity.BloodRequest, error) {
	query := `SELECT` + requestColumns + ` FROM blood_requests WHERE 1=1`
	args := []interface{}{}

	if filter.HospitalID != 0 {
		args = append(args, filter.HospitalID)
		query += fmt.Sprintf(" AND hospital_id = $%d", len(args))
	}
	if filter.PatientID != 0 {
		args = append(args, filter.PatientID)
		query += fmt.Sprintf(" AND patient_id = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}

	query += " ORDER BY created_at DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query blood requests: %w", err)
	}
	defer rows.Close()

	var requests []*entity.BloodRequest
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan blood request: %w", err)
		}
		requests = append(requests, request)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating blood requests: %w", err)
	}

	return requests, nil
}

func (r *requestRepository) UpdateStatus(ctx context.Context, id int64, update StatusUpdate) (*entity.BloodRequest, error) {
	query := `
		UPDATE blood_requests
		SET status = $1,
		    units_fulfilled = COALESCE($2, units_fulfilled),
		    donor_id = COALESCE($3, donor_id),
		    fulfilled_at = CASE WHEN $1 = 'fulfilled' AND fulfilled_at IS NULL THEN NOW() ELSE fulfilled_at END
		WHERE id = $4
		RETURNING` + requestColumns

	request, err := scanRequest(r.db.QueryRowContext(ctx, query,
		update.Status, update.UnitsFulfilled, update.DonorID, id))
	if err == sql.ErrNoRows {
		return nil, entity.ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update request status: %w", err)
	}
	return request, nil
}

// FulfillFromInventory holds the single transactional boundary of the
// approval path: the conditional stock decrement and the request transition
// commit together or not at all.
func (r *requestRepository) FulfillFromInventory(ctx context.Context, requestID, hospitalID int64, bloodGroup, component string, units int) (*entity.BloodRequest, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Conditional decrement: the availability check and the write are one
	// statement, so a concurrent approval cannot drive stock negative.
	result, err := tx.ExecContext(ctx, `
		UPDATE inventory
		SET units_available = units_available - $1
		WHERE hospital_id = $2 AND blood_group = $3 AND component = $4
		  AND units_available >= $1
	`, units, hospitalID, bloodGroup, component)
	if err != nil {
		return nil, fmt.Errorf("failed to consume inventory: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return nil, entity.ErrInsufficientStock
	}

	query := `
		UPDATE blood_requests
		SET units_fulfilled = units_required,
		    status = 'fulfilled',
		    fulfilled_at = NOW()
		WHERE id = $1
		RETURNING` + requestColumns

	request, err := scanRequest(tx.QueryRowContext(ctx, query, requestID))
	if err == sql.ErrNoRows {
		return nil, entity.ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to mark request fulfilled: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return request, nil
}

func (r *requestRepository) RecordAcceptedUnit(ctx context.Context, requestID, donorID int64) (*entity.BloodRequest, error) {
	// Single guarded update: clamp at units_required, derive status, stamp
	// fulfilled_at once, and keep the first accepting donor on the row.
	query := `
		UPDATE blood_requests
		SET units_fulfilled = LEAST(units_required, units_fulfilled + 1),
		    status = CASE WHEN units_fulfilled + 1 >= units_required THEN 'fulfilled' ELSE 'partial' END,
		    fulfilled_at = CASE WHEN units_fulfilled + 1 >= units_required AND fulfilled_at IS NULL THEN NOW() ELSE fulfilled_at END,
		    donor_id = COALESCE(donor_id, $2)
		WHERE id = $1 AND status IN ('pending', 'partial')
		RETURNING` + requestColumns

	request, err := scanRequest(r.db.QueryRowContext(ctx, query, requestID, donorID))
	if err == sql.ErrNoRows {
		// Already fulfilled (or cancelled): nothing to apply, return as-is.
		return r.GetByID(ctx, requestID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to record accepted unit: %w", err)
	}
	return request, nil
}

func (r *requestRepository) GetStalePending(ctx context.Context, before time.Time) ([]*entity.BloodRequest, error) {
	query := `
		SELECT` + requestColumns + `
		FROM blood_requests br
		WHERE br.status = 'pending'
		  AND br.urgency IN ('Urgent', 'Emergency')
		  AND br.created_at < $1
		  AND NOT EXISTS (
			SELECT 1 FROM donor_responses dr
			WHERE dr.request_id = br.id AND dr.response = 'accepted'
		  )
		ORDER BY br.created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale pending requests: %w", err)
	}
	defer rows.Close()

	var requests []*entity.BloodRequest
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stale request: %w", err)
		}
		requests = append(requests, request)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stale requests: %w", err)
	}

	return requests, nil
}
