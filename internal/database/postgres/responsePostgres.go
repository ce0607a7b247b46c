package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/bloodlink/backend/internal/entity"
)

type responseRepository struct {
	db *sql.DB
}

func NewResponseRepository(db *sql.DB) ResponseRepository {
	return &responseRepository{db: db}
}

func (r *responseRepository) Submit(ctx context.Context, response *entity.DonorResponse) (entity.ResponseValue, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Lock the existing row (if any) so two submissions from the same donor
	// serialize and exactly one of them observes the transition.
	var previous entity.ResponseValue
	err = tx.QueryRowContext(ctx, `
		SELECT response FROM donor_responses
		WHERE request_id = $1 AND donor_id = $2
		FOR UPDATE
	`, response.RequestID, response.DonorID).Scan(&previous)
	if err != nil && err != sql.ErrNoRows {
		return "", fmt.Errorf("failed to lock donor response: %w", err)
	}

	now := time.Now()
	err = tx.QueryRowContext(ctx, `
		INSERT INTO donor_responses (request_id, donor_id, response, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (request_id, donor_id)
		DO UPDATE SET response = EXCLUDED.response,
		              notes = COALESCE(EXCLUDED.notes, donor_responses.notes),
		              updated_at = EXCLUDED.updated_at
		RETURNING id, created_at
	`, response.RequestID, response.DonorID, response.Response, response.Notes, now).
		Scan(&response.ID, &response.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("failed to submit donor response: %w", err)
	}
	response.UpdatedAt = now

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}

	return previous, nil
}

func (r *responseRepository) BulkCreatePending(ctx context.Context, requestID int64, donorIDs []int64) (bool, error) {
	if len(donorIDs) == 0 {
		return false, nil
	}

	// The NOT EXISTS guard makes a repeated dispatch for the same request a
	// no-op instead of a second wave of pending rows.
	query := `
		INSERT INTO donor_responses (request_id, donor_id, response, created_at, updated_at)
		SELECT $1, d.donor_id, 'pending', NOW(), NOW()
		FROM unnest($2::bigint[]) AS d(donor_id)
		WHERE NOT EXISTS (
			SELECT 1 FROM donor_responses WHERE request_id = $1
		)
	`

	result, err := r.db.ExecContext(ctx, query, requestID, pq.Array(donorIDs))
	if err != nil {
		return false, fmt.Errorf("failed to create pending responses: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *responseRepository) ListByRequest(ctx context.Context, requestID int64) ([]*entity.DonorResponse, error) {
	query := `
		SELECT id, request_id, donor_id, response, notes, created_at, updated_at
		FROM donor_responses
		WHERE request_id = $1
		ORDER BY id
	`
	return r.list(ctx, query, requestID)
}

func (r *responseRepository) ListByDonor(ctx context.Context, donorID int64) ([]*entity.DonorResponse, error) {
	query := `
		SELECT id, request_id, donor_id, response, notes, created_at, updated_at
		FROM donor_responses
		WHERE donor_id = $1
		ORDER BY id DESC
	`
	return r.list(ctx, query, donorID)
}

func (r *responseRepository) list(ctx context.Context, query string, arg interface{}) ([]*entity.DonorResponse, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query donor responses: %w", err)
	}
	defer rows.Close()

	var responses []*entity.DonorResponse
	for rows.Next() {
		var response entity.DonorResponse
		if err := rows.Scan(
			&response.ID, &response.RequestID, &response.DonorID,
			&response.Response, &response.Notes, &response.CreatedAt, &response.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan donor response: %w", err)
		}
		responses = append(responses, &response)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating donor responses: %w", err)
	}

	return responses, nil
}
