package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bloodlink/backend/internal/entity"
)

type inventoryRepository struct {
	db *sql.DB
}

func NewInventoryRepository(db *sql.DB) InventoryRepository {
	return &inventoryRepository{db: db}
}

func (r *inventoryRepository) GetAvailable(ctx context.Context, hospitalID int64, bloodGroup, component string) (int, error) {
	query := `
		SELECT units_available FROM inventory
		WHERE hospital_id = $1 AND blood_group = $2 AND component = $3
	`

	var available int
	err := r.db.QueryRowContext(ctx, query, hospitalID, bloodGroup, component).Scan(&available)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get available units: %w", err)
	}
	return available, nil
}

func (r *inventoryRepository) Consume(ctx context.Context, hospitalID int64, bloodGroup, component string, units int) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE inventory
		SET units_available = units_available - $1
		WHERE hospital_id = $2 AND blood_group = $3 AND component = $4
		  AND units_available >= $1
	`, units, hospitalID, bloodGroup, component)
	if err != nil {
		return fmt.Errorf("failed to consume inventory: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return entity.ErrInsufficientStock
	}
	return nil
}

func (r *inventoryRepository) Upsert(ctx context.Context, entry *entity.InventoryEntry) error {
	query := `
		INSERT INTO inventory (hospital_id, blood_group, component, units_available, units_reserved)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (hospital_id, blood_group, component)
		DO UPDATE SET units_available = EXCLUDED.units_available,
		              units_reserved = EXCLUDED.units_reserved
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query,
		entry.HospitalID, entry.BloodGroup, entry.Component,
		entry.UnitsAvailable, entry.UnitsReserved,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert inventory entry: %w", err)
	}
	return nil
}

func (r *inventoryRepository) Adjust(ctx context.Context, hospitalID int64, bloodGroup, component string, units int, op entity.AdjustOp) (*entity.InventoryEntry, error) {
	signed := units
	if op == entity.AdjustOpSubtract {
		signed = -units
	}

	// Relative adjustments floor at zero rather than failing: stock counts
	// drift against physical audits and an over-subtract means "we are out",
	// not "reject the correction".
	query := `
		INSERT INTO inventory (hospital_id, blood_group, component, units_available, units_reserved)
		VALUES ($1, $2, $3, GREATEST(0, $4), 0)
		ON CONFLICT (hospital_id, blood_group, component)
		DO UPDATE SET units_available = GREATEST(0, inventory.units_available + $4)
		RETURNING id, hospital_id, blood_group, component, units_available, units_reserved
	`

	var entry entity.InventoryEntry
	err := r.db.QueryRowContext(ctx, query, hospitalID, bloodGroup, component, signed).Scan(
		&entry.ID, &entry.HospitalID, &entry.BloodGroup, &entry.Component,
		&entry.UnitsAvailable, &entry.UnitsReserved,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to adjust inventory: %w", err)
	}
	return &entry, nil
}

func (r *inventoryRepository) UpdateByID(ctx context.Context, id int64, unitsAvailable, unitsReserved *int) (*entity.InventoryEntry, error) {
	query := `
		UPDATE inventory
		SET units_available = COALESCE($1, units_available),
		    units_reserved = COALESCE($2, units_reserved)
		WHERE id = $3
		RETURNING id, hospital_id, blood_group, component, units_available, units_reserved
	`

	var entry entity.InventoryEntry
	err := r.db.QueryRowContext(ctx, query, unitsAvailable, unitsReserved, id).Scan(
		&entry.ID, &entry.HospitalID, &entry.BloodGroup, &entry.Component,
		&entry.UnitsAvailable, &entry.UnitsReserved,
	)
	if err == sql.ErrNoRows {
		return nil, entity.ErrInventoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update inventory entry: %w", err)
	}
	return &entry, nil
}

func (r *inventoryRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM inventory WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete inventory entry: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return entity.ErrInventoryNotFound
	}
	return nil
}

func (r *inventoryRepository) ListByHospital(ctx context.Context, hospitalID int64) ([]*entity.InventoryEntry, error) {
	query := `
		SELECT id, hospital_id, blood_group, component, units_available, units_reserved
		FROM inventory
		WHERE hospital_id = $1
		ORDER BY blood_group, component
	`

	rows, err := r.db.QueryContext(ctx, query, hospitalID)
	if err != nil {
		return nil, fmt.Errorf("failed to query inventory: %w", err)
	}
	defer rows.Close()

	var entries []*entity.InventoryEntry
	for rows.Next() {
		var entry entity.InventoryEntry
		if err := rows.Scan(
			&entry.ID, &entry.HospitalID, &entry.BloodGroup, &entry.Component,
			&entry.UnitsAvailable, &entry.UnitsReserved,
		); err != nil {
			return nil, fmt.Errorf("failed to scan inventory entry: %w", err)
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating inventory: %w", err)
	}

	return entries, nil
}
