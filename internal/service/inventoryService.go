package service

import (
	"context"
	"fmt"

	repository "github.com/bloodlink/backend/internal/database/postgres"
	"github.com/bloodlink/backend/internal/entity"
)

type inventoryService struct {
	inventoryRepo repository.InventoryRepository
	hospitalRepo  repository.HospitalRepository
}

// NewInventoryService creates a new InventoryService
func NewInventoryService(
	inventoryRepo repository.InventoryRepository,
	hospitalRepo repository.HospitalRepository,
) InventoryService {
	return &inventoryService{
		inventoryRepo: inventoryRepo,
		hospitalRepo:  hospitalRepo,
	}
}

func (s *inventoryService) GetAvailable(ctx context.Context, hospitalID int64, bloodGroup, component string) (int, error) {
	if component == "" {
		component = defaultComponent
	}
	return s.inventoryRepo.GetAvailable(ctx, hospitalID, bloodGroup, component)
}

func (s *inventoryService) Consume(ctx context.Context, hospitalID int64, bloodGroup, component string, units int) error {
	if units < 1 {
		return fmt.Errorf("%w: units must be at least 1", entity.ErrInvalidInput)
	}
	if component == "" {
		component = defaultComponent
	}
	return s.inventoryRepo.Consume(ctx, hospitalID, bloodGroup, component, units)
}

func (s *inventoryService) Adjust(ctx context.Context, input *AdjustInventoryInput) (*entity.InventoryEntry, error) {
	op := entity.AdjustOp(input.Op)
	if !op.Valid() {
		return nil, fmt.Errorf("%w: op must be add or subtract", entity.ErrInvalidInput)
	}
	if !entity.ValidBloodGroup(input.BloodGroup) {
		return nil, fmt.Errorf("%w: unknown blood group %q", entity.ErrInvalidInput, input.BloodGroup)
	}
	if input.Units < 1 {
		return nil, fmt.Errorf("%w: units must be at least 1", entity.ErrInvalidInput)
	}

	if _, err := s.hospitalRepo.GetByID(ctx, input.HospitalID); err != nil {
		return nil, err
	}

	component := input.Component
	if component == "" {
		component = defaultComponent
	}

	return s.inventoryRepo.Adjust(ctx, input.HospitalID, input.BloodGroup, component, input.Units, op)
}

func (s *inventoryService) Upsert(ctx context.Context, input *UpsertInventoryInput) (*entity.InventoryEntry, error) {
	if !entity.ValidBloodGroup(input.BloodGroup) {
		return nil, fmt.Errorf("%w: unknown blood group %q", entity.ErrInvalidInput, input.BloodGroup)
	}

	if _, err := s.hospitalRepo.GetByID(ctx, input.HospitalID); err != nil {
		return nil, err
	}

	component := input.Component
	if component == "" {
		component = defaultComponent
	}

	entry := &entity.InventoryEntry{
		HospitalID:     input.HospitalID,
		BloodGroup:     input.BloodGroup,
		Component:      component,
		UnitsAvailable: input.UnitsAvailable,
		UnitsReserved:  input.UnitsReserved,
	}
	if err := s.inventoryRepo.Upsert(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *inventoryService) UpdateByID(ctx context.Context, id int64, unitsAvailable, unitsReserved *int) (*entity.InventoryEntry, error) {
	if unitsAvailable == nil && unitsReserved == nil {
		return nil, fmt.Errorf("%w: nothing to update", entity.ErrInvalidInput)
	}
	if unitsAvailable != nil && *unitsAvailable < 0 {
		return nil, fmt.Errorf("%w: units_available cannot be negative", entity.ErrInvalidInput)
	}
	if unitsReserved != nil && *unitsReserved < 0 {
		return nil, fmt.Errorf("%w: units_reserved cannot be negative", entity.ErrInvalidInput)
	}
	return s.inventoryRepo.UpdateByID(ctx, id, unitsAvailable, unitsReserved)
}

func (s *inventoryService) Delete(ctx context.Context, id int64) error {
	return s.inventoryRepo.Delete(ctx, id)
}

func (s *inventoryService) ListByHospital(ctx context.Context, hospitalID int64) ([]*entity.InventoryEntry, error) {
	return s.inventoryRepo.ListByHospital(ctx, hospitalID)
}

// Summary groups a hospital's stock by blood group, then by component.
func (s *inventoryService) Summary(ctx context.Context, hospitalID int64) (map[string]*entity.InventorySummary, error) {
	entries, err := s.inventoryRepo.ListByHospital(ctx, hospitalID)
	if err != nil {
		return nil, err
	}

	summary := make(map[string]*entity.InventorySummary)
	for _, entry := range entries {
		group, ok := summary[entry.BloodGroup]
		if !ok {
			group = &entity.InventorySummary{
				ByComponent: make(map[string]entity.ComponentSummary),
			}
			summary[entry.BloodGroup] = group
		}
		group.Total += entry.UnitsAvailable
		group.Reserved += entry.UnitsReserved
		group.ByComponent[entry.Component] = entity.ComponentSummary{
			Available: entry.UnitsAvailable,
			Reserved:  entry.UnitsReserved,
		}
	}

	return summary, nil
}
