package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloodlink/backend/internal/entity"
	"github.com/bloodlink/backend/internal/service"
)

func newInventoryFixture() (*fakeInventoryRepo, service.InventoryService) {
	inventory := newFakeInventoryRepo()
	hospitals := &fakeHospitalRepo{hospitals: map[int64]*entity.Hospital{
		7: {ID: 7, Name: "City General", City: "Springfield"},
	}}
	return inventory, service.NewInventoryService(inventory, hospitals)
}

func TestInventoryAdjust(t *testing.T) {
	inventory, svc := newInventoryFixture()
	inventory.available[stockKey(7, "A+", "whole_blood")] = 3

	entry, err := svc.Adjust(context.Background(), &service.AdjustInventoryInput{
		HospitalID: 7, BloodGroup: "A+", Units: 2, Op: "add",
	})
	require.NoError(t, err)
	assert.Equal(t, 5, entry.UnitsAvailable)

	entry, err = svc.Adjust(context.Background(), &service.AdjustInventoryInput{
		HospitalID: 7, BloodGroup: "A+", Units: 4, Op: "subtract",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, entry.UnitsAvailable)
}

func TestInventoryAdjust_FloorsAtZero(t *testing.T) {
	inventory, svc := newInventoryFixture()
	inventory.available[stockKey(7, "A+", "whole_blood")] = 1

	entry, err := svc.Adjust(context.Background(), &service.AdjustInventoryInput{
		HospitalID: 7, BloodGroup: "A+", Units: 5, Op: "subtract",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, entry.UnitsAvailable)
}

func TestInventoryAdjust_Validation(t *testing.T) {
	_, svc := newInventoryFixture()

	_, err := svc.Adjust(context.Background(), &service.AdjustInventoryInput{
		HospitalID: 7, BloodGroup: "A+", Units: 1, Op: "set",
	})
	assert.ErrorIs(t, err, entity.ErrInvalidInput)

	_, err = svc.Adjust(context.Background(), &service.AdjustInventoryInput{
		HospitalID: 7, BloodGroup: "C+", Units: 1, Op: "add",
	})
	assert.ErrorIs(t, err, entity.ErrInvalidInput)

	_, err = svc.Adjust(context.Background(), &service.AdjustInventoryInput{
		HospitalID: 99, BloodGroup: "A+", Units: 1, Op: "add",
	})
	assert.ErrorIs(t, err, entity.ErrHospitalNotFound)
}

func TestInventoryConsume(t *testing.T) {
	inventory, svc := newInventoryFixture()
	inventory.available[stockKey(7, "O-", "whole_blood")] = 2

	require.NoError(t, svc.Consume(context.Background(), 7, "O-", "", 2))
	assert.Equal(t, 0, inventory.available[stockKey(7, "O-", "whole_blood")])

	err := svc.Consume(context.Background(), 7, "O-", "", 1)
	assert.ErrorIs(t, err, entity.ErrInsufficientStock)
}

func TestInventorySummary(t *testing.T) {
	inventory, svc := newInventoryFixture()
	inventory.entries = []*entity.InventoryEntry{
		{HospitalID: 7, BloodGroup: "A+", Component: "whole_blood", UnitsAvailable: 4, UnitsReserved: 1},
		{HospitalID: 7, BloodGroup: "A+", Component: "plasma", UnitsAvailable: 2},
		{HospitalID: 7, BloodGroup: "O-", Component: "whole_blood", UnitsAvailable: 1},
	}

	summary, err := svc.Summary(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, summary, 2)

	assert.Equal(t, 6, summary["A+"].Total)
	assert.Equal(t, 1, summary["A+"].Reserved)
	assert.Equal(t, 4, summary["A+"].ByComponent["whole_blood"].Available)
	assert.Equal(t, 2, summary["A+"].ByComponent["plasma"].Available)
	assert.Equal(t, 1, summary["O-"].Total)
}
