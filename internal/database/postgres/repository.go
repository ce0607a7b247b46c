package repository

import (
	"context"
	"time"

	"github.com/bloodlink/backend/internal/entity"
)

// RequestFilter narrows List queries; zero values mean "no filter".
type RequestFilter struct {
	HospitalID int64
	PatientID  int64
	Status     entity.RequestStatus
	Limit      int
	Offset     int
}

// StatusUpdate is the manual PATCH surface for a request; nil fields are
// left untouched.
type StatusUpdate struct {
	Status         entity.RequestStatus
	UnitsFulfilled *int
	DonorID        *int64
}

type RequestRepository interface {
	Create(ctx context.Context, request *entity.BloodRequest) error
	GetByID(ctx context.Context, id int64) (*entity.BloodRequest, error)
	List(ctx context.Context, filter RequestFilter) ([]*entity.BloodRequest, error)
	UpdateStatus(ctx context.Context, id int64, update StatusUpdate) (*entity.BloodRequest, error)

	// FulfillFromInventory consumes units from the hospital's inventory and
	// marks the request fulfilled in one transaction. The decrement is
	// conditional on sufficient stock at commit time; it fails with
	// entity.ErrInsufficientStock without touching either row otherwise.
	FulfillFromInventory(ctx context.Context, requestID, hospitalID int64, bloodGroup, component string, units int) (*entity.BloodRequest, error)

	// RecordAcceptedUnit applies one donor-contributed unit: clamped
	// increment, status derivation, fulfilled_at on transition, and
	// first-accepting-donor bookkeeping, all in a single guarded update.
	RecordAcceptedUnit(ctx context.Context, requestID, donorID int64) (*entity.BloodRequest, error)

	// GetStalePending returns pending urgent/emergency requests created
	// before the given time that no donor has accepted yet.
	GetStalePending(ctx context.Context, before time.Time) ([]*entity.BloodRequest, error)
}

type InventoryRepository interface {
	GetAvailable(ctx context.Context, hospitalID int64, bloodGroup, component string) (int, error)

	// Consume decrements stock only when enough is available, in one
	// conditional statement; entity.ErrInsufficientStock otherwise.
	Consume(ctx context.Context, hospitalID int64, bloodGroup, component string, units int) error
	Upsert(ctx context.Context, entry *entity.InventoryEntry) error
	Adjust(ctx context.Context, hospitalID int64, bloodGroup, component string, units int, op entity.AdjustOp) (*entity.InventoryEntry, error)
	UpdateByID(ctx context.Context, id int64, unitsAvailable, unitsReserved *int) (*entity.InventoryEntry, error)
	Delete(ctx context.Context, id int64) error
	ListByHospital(ctx context.Context, hospitalID int64) ([]*entity.InventoryEntry, error)
}

type ResponseRepository interface {
	// Submit upserts the (request, donor) response and returns the previous
	// value, empty when this is the donor's first response.
	Submit(ctx context.Context, response *entity.DonorResponse) (entity.ResponseValue, error)

	// BulkCreatePending inserts one pending response per donor unless any
	// responses already exist for the request (duplicate-dispatch guard).
	// Returns whether rows were created.
	BulkCreatePending(ctx context.Context, requestID int64, donorIDs []int64) (bool, error)

	ListByRequest(ctx context.Context, requestID int64) ([]*entity.DonorResponse, error)
	ListByDonor(ctx context.Context, donorID int64) ([]*entity.DonorResponse, error)
}

type NotificationRepository interface {
	InsertBatch(ctx context.Context, notifications []*entity.Notification) error
	ListByRecipient(ctx context.Context, recipientKey string, limit, offset int) ([]*entity.Notification, error)
	MarkRead(ctx context.Context, id int64) error
}

// GeoRepository is the lookup capability behind candidate resolution. The
// Postgres implementation computes haversine distances over stored
// coordinates; callers only rely on the returned order (closest first for
// radius queries).
type GeoRepository interface {
	HospitalsWithinRadius(ctx context.Context, lat, lng, radiusMeters float64) ([]*entity.HospitalCandidate, error)
	HospitalsInCity(ctx context.Context, city string) ([]*entity.HospitalCandidate, error)
	DonorsInCity(ctx context.Context, city, bloodGroup string) ([]*entity.Donor, error)
	DonorsNearHospital(ctx context.Context, hospitalID int64, bloodGroup string, radiusMeters float64) ([]*entity.Donor, error)
	NearestHospitalToDonor(ctx context.Context, donorID int64, maxMeters float64) (*entity.HospitalCandidate, error)
}

type HospitalRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.Hospital, error)
	List(ctx context.Context) ([]*entity.Hospital, error)
}

type DonorRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.Donor, error)
	SetLastDonation(ctx context.Context, donorID int64, date time.Time) error
}

type AdminRepository interface {
	ListIDs(ctx context.Context) ([]int64, error)
}

type DonationRepository interface {
	Create(ctx context.Context, donation *entity.Donation) error
	ListByDonor(ctx context.Context, donorID int64, limit int) ([]*entity.Donation, error)
	ListByHospital(ctx context.Context, hospitalID int64, limit int) ([]*entity.Donation, error)
}
