package service

import (
	"context"
	"time"

	"github.com/bloodlink/backend/internal/entity"
)

// DispatchService routes new blood requests to hospital inventory or donors
// and drives the approval workflow.
type DispatchService interface {
	CreateRequest(ctx context.Context, req *CreateRequestInput) (*DispatchResult, error)
	GetRequest(ctx context.Context, id int64) (*RequestDetails, error)
	ListRequests(ctx context.Context, filter *RequestFilterInput) ([]*entity.BloodRequest, error)
	UpdateRequestStatus(ctx context.Context, id int64, input *UpdateStatusInput) (*entity.BloodRequest, error)

	// Approve is the hospital's confirmation of an inventory reservation.
	// hospitalID is optional; when supplied it must match the request's
	// assigned hospital. Returns entity.ErrInsufficientStock alongside a
	// result when stock ran out between dispatch and approval; the result
	// then carries how many donors the fallback contacted.
	Approve(ctx context.Context, requestID int64, hospitalID *int64) (*ApprovalResult, error)

	SuggestHospitals(ctx context.Context, input *SuggestHospitalsInput) ([]*HospitalSuggestion, error)

	// RemindStaleRequests re-notifies donors of unanswered urgent requests.
	RemindStaleRequests(ctx context.Context, olderThan time.Duration) (int, error)
	SendRequestReminder(ctx context.Context, requestID int64) error
}

// ResponseService records donor accept/decline answers.
type ResponseService interface {
	SubmitResponse(ctx context.Context, input *SubmitResponseInput) (*SubmitResponseResult, error)
	ListByRequest(ctx context.Context, requestID int64) ([]*entity.DonorResponse, error)
	ListByDonor(ctx context.Context, donorID int64) ([]*entity.DonorResponse, error)
}

// InventoryService is the stock ledger surface for hospital management.
type InventoryService interface {
	GetAvailable(ctx context.Context, hospitalID int64, bloodGroup, component string) (int, error)
	Consume(ctx context.Context, hospitalID int64, bloodGroup, component string, units int) error
	Adjust(ctx context.Context, input *AdjustInventoryInput) (*entity.InventoryEntry, error)
	Upsert(ctx context.Context, input *UpsertInventoryInput) (*entity.InventoryEntry, error)
	UpdateByID(ctx context.Context, id int64, unitsAvailable, unitsReserved *int) (*entity.InventoryEntry, error)
	Delete(ctx context.Context, id int64) error
	ListByHospital(ctx context.Context, hospitalID int64) ([]*entity.InventoryEntry, error)
	Summary(ctx context.Context, hospitalID int64) (map[string]*entity.InventorySummary, error)
}

// NotificationService appends addressed notifications and hands delivery to
// the queue. All failures are swallowed; callers never depend on the sink.
type NotificationService interface {
	Notify(ctx context.Context, role entity.Role, id int64, title, body string, requestID *int64)
	NotifyMany(ctx context.Context, notifications []*entity.Notification) int
	NotifyAdmins(ctx context.Context, title, body string, requestID *int64) int
	List(ctx context.Context, recipientKey string, limit, offset int) ([]*entity.Notification, error)
	MarkRead(ctx context.Context, id int64) error
}

// DonationService records completed donations and their request linkage.
type DonationService interface {
	RecordDonation(ctx context.Context, input *RecordDonationInput) (*entity.Donation, error)
	ListByDonor(ctx context.Context, donorID int64, limit int) ([]*entity.Donation, error)
	ListByHospital(ctx context.Context, hospitalID int64, limit int) ([]*entity.Donation, error)
	NearestHospital(ctx context.Context, donorID int64) (*entity.HospitalCandidate, error)
}

// HospitalService exposes hospital directory lookups.
type HospitalService interface {
	List(ctx context.Context) ([]*entity.Hospital, error)
	Near(ctx context.Context, lat, lng, radiusKm float64) ([]*entity.HospitalCandidate, error)
	MatchDonors(ctx context.Context, hospitalID int64, bloodGroup string) ([]*DonorMatch, error)
}

// HistoryService returns role-scoped request history.
type HistoryService interface {
	History(ctx context.Context, role entity.Role, id int64) ([]*entity.BloodRequest, error)
}

// CreateRequestInput is the intake payload for a new blood request.
type CreateRequestInput struct {
	PatientID     *int64   `json:"patient_id"`
	BloodGroup    string   `json:"blood_group" binding:"required"`
	Component     string   `json:"component" binding:"required"`
	UnitsRequired int      `json:"units_required" binding:"required,min=1,max=20"`
	Urgency       string   `json:"urgency" binding:"required"`
	Reason        string   `json:"reason" binding:"required"`
	RequiredBy    *string  `json:"required_by"`
	City          string   `json:"request_city"`
	Latitude      *float64 `json:"request_latitude"`
	Longitude     *float64 `json:"request_longitude"`
}

// RequestFilterInput narrows request listings.
type RequestFilterInput struct {
	HospitalID int64
	PatientID  int64
	Status     string
	Limit      int
	Offset     int
}

// UpdateStatusInput is the manual status PATCH payload.
type UpdateStatusInput struct {
	Status         string `json:"status" binding:"required"`
	UnitsFulfilled *int   `json:"units_fulfilled"`
	DonorID        *int64 `json:"donor_id"`
}

// DispatchResult reports where a new request was routed. MatchedDonors is the
// list of donors contacted on the donor-dispatch branch, empty otherwise.
type DispatchResult struct {
	Request                  *entity.BloodRequest `json:"request"`
	MatchedDonors            []*entity.Donor      `json:"matchedDonors"`
	NotificationCount        int                  `json:"notificationCount"`
	InventoryAvailable       int                  `json:"inventoryAvailable"`
	AwaitingHospitalApproval bool                 `json:"awaitingHospitalApproval"`
	DispatchedToDonors       bool                 `json:"dispatchedToDonors"`
}

// ApprovalResult is the outcome of a hospital approval. DonorsNotified counts
// the donors newly contacted by the insufficient-stock fallback; it is zero on
// every other path, including a fallback that found responses already dispatched.
type ApprovalResult struct {
	Request        *entity.BloodRequest `json:"request"`
	DonorsNotified int                  `json:"donorsNotified,omitempty"`
}

// RequestDetails is a request plus its donor responses.
type RequestDetails struct {
	Request   *entity.BloodRequest    `json:"request"`
	Responses []*entity.DonorResponse `json:"responses"`
}

// HospitalSuggestion ranks a hospital for the request form.
type HospitalSuggestion struct {
	Hospital       *entity.HospitalCandidate `json:"hospital"`
	UnitsAvailable int                       `json:"units_available"`
	Availability   string                    `json:"availability"` // available | insufficient | unavailable
}

// SuggestHospitalsInput describes the need being shopped around.
type SuggestHospitalsInput struct {
	BloodGroup    string
	Component     string
	UnitsRequired int
	City          string
	Latitude      *float64
	Longitude     *float64
}

// SubmitResponseInput is a donor's answer to a request.
type SubmitResponseInput struct {
	RequestID int64   `json:"request_id" binding:"required"`
	DonorID   int64   `json:"donor_id" binding:"required"`
	Response  string  `json:"response" binding:"required"`
	Notes     *string `json:"notes"`
}

// SubmitResponseResult carries the stored response and the request state
// after any acceptance was applied.
type SubmitResponseResult struct {
	DonorResponse *entity.DonorResponse `json:"donorResponse"`
	Request       *entity.BloodRequest  `json:"request,omitempty"`
}

// AdjustInventoryInput is a relative stock correction.
type AdjustInventoryInput struct {
	HospitalID int64  `json:"hospital_id" binding:"required"`
	BloodGroup string `json:"blood_group" binding:"required"`
	Component  string `json:"component"`
	Units      int    `json:"units" binding:"required,min=1"`
	Op         string `json:"op" binding:"required"`
}

// UpsertInventoryInput sets absolute stock for one (group, component) key.
type UpsertInventoryInput struct {
	HospitalID     int64  `json:"hospital_id" binding:"required"`
	BloodGroup     string `json:"blood_group" binding:"required"`
	Component      string `json:"component"`
	UnitsAvailable int    `json:"units_available" binding:"min=0"`
	UnitsReserved  int    `json:"units_reserved" binding:"min=0"`
}

// RecordDonationInput registers one completed donation.
type RecordDonationInput struct {
	DonorID      int64   `json:"donor_id" binding:"required"`
	HospitalID   int64   `json:"hospital_id" binding:"required"`
	RequestID    *int64  `json:"request_id"`
	Component    string  `json:"component"`
	Units        int     `json:"units"`
	DonationDate *string `json:"donation_date"`
}

// DonorMatch is an eligible donor for a (hospital, blood group) need.
type DonorMatch struct {
	Donor    *entity.Donor `json:"donor"`
	Eligible bool          `json:"eligible"`
}

// TaskPublisher is the queue-facing side of the services.
type TaskPublisher interface {
	Publish(ctx context.Context, task *Task) error
}

// Task mirrors a queue task without importing the queue package.
type Task struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	ExecuteAt  time.Time              `json:"execute_at"`
	MaxRetries int                    `json:"max_retries"`
	Attempts   int                    `json:"attempts"`
}

const (
	TaskTypeDeliverNotification = "deliver_notification"
	TaskTypeRequestReminder     = "request_reminder"
	TaskTypeDonorFollowup       = "donor_followup"
)
