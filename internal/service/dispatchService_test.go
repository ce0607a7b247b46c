package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloodlink/backend/config"
	repository "github.com/bloodlink/backend/internal/database/postgres"
	"github.com/bloodlink/backend/internal/entity"
	"github.com/bloodlink/backend/internal/service"
)

// fakeRequestRepo implements repository.RequestRepository
type fakeRequestRepo struct {
	requests                map[int64]*entity.BloodRequest
	nextID                  int64
	created                 []*entity.BloodRequest
	FulfillFromInventoryFn  func(ctx context.Context, requestID, hospitalID int64, bloodGroup, component string, units int) (*entity.BloodRequest, error)
	RecordAcceptedUnitFn    func(ctx context.Context, requestID, donorID int64) (*entity.BloodRequest, error)
	GetStalePendingFn       func(ctx context.Context, before time.Time) ([]*entity.BloodRequest, error)
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{requests: make(map[int64]*entity.BloodRequest), nextID: 1}
}

func (f *fakeRequestRepo) Create(ctx context.Context, request *entity.BloodRequest) error {
	request.ID = f.nextID
	f.nextID++
	request.CreatedAt = time.Now()
	f.requests[request.ID] = request
	f.created = append(f.created, request)
	return nil
}

func (f *fakeRequestRepo) GetByID(ctx context.Context, id int64) (*entity.BloodRequest, error) {
	request, ok := f.requests[id]
	if !ok {
		return nil, entity.ErrRequestNotFound
	}
	return request, nil
}

func (f *fakeRequestRepo) List(ctx context.Context, filter repository.RequestFilter) ([]*entity.BloodRequest, error) {
	out := make([]*entity.BloodRequest, 0, len(f.requests))
	for _, r := range f.requests {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeRequestRepo) UpdateStatus(ctx context.Context, id int64, update repository.StatusUpdate) (*entity.BloodRequest, error) {
	request, ok := f.requests[id]
	if !ok {
		return nil, entity.ErrRequestNotFound
	}
	request.Status = update.Status
	if update.UnitsFulfilled != nil {
		request.UnitsFulfilled = *update.UnitsFulfilled
	}
	return request, nil
}

func (f *fakeRequestRepo) FulfillFromInventory(ctx context.Context, requestID, hospitalID int64, bloodGroup, component string, units int) (*entity.BloodRequest, error) {
	if f.FulfillFromInventoryFn != nil {
		return f.FulfillFromInventoryFn(ctx, requestID, hospitalID, bloodGroup, component, units)
	}
	request, ok := f.requests[requestID]
	if !ok {
		return nil, entity.ErrRequestNotFound
	}
	request.UnitsFulfilled = request.UnitsRequired
	request.Status = entity.RequestStatusFulfilled
	now := time.Now()
	request.FulfilledAt = &now
	return request, nil
}

func (f *fakeRequestRepo) RecordAcceptedUnit(ctx context.Context, requestID, donorID int64) (*entity.BloodRequest, error) {
	if f.RecordAcceptedUnitFn != nil {
		return f.RecordAcceptedUnitFn(ctx, requestID, donorID)
	}
	request, ok := f.requests[requestID]
	if !ok {
		return nil, entity.ErrRequestNotFound
	}
	if request.UnitsFulfilled < request.UnitsRequired {
		request.UnitsFulfilled++
	}
	if request.UnitsFulfilled >= request.UnitsRequired {
		request.Status = entity.RequestStatusFulfilled
	} else {
		request.Status = entity.RequestStatusPartial
	}
	if request.DonorID == nil {
		request.DonorID = &donorID
	}
	return request, nil
}

func (f *fakeRequestRepo) GetStalePending(ctx context.Context, before time.Time) ([]*entity.BloodRequest, error) {
	if f.GetStalePendingFn != nil {
		return f.GetStalePendingFn(ctx, before)
	}
	return nil, nil
}

// fakeInventoryRepo implements repository.InventoryRepository
type fakeInventoryRepo struct {
	available map[string]int
	consumed  []int
	entries   []*entity.InventoryEntry
}

func stockKey(hospitalID int64, bloodGroup, component string) string {
	return fmt.Sprintf("%d/%s/%s", hospitalID, bloodGroup, component)
}

func newFakeInventoryRepo() *fakeInventoryRepo {
	return &fakeInventoryRepo{available: make(map[string]int)}
}

func (f *fakeInventoryRepo) GetAvailable(ctx context.Context, hospitalID int64, bloodGroup, component string) (int, error) {
	return f.available[stockKey(hospitalID, bloodGroup, component)], nil
}

func (f *fakeInventoryRepo) Consume(ctx context.Context, hospitalID int64, bloodGroup, component string, units int) error {
	key := stockKey(hospitalID, bloodGroup, component)
	if f.available[key] < units {
		return entity.ErrInsufficientStock
	}
	f.available[key] -= units
	f.consumed = append(f.consumed, units)
	return nil
}

func (f *fakeInventoryRepo) Upsert(ctx context.Context, entry *entity.InventoryEntry) error {
	f.available[stockKey(entry.HospitalID, entry.BloodGroup, entry.Component)] = entry.UnitsAvailable
	return nil
}

func (f *fakeInventoryRepo) Adjust(ctx context.Context, hospitalID int64, bloodGroup, component string, units int, op entity.AdjustOp) (*entity.InventoryEntry, error) {
	key := stockKey(hospitalID, bloodGroup, component)
	delta := units
	if op == entity.AdjustOpSubtract {
		delta = -units
	}
	next := f.available[key] + delta
	if next < 0 {
		next = 0
	}
	f.available[key] = next
	return &entity.InventoryEntry{
		HospitalID:     hospitalID,
		BloodGroup:     bloodGroup,
		Component:      component,
		UnitsAvailable: next,
	}, nil
}

func (f *fakeInventoryRepo) UpdateByID(ctx context.Context, id int64, unitsAvailable, unitsReserved *int) (*entity.InventoryEntry, error) {
	return nil, entity.ErrInventoryNotFound
}

func (f *fakeInventoryRepo) Delete(ctx context.Context, id int64) error { return nil }

func (f *fakeInventoryRepo) ListByHospital(ctx context.Context, hospitalID int64) ([]*entity.InventoryEntry, error) {
	return f.entries, nil
}

// fakeResponseRepo implements repository.ResponseRepository
type fakeResponseRepo struct {
	SubmitFn      func(ctx context.Context, response *entity.DonorResponse) (entity.ResponseValue, error)
	bulkRequests  []int64
	bulkDonorIDs  [][]int64
	bulkCreated   bool
	byRequest     map[int64][]*entity.DonorResponse
}

func newFakeResponseRepo() *fakeResponseRepo {
	return &fakeResponseRepo{bulkCreated: true, byRequest: make(map[int64][]*entity.DonorResponse)}
}

func (f *fakeResponseRepo) Submit(ctx context.Context, response *entity.DonorResponse) (entity.ResponseValue, error) {
	if f.SubmitFn != nil {
		return f.SubmitFn(ctx, response)
	}
	return "", nil
}

func (f *fakeResponseRepo) BulkCreatePending(ctx context.Context, requestID int64, donorIDs []int64) (bool, error) {
	f.bulkRequests = append(f.bulkRequests, requestID)
	f.bulkDonorIDs = append(f.bulkDonorIDs, donorIDs)
	return f.bulkCreated, nil
}

func (f *fakeResponseRepo) ListByRequest(ctx context.Context, requestID int64) ([]*entity.DonorResponse, error) {
	return f.byRequest[requestID], nil
}

func (f *fakeResponseRepo) ListByDonor(ctx context.Context, donorID int64) ([]*entity.DonorResponse, error) {
	return nil, nil
}

// fakeGeoRepo implements repository.GeoRepository
type fakeGeoRepo struct {
	hospitalsByRadius []*entity.HospitalCandidate
	hospitalsByCity   []*entity.HospitalCandidate
	donors            []*entity.Donor
	nearest           *entity.HospitalCandidate
}

func (f *fakeGeoRepo) HospitalsWithinRadius(ctx context.Context, lat, lng, radiusMeters float64) ([]*entity.HospitalCandidate, error) {
	return f.hospitalsByRadius, nil
}

func (f *fakeGeoRepo) HospitalsInCity(ctx context.Context, city string) ([]*entity.HospitalCandidate, error) {
	return f.hospitalsByCity, nil
}

func (f *fakeGeoRepo) DonorsInCity(ctx context.Context, city, bloodGroup string) ([]*entity.Donor, error) {
	return f.donors, nil
}

func (f *fakeGeoRepo) DonorsNearHospital(ctx context.Context, hospitalID int64, bloodGroup string, radiusMeters float64) ([]*entity.Donor, error) {
	return f.donors, nil
}

func (f *fakeGeoRepo) NearestHospitalToDonor(ctx context.Context, donorID int64, maxMeters float64) (*entity.HospitalCandidate, error) {
	if f.nearest == nil {
		return nil, entity.ErrNoHospitalAvailable
	}
	return f.nearest, nil
}

// fakeHospitalRepo implements repository.HospitalRepository
type fakeHospitalRepo struct {
	hospitals map[int64]*entity.Hospital
}

func (f *fakeHospitalRepo) GetByID(ctx context.Context, id int64) (*entity.Hospital, error) {
	hospital, ok := f.hospitals[id]
	if !ok {
		return nil, entity.ErrHospitalNotFound
	}
	return hospital, nil
}

func (f *fakeHospitalRepo) List(ctx context.Context) ([]*entity.Hospital, error) {
	out := make([]*entity.Hospital, 0, len(f.hospitals))
	for _, h := range f.hospitals {
		out = append(out, h)
	}
	return out, nil
}

// fakeDonorRepo implements repository.DonorRepository
type fakeDonorRepo struct {
	donors        map[int64]*entity.Donor
	lastDonations map[int64]time.Time
}

func (f *fakeDonorRepo) GetByID(ctx context.Context, id int64) (*entity.Donor, error) {
	donor, ok := f.donors[id]
	if !ok {
		return nil, entity.ErrDonorNotFound
	}
	return donor, nil
}

func (f *fakeDonorRepo) SetLastDonation(ctx context.Context, donorID int64, date time.Time) error {
	if f.lastDonations == nil {
		f.lastDonations = make(map[int64]time.Time)
	}
	f.lastDonations[donorID] = date
	return nil
}

// fakeNotifications implements service.NotificationService and records every
// addressed row it was asked to store.
type fakeNotifications struct {
	sent []*entity.Notification
}

func (f *fakeNotifications) Notify(ctx context.Context, role entity.Role, id int64, title, body string, requestID *int64) {
	f.sent = append(f.sent, &entity.Notification{
		RecipientKey: role.RecipientKey(id),
		Title:        title,
		Body:         body,
		RequestID:    requestID,
	})
}

func (f *fakeNotifications) NotifyMany(ctx context.Context, notifications []*entity.Notification) int {
	f.sent = append(f.sent, notifications...)
	return len(notifications)
}

func (f *fakeNotifications) NotifyAdmins(ctx context.Context, title, body string, requestID *int64) int {
	f.Notify(ctx, entity.RoleAdmin, 1, title, body, requestID)
	return 1
}

func (f *fakeNotifications) List(ctx context.Context, recipientKey string, limit, offset int) ([]*entity.Notification, error) {
	return nil, nil
}

func (f *fakeNotifications) MarkRead(ctx context.Context, id int64) error { return nil }

func (f *fakeNotifications) recipients() []string {
	keys := make([]string, 0, len(f.sent))
	for _, n := range f.sent {
		keys = append(keys, n.RecipientKey)
	}
	return keys
}

// fakePublisher implements service.TaskPublisher
type fakePublisher struct {
	published []*service.Task
}

func (f *fakePublisher) Publish(ctx context.Context, task *service.Task) error {
	f.published = append(f.published, task)
	return nil
}

type dispatchFixture struct {
	requests      *fakeRequestRepo
	inventory     *fakeInventoryRepo
	responses     *fakeResponseRepo
	geo           *fakeGeoRepo
	hospitals     *fakeHospitalRepo
	notifications *fakeNotifications
	publisher     *fakePublisher
	service       service.DispatchService
}

func newDispatchFixture() *dispatchFixture {
	f := &dispatchFixture{
		requests:      newFakeRequestRepo(),
		inventory:     newFakeInventoryRepo(),
		responses:     newFakeResponseRepo(),
		geo:           &fakeGeoRepo{},
		hospitals:     &fakeHospitalRepo{hospitals: map[int64]*entity.Hospital{}},
		notifications: &fakeNotifications{},
		publisher:     &fakePublisher{},
	}
	f.service = service.NewDispatchService(
		f.requests, f.inventory, f.responses, f.geo, f.hospitals,
		f.notifications, f.publisher, config.DispatchConfig{HospitalRadiusKm: 10},
	)
	return f
}

func cityHospital(id int64, name, city string) *entity.HospitalCandidate {
	return &entity.HospitalCandidate{Hospital: entity.Hospital{ID: id, Name: name, City: city}}
}

func int64Ptr(v int64) *int64 { return &v }

func TestCreateRequest_InventoryHoldAwaitsApproval(t *testing.T) {
	f := newDispatchFixture()
	f.geo.hospitalsByCity = []*entity.HospitalCandidate{cityHospital(7, "City General", "Springfield")}
	f.inventory.available[stockKey(7, "A+", "whole_blood")] = 5

	patientID := int64(3)
	result, err := f.service.CreateRequest(context.Background(), &service.CreateRequestInput{
		PatientID:     &patientID,
		BloodGroup:    "A+",
		Component:     "whole_blood",
		UnitsRequired: 2,
		Urgency:       "Normal",
		Reason:        "scheduled surgery",
		City:          "Springfield",
	})
	require.NoError(t, err)

	assert.True(t, result.AwaitingHospitalApproval)
	assert.False(t, result.DispatchedToDonors)
	assert.Equal(t, 5, result.InventoryAvailable)
	assert.Equal(t, entity.RequestStatusPending, result.Request.Status)
	assert.Equal(t, 0, result.Request.UnitsFulfilled)
	assert.Equal(t, int64(7), result.Request.HospitalID)

	// Stock must stay untouched until the hospital approves.
	assert.Equal(t, 5, f.inventory.available[stockKey(7, "A+", "whole_blood")])
	assert.Empty(t, f.responses.bulkRequests)
	assert.Contains(t, f.notifications.recipients(), "hospital_7")
	assert.Contains(t, f.notifications.recipients(), "patient_3")
}

func TestCreateRequest_InsufficientStockDispatchesDonors(t *testing.T) {
	f := newDispatchFixture()
	f.geo.hospitalsByCity = []*entity.HospitalCandidate{cityHospital(7, "City General", "Springfield")}
	f.geo.donors = []*entity.Donor{
		{ID: 11, FullName: "First Donor", BloodGroup: "O-", City: "Springfield"},
		{ID: 12, FullName: "Second Donor", BloodGroup: "O-", City: "Springfield"},
	}
	f.inventory.available[stockKey(7, "O-", "whole_blood")] = 1

	result, err := f.service.CreateRequest(context.Background(), &service.CreateRequestInput{
		BloodGroup:    "O-",
		Component:     "whole_blood",
		UnitsRequired: 3,
		Urgency:       "Normal",
		Reason:        "accident",
		City:          "Springfield",
	})
	require.NoError(t, err)

	assert.True(t, result.DispatchedToDonors)
	assert.False(t, result.AwaitingHospitalApproval)
	require.Len(t, result.MatchedDonors, 2)
	assert.Equal(t, int64(11), result.MatchedDonors[0].ID)
	assert.Equal(t, int64(12), result.MatchedDonors[1].ID)

	require.Len(t, f.responses.bulkRequests, 1)
	assert.Equal(t, result.Request.ID, f.responses.bulkRequests[0])
	assert.Equal(t, []int64{11, 12}, f.responses.bulkDonorIDs[0])

	recipients := f.notifications.recipients()
	assert.Contains(t, recipients, "donor_11")
	assert.Contains(t, recipients, "donor_12")
	assert.Contains(t, recipients, "hospital_7")
}

func TestCreateRequest_NoHospitalWritesNothing(t *testing.T) {
	f := newDispatchFixture()

	_, err := f.service.CreateRequest(context.Background(), &service.CreateRequestInput{
		BloodGroup:    "B+",
		Component:     "whole_blood",
		UnitsRequired: 1,
		Urgency:       "Normal",
		Reason:        "anemia",
		City:          "Nowhereville",
	})
	require.ErrorIs(t, err, entity.ErrNoHospitalAvailable)

	assert.Empty(t, f.requests.created)
	assert.Empty(t, f.notifications.sent)
}

func TestCreateRequest_Validation(t *testing.T) {
	f := newDispatchFixture()

	cases := []struct {
		name  string
		input *service.CreateRequestInput
	}{
		{"unknown blood group", &service.CreateRequestInput{BloodGroup: "C+", Component: "whole_blood", UnitsRequired: 1, Urgency: "Normal", Reason: "surgery", City: "Springfield"}},
		{"missing component", &service.CreateRequestInput{BloodGroup: "A+", UnitsRequired: 1, Urgency: "Normal", Reason: "surgery", City: "Springfield"}},
		{"zero units", &service.CreateRequestInput{BloodGroup: "A+", Component: "whole_blood", UnitsRequired: 0, Urgency: "Normal", Reason: "surgery", City: "Springfield"}},
		{"missing urgency", &service.CreateRequestInput{BloodGroup: "A+", Component: "whole_blood", UnitsRequired: 1, Reason: "surgery", City: "Springfield"}},
		{"unknown urgency", &service.CreateRequestInput{BloodGroup: "A+", Component: "whole_blood", UnitsRequired: 1, Urgency: "asap", Reason: "surgery", City: "Springfield"}},
		{"missing reason", &service.CreateRequestInput{BloodGroup: "A+", Component: "whole_blood", UnitsRequired: 1, Urgency: "Normal", City: "Springfield"}},
		{"no city or coordinates", &service.CreateRequestInput{BloodGroup: "A+", Component: "whole_blood", UnitsRequired: 1, Urgency: "Normal", Reason: "surgery"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.service.CreateRequest(context.Background(), tc.input)
			assert.ErrorIs(t, err, entity.ErrInvalidInput)
			assert.Empty(t, f.requests.created)
			assert.Empty(t, f.notifications.sent)
		})
	}
}

func TestCreateRequest_UrgentSchedulesReminder(t *testing.T) {
	f := newDispatchFixture()
	f.geo.hospitalsByCity = []*entity.HospitalCandidate{cityHospital(7, "City General", "Springfield")}

	_, err := f.service.CreateRequest(context.Background(), &service.CreateRequestInput{
		BloodGroup:    "A+",
		Component:     "whole_blood",
		UnitsRequired: 1,
		Urgency:       "Urgent",
		Reason:        "accident",
		City:          "Springfield",
	})
	require.NoError(t, err)

	require.Len(t, f.publisher.published, 1)
	assert.Equal(t, service.TaskTypeRequestReminder, f.publisher.published[0].Type)

	// Normal urgency does not escalate.
	f2 := newDispatchFixture()
	f2.geo.hospitalsByCity = []*entity.HospitalCandidate{cityHospital(7, "City General", "Springfield")}
	_, err = f2.service.CreateRequest(context.Background(), &service.CreateRequestInput{
		BloodGroup:    "A+",
		Component:     "whole_blood",
		UnitsRequired: 1,
		Urgency:       "Normal",
		Reason:        "anemia",
		City:          "Springfield",
	})
	require.NoError(t, err)
	assert.Empty(t, f2.publisher.published)
}

func TestApprove_FulfillsFromInventory(t *testing.T) {
	f := newDispatchFixture()
	patientID := int64(3)
	f.requests.requests[1] = &entity.BloodRequest{
		ID: 1, HospitalID: 7, PatientID: &patientID,
		BloodGroup: "A+", Component: "whole_blood",
		UnitsRequired: 2, Status: entity.RequestStatusPending,
	}

	result, err := f.service.Approve(context.Background(), 1, int64Ptr(7))
	require.NoError(t, err)

	assert.Equal(t, entity.RequestStatusFulfilled, result.Request.Status)
	assert.Equal(t, 2, result.Request.UnitsFulfilled)
	assert.NotNil(t, result.Request.FulfilledAt)

	recipients := f.notifications.recipients()
	assert.Contains(t, recipients, "hospital_7")
	assert.Contains(t, recipients, "patient_3")
	assert.Contains(t, recipients, "admin_1")
}

func TestApprove_WithoutHospitalIDUsesAssignment(t *testing.T) {
	f := newDispatchFixture()
	f.requests.requests[1] = &entity.BloodRequest{
		ID: 1, HospitalID: 7, BloodGroup: "A+", Component: "whole_blood",
		UnitsRequired: 2, Status: entity.RequestStatusPending,
	}

	result, err := f.service.Approve(context.Background(), 1, nil)
	require.NoError(t, err)

	assert.Equal(t, entity.RequestStatusFulfilled, result.Request.Status)
	assert.Contains(t, f.notifications.recipients(), "hospital_7")
}

func TestApprove_WrongHospitalForbidden(t *testing.T) {
	f := newDispatchFixture()
	f.requests.requests[1] = &entity.BloodRequest{
		ID: 1, HospitalID: 7, BloodGroup: "A+", Component: "whole_blood",
		UnitsRequired: 2, Status: entity.RequestStatusPending,
	}

	_, err := f.service.Approve(context.Background(), 1, int64Ptr(8))
	assert.ErrorIs(t, err, entity.ErrForbidden)
}

func TestApprove_AlreadyFulfilledIsNoOp(t *testing.T) {
	f := newDispatchFixture()
	f.requests.requests[1] = &entity.BloodRequest{
		ID: 1, HospitalID: 7, BloodGroup: "A+", Component: "whole_blood",
		UnitsRequired: 2, UnitsFulfilled: 2, Status: entity.RequestStatusFulfilled,
	}

	result, err := f.service.Approve(context.Background(), 1, int64Ptr(7))
	require.NoError(t, err)
	assert.Equal(t, entity.RequestStatusFulfilled, result.Request.Status)
	assert.Empty(t, f.notifications.sent)
}

func TestApprove_StockRanOutFallsBackToDonors(t *testing.T) {
	f := newDispatchFixture()
	patientID := int64(3)
	f.requests.requests[1] = &entity.BloodRequest{
		ID: 1, HospitalID: 7, PatientID: &patientID,
		BloodGroup: "O-", Component: "whole_blood",
		UnitsRequired: 2, Status: entity.RequestStatusPending,
		RequestCity: "Springfield",
	}
	f.requests.FulfillFromInventoryFn = func(ctx context.Context, requestID, hospitalID int64, bloodGroup, component string, units int) (*entity.BloodRequest, error) {
		return nil, entity.ErrInsufficientStock
	}
	f.geo.donors = []*entity.Donor{{ID: 11, FullName: "First Donor", BloodGroup: "O-", City: "Springfield"}}

	result, err := f.service.Approve(context.Background(), 1, int64Ptr(7))
	require.ErrorIs(t, err, entity.ErrInsufficientStock)
	require.NotNil(t, result)

	// One matched donor means exactly one donor newly notified; the hospital,
	// patient, and admin summaries do not count.
	assert.Equal(t, 1, result.DonorsNotified)

	require.Len(t, f.responses.bulkRequests, 1)
	assert.Contains(t, f.notifications.recipients(), "donor_11")
	assert.Contains(t, f.notifications.recipients(), "patient_3")
}

func TestApprove_FallbackCountsNoDonorsOnRepeatDispatch(t *testing.T) {
	f := newDispatchFixture()
	f.requests.requests[1] = &entity.BloodRequest{
		ID: 1, HospitalID: 7, BloodGroup: "O-", Component: "whole_blood",
		UnitsRequired: 2, Status: entity.RequestStatusPending,
		RequestCity: "Springfield",
	}
	f.requests.FulfillFromInventoryFn = func(ctx context.Context, requestID, hospitalID int64, bloodGroup, component string, units int) (*entity.BloodRequest, error) {
		return nil, entity.ErrInsufficientStock
	}
	f.geo.donors = []*entity.Donor{{ID: 11, FullName: "First Donor", BloodGroup: "O-", City: "Springfield"}}
	f.responses.bulkCreated = false // donors already have pending responses

	result, err := f.service.Approve(context.Background(), 1, int64Ptr(7))
	require.ErrorIs(t, err, entity.ErrInsufficientStock)
	require.NotNil(t, result)
	assert.Equal(t, 0, result.DonorsNotified)
	assert.NotContains(t, f.notifications.recipients(), "donor_11")
}

func TestSendRequestReminder(t *testing.T) {
	t.Run("re-notifies pending donors", func(t *testing.T) {
		f := newDispatchFixture()
		f.requests.requests[1] = &entity.BloodRequest{
			ID: 1, HospitalID: 7, BloodGroup: "A+",
			UnitsRequired: 1, Status: entity.RequestStatusPending,
			Urgency: entity.UrgencyUrgent, RequestCity: "Springfield",
		}
		f.responses.byRequest[1] = []*entity.DonorResponse{
			{RequestID: 1, DonorID: 11, Response: entity.ResponsePending},
			{RequestID: 1, DonorID: 12, Response: entity.ResponseDeclined},
		}

		require.NoError(t, f.service.SendRequestReminder(context.Background(), 1))

		recipients := f.notifications.recipients()
		assert.Contains(t, recipients, "donor_11")
		assert.NotContains(t, recipients, "donor_12")
	})

	t.Run("nudges hospital when nobody was dispatched", func(t *testing.T) {
		f := newDispatchFixture()
		f.requests.requests[1] = &entity.BloodRequest{
			ID: 1, HospitalID: 7, BloodGroup: "A+",
			UnitsRequired: 1, Status: entity.RequestStatusPending,
			Urgency: entity.UrgencyUrgent,
		}

		require.NoError(t, f.service.SendRequestReminder(context.Background(), 1))
		assert.Equal(t, []string{"hospital_7"}, f.notifications.recipients())
	})

	t.Run("leaves non-pending requests alone", func(t *testing.T) {
		f := newDispatchFixture()
		f.requests.requests[1] = &entity.BloodRequest{
			ID: 1, HospitalID: 7, Status: entity.RequestStatusFulfilled,
		}

		require.NoError(t, f.service.SendRequestReminder(context.Background(), 1))
		assert.Empty(t, f.notifications.sent)
	})
}

func TestRemindStaleRequests(t *testing.T) {
	f := newDispatchFixture()
	f.requests.requests[1] = &entity.BloodRequest{
		ID: 1, HospitalID: 7, Status: entity.RequestStatusPending,
		Urgency: entity.UrgencyEmergency, BloodGroup: "A+", RequestCity: "Springfield",
	}
	f.requests.requests[2] = &entity.BloodRequest{
		ID: 2, HospitalID: 7, Status: entity.RequestStatusPending,
		Urgency: entity.UrgencyUrgent, BloodGroup: "B+", RequestCity: "Springfield",
	}
	f.requests.GetStalePendingFn = func(ctx context.Context, before time.Time) ([]*entity.BloodRequest, error) {
		return []*entity.BloodRequest{f.requests.requests[1], f.requests.requests[2]}, nil
	}

	reminded, err := f.service.RemindStaleRequests(context.Background(), 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 2, reminded)
}

func TestSuggestHospitals(t *testing.T) {
	f := newDispatchFixture()
	f.geo.hospitalsByCity = []*entity.HospitalCandidate{
		cityHospital(1, "Stocked", "Springfield"),
		cityHospital(2, "Short", "Springfield"),
		cityHospital(3, "Empty", "Springfield"),
	}
	f.inventory.available[stockKey(1, "A+", "whole_blood")] = 4
	f.inventory.available[stockKey(2, "A+", "whole_blood")] = 1

	suggestions, err := f.service.SuggestHospitals(context.Background(), &service.SuggestHospitalsInput{
		BloodGroup:    "A+",
		UnitsRequired: 2,
		City:          "Springfield",
	})
	require.NoError(t, err)
	require.Len(t, suggestions, 3)

	assert.Equal(t, "available", suggestions[0].Availability)
	assert.Equal(t, "insufficient", suggestions[1].Availability)
	assert.Equal(t, "unavailable", suggestions[2].Availability)
}
