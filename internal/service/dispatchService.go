package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/bloodlink/backend/config"
	repository "github.com/bloodlink/backend/internal/database/postgres"
	"github.com/bloodlink/backend/internal/entity"
)

const defaultComponent = "whole_blood"

type dispatchService struct {
	requestRepo   repository.RequestRepository
	inventoryRepo repository.InventoryRepository
	responseRepo  repository.ResponseRepository
	geoRepo       repository.GeoRepository
	hospitalRepo  repository.HospitalRepository
	notifications NotificationService
	queue         TaskPublisher
	cfg           config.DispatchConfig
}

// NewDispatchService creates a new DispatchService
func NewDispatchService(
	requestRepo repository.RequestRepository,
	inventoryRepo repository.InventoryRepository,
	responseRepo repository.ResponseRepository,
	geoRepo repository.GeoRepository,
	hospitalRepo repository.HospitalRepository,
	notifications NotificationService,
	queue TaskPublisher,
	cfg config.DispatchConfig,
) DispatchService {
	if cfg.HospitalRadiusKm <= 0 {
		cfg.HospitalRadiusKm = 10
	}
	return &dispatchService{
		requestRepo:   requestRepo,
		inventoryRepo: inventoryRepo,
		responseRepo:  responseRepo,
		geoRepo:       geoRepo,
		hospitalRepo:  hospitalRepo,
		notifications: notifications,
		queue:         queue,
		cfg:           cfg,
	}
}

// CreateRequest validates the intake, resolves a target hospital, and routes
// the request: inventory hold awaiting hospital approval when stock covers
// the need, city-wide donor dispatch otherwise. The request row is always
// created pending with zero units fulfilled; nothing is written when no
// hospital can be resolved.
func (s *dispatchService) CreateRequest(ctx context.Context, req *CreateRequestInput) (*DispatchResult, error) {
	if !entity.ValidBloodGroup(req.BloodGroup) {
		return nil, fmt.Errorf("%w: unknown blood group %q", entity.ErrInvalidInput, req.BloodGroup)
	}
	if req.Component == "" {
		return nil, fmt.Errorf("%w: component is required", entity.ErrInvalidInput)
	}
	if req.UnitsRequired < 1 {
		return nil, fmt.Errorf("%w: units_required must be at least 1", entity.ErrInvalidInput)
	}
	if req.Urgency == "" {
		return nil, fmt.Errorf("%w: urgency is required", entity.ErrInvalidInput)
	}
	urgency := entity.Urgency(req.Urgency)
	if !urgency.Valid() {
		return nil, fmt.Errorf("%w: unknown urgency %q", entity.ErrInvalidInput, req.Urgency)
	}
	if req.Reason == "" {
		return nil, fmt.Errorf("%w: reason is required", entity.ErrInvalidInput)
	}

	if req.City == "" && (req.Latitude == nil || req.Longitude == nil) {
		return nil, fmt.Errorf("%w: either city or coordinates are required", entity.ErrInvalidInput)
	}

	var requiredBy *time.Time
	if req.RequiredBy != nil && *req.RequiredBy != "" {
		parsed, err := time.Parse(time.RFC3339, *req.RequiredBy)
		if err != nil {
			return nil, fmt.Errorf("%w: required_by must be RFC3339", entity.ErrInvalidInput)
		}
		requiredBy = &parsed
	}

	candidates, err := s.resolveHospitals(ctx, req.Latitude, req.Longitude, req.City)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, entity.ErrNoHospitalAvailable
	}

	// First candidate (closest when ranked by distance) whose stock covers the
	// full need wins the reservation; otherwise the first candidate hosts the
	// donor dispatch.
	target := candidates[0]
	available := 0
	for _, candidate := range candidates {
		units, err := s.inventoryRepo.GetAvailable(ctx, candidate.ID, req.BloodGroup, req.Component)
		if err != nil {
			return nil, err
		}
		if units >= req.UnitsRequired {
			target = candidate
			available = units
			break
		}
	}

	city := req.City
	if city == "" {
		city = target.City
	}

	request := &entity.BloodRequest{
		PatientID:     req.PatientID,
		HospitalID:    target.ID,
		BloodGroup:    req.BloodGroup,
		Component:     req.Component,
		UnitsRequired: req.UnitsRequired,
		Urgency:       urgency,
		Reason:        req.Reason,
		RequiredBy:    requiredBy,
		RequestCity:   city,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		Status:        entity.RequestStatusPending,
	}
	if err := s.requestRepo.Create(ctx, request); err != nil {
		return nil, err
	}

	result := &DispatchResult{
		Request:            request,
		InventoryAvailable: available,
	}

	if available >= req.UnitsRequired {
		// Inventory hold: the stock stays untouched until the hospital
		// approves; only notifications go out.
		result.AwaitingHospitalApproval = true
		result.NotificationCount += s.notifyApprovalNeeded(ctx, request, target)
	} else {
		donors, _, notified := s.dispatchDonors(ctx, request)
		result.DispatchedToDonors = true
		result.MatchedDonors = donors
		result.NotificationCount += notified
	}

	s.scheduleReminder(ctx, request)

	return result, nil
}

func (s *dispatchService) resolveHospitals(ctx context.Context, lat, lng *float64, city string) ([]*entity.HospitalCandidate, error) {
	if lat != nil && lng != nil {
		candidates, err := s.geoRepo.HospitalsWithinRadius(ctx, *lat, *lng, s.cfg.HospitalRadiusKm*1000)
		if err != nil {
			return nil, err
		}
		if len(candidates) > 0 {
			return candidates, nil
		}
		// Fall through to the city lookup when the radius is empty.
	}
	if city == "" {
		return nil, nil
	}
	return s.geoRepo.HospitalsInCity(ctx, city)
}

func (s *dispatchService) notifyApprovalNeeded(ctx context.Context, request *entity.BloodRequest, hospital *entity.HospitalCandidate) int {
	count := 0
	count += s.notifications.NotifyMany(ctx, []*entity.Notification{{
		RecipientKey: entity.RoleHospital.RecipientKey(hospital.ID),
		Title:        "Blood request needs approval",
		Body: fmt.Sprintf("%d unit(s) of %s %s requested (%s). Approve to fulfill from your inventory.",
			request.UnitsRequired, request.BloodGroup, request.Component, request.Urgency),
		RequestID: &request.ID,
	}})

	if request.PatientID != nil {
		count += s.notifications.NotifyMany(ctx, []*entity.Notification{{
			RecipientKey: entity.RolePatient.RecipientKey(*request.PatientID),
			Title:        "Request received",
			Body: fmt.Sprintf("%s has the blood you need in stock. Awaiting hospital confirmation.",
				hospital.Name),
			RequestID: &request.ID,
		}})
	}

	return count
}

// dispatchDonors runs the city-scoped donor fan-out. It is shared by intake
// (branch B) and the approval fallback; the pending-response guard makes a
// second run for the same request a no-op on the response table.
// donorsNotified counts only the donors newly contacted (zero on a repeat
// run); notified is the total across donors, hospital, patient, and admins.
func (s *dispatchService) dispatchDonors(ctx context.Context, request *entity.BloodRequest) (donors []*entity.Donor, donorsNotified, notified int) {
	donors, err := s.geoRepo.DonorsInCity(ctx, request.RequestCity, request.BloodGroup)
	if err != nil {
		logrus.WithError(err).WithField("request_id", request.ID).Warn("donor lookup failed")
		return nil, 0, 0
	}
	if len(donors) == 0 {
		return donors, 0, 0
	}

	donorIDs := make([]int64, 0, len(donors))
	for _, d := range donors {
		donorIDs = append(donorIDs, d.ID)
	}

	created, err := s.responseRepo.BulkCreatePending(ctx, request.ID, donorIDs)
	if err != nil {
		logrus.WithError(err).WithField("request_id", request.ID).Warn("failed to create pending responses")
		return donors, 0, 0
	}

	if created {
		donorNotes := make([]*entity.Notification, 0, len(donors))
		for _, d := range donors {
			donorNotes = append(donorNotes, &entity.Notification{
				RecipientKey: entity.RoleDonor.RecipientKey(d.ID),
				Title:        "Blood donation needed",
				Body: fmt.Sprintf("%s blood needed in %s (%s). %d unit(s) required. Can you help?",
					request.BloodGroup, request.RequestCity, request.Urgency, request.UnitsRequired),
				RequestID: &request.ID,
			})
		}
		donorsNotified = s.notifications.NotifyMany(ctx, donorNotes)
		notified += donorsNotified
	}

	summary := fmt.Sprintf("Request #%d: %d donor(s) contacted for %s in %s.",
		request.ID, len(donors), request.BloodGroup, request.RequestCity)
	notified += s.notifications.NotifyMany(ctx, []*entity.Notification{{
		RecipientKey: entity.RoleHospital.RecipientKey(request.HospitalID),
		Title:        "Donors contacted",
		Body:         summary,
		RequestID:    &request.ID,
	}})
	if request.PatientID != nil {
		notified += s.notifications.NotifyMany(ctx, []*entity.Notification{{
			RecipientKey: entity.RolePatient.RecipientKey(*request.PatientID),
			Title:        "Donors contacted",
			Body:         fmt.Sprintf("%d donor(s) in %s have been asked to help with your request.", len(donors), request.RequestCity),
			RequestID:    &request.ID,
		}})
	}
	notified += s.notifications.NotifyAdmins(ctx, "Donor dispatch", summary, &request.ID)

	return donors, donorsNotified, notified
}

// scheduleReminder queues a delayed escalation for urgent requests; if the
// request is still unanswered when the task fires, donors are re-notified.
func (s *dispatchService) scheduleReminder(ctx context.Context, request *entity.BloodRequest) {
	if s.queue == nil {
		return
	}
	if request.Urgency == entity.UrgencyNormal {
		return
	}

	task := &Task{
		ID:   fmt.Sprintf("reminder_%s", uuid.NewString()),
		Type: TaskTypeRequestReminder,
		Data: map[string]interface{}{
			"request_id": request.ID,
		},
		ExecuteAt:  time.Now().Add(30 * time.Minute),
		MaxRetries: 3,
	}
	if err := s.queue.Publish(ctx, task); err != nil {
		logrus.WithError(err).WithField("request_id", request.ID).Warn("failed to schedule reminder")
	}
}

// Approve fulfills a request from its assigned hospital's inventory. When a
// hospital id is supplied it must match the assignment; absent, the assigned
// hospital is assumed. The decrement is conditional: if stock ran out since
// dispatch, the request falls back to donor dispatch and the caller gets
// ErrInsufficientStock with the count of donors newly contacted.
func (s *dispatchService) Approve(ctx context.Context, requestID int64, hospitalID *int64) (*ApprovalResult, error) {
	request, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if hospitalID != nil && request.HospitalID != *hospitalID {
		return nil, entity.ErrForbidden
	}

	remaining := request.Remaining()
	if remaining == 0 || request.Status == entity.RequestStatusFulfilled {
		// Already fulfilled; approving again changes nothing.
		return &ApprovalResult{Request: request}, nil
	}

	fulfilled, err := s.requestRepo.FulfillFromInventory(ctx, request.ID, request.HospitalID,
		request.BloodGroup, request.Component, remaining)
	if err == entity.ErrInsufficientStock {
		_, donorsNotified, _ := s.dispatchDonors(ctx, request)
		if request.PatientID != nil {
			s.notifications.Notify(ctx, entity.RolePatient, *request.PatientID,
				"Inventory unavailable",
				"The hospital's stock ran out before approval. Donors in your city have been contacted.",
				&request.ID)
		}
		return &ApprovalResult{Request: request, DonorsNotified: donorsNotified}, entity.ErrInsufficientStock
	}
	if err != nil {
		return nil, err
	}

	s.notifications.Notify(ctx, entity.RoleHospital, request.HospitalID,
		"Request fulfilled",
		fmt.Sprintf("Request #%d fulfilled from inventory: %d unit(s) of %s %s.",
			fulfilled.ID, remaining, fulfilled.BloodGroup, fulfilled.Component),
		&fulfilled.ID)
	if fulfilled.PatientID != nil {
		s.notifications.Notify(ctx, entity.RolePatient, *fulfilled.PatientID,
			"Request fulfilled",
			"Your blood request has been fulfilled from hospital inventory.",
			&fulfilled.ID)
	}
	s.notifications.NotifyAdmins(ctx,
		"Request fulfilled",
		fmt.Sprintf("Request #%d fulfilled from inventory by hospital %d.", fulfilled.ID, request.HospitalID),
		&fulfilled.ID)

	return &ApprovalResult{Request: fulfilled}, nil
}

func (s *dispatchService) GetRequest(ctx context.Context, id int64) (*RequestDetails, error) {
	request, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	responses, err := s.responseRepo.ListByRequest(ctx, id)
	if err != nil {
		return nil, err
	}

	return &RequestDetails{Request: request, Responses: responses}, nil
}

func (s *dispatchService) ListRequests(ctx context.Context, filter *RequestFilterInput) ([]*entity.BloodRequest, error) {
	if filter == nil {
		filter = &RequestFilterInput{}
	}
	if filter.Status != "" {
		status := entity.RequestStatus(filter.Status)
		switch status {
		case entity.RequestStatusPending, entity.RequestStatusPartial,
			entity.RequestStatusFulfilled, entity.RequestStatusCancelled:
		default:
			return nil, fmt.Errorf("%w: unknown status %q", entity.ErrInvalidInput, filter.Status)
		}
	}

	return s.requestRepo.List(ctx, repository.RequestFilter{
		HospitalID: filter.HospitalID,
		PatientID:  filter.PatientID,
		Status:     entity.RequestStatus(filter.Status),
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	})
}

func (s *dispatchService) UpdateRequestStatus(ctx context.Context, id int64, input *UpdateStatusInput) (*entity.BloodRequest, error) {
	status := entity.RequestStatus(input.Status)
	switch status {
	case entity.RequestStatusPending, entity.RequestStatusPartial,
		entity.RequestStatusFulfilled, entity.RequestStatusCancelled:
	default:
		return nil, fmt.Errorf("%w: unknown status %q", entity.ErrInvalidInput, input.Status)
	}

	return s.requestRepo.UpdateStatus(ctx, id, repository.StatusUpdate{
		Status:         status,
		UnitsFulfilled: input.UnitsFulfilled,
		DonorID:        input.DonorID,
	})
}

// SuggestHospitals ranks hospitals for the request form with an availability
// verdict per hospital.
func (s *dispatchService) SuggestHospitals(ctx context.Context, input *SuggestHospitalsInput) ([]*HospitalSuggestion, error) {
	if !entity.ValidBloodGroup(input.BloodGroup) {
		return nil, fmt.Errorf("%w: unknown blood group %q", entity.ErrInvalidInput, input.BloodGroup)
	}
	component := input.Component
	if component == "" {
		component = defaultComponent
	}
	units := input.UnitsRequired
	if units < 1 {
		units = 1
	}

	candidates, err := s.resolveHospitals(ctx, input.Latitude, input.Longitude, input.City)
	if err != nil {
		return nil, err
	}

	suggestions := make([]*HospitalSuggestion, 0, len(candidates))
	for _, candidate := range candidates {
		available, err := s.inventoryRepo.GetAvailable(ctx, candidate.ID, input.BloodGroup, component)
		if err != nil {
			return nil, err
		}

		availability := "unavailable"
		switch {
		case available >= units:
			availability = "available"
		case available > 0:
			availability = "insufficient"
		}

		suggestions = append(suggestions, &HospitalSuggestion{
			Hospital:       candidate,
			UnitsAvailable: available,
			Availability:   availability,
		})
	}

	return suggestions, nil
}

// RemindStaleRequests escalates pending urgent requests older than the given
// age that nobody has accepted. Called by the background worker.
func (s *dispatchService) RemindStaleRequests(ctx context.Context, olderThan time.Duration) (int, error) {
	stale, err := s.requestRepo.GetStalePending(ctx, time.Now().Add(-olderThan))
	if err != nil {
		return 0, err
	}

	reminded := 0
	for _, request := range stale {
		if err := s.SendRequestReminder(ctx, request.ID); err != nil {
			logrus.WithError(err).WithField("request_id", request.ID).Warn("reminder failed")
			continue
		}
		reminded++
	}

	return reminded, nil
}

// SendRequestReminder re-notifies the donors who have not answered a request
// yet. A request that has moved past pending is left alone.
func (s *dispatchService) SendRequestReminder(ctx context.Context, requestID int64) error {
	request, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return err
	}
	if request.Status != entity.RequestStatusPending {
		return nil
	}

	responses, err := s.responseRepo.ListByRequest(ctx, requestID)
	if err != nil {
		return err
	}

	notifications := make([]*entity.Notification, 0, len(responses))
	for _, response := range responses {
		if response.Response != entity.ResponsePending {
			continue
		}
		notifications = append(notifications, &entity.Notification{
			RecipientKey: entity.RoleDonor.RecipientKey(response.DonorID),
			Title:        "Reminder: blood donation needed",
			Body: fmt.Sprintf("%s blood is still needed in %s (%s). Please respond if you can help.",
				request.BloodGroup, request.RequestCity, request.Urgency),
			RequestID: &request.ID,
		})
	}

	if len(notifications) == 0 {
		// Nobody was dispatched yet (inventory hold gone stale): nudge the
		// hospital instead.
		s.notifications.Notify(ctx, entity.RoleHospital, request.HospitalID,
			"Reminder: request awaiting approval",
			fmt.Sprintf("Request #%d is still pending. Approve it or release it to donors.", request.ID),
			&request.ID)
		return nil
	}

	s.notifications.NotifyMany(ctx, notifications)
	return nil
}
