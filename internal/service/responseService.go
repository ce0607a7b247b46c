package service

import (
	"context"
	"fmt"

	repository "github.com/bloodlink/backend/internal/database/postgres"
	"github.com/bloodlink/backend/internal/entity"
)

type responseService struct {
	responseRepo  repository.ResponseRepository
	requestRepo   repository.RequestRepository
	donorRepo     repository.DonorRepository
	notifications NotificationService
}

// NewResponseService creates a new ResponseService
func NewResponseService(
	responseRepo repository.ResponseRepository,
	requestRepo repository.RequestRepository,
	donorRepo repository.DonorRepository,
	notifications NotificationService,
) ResponseService {
	return &responseService{
		responseRepo:  responseRepo,
		requestRepo:   requestRepo,
		donorRepo:     donorRepo,
		notifications: notifications,
	}
}

// SubmitResponse stores a donor's answer. An accept contributes exactly one
// unit of progress; re-accepting is idempotent because the previous value is
// read in the same transaction that stores the new one.
func (s *responseService) SubmitResponse(ctx context.Context, input *SubmitResponseInput) (*SubmitResponseResult, error) {
	value := entity.ResponseValue(input.Response)
	if !value.Valid() {
		return nil, fmt.Errorf("%w: response must be pending, accepted, or declined", entity.ErrInvalidInput)
	}

	request, err := s.requestRepo.GetByID(ctx, input.RequestID)
	if err != nil {
		return nil, err
	}

	donor, err := s.donorRepo.GetByID(ctx, input.DonorID)
	if err != nil {
		return nil, err
	}

	response := &entity.DonorResponse{
		RequestID: input.RequestID,
		DonorID:   input.DonorID,
		Response:  value,
		Notes:     input.Notes,
	}

	previous, err := s.responseRepo.Submit(ctx, response)
	if err != nil {
		return nil, err
	}

	result := &SubmitResponseResult{DonorResponse: response}

	if value != entity.ResponseAccepted {
		result.Request = request
		return result, nil
	}

	if previous == entity.ResponseAccepted {
		// Already counted; don't apply a second unit.
		result.Request = request
		return result, nil
	}

	updated, err := s.requestRepo.RecordAcceptedUnit(ctx, input.RequestID, input.DonorID)
	if err != nil {
		return nil, err
	}
	result.Request = updated

	s.fanOutAcceptance(ctx, updated, donor)

	return result, nil
}

func (s *responseService) fanOutAcceptance(ctx context.Context, request *entity.BloodRequest, donor *entity.Donor) {
	s.notifications.Notify(ctx, entity.RoleDonor, donor.ID,
		"Thank you for accepting",
		fmt.Sprintf("You accepted request #%d. The hospital will contact you with next steps.", request.ID),
		&request.ID)

	s.notifications.Notify(ctx, entity.RoleHospital, request.HospitalID,
		"Donor accepted",
		fmt.Sprintf("%s accepted request #%d (%d/%d unit(s) covered).",
			donor.FullName, request.ID, request.UnitsFulfilled, request.UnitsRequired),
		&request.ID)

	if request.PatientID != nil {
		body := fmt.Sprintf("A donor accepted your request (%d/%d unit(s) covered).",
			request.UnitsFulfilled, request.UnitsRequired)
		if request.Status == entity.RequestStatusFulfilled {
			body = "Your blood request is now fully covered by donors."
		}
		s.notifications.Notify(ctx, entity.RolePatient, *request.PatientID,
			"Donor accepted", body, &request.ID)
	}

	s.notifications.NotifyAdmins(ctx, "Donor accepted",
		fmt.Sprintf("Request #%d: donor %d accepted, status %s.", request.ID, donor.ID, request.Status),
		&request.ID)
}

func (s *responseService) ListByRequest(ctx context.Context, requestID int64) ([]*entity.DonorResponse, error) {
	return s.responseRepo.ListByRequest(ctx, requestID)
}

func (s *responseService) ListByDonor(ctx context.Context, donorID int64) ([]*entity.DonorResponse, error) {
	return s.responseRepo.ListByDonor(ctx, donorID)
}
