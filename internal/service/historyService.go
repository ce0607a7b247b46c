package service

import (
	"context"

	repository "github.com/bloodlink/backend/internal/database/postgres"
	"github.com/bloodlink/backend/internal/entity"
)

type historyService struct {
	requestRepo  repository.RequestRepository
	responseRepo repository.ResponseRepository
}

// NewHistoryService creates a new HistoryService
func NewHistoryService(
	requestRepo repository.RequestRepository,
	responseRepo repository.ResponseRepository,
) HistoryService {
	return &historyService{
		requestRepo:  requestRepo,
		responseRepo: responseRepo,
	}
}

// History returns the requests visible to one account, scoped by role: the
// role switch is explicit so an unknown role can never leak into a query.
func (s *historyService) History(ctx context.Context, role entity.Role, id int64) ([]*entity.BloodRequest, error) {
	switch role {
	case entity.RolePatient:
		return s.requestRepo.List(ctx, repository.RequestFilter{PatientID: id})
	case entity.RoleHospital:
		return s.requestRepo.List(ctx, repository.RequestFilter{HospitalID: id})
	case entity.RoleDonor:
		return s.donorHistory(ctx, id)
	case entity.RoleAdmin:
		return s.requestRepo.List(ctx, repository.RequestFilter{})
	default:
		return nil, entity.ErrInvalidInput
	}
}

// donorHistory resolves the requests a donor has responded to.
func (s *historyService) donorHistory(ctx context.Context, donorID int64) ([]*entity.BloodRequest, error) {
	responses, err := s.responseRepo.ListByDonor(ctx, donorID)
	if err != nil {
		return nil, err
	}

	requests := make([]*entity.BloodRequest, 0, len(responses))
	for _, response := range responses {
		request, err := s.requestRepo.GetByID(ctx, response.RequestID)
		if err == entity.ErrRequestNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		requests = append(requests, request)
	}

	return requests, nil
}
