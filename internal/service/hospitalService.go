package service

import (
	"context"
	"fmt"
	"time"

	repository "github.com/bloodlink/backend/internal/database/postgres"
	"github.com/bloodlink/backend/internal/entity"
)

type hospitalService struct {
	hospitalRepo  repository.HospitalRepository
	geoRepo       repository.GeoRepository
	matchRadiusKm float64
}

// NewHospitalService creates a new HospitalService. matchRadiusKm bounds the
// donor matching lookup around a hospital.
func NewHospitalService(
	hospitalRepo repository.HospitalRepository,
	geoRepo repository.GeoRepository,
	matchRadiusKm float64,
) HospitalService {
	if matchRadiusKm <= 0 {
		matchRadiusKm = 5
	}
	return &hospitalService{
		hospitalRepo:  hospitalRepo,
		geoRepo:       geoRepo,
		matchRadiusKm: matchRadiusKm,
	}
}

func (s *hospitalService) List(ctx context.Context) ([]*entity.Hospital, error) {
	return s.hospitalRepo.List(ctx)
}

func (s *hospitalService) Near(ctx context.Context, lat, lng, radiusKm float64) ([]*entity.HospitalCandidate, error) {
	if radiusKm <= 0 {
		radiusKm = 50
	}
	return s.geoRepo.HospitalsWithinRadius(ctx, lat, lng, radiusKm*1000)
}

// MatchDonors finds donors near a hospital for the given blood group, marking
// each with the 56-day eligibility verdict.
func (s *hospitalService) MatchDonors(ctx context.Context, hospitalID int64, bloodGroup string) ([]*DonorMatch, error) {
	if !entity.ValidBloodGroup(bloodGroup) {
		return nil, fmt.Errorf("%w: unknown blood group %q", entity.ErrInvalidInput, bloodGroup)
	}

	if _, err := s.hospitalRepo.GetByID(ctx, hospitalID); err != nil {
		return nil, err
	}

	donors, err := s.geoRepo.DonorsNearHospital(ctx, hospitalID, bloodGroup, s.matchRadiusKm*1000)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	matches := make([]*DonorMatch, 0, len(donors))
	for _, donor := range donors {
		matches = append(matches, &DonorMatch{
			Donor:    donor,
			Eligible: donor.EligibleAt(now),
		})
	}

	return matches, nil
}
