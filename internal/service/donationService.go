package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	repository "github.com/bloodlink/backend/internal/database/postgres"
	"github.com/bloodlink/backend/internal/entity"
)

type donationService struct {
	donationRepo  repository.DonationRepository
	donorRepo     repository.DonorRepository
	hospitalRepo  repository.HospitalRepository
	requestRepo   repository.RequestRepository
	inventoryRepo repository.InventoryRepository
	geoRepo       repository.GeoRepository
	notifications NotificationService
	queue         TaskPublisher
	maxMeters     float64
}

// NewDonationService creates a new DonationService. maxKm caps the
// nearest-hospital suggestion distance.
func NewDonationService(
	donationRepo repository.DonationRepository,
	donorRepo repository.DonorRepository,
	hospitalRepo repository.HospitalRepository,
	requestRepo repository.RequestRepository,
	inventoryRepo repository.InventoryRepository,
	geoRepo repository.GeoRepository,
	notifications NotificationService,
	queue TaskPublisher,
	maxKm float64,
) DonationService {
	if maxKm <= 0 {
		maxKm = 50
	}
	return &donationService{
		donationRepo:  donationRepo,
		donorRepo:     donorRepo,
		hospitalRepo:  hospitalRepo,
		requestRepo:   requestRepo,
		inventoryRepo: inventoryRepo,
		geoRepo:       geoRepo,
		notifications: notifications,
		queue:         queue,
		maxMeters:     maxKm * 1000,
	}
}

// RecordDonation registers a completed donation: the blood group comes from
// the donor profile, stock goes up at the receiving hospital, the donor's
// eligibility clock restarts, and a linked request gains one unit of progress
// with the same clamp as a donor acceptance.
func (s *donationService) RecordDonation(ctx context.Context, input *RecordDonationInput) (*entity.Donation, error) {
	donor, err := s.donorRepo.GetByID(ctx, input.DonorID)
	if err != nil {
		return nil, err
	}

	hospital, err := s.hospitalRepo.GetByID(ctx, input.HospitalID)
	if err != nil {
		return nil, err
	}

	component := input.Component
	if component == "" {
		component = defaultComponent
	}

	units := input.Units
	if units == 0 {
		units = 1
	}
	if units < 1 {
		return nil, fmt.Errorf("%w: units must be at least 1", entity.ErrInvalidInput)
	}

	donationDate := time.Now()
	if input.DonationDate != nil && *input.DonationDate != "" {
		parsed, err := time.Parse(time.RFC3339, *input.DonationDate)
		if err != nil {
			return nil, fmt.Errorf("%w: donation_date must be RFC3339", entity.ErrInvalidInput)
		}
		donationDate = parsed
	}

	donation := &entity.Donation{
		DonorID:      donor.ID,
		RequestID:    input.RequestID,
		HospitalID:   hospital.ID,
		BloodGroup:   donor.BloodGroup,
		Component:    component,
		Units:        units,
		DonationDate: donationDate,
	}
	if err := s.donationRepo.Create(ctx, donation); err != nil {
		return nil, err
	}

	if _, err := s.inventoryRepo.Adjust(ctx, hospital.ID, donor.BloodGroup, component,
		units, entity.AdjustOpAdd); err != nil {
		logrus.WithError(err).WithField("donation_id", donation.ID).
			Warn("failed to credit inventory for donation")
	}

	if err := s.donorRepo.SetLastDonation(ctx, donor.ID, donationDate); err != nil {
		logrus.WithError(err).WithField("donor_id", donor.ID).
			Warn("failed to update last donation date")
	}

	if input.RequestID != nil {
		if _, err := s.requestRepo.RecordAcceptedUnit(ctx, *input.RequestID, donor.ID); err != nil {
			logrus.WithError(err).WithField("request_id", *input.RequestID).
				Warn("failed to apply donation to request")
		}
	}

	s.notifications.Notify(ctx, entity.RoleHospital, hospital.ID,
		"Donation recorded",
		fmt.Sprintf("%s donated %d unit(s) of %s %s.", donor.FullName, units, donor.BloodGroup, component),
		input.RequestID)

	s.scheduleFollowup(ctx, donor, donationDate)

	return donation, nil
}

// scheduleFollowup queues a delayed thank-you telling the donor when they can
// donate again.
func (s *donationService) scheduleFollowup(ctx context.Context, donor *entity.Donor, donationDate time.Time) {
	if s.queue == nil {
		return
	}

	nextEligible := donationDate.Add(56 * 24 * time.Hour)
	task := &Task{
		ID:   fmt.Sprintf("followup_%s", uuid.NewString()),
		Type: TaskTypeDonorFollowup,
		Data: map[string]interface{}{
			"recipient_key": entity.RoleDonor.RecipientKey(donor.ID),
			"message": fmt.Sprintf("Thank you for donating! You will be eligible to donate again on %s.",
				nextEligible.Format("2006-01-02")),
		},
		ExecuteAt:  time.Now().Add(24 * time.Hour),
		MaxRetries: 3,
	}
	if err := s.queue.Publish(ctx, task); err != nil {
		logrus.WithError(err).WithField("donor_id", donor.ID).Warn("failed to schedule donor followup")
	}
}

func (s *donationService) ListByDonor(ctx context.Context, donorID int64, limit int) ([]*entity.Donation, error) {
	return s.donationRepo.ListByDonor(ctx, donorID, limit)
}

func (s *donationService) ListByHospital(ctx context.Context, hospitalID int64, limit int) ([]*entity.Donation, error) {
	return s.donationRepo.ListByHospital(ctx, hospitalID, limit)
}

func (s *donationService) NearestHospital(ctx context.Context, donorID int64) (*entity.HospitalCandidate, error) {
	if _, err := s.donorRepo.GetByID(ctx, donorID); err != nil {
		return nil, err
	}
	return s.geoRepo.NearestHospitalToDonor(ctx, donorID, s.maxMeters)
}
