package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloodlink/backend/internal/entity"
	"github.com/bloodlink/backend/internal/service"
)

type responseFixture struct {
	responses     *fakeResponseRepo
	requests      *fakeRequestRepo
	donors        *fakeDonorRepo
	notifications *fakeNotifications
	service       service.ResponseService
}

func newResponseFixture() *responseFixture {
	f := &responseFixture{
		responses:     newFakeResponseRepo(),
		requests:      newFakeRequestRepo(),
		donors:        &fakeDonorRepo{donors: map[int64]*entity.Donor{}},
		notifications: &fakeNotifications{},
	}
	f.service = service.NewResponseService(f.responses, f.requests, f.donors, f.notifications)
	return f
}

func (f *responseFixture) seedRequest(required, fulfilled int, status entity.RequestStatus) *entity.BloodRequest {
	patientID := int64(3)
	request := &entity.BloodRequest{
		ID: 1, HospitalID: 7, PatientID: &patientID,
		BloodGroup: "A+", Component: "whole_blood",
		UnitsRequired: required, UnitsFulfilled: fulfilled,
		Status: status, RequestCity: "Springfield",
	}
	f.requests.requests[1] = request
	return request
}

func (f *responseFixture) seedDonor(id int64) {
	f.donors.donors[id] = &entity.Donor{ID: id, FullName: "Test Donor", BloodGroup: "A+"}
}

func TestSubmitResponse_AcceptAddsOneUnit(t *testing.T) {
	f := newResponseFixture()
	f.seedRequest(3, 0, entity.RequestStatusPending)
	f.seedDonor(11)

	result, err := f.service.SubmitResponse(context.Background(), &service.SubmitResponseInput{
		RequestID: 1, DonorID: 11, Response: "accepted",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Request.UnitsFulfilled)
	assert.Equal(t, entity.RequestStatusPartial, result.Request.Status)

	recipients := f.notifications.recipients()
	assert.Contains(t, recipients, "donor_11")
	assert.Contains(t, recipients, "hospital_7")
	assert.Contains(t, recipients, "patient_3")
}

func TestSubmitResponse_ReAcceptDoesNotDoubleCount(t *testing.T) {
	f := newResponseFixture()
	f.seedRequest(3, 1, entity.RequestStatusPartial)
	f.seedDonor(11)
	f.responses.SubmitFn = func(ctx context.Context, response *entity.DonorResponse) (entity.ResponseValue, error) {
		return entity.ResponseAccepted, nil
	}

	result, err := f.service.SubmitResponse(context.Background(), &service.SubmitResponseInput{
		RequestID: 1, DonorID: 11, Response: "accepted",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Request.UnitsFulfilled)
	assert.Equal(t, entity.RequestStatusPartial, result.Request.Status)
	assert.Empty(t, f.notifications.sent)
}

func TestSubmitResponse_LastAcceptFulfills(t *testing.T) {
	f := newResponseFixture()
	f.seedRequest(2, 1, entity.RequestStatusPartial)
	f.seedDonor(11)

	result, err := f.service.SubmitResponse(context.Background(), &service.SubmitResponseInput{
		RequestID: 1, DonorID: 11, Response: "accepted",
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Request.UnitsFulfilled)
	assert.Equal(t, entity.RequestStatusFulfilled, result.Request.Status)

	// The patient message flips to "fully covered" on the transition.
	var patientBody string
	for _, n := range f.notifications.sent {
		if n.RecipientKey == "patient_3" {
			patientBody = n.Body
		}
	}
	assert.Contains(t, patientBody, "fully covered")
}

func TestSubmitResponse_DeclineLeavesRequestUntouched(t *testing.T) {
	f := newResponseFixture()
	f.seedRequest(3, 1, entity.RequestStatusPartial)
	f.seedDonor(11)

	result, err := f.service.SubmitResponse(context.Background(), &service.SubmitResponseInput{
		RequestID: 1, DonorID: 11, Response: "declined",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Request.UnitsFulfilled)
	assert.Equal(t, entity.RequestStatusPartial, result.Request.Status)
	assert.Empty(t, f.notifications.sent)
}

func TestSubmitResponse_Validation(t *testing.T) {
	f := newResponseFixture()
	f.seedRequest(1, 0, entity.RequestStatusPending)
	f.seedDonor(11)

	_, err := f.service.SubmitResponse(context.Background(), &service.SubmitResponseInput{
		RequestID: 1, DonorID: 11, Response: "maybe",
	})
	assert.ErrorIs(t, err, entity.ErrInvalidInput)

	_, err = f.service.SubmitResponse(context.Background(), &service.SubmitResponseInput{
		RequestID: 99, DonorID: 11, Response: "accepted",
	})
	assert.ErrorIs(t, err, entity.ErrRequestNotFound)

	_, err = f.service.SubmitResponse(context.Background(), &service.SubmitResponseInput{
		RequestID: 1, DonorID: 99, Response: "accepted",
	})
	assert.ErrorIs(t, err, entity.ErrDonorNotFound)
}
