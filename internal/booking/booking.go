// Package booking books and cancels appointments. An appointment and the
// link from its practitioner's appointment set are always written and removed
// together, inside one store transaction.
package booking

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"clinic-booking-api/internal/model"
	"clinic-booking-api/internal/store"
	"clinic-booking-api/internal/validate"
)

// Store is the persistence the coordinator needs. *store.Store satisfies it.
type Store interface {
	PractitionerByID(ctx context.Context, id string) (*model.Practitioner, error)
	SlotTaken(ctx context.Context, practitionerID, date, tm string) (bool, error)
	AppointmentsByPractitioner(ctx context.Context, practitionerID string) ([]model.Appointment, error)
	InTx(ctx context.Context, fn func(store.Tx) error) error
}

// Recorder receives booking outcomes. A nil Recorder is allowed.
type Recorder interface {
	RecordBooking(outcome string)
	RecordCancellation(outcome string)
}

const (
	OutcomeOK       = "ok"
	OutcomeConflict = "conflict"
	OutcomeNotFound = "not_found"
	OutcomeInvalid  = "invalid"
	OutcomeError    = "error"
)

const (
	msgSlotTaken           = "Creating appointment failed, doctor has another appointment at the same time."
	msgDoctorNotFound      = "Could not find doctor for provided id."
	msgNoDoctorWithID      = "No doctor with provided id was found in the database."
	msgAppointmentNotFound = "Could not find appointment for this id."
	msgBookFailed          = "Creating appointment failed, please try again later."
	msgCancelFailed        = "Something went wrong, could not delete appointment."
	msgListFailed          = "Something went wrong, please try again later."
)

type BookRequest struct {
	Title          string
	Date           string
	Time           string
	FullName       string
	Email          string
	PractitionerID string
}

type Service struct {
	store   Store
	metrics Recorder
	log     *logrus.Logger
	newID   func() string
}

func NewService(st Store, rec Recorder, log *logrus.Logger) *Service {
	return &Service{
		store:   st,
		metrics: rec,
		log:     log,
		newID:   func() string { return uuid.New().String() },
	}
}

func (s *Service) recordBooking(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordBooking(outcome)
	}
}

func (s *Service) recordCancel(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordCancellation(outcome)
	}
}

func (r BookRequest) normalize() (BookRequest, error) {
	out := BookRequest{
		Title:          validate.Text(r.Title),
		FullName:       validate.Text(r.FullName),
		PractitionerID: r.PractitionerID,
	}
	var ok bool
	if out.Date, ok = validate.Date(r.Date); !ok {
		return out, model.Validation("Invalid inputs passed, date must be YYYY-MM-DD.")
	}
	if out.Time, ok = validate.Clock(r.Time); !ok {
		return out, model.Validation("Invalid inputs passed, time must be HH:MM.")
	}
	if out.Email, ok = validate.Email(r.Email); !ok {
		return out, model.Validation("Invalid inputs passed, please check your email.")
	}
	if out.Title == "" || out.FullName == "" || out.PractitionerID == "" {
		return out, model.Validation("Invalid inputs passed, please check your data.")
	}
	return out, nil
}

// Book creates an appointment in a free slot of the practitioner.
func (s *Service) Book(ctx context.Context, req BookRequest) (*model.Appointment, error) {
	req, err := req.normalize()
	if err != nil {
		s.recordBooking(OutcomeInvalid)
		return nil, err
	}

	fields := logrus.Fields{
		"practitioner_id": req.PractitionerID,
		"date":            req.Date,
		"time":            req.Time,
	}

	if !validate.ID(req.PractitionerID) {
		s.recordBooking(OutcomeNotFound)
		return nil, model.NotFound(msgDoctorNotFound)
	}
	if _, err := s.store.PractitionerByID(ctx, req.PractitionerID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.recordBooking(OutcomeNotFound)
			return nil, model.NotFound(msgDoctorNotFound)
		}
		return nil, s.bookFailed(fields, err)
	}

	// Pre-check. The unique slot constraint still decides races below.
	taken, err := s.store.SlotTaken(ctx, req.PractitionerID, req.Date, req.Time)
	if err != nil {
		return nil, s.bookFailed(fields, err)
	}
	if taken {
		s.recordBooking(OutcomeConflict)
		return nil, model.Conflict(msgSlotTaken)
	}

	apt := &model.Appointment{
		ID:             s.newID(),
		Title:          req.Title,
		Date:           req.Date,
		Time:           req.Time,
		FullName:       req.FullName,
		Email:          req.Email,
		PractitionerID: req.PractitionerID,
	}

	err = s.store.InTx(ctx, func(tx store.Tx) error {
		if err := tx.InsertAppointment(ctx, apt); err != nil {
			return err
		}
		return tx.LinkAppointment(ctx, apt.PractitionerID, apt.ID)
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			s.log.WithFields(fields).Info("slot taken by concurrent booking")
			s.recordBooking(OutcomeConflict)
			return nil, model.Conflict(msgSlotTaken)
		}
		return nil, s.bookFailed(fields, err)
	}

	fields["appointment_id"] = apt.ID
	s.log.WithFields(fields).Info("appointment booked")
	s.recordBooking(OutcomeOK)
	return apt, nil
}

func (s *Service) bookFailed(fields logrus.Fields, err error) error {
	s.log.WithFields(fields).WithError(err).Error("booking failed")
	s.recordBooking(OutcomeError)
	return model.Internal(msgBookFailed)
}

var (
	errNoAppointment = errors.New("appointment missing")
	errOrphan        = errors.New("appointment owner missing")
)

// Cancel removes an appointment and its link from the practitioner's set.
func (s *Service) Cancel(ctx context.Context, appointmentID string) error {
	if !validate.ID(appointmentID) {
		s.recordCancel(OutcomeNotFound)
		return model.NotFound(msgAppointmentNotFound)
	}

	fields := logrus.Fields{"appointment_id": appointmentID}

	err := s.store.InTx(ctx, func(tx store.Tx) error {
		apt, err := tx.AppointmentForUpdate(ctx, appointmentID)
		if errors.Is(err, store.ErrNotFound) {
			return errNoAppointment
		}
		if err != nil {
			return err
		}
		fields["practitioner_id"] = apt.PractitionerID

		owner, err := tx.PractitionerForUpdate(ctx, apt.PractitionerID)
		if errors.Is(err, store.ErrNotFound) {
			return errOrphan
		}
		if err != nil {
			return err
		}
		if err := tx.UnlinkAppointment(ctx, owner.ID, apt.ID); err != nil {
			return err
		}
		return tx.DeleteAppointment(ctx, apt.ID)
	})

	switch {
	case err == nil:
		s.log.WithFields(fields).Info("appointment cancelled")
		s.recordCancel(OutcomeOK)
		return nil
	case errors.Is(err, errNoAppointment):
		s.recordCancel(OutcomeNotFound)
		return model.NotFound(msgAppointmentNotFound)
	default:
		s.log.WithFields(fields).WithError(err).Error("cancellation failed")
		s.recordCancel(OutcomeError)
		return model.Internal(msgCancelFailed)
	}
}

// ListForPractitioner returns the practitioner's appointments by date and time.
func (s *Service) ListForPractitioner(ctx context.Context, practitionerID string) ([]model.Appointment, error) {
	if !validate.ID(practitionerID) {
		return nil, model.NotFound(msgNoDoctorWithID)
	}
	if _, err := s.store.PractitionerByID(ctx, practitionerID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, model.NotFound(msgNoDoctorWithID)
		}
		s.log.WithField("practitioner_id", practitionerID).WithError(err).Error("load practitioner failed")
		return nil, model.Internal(msgListFailed)
	}

	apts, err := s.store.AppointmentsByPractitioner(ctx, practitionerID)
	if err != nil {
		s.log.WithField("practitioner_id", practitionerID).WithError(err).Error("list appointments failed")
		return nil, model.Internal(msgListFailed)
	}
	if apts == nil {
		apts = []model.Appointment{}
	}
	return apts, nil
}
