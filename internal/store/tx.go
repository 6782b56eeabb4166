package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"clinic-booking-api/internal/model"
)

// Tx is the set of writes that keep an appointment and its practitioner's
// appointment set in lockstep. It is only handed out by Store.InTx.
type Tx interface {
	InsertAppointment(ctx context.Context, a *model.Appointment) error
	LinkAppointment(ctx context.Context, practitionerID, appointmentID string) error
	AppointmentForUpdate(ctx context.Context, id string) (*model.Appointment, error)
	PractitionerForUpdate(ctx context.Context, id string) (*model.Practitioner, error)
	UnlinkAppointment(ctx context.Context, practitionerID, appointmentID string) error
	DeleteAppointment(ctx context.Context, id string) error
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) InsertAppointment(ctx context.Context, a *model.Appointment) error {
	err := t.tx.QueryRow(ctx,
		`INSERT INTO appointments (id, title, slot_date, slot_time, full_name, email, practitioner_id)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)
		 RETURNING created_at`,
		a.ID, a.Title, a.Date, a.Time, a.FullName, a.Email, a.PractitionerID,
	).Scan(&a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", classify(err))
	}
	return nil
}

func (t *pgTx) LinkAppointment(ctx context.Context, practitionerID, appointmentID string) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO practitioner_appointments (practitioner_id, appointment_id) VALUES ($1,$2)`,
		practitionerID, appointmentID,
	)
	if err != nil {
		return fmt.Errorf("link appointment: %w", classify(err))
	}
	return nil
}

func (t *pgTx) AppointmentForUpdate(ctx context.Context, id string) (*model.Appointment, error) {
	a, err := scanAppointment(t.tx.QueryRow(ctx,
		`SELECT `+appointmentColumns+` FROM appointments WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, classify(err)
	}
	return a, nil
}

func (t *pgTx) PractitionerForUpdate(ctx context.Context, id string) (*model.Practitioner, error) {
	// lock the owner row first; aggregates cannot take FOR UPDATE
	var locked string
	err := t.tx.QueryRow(ctx,
		`SELECT id::text FROM practitioners WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if err != nil {
		return nil, classify(err)
	}
	p, err := scanPractitioner(t.tx.QueryRow(ctx,
		practitionerQuery+` WHERE p.id = $1 GROUP BY p.id`, id))
	if err != nil {
		return nil, classify(err)
	}
	return p, nil
}

func (t *pgTx) UnlinkAppointment(ctx context.Context, practitionerID, appointmentID string) error {
	tag, err := t.tx.Exec(ctx,
		`DELETE FROM practitioner_appointments WHERE practitioner_id = $1 AND appointment_id = $2`,
		practitionerID, appointmentID,
	)
	if err != nil {
		return fmt.Errorf("unlink appointment: %w", classify(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("unlink appointment %s: %w", appointmentID, ErrNotFound)
	}
	return nil
}

func (t *pgTx) DeleteAppointment(ctx context.Context, id string) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete appointment: %w", classify(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete appointment %s: %w", id, ErrNotFound)
	}
	return nil
}
