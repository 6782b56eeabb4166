package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"clinic-booking-api/internal/model"
)

const appointmentColumns = `id::text, title, slot_date::text, slot_time, full_name, email,
	practitioner_id::text, created_at`

func scanAppointment(row pgx.Row) (*model.Appointment, error) {
	a := &model.Appointment{}
	err := row.Scan(&a.ID, &a.Title, &a.Date, &a.Time, &a.FullName, &a.Email,
		&a.PractitionerID, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Store) AppointmentByID(ctx context.Context, id string) (*model.Appointment, error) {
	a, err := scanAppointment(s.pool.QueryRow(ctx,
		`SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id))
	if err != nil {
		return nil, classify(err)
	}
	return a, nil
}

// SlotTaken reports whether the practitioner already has an appointment at date/time.
func (s *Store) SlotTaken(ctx context.Context, practitionerID, date, tm string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM appointments
			WHERE practitioner_id = $1 AND slot_date = $2 AND slot_time = $3)`,
		practitionerID, date, tm,
	).Scan(&exists)
	return exists, classify(err)
}

func (s *Store) AppointmentsByPractitioner(ctx context.Context, practitionerID string) ([]model.Appointment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+appointmentColumns+`
		 FROM appointments
		 WHERE practitioner_id = $1
		 ORDER BY slot_date, slot_time`, practitionerID,
	)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var out []model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: %w", classify(err))
	}
	return out, nil
}
