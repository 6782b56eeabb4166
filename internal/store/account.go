package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"clinic-booking-api/internal/model"
)

const accountColumns = `id::text, name, email, password_hash, created_at, updated_at`

func scanAccount(row pgx.Row, role model.Role) (*model.Account, error) {
	a := &model.Account{Role: role}
	if err := row.Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Store) CreateAccount(ctx context.Context, a *model.Account) error {
	table, err := accountTable(a.Role)
	if err != nil {
		return err
	}
	err = s.pool.QueryRow(ctx,
		`INSERT INTO `+table+` (id, name, email, password_hash) VALUES ($1,$2,$3,$4)
		 RETURNING created_at, updated_at`,
		a.ID, a.Name, a.Email, a.PasswordHash,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert %s: %w", table, classify(err))
	}
	return nil
}

func (s *Store) AccountByEmail(ctx context.Context, role model.Role, email string) (*model.Account, error) {
	table, err := accountTable(role)
	if err != nil {
		return nil, err
	}
	a, err := scanAccount(s.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM `+table+` WHERE email = $1`, email), role)
	if err != nil {
		return nil, classify(err)
	}
	return a, nil
}

func (s *Store) AccountByID(ctx context.Context, role model.Role, id string) (*model.Account, error) {
	table, err := accountTable(role)
	if err != nil {
		return nil, err
	}
	a, err := scanAccount(s.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM `+table+` WHERE id = $1`, id), role)
	if err != nil {
		return nil, classify(err)
	}
	return a, nil
}

func (s *Store) ListAccounts(ctx context.Context, role model.Role) ([]model.Account, error) {
	table, err := accountTable(role)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+accountColumns+` FROM `+table+` ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Account
	for rows.Next() {
		a, err := scanAccount(rows, role)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// UpdateAccount overwrites name and email.
func (s *Store) UpdateAccount(ctx context.Context, a *model.Account) error {
	table, err := accountTable(a.Role)
	if err != nil {
		return err
	}
	err = s.pool.QueryRow(ctx,
		`UPDATE `+table+` SET name=$1, email=$2, updated_at=NOW()
		 WHERE id=$3 RETURNING updated_at`,
		a.Name, a.Email, a.ID,
	).Scan(&a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update %s: %w", table, classify(err))
	}
	return nil
}

const practitionerQuery = `
	SELECT p.id::text, p.name, p.email, p.password_hash, p.created_at, p.updated_at,
	       COALESCE(array_agg(pa.appointment_id::text ORDER BY pa.appointment_id)
	                FILTER (WHERE pa.appointment_id IS NOT NULL), '{}')
	FROM practitioners p
	LEFT JOIN practitioner_appointments pa ON pa.practitioner_id = p.id`

func scanPractitioner(row pgx.Row) (*model.Practitioner, error) {
	p := &model.Practitioner{Account: model.Account{Role: model.RolePractitioner}}
	err := row.Scan(&p.ID, &p.Name, &p.Email, &p.PasswordHash, &p.CreatedAt, &p.UpdatedAt,
		&p.AppointmentIDs)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// PractitionerByID loads the practitioner together with its appointment set.
func (s *Store) PractitionerByID(ctx context.Context, id string) (*model.Practitioner, error) {
	p, err := scanPractitioner(s.pool.QueryRow(ctx,
		practitionerQuery+` WHERE p.id = $1 GROUP BY p.id`, id))
	if err != nil {
		return nil, classify(err)
	}
	return p, nil
}

func (s *Store) ListPractitioners(ctx context.Context) ([]model.Practitioner, error) {
	rows, err := s.pool.Query(ctx,
		practitionerQuery+` GROUP BY p.id ORDER BY p.created_at, p.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Practitioner
	for rows.Next() {
		p, err := scanPractitioner(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}
