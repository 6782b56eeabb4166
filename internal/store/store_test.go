package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"clinic-booking-api/internal/model"
)

func TestClassify(t *testing.T) {
	other := errors.New("connection reset")

	tests := []struct {
		name string
		in   error
		want error
	}{
		{"nil", nil, nil},
		{"no rows", pgx.ErrNoRows, ErrNotFound},
		{"wrapped no rows", fmt.Errorf("scan: %w", pgx.ErrNoRows), ErrNotFound},
		{"unique", &pgconn.PgError{Code: "23505", ConstraintName: "appointments_slot_key"}, ErrDuplicate},
		{"bad uuid", &pgconn.PgError{Code: "22P02"}, ErrNotFound},
		{"other", other, other},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.in)
			if tt.want == nil {
				if got != nil {
					t.Fatalf("classify = %v, want nil", got)
				}
				return
			}
			if !errors.Is(got, tt.want) {
				t.Errorf("classify = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifyKeepsConstraintName(t *testing.T) {
	err := classify(&pgconn.PgError{Code: "23505", ConstraintName: "patients_email_key"})
	if got := err.Error(); got != "duplicate record: patients_email_key" {
		t.Errorf("message = %q", got)
	}
}

func TestAccountTable(t *testing.T) {
	if tbl, _ := accountTable(model.RolePractitioner); tbl != "practitioners" {
		t.Errorf("practitioner table = %q", tbl)
	}
	if tbl, _ := accountTable(model.RolePatient); tbl != "patients" {
		t.Errorf("patient table = %q", tbl)
	}
	if _, err := accountTable("admin"); err == nil {
		t.Error("unknown role accepted")
	}
}
