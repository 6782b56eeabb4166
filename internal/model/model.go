package model

import "time"

type Role string

const (
	RolePractitioner Role = "practitioner"
	RolePatient      Role = "patient"
)

func (r Role) Valid() bool {
	return r == RolePractitioner || r == RolePatient
}

// Account is the credential-bearing part shared by practitioners and patients.
type Account struct {
	ID           string
	Role         Role
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Practitioner struct {
	Account
	AppointmentIDs []string
}

// HasAppointment reports whether id is in the practitioner's appointment set.
func (p *Practitioner) HasAppointment(id string) bool {
	for _, a := range p.AppointmentIDs {
		if a == id {
			return true
		}
	}
	return false
}

// Appointment holds a practitioner's (Date, Time) slot. Date is YYYY-MM-DD and
// Time is HH:MM; FullName and Email describe the patient and are not a reference.
type Appointment struct {
	ID             string
	Title          string
	Date           string
	Time           string
	FullName       string
	Email          string
	PractitionerID string
	CreatedAt      time.Time
}
