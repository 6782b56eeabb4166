package handler

import (
	"time"

	"clinic-booking-api/internal/model"
)

type doctorView struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Appointments []string  `json:"appointments"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func toDoctor(p *model.Practitioner) doctorView {
	ids := p.AppointmentIDs
	if ids == nil {
		ids = []string{}
	}
	return doctorView{
		ID:           p.ID,
		Name:         p.Name,
		Email:        p.Email,
		Appointments: ids,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

type patientView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toPatient(a *model.Account) patientView {
	return patientView{
		ID:        a.ID,
		Name:      a.Name,
		Email:     a.Email,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

type appointmentView struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Date      string    `json:"date"`
	Time      string    `json:"time"`
	FullName  string    `json:"fullName"`
	Email     string    `json:"email"`
	Doctor    string    `json:"doctor"`
	CreatedAt time.Time `json:"createdAt"`
}

func toAppointment(a *model.Appointment) appointmentView {
	return appointmentView{
		ID:        a.ID,
		Title:     a.Title,
		Date:      a.Date,
		Time:      a.Time,
		FullName:  a.FullName,
		Email:     a.Email,
		Doctor:    a.PractitionerID,
		CreatedAt: a.CreatedAt,
	}
}
