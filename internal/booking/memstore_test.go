package booking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"clinic-booking-api/internal/model"
	"clinic-booking-api/internal/store"
)

var errInjected = errors.New("injected failure")

// memStore is a transactional in-memory Store. InTx works on a copy of the
// committed state and swaps it in only when fn succeeds. Slot uniqueness is
// checked on insert like the database constraint.
type memStore struct {
	mu            sync.Mutex
	practitioners map[string]*model.Practitioner
	appointments  map[string]model.Appointment

	failOn        string // Tx method that returns errInjected
	skipPreCheck  bool   // SlotTaken always reports free
	listErr       error
	practitionErr error
}

func newMemStore() *memStore {
	return &memStore{
		practitioners: map[string]*model.Practitioner{},
		appointments:  map[string]model.Appointment{},
	}
}

func (m *memStore) addPractitioner(id, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.practitioners[id] = &model.Practitioner{
		Account: model.Account{ID: id, Name: name, Role: model.RolePractitioner},
	}
}

func (m *memStore) PractitionerByID(_ context.Context, id string) (*model.Practitioner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.practitionErr != nil {
		return nil, m.practitionErr
	}
	p, ok := m.practitioners[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	cp.AppointmentIDs = append([]string(nil), p.AppointmentIDs...)
	return &cp, nil
}

func (m *memStore) SlotTaken(_ context.Context, practitionerID, date, tm string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.skipPreCheck {
		return false, nil
	}
	return slotTaken(m.appointments, practitionerID, date, tm), nil
}

func slotTaken(apts map[string]model.Appointment, practitionerID, date, tm string) bool {
	for _, a := range apts {
		if a.PractitionerID == practitionerID && a.Date == date && a.Time == tm {
			return true
		}
	}
	return false
}

func (m *memStore) AppointmentsByPractitioner(_ context.Context, practitionerID string) ([]model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []model.Appointment
	for _, a := range m.appointments {
		if a.PractitionerID == practitionerID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Time < out[j].Time
	})
	return out, nil
}

func (m *memStore) InTx(ctx context.Context, fn func(store.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTx{
		failOn:        m.failOn,
		practitioners: make(map[string]*model.Practitioner, len(m.practitioners)),
		appointments:  make(map[string]model.Appointment, len(m.appointments)),
	}
	for id, p := range m.practitioners {
		cp := *p
		cp.AppointmentIDs = append([]string(nil), p.AppointmentIDs...)
		tx.practitioners[id] = &cp
	}
	for id, a := range m.appointments {
		tx.appointments[id] = a
	}

	if err := fn(tx); err != nil {
		return err
	}
	m.practitioners = tx.practitioners
	m.appointments = tx.appointments
	return nil
}

// snapshot returns the committed state for comparisons.
func (m *memStore) snapshot() (map[string][]string, map[string]model.Appointment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	links := map[string][]string{}
	for id, p := range m.practitioners {
		ids := append([]string(nil), p.AppointmentIDs...)
		sort.Strings(ids)
		links[id] = ids
	}
	apts := map[string]model.Appointment{}
	for id, a := range m.appointments {
		apts[id] = a
	}
	return links, apts
}

type memTx struct {
	failOn        string
	practitioners map[string]*model.Practitioner
	appointments  map[string]model.Appointment
}

func (t *memTx) fail(op string) error {
	if t.failOn == op {
		return fmt.Errorf("%s: %w", op, errInjected)
	}
	return nil
}

func (t *memTx) InsertAppointment(_ context.Context, a *model.Appointment) error {
	if err := t.fail("InsertAppointment"); err != nil {
		return err
	}
	if slotTaken(t.appointments, a.PractitionerID, a.Date, a.Time) {
		return fmt.Errorf("insert appointment: %w", store.ErrDuplicate)
	}
	t.appointments[a.ID] = *a
	return nil
}

func (t *memTx) LinkAppointment(_ context.Context, practitionerID, appointmentID string) error {
	if err := t.fail("LinkAppointment"); err != nil {
		return err
	}
	p, ok := t.practitioners[practitionerID]
	if !ok {
		return store.ErrNotFound
	}
	p.AppointmentIDs = append(p.AppointmentIDs, appointmentID)
	return nil
}

func (t *memTx) AppointmentForUpdate(_ context.Context, id string) (*model.Appointment, error) {
	if err := t.fail("AppointmentForUpdate"); err != nil {
		return nil, err
	}
	a, ok := t.appointments[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &a, nil
}

func (t *memTx) PractitionerForUpdate(_ context.Context, id string) (*model.Practitioner, error) {
	if err := t.fail("PractitionerForUpdate"); err != nil {
		return nil, err
	}
	p, ok := t.practitioners[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return p, nil
}

func (t *memTx) UnlinkAppointment(_ context.Context, practitionerID, appointmentID string) error {
	if err := t.fail("UnlinkAppointment"); err != nil {
		return err
	}
	p, ok := t.practitioners[practitionerID]
	if !ok {
		return store.ErrNotFound
	}
	for i, id := range p.AppointmentIDs {
		if id == appointmentID {
			p.AppointmentIDs = append(p.AppointmentIDs[:i], p.AppointmentIDs[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (t *memTx) DeleteAppointment(_ context.Context, id string) error {
	if err := t.fail("DeleteAppointment"); err != nil {
		return err
	}
	if _, ok := t.appointments[id]; !ok {
		return store.ErrNotFound
	}
	delete(t.appointments, id)
	return nil
}
