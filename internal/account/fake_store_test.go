package account

import (
	"context"
	"sort"
	"sync"
	"time"

	"clinic-booking-api/internal/model"
	"clinic-booking-api/internal/store"
)

type fakeStore struct {
	mu       sync.Mutex
	accounts map[string]*model.Account // keyed by role + id
	tokens   map[string]*store.RefreshToken
	links    map[string][]string

	// hooks override the default behaviour when set
	emailErr  error
	createErr error
	updateErr error
	rotateErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		accounts: map[string]*model.Account{},
		tokens:   map[string]*store.RefreshToken{},
		links:    map[string][]string{},
	}
}

func key(role model.Role, id string) string { return string(role) + "/" + id }

func (f *fakeStore) CreateAccount(_ context.Context, a *model.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	for _, x := range f.accounts {
		if x.Role == a.Role && x.Email == a.Email {
			return store.ErrDuplicate
		}
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	cp := *a
	f.accounts[key(a.Role, a.ID)] = &cp
	return nil
}

func (f *fakeStore) AccountByEmail(_ context.Context, role model.Role, email string) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.emailErr != nil {
		return nil, f.emailErr
	}
	for _, x := range f.accounts {
		if x.Role == role && x.Email == email {
			cp := *x
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) AccountByID(_ context.Context, role model.Role, id string) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	x, ok := f.accounts[key(role, id)]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *x
	return &cp, nil
}

func (f *fakeStore) ListAccounts(_ context.Context, role model.Role) ([]model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Account
	for _, x := range f.accounts {
		if x.Role == role {
			out = append(out, *x)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) UpdateAccount(_ context.Context, a *model.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	x, ok := f.accounts[key(a.Role, a.ID)]
	if !ok {
		return store.ErrNotFound
	}
	x.Name = a.Name
	x.Email = a.Email
	x.UpdatedAt = time.Now()
	a.UpdatedAt = x.UpdatedAt
	return nil
}

func (f *fakeStore) PractitionerByID(ctx context.Context, id string) (*model.Practitioner, error) {
	a, err := f.AccountByID(ctx, model.RolePractitioner, id)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return &model.Practitioner{Account: *a, AppointmentIDs: append([]string{}, f.links[id]...)}, nil
}

func (f *fakeStore) ListPractitioners(ctx context.Context) ([]model.Practitioner, error) {
	accts, _ := f.ListAccounts(ctx, model.RolePractitioner)
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Practitioner
	for _, a := range accts {
		out = append(out, model.Practitioner{Account: a, AppointmentIDs: append([]string{}, f.links[a.ID]...)})
	}
	return out, nil
}

func (f *fakeStore) CreateRefreshToken(_ context.Context, accountID string, role model.Role, tokenHash string, expiresAt time.Time) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := tokenHash[:16]
	f.tokens[id] = &store.RefreshToken{
		ID: id, AccountID: accountID, Role: role, TokenHash: tokenHash, ExpiresAt: expiresAt,
	}
	return id, nil
}

func (f *fakeStore) RefreshTokenByHash(_ context.Context, tokenHash string) (*store.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tokens {
		if t.TokenHash == tokenHash {
			cp := *t
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) RotateRefreshToken(_ context.Context, oldID string, next store.RefreshToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rotateErr != nil {
		return f.rotateErr
	}
	old, ok := f.tokens[oldID]
	if !ok || old.Revoked {
		return store.ErrNotFound
	}
	old.Revoked = true
	old.ReplacedBy = &next.ID
	cp := next
	f.tokens[next.ID] = &cp
	return nil
}

func (f *fakeStore) RevokeAllRefreshTokens(_ context.Context, accountID string, role model.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tokens {
		if t.AccountID == accountID && t.Role == role {
			t.Revoked = true
		}
	}
	return nil
}

func (f *fakeStore) liveTokens(accountID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.tokens {
		if t.AccountID == accountID && !t.Revoked {
			n++
		}
	}
	return n
}
