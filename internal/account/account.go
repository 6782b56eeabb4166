// Package account registers, authenticates and looks up practitioners and
// patients. Both roles go through the same Service; role only selects the
// table and the wording of user-facing messages.
package account

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"clinic-booking-api/internal/auth"
	"clinic-booking-api/internal/model"
	"clinic-booking-api/internal/store"
	"clinic-booking-api/internal/validate"
)

type Store interface {
	CreateAccount(ctx context.Context, a *model.Account) error
	AccountByEmail(ctx context.Context, role model.Role, email string) (*model.Account, error)
	AccountByID(ctx context.Context, role model.Role, id string) (*model.Account, error)
	ListAccounts(ctx context.Context, role model.Role) ([]model.Account, error)
	UpdateAccount(ctx context.Context, a *model.Account) error
	PractitionerByID(ctx context.Context, id string) (*model.Practitioner, error)
	ListPractitioners(ctx context.Context) ([]model.Practitioner, error)

	CreateRefreshToken(ctx context.Context, accountID string, role model.Role, tokenHash string, expiresAt time.Time) (string, error)
	RefreshTokenByHash(ctx context.Context, tokenHash string) (*store.RefreshToken, error)
	RotateRefreshToken(ctx context.Context, oldID string, next store.RefreshToken) error
	RevokeAllRefreshTokens(ctx context.Context, accountID string, role model.Role) error
}

// Hasher is satisfied by *auth.Hasher.
type Hasher interface {
	Hash(pw string) (string, error)
	Check(hash, pw string) bool
	CheckAbsent(pw string) bool
}

// SignupTokenPolicy decides which roles get an access token straight from
// signup. Practitioners do by default, patients log in separately.
type SignupTokenPolicy struct {
	Practitioner bool
	Patient      bool
}

func DefaultSignupTokenPolicy() SignupTokenPolicy {
	return SignupTokenPolicy{Practitioner: true}
}

func (p SignupTokenPolicy) Issues(role model.Role) bool {
	switch role {
	case model.RolePractitioner:
		return p.Practitioner
	case model.RolePatient:
		return p.Patient
	}
	return false
}

type Options struct {
	MinPasswordLen int
	RefreshTTL     time.Duration
	SignupTokens   SignupTokenPolicy
}

// Registration is the result of a signup. Token is empty when the policy does
// not issue one for the role.
type Registration struct {
	Account *model.Account
	Token   string
}

type Session struct {
	Account      *model.Account
	Token        string
	RefreshToken string
	ExpiresAt    time.Time
}

type Service struct {
	store  Store
	hasher Hasher
	issuer *auth.Issuer
	opts   Options
	log    *logrus.Logger
	now    func() time.Time
}

func NewService(st Store, hasher Hasher, issuer *auth.Issuer, opts Options, log *logrus.Logger) *Service {
	if opts.MinPasswordLen <= 0 {
		opts.MinPasswordLen = 5
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = 7 * 24 * time.Hour
	}
	return &Service{
		store:  st,
		hasher: hasher,
		issuer: issuer,
		opts:   opts,
		log:    log,
		now:    time.Now,
	}
}

// Register creates an account for role. The email must not be taken within
// that role; the same address may exist once per role.
func (s *Service) Register(ctx context.Context, role model.Role, name, email, password string) (*Registration, error) {
	if !role.Valid() {
		return nil, model.Validation(msgInvalidInput)
	}
	name = validate.Text(name)
	email, ok := validate.Email(email)
	if !ok || name == "" || len(password) < s.opts.MinPasswordLen || len(password) > auth.MaxPasswordLen {
		return nil, model.Validation(msgInvalidInput)
	}

	fields := logrus.Fields{"role": role, "email": email}

	_, err := s.store.AccountByEmail(ctx, role, email)
	switch {
	case err == nil:
		return nil, model.Conflict(msgs(role).exists)
	case !errors.Is(err, store.ErrNotFound):
		s.log.WithFields(fields).WithError(err).Error("signup lookup failed")
		return nil, model.Internal(msgSignupUnavailable)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.log.WithFields(fields).WithError(err).Error("hash password failed")
		return nil, model.Internal(msgSignupFailed)
	}

	acct := &model.Account{
		ID:           uuid.New().String(),
		Role:         role,
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.store.CreateAccount(ctx, acct); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, model.Conflict(msgs(role).exists)
		}
		s.log.WithFields(fields).WithError(err).Error("create account failed")
		return nil, model.Internal(msgSignupFailed)
	}

	reg := &Registration{Account: acct}
	if s.opts.SignupTokens.Issues(role) {
		tok, err := s.issuer.Issue(acct)
		if err != nil {
			s.log.WithFields(fields).WithError(err).Error("issue token failed")
			return nil, model.Internal(msgSignupFailed)
		}
		reg.Token = tok
	}

	fields["account_id"] = acct.ID
	s.log.WithFields(fields).Info("account registered")
	return reg, nil
}

// Authenticate checks credentials and opens a session. An unknown email and a
// wrong password produce the same error.
func (s *Service) Authenticate(ctx context.Context, role model.Role, email, password string) (*Session, error) {
	email, ok := validate.Email(email)
	if !ok || !role.Valid() {
		return nil, model.Forbidden(msgBadCredentials)
	}

	acct, err := s.store.AccountByEmail(ctx, role, email)
	if errors.Is(err, store.ErrNotFound) {
		s.hasher.CheckAbsent(password)
		return nil, model.Forbidden(msgBadCredentials)
	}
	if err != nil {
		s.log.WithFields(logrus.Fields{"role": role, "email": email}).WithError(err).Error("login lookup failed")
		return nil, model.Internal(msgLoginUnavailable)
	}
	if !s.hasher.Check(acct.PasswordHash, password) {
		return nil, model.Forbidden(msgBadCredentials)
	}

	return s.openSession(ctx, acct)
}

func (s *Service) openSession(ctx context.Context, acct *model.Account) (*Session, error) {
	fields := logrus.Fields{"role": acct.Role, "account_id": acct.ID}

	tok, err := s.issuer.Issue(acct)
	if err != nil {
		s.log.WithFields(fields).WithError(err).Error("issue token failed")
		return nil, model.Internal(msgLoginFailed)
	}
	raw, hash, err := auth.GenerateRefreshToken()
	if err != nil {
		s.log.WithFields(fields).WithError(err).Error("generate refresh token failed")
		return nil, model.Internal(msgLoginFailed)
	}
	if _, err := s.store.CreateRefreshToken(ctx, acct.ID, acct.Role, hash, s.now().Add(s.opts.RefreshTTL)); err != nil {
		s.log.WithFields(fields).WithError(err).Error("store refresh token failed")
		return nil, model.Internal(msgLoginFailed)
	}

	return &Session{
		Account:      acct,
		Token:        tok,
		RefreshToken: raw,
		ExpiresAt:    s.now().Add(s.issuer.TTL()),
	}, nil
}

// Refresh rotates a refresh token and issues a new access token. Presenting a
// token that was already rotated revokes every token of its owner.
func (s *Service) Refresh(ctx context.Context, raw string) (*Session, error) {
	if raw == "" {
		return nil, model.Forbidden(msgBadRefresh)
	}
	rt, err := s.store.RefreshTokenByHash(ctx, auth.HashRefreshToken(raw))
	if errors.Is(err, store.ErrNotFound) {
		return nil, model.Forbidden(msgBadRefresh)
	}
	if err != nil {
		s.log.WithError(err).Error("refresh lookup failed")
		return nil, model.Internal(msgRefreshFailed)
	}

	fields := logrus.Fields{"role": rt.Role, "account_id": rt.AccountID}

	if rt.Revoked {
		s.log.WithFields(fields).Warn("revoked refresh token replayed")
		if err := s.store.RevokeAllRefreshTokens(ctx, rt.AccountID, rt.Role); err != nil {
			s.log.WithFields(fields).WithError(err).Error("revoke refresh tokens failed")
		}
		return nil, model.Forbidden(msgBadRefresh)
	}
	if !s.now().Before(rt.ExpiresAt) {
		return nil, model.Forbidden(msgBadRefresh)
	}

	acct, err := s.store.AccountByID(ctx, rt.Role, rt.AccountID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, model.Forbidden(msgBadRefresh)
	}
	if err != nil {
		s.log.WithFields(fields).WithError(err).Error("refresh account lookup failed")
		return nil, model.Internal(msgRefreshFailed)
	}

	nextRaw, nextHash, err := auth.GenerateRefreshToken()
	if err != nil {
		s.log.WithFields(fields).WithError(err).Error("generate refresh token failed")
		return nil, model.Internal(msgRefreshFailed)
	}
	next := store.RefreshToken{
		ID:        uuid.New().String(),
		AccountID: acct.ID,
		Role:      acct.Role,
		TokenHash: nextHash,
		ExpiresAt: s.now().Add(s.opts.RefreshTTL),
	}
	if err := s.store.RotateRefreshToken(ctx, rt.ID, next); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// rotated concurrently
			return nil, model.Forbidden(msgBadRefresh)
		}
		s.log.WithFields(fields).WithError(err).Error("rotate refresh token failed")
		return nil, model.Internal(msgRefreshFailed)
	}

	tok, err := s.issuer.Issue(acct)
	if err != nil {
		s.log.WithFields(fields).WithError(err).Error("issue token failed")
		return nil, model.Internal(msgRefreshFailed)
	}
	return &Session{
		Account:      acct,
		Token:        tok,
		RefreshToken: nextRaw,
		ExpiresAt:    s.now().Add(s.issuer.TTL()),
	}, nil
}

// Logout revokes every refresh token of the token's owner. Unknown tokens are
// ignored.
func (s *Service) Logout(ctx context.Context, raw string) error {
	if raw == "" {
		return nil
	}
	rt, err := s.store.RefreshTokenByHash(ctx, auth.HashRefreshToken(raw))
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		s.log.WithError(err).Error("logout lookup failed")
		return model.Internal(msgLogoutFailed)
	}
	if err := s.store.RevokeAllRefreshTokens(ctx, rt.AccountID, rt.Role); err != nil {
		s.log.WithFields(logrus.Fields{"role": rt.Role, "account_id": rt.AccountID}).
			WithError(err).Error("revoke refresh tokens failed")
		return model.Internal(msgLogoutFailed)
	}
	return nil
}

func (s *Service) List(ctx context.Context, role model.Role) ([]model.Account, error) {
	accts, err := s.store.ListAccounts(ctx, role)
	if err != nil {
		s.log.WithField("role", role).WithError(err).Error("list accounts failed")
		return nil, model.Internal(msgs(role).listFailed)
	}
	if accts == nil {
		accts = []model.Account{}
	}
	return accts, nil
}

func (s *Service) Get(ctx context.Context, role model.Role, id string) (*model.Account, error) {
	if !validate.ID(id) {
		return nil, model.NotFound(msgs(role).notFound)
	}
	acct, err := s.store.AccountByID(ctx, role, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, model.NotFound(msgs(role).notFound)
	}
	if err != nil {
		s.log.WithFields(logrus.Fields{"role": role, "account_id": id}).WithError(err).Error("get account failed")
		return nil, model.Internal(msgs(role).lookupFailed)
	}
	return acct, nil
}

// Practitioners lists practitioners with their appointment sets.
func (s *Service) Practitioners(ctx context.Context) ([]model.Practitioner, error) {
	ps, err := s.store.ListPractitioners(ctx)
	if err != nil {
		s.log.WithError(err).Error("list practitioners failed")
		return nil, model.Internal(msgs(model.RolePractitioner).listFailed)
	}
	if ps == nil {
		ps = []model.Practitioner{}
	}
	return ps, nil
}

func (s *Service) Practitioner(ctx context.Context, id string) (*model.Practitioner, error) {
	m := msgs(model.RolePractitioner)
	if !validate.ID(id) {
		return nil, model.NotFound(m.notFound)
	}
	p, err := s.store.PractitionerByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, model.NotFound(m.notFound)
	}
	if err != nil {
		s.log.WithField("practitioner_id", id).WithError(err).Error("get practitioner failed")
		return nil, model.Internal(m.lookupFailed)
	}
	return p, nil
}

// UpdatePractitioner overwrites a practitioner's name and email. The email may
// not belong to another practitioner.
func (s *Service) UpdatePractitioner(ctx context.Context, id, name, email string) (*model.Practitioner, error) {
	name = validate.Text(name)
	email, ok := validate.Email(email)
	if !ok || name == "" {
		return nil, model.Validation(msgInvalidInput)
	}
	if !validate.ID(id) {
		return nil, model.NotFound(msgs(model.RolePractitioner).notFound)
	}

	fields := logrus.Fields{"practitioner_id": id, "email": email}

	other, err := s.store.AccountByEmail(ctx, model.RolePractitioner, email)
	switch {
	case err == nil && other.ID != id:
		return nil, model.Conflict(msgEmailInUse)
	case err != nil && !errors.Is(err, store.ErrNotFound):
		s.log.WithFields(fields).WithError(err).Error("update lookup failed")
		return nil, model.Internal(msgUpdateFailed)
	}

	p, err := s.Practitioner(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Name = name
	p.Email = email

	if err := s.store.UpdateAccount(ctx, &p.Account); err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicate):
			return nil, model.Conflict(msgEmailInUse)
		case errors.Is(err, store.ErrNotFound):
			return nil, model.NotFound(msgs(model.RolePractitioner).notFound)
		}
		s.log.WithFields(fields).WithError(err).Error("update practitioner failed")
		return nil, model.Internal(msgUpdateFailed)
	}

	s.log.WithFields(fields).Info("practitioner updated")
	return p, nil
}
