package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"clinic-booking-api/internal/model"
)

type RefreshToken struct {
	ID         string
	AccountID  string
	Role       model.Role
	TokenHash  string
	ExpiresAt  time.Time
	Revoked    bool
	ReplacedBy *string
	CreatedAt  time.Time
}

func (s *Store) CreateRefreshToken(ctx context.Context, accountID string, role model.Role, tokenHash string, expiresAt time.Time) (string, error) {
	id := uuid.New().String()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO refresh_tokens (id, account_id, role, token_hash, expires_at) VALUES ($1,$2,$3,$4,$5)`,
		id, accountID, string(role), tokenHash, expiresAt,
	)
	if err != nil {
		return "", fmt.Errorf("insert refresh token: %w", classify(err))
	}
	return id, nil
}

func (s *Store) RefreshTokenByHash(ctx context.Context, tokenHash string) (*RefreshToken, error) {
	rt := &RefreshToken{}
	var role string
	err := s.pool.QueryRow(ctx,
		`SELECT id::text, account_id::text, role, token_hash, expires_at, revoked, replaced_by::text, created_at
		 FROM refresh_tokens WHERE token_hash = $1`, tokenHash,
	).Scan(&rt.ID, &rt.AccountID, &role, &rt.TokenHash, &rt.ExpiresAt, &rt.Revoked, &rt.ReplacedBy, &rt.CreatedAt)
	if err != nil {
		return nil, classify(err)
	}
	rt.Role = model.Role(role)
	return rt, nil
}

// RotateRefreshToken revokes oldID, points it at its replacement and inserts
// the replacement, all in one transaction.
func (s *Store) RotateRefreshToken(ctx context.Context, oldID string, next RefreshToken) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// only an unrevoked token may be rotated; a concurrent rotation loses here
	tag, err := tx.Exec(ctx,
		`UPDATE refresh_tokens SET revoked = true, replaced_by = $1 WHERE id = $2 AND revoked = false`,
		next.ID, oldID,
	)
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", classify(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("rotate refresh token %s: %w", oldID, ErrNotFound)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO refresh_tokens (id, account_id, role, token_hash, expires_at) VALUES ($1,$2,$3,$4,$5)`,
		next.ID, next.AccountID, string(next.Role), next.TokenHash, next.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("insert refresh token: %w", classify(err))
	}

	return tx.Commit(ctx)
}

// RevokeAllRefreshTokens is used on logout and when a revoked token is replayed.
func (s *Store) RevokeAllRefreshTokens(ctx context.Context, accountID string, role model.Role) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE refresh_tokens SET revoked = true WHERE account_id = $1 AND role = $2 AND revoked = false`,
		accountID, string(role),
	)
	return classify(err)
}
