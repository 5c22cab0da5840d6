package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/portlink/interconsulta/internal/interconsulta/domain"
)

type revokedTokensRepo struct {
	db dbtx
}

// RevokeAccessToken is idempotent; revoking the same jti twice is not an
// error.
func (r *revokedTokensRepo) RevokeAccessToken(ctx context.Context, t domain.RevokedToken) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO revoked_tokens (jti, expires_at, created_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT (jti) DO NOTHING`,
		t.JTI, t.ExpiresAt, t.CreatedAt)
	return err
}

func (r *revokedTokensRepo) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM revoked_tokens WHERE jti = ?`, jti).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *revokedTokensRepo) DeleteExpiredRevocations(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM revoked_tokens WHERE expires_at < ?`, time.Now().UTC())
	return err
}
