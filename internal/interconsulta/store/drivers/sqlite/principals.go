package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/portlink/interconsulta/internal/interconsulta/domain"
	"github.com/portlink/interconsulta/internal/interconsulta/store"
)

type principalsRepo struct {
	db dbtx
}

const principalColumns = `id, username, secret_hash, role, created_at, updated_at`

func (r *principalsRepo) scanPrincipal(row interface{ Scan(...any) error }) (domain.Principal, error) {
	var p domain.Principal
	var role string
	err := row.Scan(&p.ID, &p.Username, &p.SecretHash, &role, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return domain.Principal{}, mapNotFound(err)
	}
	p.Role, err = domain.ParseRole(role)
	if err != nil {
		return domain.Principal{}, err
	}
	return p, nil
}

func (r *principalsRepo) GetPrincipalByID(ctx context.Context, id string) (domain.Principal, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+principalColumns+` FROM principals WHERE id = ?`, id)
	return r.scanPrincipal(row)
}

func (r *principalsRepo) GetPrincipalByUsername(ctx context.Context, username string) (domain.Principal, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+principalColumns+` FROM principals WHERE username = ?`, username)
	return r.scanPrincipal(row)
}

func (r *principalsRepo) CreatePrincipal(ctx context.Context, p domain.Principal) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO principals (id, username, secret_hash, role, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.Username, p.SecretHash, p.Role.String(), p.CreatedAt, p.UpdatedAt)
	if err != nil && isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *principalsRepo) UpdateRole(ctx context.Context, principalID string, role domain.Role) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE principals SET role = ?, updated_at = ? WHERE id = ?`,
		role.String(), time.Now().UTC(), principalID)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func (r *principalsRepo) UpdateSecretHash(ctx context.Context, principalID string, newHash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE principals SET secret_hash = ?, updated_at = ? WHERE id = ?`,
		newHash, time.Now().UTC(), principalID)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func (r *principalsRepo) IsEmpty(ctx context.Context) (bool, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM principals`).Scan(&count)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

// isUniqueViolation sniffs the driver error text; modernc.org/sqlite does not
// export typed constraint errors through database/sql.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
