package store

import (
	"context"
	"errors"

	"github.com/portlink/interconsulta/internal/interconsulta/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrVersionConflict reports an optimistic-concurrency failure: the
	// stored version advanced past the version the caller read.
	ErrVersionConflict = errors.New("store: version conflict")
)

// Store is the root data access interface. Concrete drivers (sqlite for now)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable.
type Store interface {
	Principals() Principals
	Interconsultas() Interconsultas
	RefreshTokens() RefreshTokens
	RevokedTokens() RevokedTokens

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, committing on nil and
	// rolling back on error. This is the recommended way to make a
	// multi-statement write (row update plus history append) atomic.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Principals interface {
	// GetPrincipalByID returns a principal by id.
	GetPrincipalByID(ctx context.Context, id string) (domain.Principal, error)

	// GetPrincipalByUsername is used during login.
	GetPrincipalByUsername(ctx context.Context, username string) (domain.Principal, error)

	// CreatePrincipal inserts a new principal (id is provided by app via ULID).
	CreatePrincipal(ctx context.Context, p domain.Principal) error

	// UpdateRole reassigns the role and bumps updated_at. Administrator-only
	// at the service layer; the store does not enforce policy.
	UpdateRole(ctx context.Context, principalID string, role domain.Role) error

	// UpdateSecretHash sets the secret_hash (argon2id) and bumps updated_at.
	UpdateSecretHash(ctx context.Context, principalID string, newHash string) error

	// IsEmpty returns true if there are no principals. Drives bootstrap.
	IsEmpty(ctx context.Context) (bool, error)
}

type Interconsultas interface {
	// Create inserts a new request. History starts empty.
	Create(ctx context.Context, e domain.Interconsulta) error

	// Get returns the request with its full ordered history.
	Get(ctx context.Context, id string) (domain.Interconsulta, error)

	// Update persists the request row if and only if the stored version
	// still equals readVersion; otherwise ErrVersionConflict. The entity
	// carries the already-incremented version to write.
	Update(ctx context.Context, e domain.Interconsulta, readVersion int64) error

	// AppendHistory adds one transition entry. Call inside the same
	// transaction as Update so a transition is never partially visible.
	AppendHistory(ctx context.Context, interconsultaID string, t domain.Transition) error

	// ListByRequester returns requests originated by the principal,
	// newest first, optionally filtered by status.
	ListByRequester(ctx context.Context, requesterID string, status *domain.Status) ([]domain.Interconsulta, error)

	// ListByReviewer returns requests assigned to the reviewer, newest
	// first, optionally filtered by status.
	ListByReviewer(ctx context.Context, reviewerID string, status *domain.Status) ([]domain.Interconsulta, error)

	// ListByStatus returns every request in the given status, newest first.
	ListByStatus(ctx context.Context, status domain.Status) ([]domain.Interconsulta, error)

	// List returns all requests, newest first, optionally filtered by status.
	List(ctx context.Context, status *domain.Status) ([]domain.Interconsulta, error)
}

type RefreshTokens interface {
	// CreateRefreshToken stores a new refresh token record.
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetRefreshTokenByHash returns the token by its SHA-256 fingerprint.
	GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error)

	// RevokeRefreshToken flips revoked=1, sets updated_at.
	RevokeRefreshToken(ctx context.Context, hash string) error

	// RevokeAllForPrincipal bulk revocation (e.g. role reassignment).
	RevokeAllForPrincipal(ctx context.Context, principalID string) error

	// DeleteExpiredRefreshTokens is housekeeping.
	DeleteExpiredRefreshTokens(ctx context.Context) error
}

type RevokedTokens interface {
	// RevokeAccessToken denylists an access token's jti until its expiry.
	RevokeAccessToken(ctx context.Context, t domain.RevokedToken) error

	// IsAccessTokenRevoked reports whether the jti is on the denylist.
	IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error)

	// DeleteExpiredRevocations is housekeeping; entries are useless once
	// the token they shadow has expired anyway.
	DeleteExpiredRevocations(ctx context.Context) error
}
