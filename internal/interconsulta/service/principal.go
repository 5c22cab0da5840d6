package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/portlink/interconsulta/internal/interconsulta/domain"
	"github.com/portlink/interconsulta/internal/interconsulta/store"
	"github.com/portlink/interconsulta/pkg/cryptox"
	"github.com/portlink/interconsulta/pkg/idx"
	"github.com/portlink/interconsulta/pkg/slogx"
)

const minSecretLen = 8

var ErrUsernameTaken = errors.New("username_taken")

// PrincipalService is the administrator surface for managing accounts.
type PrincipalService struct {
	Store store.Store
	Guard Guard

	// Tokens lets role reassignment cut existing sessions short.
	Tokens *TokenService
}

// CreatePrincipal registers a new account. Administrator only.
func (s *PrincipalService) CreatePrincipal(ctx context.Context, id domain.Identity, username, secret string, role domain.Role) (domain.Principal, error) {
	if err := s.Guard.AuthorizeAction(id, ActionManagePrincipals); err != nil {
		return domain.Principal{}, err
	}

	username = strings.TrimSpace(username)
	if username == "" {
		return domain.Principal{}, invalidField("username", "must not be empty")
	}
	if len(secret) < minSecretLen {
		return domain.Principal{}, invalidField("secret", "too short")
	}
	if _, err := domain.ParseRole(role.String()); err != nil {
		return domain.Principal{}, invalidField("role", "unknown")
	}

	hash, err := cryptox.HashSecret(secret)
	if err != nil {
		return domain.Principal{}, err
	}

	now := time.Now().UTC()
	p := domain.Principal{
		ID:         idx.New().String(),
		Username:   username,
		SecretHash: hash,
		Role:       role,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.Store.Principals().CreatePrincipal(ctx, p); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Principal{}, ErrUsernameTaken
		}
		return domain.Principal{}, err
	}

	slogx.FromContext(ctx).Info("principal created",
		slog.String("principal_id", p.ID),
		slog.String("role", role.String()),
	)
	return p, nil
}

// SetRole reassigns a principal's role and revokes their refresh tokens, so
// the old role survives at most one access-token lifetime.
func (s *PrincipalService) SetRole(ctx context.Context, id domain.Identity, principalID string, role domain.Role) error {
	if err := s.Guard.AuthorizeAction(id, ActionManagePrincipals); err != nil {
		return err
	}
	if _, err := domain.ParseRole(role.String()); err != nil {
		return invalidField("role", "unknown")
	}

	if err := s.Store.Principals().UpdateRole(ctx, principalID, role); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	if s.Tokens != nil {
		if err := s.Tokens.RevokeAllForPrincipal(ctx, principalID); err != nil {
			return err
		}
	}

	slogx.FromContext(ctx).Info("principal role reassigned",
		slog.String("principal_id", principalID),
		slog.String("role", role.String()),
	)
	return nil
}
