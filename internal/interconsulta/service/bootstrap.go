package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/portlink/interconsulta/internal/interconsulta/domain"
	"github.com/portlink/interconsulta/internal/interconsulta/store"
	"github.com/portlink/interconsulta/pkg/cryptox"
	"github.com/portlink/interconsulta/pkg/idx"
)

// BootstrapService seeds the first administrator from configuration so a
// fresh deployment is usable without poking the database by hand. It only
// ever acts on an empty principals table.
type BootstrapService struct {
	Store  store.Store
	Logger *slog.Logger

	AdminUsername string
	AdminSecret   string
}

// EnsureAdmin creates the configured administrator if no principal exists.
// A populated table or missing configuration makes this a no-op.
func (s *BootstrapService) EnsureAdmin(ctx context.Context) error {
	empty, err := s.Store.Principals().IsEmpty(ctx)
	if err != nil {
		return err
	}
	if !empty {
		return nil
	}

	if s.AdminUsername == "" || s.AdminSecret == "" {
		s.Logger.Warn("no principals exist and no bootstrap admin configured")
		return nil
	}

	hash, err := cryptox.HashSecret(s.AdminSecret)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	admin := domain.Principal{
		ID:         idx.New().String(),
		Username:   s.AdminUsername,
		SecretHash: hash,
		Role:       domain.RoleAdministrator,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.Store.Principals().CreatePrincipal(ctx, admin); err != nil {
		return err
	}

	s.Logger.Info("bootstrap administrator created",
		slog.String("principal_id", admin.ID),
		slog.String("username", admin.Username),
	)
	return nil
}
