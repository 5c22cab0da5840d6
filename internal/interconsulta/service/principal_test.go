package service_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/portlink/interconsulta/internal/interconsulta/domain"
	"github.com/portlink/interconsulta/internal/interconsulta/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePrincipal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	admin := seedPrincipal(t, env.Store, "ops.admin", "port-control-1", domain.RoleAdministrator)
	requester := seedPrincipal(t, env.Store, "agent.maria", "harbour-gate-7", domain.RoleRequester)

	p, err := env.Principals.CreatePrincipal(ctx, admin, "broker.karim", "quay-side-9", domain.RoleReviewer)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleReviewer, p.Role)
	assert.NotContains(t, p.SecretHash, "quay-side-9")

	// The new account can log in.
	_, err = env.Tokens.Login(ctx, "broker.karim", "quay-side-9")
	require.NoError(t, err)

	// Only administrators manage principals.
	_, err = env.Principals.CreatePrincipal(ctx, requester, "someone", "long-enough-secret", domain.RoleRequester)
	assert.ErrorIs(t, err, service.ErrForbidden)

	// Duplicates and weak secrets are rejected.
	_, err = env.Principals.CreatePrincipal(ctx, admin, "broker.karim", "another-secret", domain.RoleReviewer)
	assert.ErrorIs(t, err, service.ErrUsernameTaken)
	_, err = env.Principals.CreatePrincipal(ctx, admin, "weak.user", "short", domain.RoleRequester)
	assert.True(t, service.IsValidation(err))
}

func TestSetRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	admin := seedPrincipal(t, env.Store, "ops.admin", "port-control-1", domain.RoleAdministrator)
	target := seedPrincipal(t, env.Store, "agent.maria", "harbour-gate-7", domain.RoleRequester)

	require.NoError(t, env.Principals.SetRole(ctx, admin, target.PrincipalID, domain.RoleReviewer))

	got, err := env.Store.Principals().GetPrincipalByID(ctx, target.PrincipalID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleReviewer, got.Role)

	assert.ErrorIs(t, env.Principals.SetRole(ctx, admin, "missing", domain.RoleReviewer), service.ErrNotFound)
	assert.ErrorIs(t, env.Principals.SetRole(ctx, target, admin.PrincipalID, domain.RoleRequester), service.ErrForbidden)
}

func TestBootstrapEnsureAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	boot := &service.BootstrapService{
		Store:         env.Store,
		Logger:        slog.Default(),
		AdminUsername: "ops.admin",
		AdminSecret:   "port-control-1",
	}
	require.NoError(t, boot.EnsureAdmin(ctx))

	p, err := env.Store.Principals().GetPrincipalByUsername(ctx, "ops.admin")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdministrator, p.Role)

	// Idempotent: a populated table is left alone.
	require.NoError(t, boot.EnsureAdmin(ctx))

	// And it never overwrites an existing population.
	boot2 := &service.BootstrapService{
		Store:         env.Store,
		Logger:        slog.Default(),
		AdminUsername: "second.admin",
		AdminSecret:   "another-secret",
	}
	require.NoError(t, boot2.EnsureAdmin(ctx))
	_, err = env.Store.Principals().GetPrincipalByUsername(ctx, "second.admin")
	assert.Error(t, err)
}
