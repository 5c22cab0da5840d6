package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/portlink/interconsulta/internal/interconsulta/domain"
	"github.com/portlink/interconsulta/internal/interconsulta/service"
	"github.com/portlink/interconsulta/pkg/jwtx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginIssuesVerifiablePair(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	id := seedPrincipal(t, env.Store, "agent.maria", "harbour-gate-7", domain.RoleRequester)

	pair, err := env.Tokens.Login(ctx, "agent.maria", "harbour-gate-7")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.Equal(t, int64(jwtx.DefaultAccessTokenTTL.Seconds()), pair.ExpiresIn)

	got, err := env.Tokens.Verify(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, id.PrincipalID, got.PrincipalID)
	assert.Equal(t, domain.RoleRequester, got.Role)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	seedPrincipal(t, env.Store, "agent.maria", "harbour-gate-7", domain.RoleRequester)

	_, errWrongSecret := env.Tokens.Login(ctx, "agent.maria", "not-the-secret")
	_, errUnknownUser := env.Tokens.Login(ctx, "nobody", "whatever-secret")

	assert.ErrorIs(t, errWrongSecret, service.ErrInvalidCredentials)
	assert.ErrorIs(t, errUnknownUser, service.ErrInvalidCredentials)
	// Same sentinel, same message: the caller learns nothing about which
	// half of the pair was wrong.
	assert.Equal(t, errWrongSecret.Error(), errUnknownUser.Error())
}

func TestVerifyRejectsGarbageAndForeignTokens(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.Tokens.Verify(ctx, "not-a-jwt")
	assert.ErrorIs(t, err, service.ErrTokenInvalid)

	// A token signed by someone else's key fails as invalid, not expired.
	foreign, err := jwtx.GenerateSignerEdDSA("foreign")
	require.NoError(t, err)
	claims := jwtx.NewAccessClaims("intruder", "requester", "x", time.Minute, "test-issuer", nil, time.Now())
	tok, err := foreign.Sign(claims)
	require.NoError(t, err)

	_, err = env.Tokens.Verify(ctx, tok)
	assert.ErrorIs(t, err, service.ErrTokenInvalid)
}

func TestVerifyReportsExpiry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	claims := jwtx.NewAccessClaims("someone", "requester", "x", time.Minute, "test-issuer", nil,
		time.Now().Add(-time.Hour))
	tok, err := env.Tokens.Signer.Sign(claims)
	require.NoError(t, err)

	_, err = env.Tokens.Verify(ctx, tok)
	assert.ErrorIs(t, err, service.ErrTokenExpired)
}

func TestRefreshRotation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	seedPrincipal(t, env.Store, "agent.maria", "harbour-gate-7", domain.RoleRequester)
	pair, err := env.Tokens.Login(ctx, "agent.maria", "harbour-gate-7")
	require.NoError(t, err)

	rotated, err := env.Tokens.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	// The consumed refresh token is dead; replaying it fails.
	_, err = env.Tokens.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, service.ErrInvalidRefresh)

	// The rotated one still works.
	_, err = env.Tokens.Refresh(ctx, rotated.RefreshToken)
	require.NoError(t, err)
}

func TestRefreshRejectsUnknownToken(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.Tokens.Refresh(context.Background(), "never-issued")
	assert.ErrorIs(t, err, service.ErrInvalidRefresh)
}

func TestRevokeDenylistsAccessToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	seedPrincipal(t, env.Store, "agent.maria", "harbour-gate-7", domain.RoleRequester)
	pair, err := env.Tokens.Login(ctx, "agent.maria", "harbour-gate-7")
	require.NoError(t, err)

	_, err = env.Tokens.Verify(ctx, pair.AccessToken)
	require.NoError(t, err)

	require.NoError(t, env.Tokens.Revoke(ctx, pair.RefreshToken, pair.AccessToken))

	// The access token dies immediately even though it has not expired.
	_, err = env.Tokens.Verify(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, service.ErrTokenInvalid)

	// And the refresh token cannot be used again.
	_, err = env.Tokens.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, service.ErrInvalidRefresh)
}

func TestRevokeUnknownRefreshIsNoop(t *testing.T) {
	env := newTestEnv(t)
	assert.NoError(t, env.Tokens.Revoke(context.Background(), "never-issued", ""))
}

func TestRoleReassignmentCutsRefreshTokens(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	admin := seedPrincipal(t, env.Store, "ops.admin", "port-control-1", domain.RoleAdministrator)
	seedPrincipal(t, env.Store, "agent.maria", "harbour-gate-7", domain.RoleRequester)

	pair, err := env.Tokens.Login(ctx, "agent.maria", "harbour-gate-7")
	require.NoError(t, err)

	require.NoError(t, env.Principals.SetRole(ctx, admin, "agent.maria-id", domain.RoleReviewer))

	_, err = env.Tokens.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, service.ErrInvalidRefresh)

	// A fresh login carries the new role.
	pair, err = env.Tokens.Login(ctx, "agent.maria", "harbour-gate-7")
	require.NoError(t, err)
	got, err := env.Tokens.Verify(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleReviewer, got.Role)
}
