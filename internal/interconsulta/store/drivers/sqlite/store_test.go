package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/portlink/interconsulta/internal/interconsulta/domain"
	"github.com/portlink/interconsulta/internal/interconsulta/store"
	"github.com/portlink/interconsulta/pkg/idx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func seedPrincipal(t *testing.T, s *Store, username string, role domain.Role) domain.Principal {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Second)
	p := domain.Principal{
		ID:         idx.New().String(),
		Username:   username,
		SecretHash: "$argon2id$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		Role:       role,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, s.Principals().CreatePrincipal(context.Background(), p))
	return p
}

func seedInterconsulta(t *testing.T, s *Store, requesterID string) domain.Interconsulta {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Second)
	e := domain.Interconsulta{
		ID:          idx.New().String(),
		RequesterID: requesterID,
		Subject:     "Container weight discrepancy",
		Category:    "customs",
		Payload:     "Manifest lists 18t, scale reads 21t.",
		Status:      domain.StatusDraft,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, s.Interconsultas().Create(context.Background(), e))
	return e
}

func TestPrincipalsCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	empty, err := s.Principals().IsEmpty(ctx)
	require.NoError(t, err)
	assert.True(t, empty)

	p := seedPrincipal(t, s, "agent.maria", domain.RoleRequester)

	empty, err = s.Principals().IsEmpty(ctx)
	require.NoError(t, err)
	assert.False(t, empty)

	got, err := s.Principals().GetPrincipalByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Username, got.Username)
	assert.Equal(t, domain.RoleRequester, got.Role)

	got, err = s.Principals().GetPrincipalByUsername(ctx, "agent.maria")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	_, err = s.Principals().GetPrincipalByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Duplicate username rejected.
	dup := p
	dup.ID = idx.New().String()
	assert.ErrorIs(t, s.Principals().CreatePrincipal(ctx, dup), store.ErrAlreadyExists)

	require.NoError(t, s.Principals().UpdateRole(ctx, p.ID, domain.RoleReviewer))
	got, err = s.Principals().GetPrincipalByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleReviewer, got.Role)

	assert.ErrorIs(t, s.Principals().UpdateRole(ctx, "missing", domain.RoleReviewer), store.ErrNotFound)

	require.NoError(t, s.Principals().UpdateSecretHash(ctx, p.ID, "newhash"))
	got, err = s.Principals().GetPrincipalByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "newhash", got.SecretHash)
}

func TestInterconsultasCreateGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	requester := seedPrincipal(t, s, "agent.maria", domain.RoleRequester)
	e := seedInterconsulta(t, s, requester.ID)

	got, err := s.Interconsultas().Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.Subject, got.Subject)
	assert.Equal(t, domain.StatusDraft, got.Status)
	assert.Equal(t, int64(1), got.Version)
	assert.Empty(t, got.History)
	assert.Empty(t, got.ReviewerID)

	_, err = s.Interconsultas().Get(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.ErrorIs(t, s.Interconsultas().Create(ctx, e), store.ErrAlreadyExists)
}

func TestInterconsultasUpdateVersionConflict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	requester := seedPrincipal(t, s, "agent.maria", domain.RoleRequester)
	e := seedInterconsulta(t, s, requester.ID)

	now := time.Now().UTC().Truncate(time.Second)
	updated := e
	require.NoError(t, updated.Submit(requester.ID, now))
	updated.Version = e.Version + 1

	require.NoError(t, s.Interconsultas().Update(ctx, updated, e.Version))

	// A second write against the version we originally read loses.
	stale := e
	require.NoError(t, stale.Submit(requester.ID, now))
	stale.Version = e.Version + 1
	assert.ErrorIs(t, s.Interconsultas().Update(ctx, stale, e.Version), store.ErrVersionConflict)

	// A missing row is not a conflict.
	ghost := updated
	ghost.ID = "missing"
	assert.ErrorIs(t, s.Interconsultas().Update(ctx, ghost, 1), store.ErrNotFound)

	got, err := s.Interconsultas().Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSubmitted, got.Status)
	assert.Equal(t, int64(2), got.Version)
}

func TestInterconsultasHistoryOrdering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	requester := seedPrincipal(t, s, "agent.maria", domain.RoleRequester)
	reviewer := seedPrincipal(t, s, "broker.karim", domain.RoleReviewer)
	e := seedInterconsulta(t, s, requester.ID)

	base := time.Now().UTC().Truncate(time.Second)
	transitions := []domain.Transition{
		{From: domain.StatusDraft, To: domain.StatusSubmitted, ActorID: requester.ID, CreatedAt: base},
		{From: domain.StatusSubmitted, To: domain.StatusUnderReview, ActorID: reviewer.ID, CreatedAt: base.Add(time.Second)},
		{From: domain.StatusUnderReview, To: domain.StatusResponded, ActorID: reviewer.ID, CreatedAt: base.Add(2 * time.Second)},
	}
	for _, tr := range transitions {
		require.NoError(t, s.Interconsultas().AppendHistory(ctx, e.ID, tr))
	}

	got, err := s.Interconsultas().Get(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, got.History, 3)
	assert.Equal(t, domain.StatusSubmitted, got.History[0].To)
	assert.Equal(t, domain.StatusUnderReview, got.History[1].To)
	assert.Equal(t, domain.StatusResponded, got.History[2].To)
}

func TestInterconsultasUpdateWithHistoryInTx(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	requester := seedPrincipal(t, s, "agent.maria", domain.RoleRequester)
	e := seedInterconsulta(t, s, requester.ID)

	now := time.Now().UTC().Truncate(time.Second)
	updated := e
	require.NoError(t, updated.Submit(requester.ID, now))
	updated.Version = e.Version + 1

	err := s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Interconsultas().Update(ctx, updated, e.Version); err != nil {
			return err
		}
		return tx.Interconsultas().AppendHistory(ctx, e.ID, updated.History[len(updated.History)-1])
	})
	require.NoError(t, err)

	got, err := s.Interconsultas().Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSubmitted, got.Status)
	require.Len(t, got.History, 1)
	assert.Equal(t, requester.ID, got.History[0].ActorID)
}

func TestInterconsultasTxRollbackOnConflict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	requester := seedPrincipal(t, s, "agent.maria", domain.RoleRequester)
	e := seedInterconsulta(t, s, requester.ID)

	now := time.Now().UTC().Truncate(time.Second)
	updated := e
	require.NoError(t, updated.Submit(requester.ID, now))
	updated.Version = e.Version + 1

	err := s.WithTx(ctx, func(tx store.Tx) error {
		// Wrong readVersion: the whole tx must roll back, leaving no history.
		if err := tx.Interconsultas().Update(ctx, updated, 99); err != nil {
			return err
		}
		return tx.Interconsultas().AppendHistory(ctx, e.ID, updated.History[0])
	})
	assert.ErrorIs(t, err, store.ErrVersionConflict)

	got, err := s.Interconsultas().Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, got.Status)
	assert.Empty(t, got.History)
}

func TestInterconsultasListing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	requester := seedPrincipal(t, s, "agent.maria", domain.RoleRequester)
	other := seedPrincipal(t, s, "agent.joao", domain.RoleRequester)
	reviewer := seedPrincipal(t, s, "broker.karim", domain.RoleReviewer)

	first := seedInterconsulta(t, s, requester.ID)
	second := seedInterconsulta(t, s, requester.ID)
	_ = seedInterconsulta(t, s, other.ID)

	// Move second under review with a reviewer assigned.
	now := time.Now().UTC().Truncate(time.Second)
	moved := second
	require.NoError(t, moved.Submit(requester.ID, now))
	require.NoError(t, moved.BeginReview(reviewer.ID, now))
	moved.Version = second.Version + 1
	require.NoError(t, s.Interconsultas().Update(ctx, moved, second.Version))

	mine, err := s.Interconsultas().ListByRequester(ctx, requester.ID, nil)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	// ULIDs are lexicographically time-ordered; newest first.
	assert.Equal(t, second.ID, mine[0].ID)
	assert.Equal(t, first.ID, mine[1].ID)

	draft := domain.StatusDraft
	mine, err = s.Interconsultas().ListByRequester(ctx, requester.ID, &draft)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, first.ID, mine[0].ID)

	assigned, err := s.Interconsultas().ListByReviewer(ctx, reviewer.ID, nil)
	require.NoError(t, err)
	require.Len(t, assigned, 1)
	assert.Equal(t, second.ID, assigned[0].ID)

	underReview, err := s.Interconsultas().ListByStatus(ctx, domain.StatusUnderReview)
	require.NoError(t, err)
	require.Len(t, underReview, 1)

	all, err := s.Interconsultas().List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestRefreshTokens(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := seedPrincipal(t, s, "agent.maria", domain.RoleRequester)

	now := time.Now().UTC().Truncate(time.Second)
	tok := domain.RefreshToken{
		ID:          idx.New().String(),
		PrincipalID: p.ID,
		TokenHash:   "hash-1",
		ExpiresAt:   now.Add(24 * time.Hour),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, tok))

	got, err := s.RefreshTokens().GetRefreshTokenByHash(ctx, "hash-1")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.PrincipalID)
	assert.False(t, got.Revoked)

	_, err = s.RefreshTokens().GetRefreshTokenByHash(ctx, "unknown")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.RefreshTokens().RevokeRefreshToken(ctx, "hash-1"))
	got, err = s.RefreshTokens().GetRefreshTokenByHash(ctx, "hash-1")
	require.NoError(t, err)
	assert.True(t, got.Revoked)

	assert.ErrorIs(t, s.RefreshTokens().RevokeRefreshToken(ctx, "unknown"), store.ErrNotFound)

	// Bulk revoke touches only the principal's tokens.
	second := tok
	second.ID = idx.New().String()
	second.TokenHash = "hash-2"
	require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, second))
	require.NoError(t, s.RefreshTokens().RevokeAllForPrincipal(ctx, p.ID))

	got, err = s.RefreshTokens().GetRefreshTokenByHash(ctx, "hash-2")
	require.NoError(t, err)
	assert.True(t, got.Revoked)

	// Expired entries are swept.
	expired := tok
	expired.ID = idx.New().String()
	expired.TokenHash = "hash-3"
	expired.ExpiresAt = now.Add(-time.Hour)
	require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, expired))
	require.NoError(t, s.RefreshTokens().DeleteExpiredRefreshTokens(ctx))
	_, err = s.RefreshTokens().GetRefreshTokenByHash(ctx, "hash-3")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRevokedTokens(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	entry := domain.RevokedToken{
		JTI:       idx.New().String(),
		ExpiresAt: now.Add(30 * time.Minute),
		CreatedAt: now,
	}
	require.NoError(t, s.RevokedTokens().RevokeAccessToken(ctx, entry))

	revoked, err := s.RevokedTokens().IsAccessTokenRevoked(ctx, entry.JTI)
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = s.RevokedTokens().IsAccessTokenRevoked(ctx, "other")
	require.NoError(t, err)
	assert.False(t, revoked)

	// Idempotent.
	require.NoError(t, s.RevokedTokens().RevokeAccessToken(ctx, entry))

	stale := domain.RevokedToken{
		JTI:       idx.New().String(),
		ExpiresAt: now.Add(-time.Minute),
		CreatedAt: now.Add(-time.Hour),
	}
	require.NoError(t, s.RevokedTokens().RevokeAccessToken(ctx, stale))
	require.NoError(t, s.RevokedTokens().DeleteExpiredRevocations(ctx))

	revoked, err = s.RevokedTokens().IsAccessTokenRevoked(ctx, stale.JTI)
	require.NoError(t, err)
	assert.False(t, revoked)
}
