package service_test

import (
	"context"
	"testing"

	"github.com/portlink/interconsulta/internal/interconsulta/domain"
	"github.com/portlink/interconsulta/internal/interconsulta/service"
	"github.com/portlink/interconsulta/internal/interconsulta/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createDraft(t *testing.T, env *testEnv, requester domain.Identity) domain.Interconsulta {
	t.Helper()

	e, err := env.Lifecycle.Create(context.Background(), requester, service.CreateInput{
		Subject:  "Container weight discrepancy",
		Category: "customs",
		Payload:  "Manifest lists 18t, scale reads 21t.",
	})
	require.NoError(t, err)
	return e
}

func TestFullLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	requester := seedPrincipal(t, env.Store, "agent.maria", "harbour-gate-7", domain.RoleRequester)
	reviewer := seedPrincipal(t, env.Store, "broker.karim", "quay-side-9", domain.RoleReviewer)

	e := createDraft(t, env, requester)
	assert.Equal(t, domain.StatusDraft, e.Status)
	assert.Equal(t, int64(1), e.Version)
	assert.Empty(t, e.History)

	e, err := env.Lifecycle.Submit(ctx, requester, e.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSubmitted, e.Status)

	e, err = env.Lifecycle.Claim(ctx, reviewer, e.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusUnderReview, e.Status)
	assert.Equal(t, reviewer.PrincipalID, e.ReviewerID)

	e, err = env.Lifecycle.Respond(ctx, reviewer, e.ID, "Scale recalibrated; manifest stands.")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusResponded, e.Status)
	assert.Equal(t, "Scale recalibrated; manifest stands.", e.Response)

	e, err = env.Lifecycle.Close(ctx, requester, e.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusClosed, e.Status)
	assert.Equal(t, int64(5), e.Version)

	// One history entry per transition, in order; creation adds none.
	got, err := env.Lifecycle.Get(ctx, requester, e.ID)
	require.NoError(t, err)
	require.Len(t, got.History, 4)
	assert.Equal(t, domain.StatusSubmitted, got.History[0].To)
	assert.Equal(t, domain.StatusUnderReview, got.History[1].To)
	assert.Equal(t, domain.StatusResponded, got.History[2].To)
	assert.Equal(t, domain.StatusClosed, got.History[3].To)
	assert.Equal(t, requester.PrincipalID, got.History[0].ActorID)
	assert.Equal(t, reviewer.PrincipalID, got.History[1].ActorID)
}

func TestRejectRequiresNote(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	requester := seedPrincipal(t, env.Store, "agent.maria", "harbour-gate-7", domain.RoleRequester)
	reviewer := seedPrincipal(t, env.Store, "broker.karim", "quay-side-9", domain.RoleReviewer)

	e := createDraft(t, env, requester)
	e, err := env.Lifecycle.Submit(ctx, requester, e.ID)
	require.NoError(t, err)

	_, err = env.Lifecycle.Reject(ctx, reviewer, e.ID, "")
	assert.True(t, service.IsValidation(err))

	e, err = env.Lifecycle.Reject(ctx, reviewer, e.ID, "Duplicate of an open query.")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, e.Status)
	require.Len(t, e.History, 1)
	assert.Equal(t, "Duplicate of an open query.", e.History[0].Note)
}

func TestInvalidTransitions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	requester := seedPrincipal(t, env.Store, "agent.maria", "harbour-gate-7", domain.RoleRequester)
	reviewer := seedPrincipal(t, env.Store, "broker.karim", "quay-side-9", domain.RoleReviewer)

	e := createDraft(t, env, requester)

	// A draft cannot be claimed or responded to.
	_, err := env.Lifecycle.Claim(ctx, reviewer, e.ID)
	assert.ErrorIs(t, err, service.ErrForbidden) // reviewers cannot even see drafts

	e, err = env.Lifecycle.Submit(ctx, requester, e.ID)
	require.NoError(t, err)

	// Submitting twice fails on the state machine.
	_, err = env.Lifecycle.Submit(ctx, requester, e.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	e, err = env.Lifecycle.Claim(ctx, reviewer, e.ID)
	require.NoError(t, err)
	e, err = env.Lifecycle.Respond(ctx, reviewer, e.ID, "All clear.")
	require.NoError(t, err)
	e, err = env.Lifecycle.Close(ctx, requester, e.ID)
	require.NoError(t, err)

	// Closed is terminal: closing again is an invalid transition, and the
	// stored request is untouched by the failed attempt.
	_, err = env.Lifecycle.Close(ctx, requester, e.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	got, err := env.Lifecycle.Get(ctx, requester, e.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusClosed, got.Status)
	assert.Equal(t, e.Version, got.Version)
	assert.Len(t, got.History, 4)
}

func TestForbiddenDoesNotLeakExistence(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	requester := seedPrincipal(t, env.Store, "agent.maria", "harbour-gate-7", domain.RoleRequester)
	otherRequester := seedPrincipal(t, env.Store, "agent.joao", "dockside-11", domain.RoleRequester)

	e := createDraft(t, env, requester)

	// An action the role can never perform fails identically whether the
	// request exists or not.
	_, errExisting := env.Lifecycle.Respond(ctx, requester, e.ID, "answer")
	_, errMissing := env.Lifecycle.Respond(ctx, requester, "no-such-id", "answer")
	assert.ErrorIs(t, errExisting, service.ErrForbidden)
	assert.ErrorIs(t, errMissing, service.ErrForbidden)

	// A viewer whose role may view gets NotFound for a missing id, but
	// Forbidden for someone else's request.
	_, err := env.Lifecycle.Get(ctx, otherRequester, "no-such-id")
	assert.ErrorIs(t, err, service.ErrNotFound)
	_, err = env.Lifecycle.Get(ctx, otherRequester, e.ID)
	assert.ErrorIs(t, err, service.ErrForbidden)
}

func TestCreateValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	requester := seedPrincipal(t, env.Store, "agent.maria", "harbour-gate-7", domain.RoleRequester)

	_, err := env.Lifecycle.Create(ctx, requester, service.CreateInput{Subject: "", Payload: "body"})
	assert.True(t, service.IsValidation(err))

	_, err = env.Lifecycle.Create(ctx, requester, service.CreateInput{Subject: "subject", Payload: "   "})
	assert.True(t, service.IsValidation(err))

	reviewer := seedPrincipal(t, env.Store, "broker.karim", "quay-side-9", domain.RoleReviewer)
	_, err = env.Lifecycle.Create(ctx, reviewer, service.CreateInput{Subject: "s", Payload: "p"})
	assert.ErrorIs(t, err, service.ErrForbidden)
}

func TestListVisibility(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	requester := seedPrincipal(t, env.Store, "agent.maria", "harbour-gate-7", domain.RoleRequester)
	other := seedPrincipal(t, env.Store, "agent.joao", "dockside-11", domain.RoleRequester)
	reviewer := seedPrincipal(t, env.Store, "broker.karim", "quay-side-9", domain.RoleReviewer)
	admin := seedPrincipal(t, env.Store, "ops.admin", "port-control-1", domain.RoleAdministrator)

	mine := createDraft(t, env, requester)
	theirs := createDraft(t, env, other)

	_, err := env.Lifecycle.Submit(ctx, other, theirs.ID)
	require.NoError(t, err)

	// Requesters only see their own.
	list, err := env.Lifecycle.List(ctx, requester, nil)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, mine.ID, list[0].ID)

	// Reviewers see the submitted queue, not drafts.
	list, err = env.Lifecycle.List(ctx, reviewer, nil)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, theirs.ID, list[0].ID)

	// After claiming, the assignment shows up even without a filter.
	_, err = env.Lifecycle.Claim(ctx, reviewer, theirs.ID)
	require.NoError(t, err)
	underReview := domain.StatusUnderReview
	list, err = env.Lifecycle.List(ctx, reviewer, &underReview)
	require.NoError(t, err)
	require.Len(t, list, 1)

	// Administrators see everything.
	list, err = env.Lifecycle.List(ctx, admin, nil)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

// staleGetStore serves a frozen snapshot from reads while writes go to the
// real database, simulating a second writer racing the caller.
type staleGetStore struct {
	store.Store
	snapshot domain.Interconsulta
}

func (s *staleGetStore) Interconsultas() store.Interconsultas {
	return &staleGetRepo{Interconsultas: s.Store.Interconsultas(), snapshot: s.snapshot}
}

type staleGetRepo struct {
	store.Interconsultas
	snapshot domain.Interconsulta
}

func (r *staleGetRepo) Get(ctx context.Context, id string) (domain.Interconsulta, error) {
	return r.snapshot, nil
}

func TestConcurrentModification(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	requester := seedPrincipal(t, env.Store, "agent.maria", "harbour-gate-7", domain.RoleRequester)
	e := createDraft(t, env, requester)

	// Another writer advances the request after our snapshot was read.
	_, err := env.Lifecycle.Submit(ctx, requester, e.ID)
	require.NoError(t, err)

	staleLifecycle := &service.LifecycleService{
		Store: &staleGetStore{Store: env.Store, snapshot: e},
	}
	_, err = staleLifecycle.Submit(ctx, requester, e.ID)
	assert.ErrorIs(t, err, service.ErrConcurrentModification)

	// The winning transition is intact.
	got, err := env.Lifecycle.Get(ctx, requester, e.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSubmitted, got.Status)
	assert.Equal(t, int64(2), got.Version)
	assert.Len(t, got.History, 1)
}
