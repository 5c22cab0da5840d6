package interconsulta_test

import (
	"testing"

	"github.com/portlink/interconsulta/pkg/icsdk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFullLifecycle walks one request from draft to closed across the three
// roles and checks the recorded history afterwards.
func TestFullLifecycle(t *testing.T) {
	baseURL, cleanup := setupContainer(t)
	defer cleanup()

	requester, reviewer := seedAccounts(t, baseURL)

	created, err := requester.CreateInterconsulta(t.Context(), icsdk.CreateInterconsultaRequest{
		Subject:  "crane availability",
		Category: "operations",
		Payload:  "is STS crane 3 available for a Thursday night shift?",
	})
	require.NoError(t, err)
	assert.Equal(t, "draft", created.Status)
	assert.EqualValues(t, 1, created.Version)

	submitted, err := requester.SubmitInterconsulta(t.Context(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "submitted", submitted.Status)

	claimed, err := reviewer.ClaimInterconsulta(t.Context(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "under_review", claimed.Status)
	assert.NotEmpty(t, claimed.ReviewerID)

	responded, err := reviewer.RespondInterconsulta(t.Context(), created.ID,
		"crane 3 is free from 22:00, booking confirmed")
	require.NoError(t, err)
	assert.Equal(t, "responded", responded.Status)

	closed, err := requester.CloseInterconsulta(t.Context(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "closed", closed.Status)
	assert.EqualValues(t, 5, closed.Version)

	// Creation is not a transition, so four entries cover the whole journey.
	final, err := requester.GetInterconsulta(t.Context(), created.ID)
	require.NoError(t, err)
	require.Len(t, final.History, 4)
	assert.Equal(t, "submitted", final.History[0].To)
	assert.Equal(t, "under_review", final.History[1].To)
	assert.Equal(t, "responded", final.History[2].To)
	assert.Equal(t, "closed", final.History[3].To)
}

// TestRejectPath verifies a reviewer can refuse a submitted request with a
// note, and that the note lands in the history.
func TestRejectPath(t *testing.T) {
	baseURL, cleanup := setupContainer(t)
	defer cleanup()

	requester, reviewer := seedAccounts(t, baseURL)

	created, err := requester.CreateInterconsulta(t.Context(), icsdk.CreateInterconsultaRequest{
		Subject: "tariff clarification",
		Payload: "which tariff class applies to refrigerated transshipment?",
	})
	require.NoError(t, err)

	_, err = requester.SubmitInterconsulta(t.Context(), created.ID)
	require.NoError(t, err)

	rejected, err := reviewer.RejectInterconsulta(t.Context(), created.ID,
		"duplicate of an open request, see INC-2231")
	require.NoError(t, err)
	assert.Equal(t, "rejected", rejected.Status)

	require.NotEmpty(t, rejected.History)
	last := rejected.History[len(rejected.History)-1]
	assert.Equal(t, "rejected", last.To)
	assert.Contains(t, last.Note, "duplicate")
}

// TestInvalidTransitionConflicts verifies out-of-order operations come back
// as 409 invalid_transition.
func TestInvalidTransitionConflicts(t *testing.T) {
	baseURL, cleanup := setupContainer(t)
	defer cleanup()

	requester, reviewer := seedAccounts(t, baseURL)

	created, err := requester.CreateInterconsulta(t.Context(), icsdk.CreateInterconsultaRequest{
		Subject: "gate pass renewal",
		Payload: "annual gate pass renewal for haulage contractor fleet",
	})
	require.NoError(t, err)

	// Claiming a draft skips the queue.
	_, err = reviewer.ClaimInterconsulta(t.Context(), created.ID)
	requireAPIError(t, err, icsdk.ErrorCodeInvalidTransition)

	_, err = requester.SubmitInterconsulta(t.Context(), created.ID)
	require.NoError(t, err)

	// Double submit.
	_, err = requester.SubmitInterconsulta(t.Context(), created.ID)
	requireAPIError(t, err, icsdk.ErrorCodeInvalidTransition)
}

// TestVisibilityRules verifies requesters cannot see each other's requests
// and that a missing id and a foreign id are distinguishable only by the
// caller's own access.
func TestVisibilityRules(t *testing.T) {
	baseURL, cleanup := setupContainer(t)
	defer cleanup()

	requester, _ := seedAccounts(t, baseURL)
	admin := loginAdmin(t, baseURL)

	_, err := admin.CreatePrincipal(t.Context(), icsdk.CreatePrincipalRequest{
		Username: "other-agent",
		Secret:   "Other123!",
		Role:     "requester",
	})
	require.NoError(t, err)

	other, err := icsdk.NewClient(baseURL).Login(t.Context(), "other-agent", "Other123!")
	require.NoError(t, err)

	created, err := requester.CreateInterconsulta(t.Context(), icsdk.CreateInterconsultaRequest{
		Subject: "pilotage fees",
		Payload: "requesting the current pilotage fee schedule",
	})
	require.NoError(t, err)

	// Someone else's draft is invisible.
	_, err = other.GetInterconsulta(t.Context(), created.ID)
	requireAPIError(t, err, icsdk.ErrorCodeForbidden)

	// A missing id is a plain not found for its owner role.
	_, err = requester.GetInterconsulta(t.Context(), "01ARZ3NDEKTSV4RRFFQ69G5FAV")
	requireAPIError(t, err, icsdk.ErrorCodeNotFound)

	items, err := other.ListInterconsultas(t.Context(), "")
	require.NoError(t, err)
	assert.Empty(t, items)

	mine, err := requester.ListInterconsultas(t.Context(), "")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, created.ID, mine[0].ID)
}

// TestReviewerQueue verifies submitted requests show up for every reviewer
// until someone claims them.
func TestReviewerQueue(t *testing.T) {
	baseURL, cleanup := setupContainer(t)
	defer cleanup()

	requester, reviewer := seedAccounts(t, baseURL)

	created, err := requester.CreateInterconsulta(t.Context(), icsdk.CreateInterconsultaRequest{
		Subject: "customs inspection slot",
		Payload: "need an inspection slot for a flagged container",
	})
	require.NoError(t, err)

	// Invisible to reviewers while still a draft.
	queue, err := reviewer.ListInterconsultas(t.Context(), "")
	require.NoError(t, err)
	assert.Empty(t, queue)

	_, err = requester.SubmitInterconsulta(t.Context(), created.ID)
	require.NoError(t, err)

	queue, err = reviewer.ListInterconsultas(t.Context(), "submitted")
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, created.ID, queue[0].ID)
}

// TestPrincipalManagementRequiresAdmin verifies non-admin callers cannot
// create accounts.
func TestPrincipalManagementRequiresAdmin(t *testing.T) {
	baseURL, cleanup := setupContainer(t)
	defer cleanup()

	requester, _ := seedAccounts(t, baseURL)

	_, err := requester.CreatePrincipal(t.Context(), icsdk.CreatePrincipalRequest{
		Username: "sneaky",
		Secret:   "Sneaky123!",
		Role:     "administrator",
	})
	requireAPIError(t, err, icsdk.ErrorCodeForbidden)
}

// TestDuplicateUsernameConflicts verifies username uniqueness surfaces as
// 409 username_taken.
func TestDuplicateUsernameConflicts(t *testing.T) {
	baseURL, cleanup := setupContainer(t)
	defer cleanup()

	admin := loginAdmin(t, baseURL)

	req := icsdk.CreatePrincipalRequest{
		Username: "duplicated",
		Secret:   "Duplicated123!",
		Role:     "requester",
	}

	_, err := admin.CreatePrincipal(t.Context(), req)
	require.NoError(t, err)

	_, err = admin.CreatePrincipal(t.Context(), req)
	requireAPIError(t, err, icsdk.ErrorCodeUsernameTaken)
}
