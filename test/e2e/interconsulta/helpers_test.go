package interconsulta_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/portlink/interconsulta/pkg/icsdk"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

/*
 * Common constants and helper functions for interconsulta service end-to-end
 * tests. This includes container setup, account seeding, and assertions.
 */

const (
	testImageName = "interconsulta-test:latest"

	adminUsername = "admin"
	adminSecret   = "Admin123!"

	requesterUsername = "harbour-ops"
	requesterSecret   = "Requester123!"

	reviewerUsername = "terminal-desk"
	reviewerSecret   = "Reviewer123!"
)

// TestMain manages the test lifecycle, builds the Docker image once before
// all tests and cleans it up after all tests complete.
func TestMain(m *testing.M) {
	fmt.Fprintf(os.Stdout, "Building Interconsulta Service Docker image...")

	if err := buildDockerImage(); err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to build Docker image: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, " done\n")

	exitCode := m.Run()

	fmt.Fprintf(os.Stdout, "Cleaning up Interconsulta Service Docker image...")
	cleanupDockerImage()
	fmt.Fprintf(os.Stdout, " done\n")

	os.Exit(exitCode)
}

func buildDockerImage() error {
	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "docker", "build",
		"-t", testImageName,
		"-f", "../../../cmd/interconsulta/Dockerfile",
		"../../../")
	cmd.Dir = "."
	cmd.Stdout = os.Stdout
	cmd.Stderr = nil

	return cmd.Run()
}

func cleanupDockerImage() {
	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "docker", "rmi", "-f", testImageName)
	_ = cmd.Run() // Ignore errors - image might not exist
}

// setupContainer starts the service in a container and returns the base URL.
// Rate limits are raised so rapid test requests never trip them.
func setupContainer(t *testing.T) (string, func()) {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        testImageName,
		ExposedPorts: []string{"8080/tcp"},
		Env: map[string]string{
			"ICS_DATABASE_FILE":  "/tmp/interconsulta.db",
			"ICS_PEPPER_FILE":    "/tmp/pepper",
			"ICS_ISSUER":         "interconsulta-test",
			"ICS_ADMIN_USERNAME": adminUsername,
			"ICS_ADMIN_SECRET":   adminSecret,
			"ENV":                "test",
			"LOG_LEVEL":          "info",
			"LOG_FORMAT":         "json",
			// Raise limits so rapid test requests never hit the production defaults.
			"RATELIMIT_STRICT_REQUESTS":   "1000",
			"RATELIMIT_STRICT_BURST":      "1000",
			"RATELIMIT_MODERATE_REQUESTS": "1000",
			"RATELIMIT_MODERATE_BURST":    "1000",
		},
		WaitingFor: wait.ForHTTP("/livez").
			WithPort("8080/tcp").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	mappedPort, err := container.MappedPort(ctx, "8080")
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	baseURL := fmt.Sprintf("http://%s:%s", host, mappedPort.Port())

	cleanup := func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return baseURL, cleanup
}

// loginAdmin signs in with the bootstrap administrator account.
func loginAdmin(t *testing.T, baseURL string) *icsdk.Session {
	t.Helper()

	session, err := icsdk.NewClient(baseURL).Login(t.Context(), adminUsername, adminSecret)
	require.NoError(t, err)
	require.NotNil(t, session)

	return session
}

// seedAccounts creates one requester and one reviewer via the admin session
// and returns logged-in sessions for both.
func seedAccounts(t *testing.T, baseURL string) (requester, reviewer *icsdk.Session) {
	t.Helper()

	admin := loginAdmin(t, baseURL)

	_, err := admin.CreatePrincipal(t.Context(), icsdk.CreatePrincipalRequest{
		Username: requesterUsername,
		Secret:   requesterSecret,
		Role:     "requester",
	})
	require.NoError(t, err)

	_, err = admin.CreatePrincipal(t.Context(), icsdk.CreatePrincipalRequest{
		Username: reviewerUsername,
		Secret:   reviewerSecret,
		Role:     "reviewer",
	})
	require.NoError(t, err)

	client := icsdk.NewClient(baseURL)

	requester, err = client.Login(t.Context(), requesterUsername, requesterSecret)
	require.NoError(t, err)

	reviewer, err = client.Login(t.Context(), reviewerUsername, reviewerSecret)
	require.NoError(t, err)

	return requester, reviewer
}

// requireAPIError asserts that err is an APIError with the given code.
func requireAPIError(t *testing.T, err error, code string) {
	t.Helper()

	require.Error(t, err)

	apiErr, ok := err.(*icsdk.APIError)
	require.True(t, ok, "expected *icsdk.APIError, got %T: %v", err, err)
	require.Equal(t, code, apiErr.Code)
}
