package e2e_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const azuriteImage = "mcr.microsoft.com/azure-storage/azurite:3.33.0"

var (
	azuriteOnce     sync.Once
	azuriteBlobURL  string
	azuriteQueueURL string
	azuriteErr      error
)

// requireE2E skips unless end-to-end tests are explicitly enabled.
// They need a Docker daemon to run the Azurite container.
func requireE2E(t *testing.T) {
	t.Helper()
	if os.Getenv("AZSTORE_E2E") == "" {
		t.Skip("set AZSTORE_E2E=1 to run end-to-end tests against Azurite")
	}
}

// sharedAzurite returns blob and queue endpoint URLs for a shared Azurite
// container. The container is reused across all tests for performance.
func sharedAzurite(t *testing.T) (blobURL, queueURL string) {
	t.Helper()

	azuriteOnce.Do(func() {
		ctx := context.Background()

		container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        azuriteImage,
				ExposedPorts: []string{"10000/tcp", "10001/tcp"},
				Cmd: []string{
					"azurite",
					"--blobHost", "0.0.0.0",
					"--queueHost", "0.0.0.0",
					"--skipApiVersionCheck",
				},
				WaitingFor: wait.ForAll(
					wait.ForListeningPort("10000/tcp"),
					wait.ForListeningPort("10001/tcp"),
				),
			},
			Started: true,
		})
		if err != nil {
			azuriteErr = fmt.Errorf("start azurite container: %w", err)
			return
		}

		host, err := container.Host(ctx)
		if err != nil {
			azuriteErr = fmt.Errorf("container host: %w", err)
			return
		}
		blobPort, err := container.MappedPort(ctx, "10000/tcp")
		if err != nil {
			azuriteErr = fmt.Errorf("blob port: %w", err)
			return
		}
		queuePort, err := container.MappedPort(ctx, "10001/tcp")
		if err != nil {
			azuriteErr = fmt.Errorf("queue port: %w", err)
			return
		}

		azuriteBlobURL = fmt.Sprintf("http://%s:%s/devstoreaccount1", host, blobPort.Port())
		azuriteQueueURL = fmt.Sprintf("http://%s:%s/devstoreaccount1", host, queuePort.Port())
	})

	if azuriteErr != nil {
		t.Fatalf("azurite unavailable: %v", azuriteErr)
	}
	return azuriteBlobURL, azuriteQueueURL
}
