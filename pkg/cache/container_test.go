package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	redisOnce sync.Once
	redisURL  string
	redisErr  error
)

// startRedis returns the URL of a Redis container shared by the test binary.
// The test is skipped under -short or without a container runtime.
func startRedis(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping Redis integration test in -short mode")
	}
	redisOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "redis:7-alpine",
				ExposedPorts: []string{"6379/tcp"},
				WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
			},
			Started: true,
		})
		if err != nil {
			redisErr = fmt.Errorf("start redis: %w", err)
			return
		}
		endpoint, err := c.Endpoint(ctx, "")
		if err != nil {
			redisErr = fmt.Errorf("redis endpoint: %w", err)
			return
		}
		redisURL = "redis://" + endpoint + "/0"
	})
	if redisErr != nil {
		t.Skipf("redis unavailable: %v", redisErr)
	}
	return redisURL
}
