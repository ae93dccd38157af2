package tcredis

import (
	"context"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mpapenbr/f1-prediction-engine/testsupport/tccontainer"
)

// SetupRedis starts a redis server and returns its address (host:port).
func SetupRedis(t *testing.T) string {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()
	container, err := tccontainer.Start(ctx, "redis:7-alpine",
		tccontainer.WithPort("6379/tcp"),
		tccontainer.WithWaitStrategy(wait.ForLog("Ready to accept connections")),
	)
	if err != nil {
		t.Fatalf("start redis: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })
	addr, err := tccontainer.Endpoint(ctx, container, "6379")
	if err != nil {
		t.Fatalf("redis endpoint: %v", err)
	}
	return addr
}
