package tcnats

import (
	"context"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mpapenbr/f1-prediction-engine/testsupport/tccontainer"
)

// SetupNats starts a NATS server with JetStream enabled and returns its URL.
func SetupNats(t *testing.T) string {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()
	container, err := tccontainer.Start(ctx, "nats:2.10",
		tccontainer.WithPort("4222/tcp"),
		tccontainer.WithCmd("-js"),
		tccontainer.WithWaitStrategy(wait.ForLog("Server is ready")),
	)
	if err != nil {
		t.Fatalf("start nats: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })
	addr, err := tccontainer.Endpoint(ctx, container, "4222")
	if err != nil {
		t.Fatalf("nats endpoint: %v", err)
	}
	return "nats://" + addr
}
