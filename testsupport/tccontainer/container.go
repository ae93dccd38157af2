// Package tccontainer starts the docker containers used by integration tests.
package tccontainer

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

type Option func(req *testcontainers.ContainerRequest)

func WithWaitStrategy(strategies ...wait.Strategy) Option {
	return func(req *testcontainers.ContainerRequest) {
		req.WaitingFor = wait.ForAll(strategies...).WithDeadline(1 * time.Minute)
	}
}

func WithPort(port string) Option {
	return func(req *testcontainers.ContainerRequest) {
		req.ExposedPorts = append(req.ExposedPorts, port)
	}
}

func WithName(containerName string) Option {
	return func(req *testcontainers.ContainerRequest) {
		req.Name = containerName
	}
}

func WithEnv(key, value string) Option {
	return func(req *testcontainers.ContainerRequest) {
		req.Env[key] = value
	}
}

func WithCmd(cmd ...string) Option {
	return func(req *testcontainers.ContainerRequest) {
		req.Cmd = cmd
	}
}

// Start creates and starts a container of image. Named containers are reused
// between test runs.
func Start(ctx context.Context, image string, opts ...Option) (
	testcontainers.Container, error,
) {
	req := testcontainers.ContainerRequest{
		Image:        image,
		Env:          map[string]string{},
		ExposedPorts: []string{},
	}
	for _, opt := range opts {
		opt(&req)
	}
	return testcontainers.GenericContainer(
		ctx,
		testcontainers.GenericContainerRequest{
			ContainerRequest: req,
			Started:          true,
			Reuse:            req.Name != "",
		})
}

// Endpoint returns host:port of the mapped container port
//
//nolint:whitespace // can't make both editor and linter happy
func Endpoint(
	ctx context.Context,
	c testcontainers.Container,
	port string,
) (string, error) {
	p, err := nat.NewPort("tcp", port)
	if err != nil {
		return "", err
	}
	mapped, err := c.MappedPort(ctx, p)
	if err != nil {
		return "", err
	}
	host, err := c.Host(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%s", host, mapped.Port()), nil
}
