package tcpostgres

import (
	"context"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const defaultImage = "postgres:16-alpine"

type PostgresContainer struct {
	testcontainers.Container
}

type (
	containerConfig struct {
		req   testcontainers.ContainerRequest
		reuse bool
	}
	PostgresContainerOption func(cfg *containerConfig)
)

func WithWaitStrategy(strategies ...wait.Strategy) PostgresContainerOption {
	return func(cfg *containerConfig) {
		cfg.req.WaitingFor = wait.ForAll(strategies...).WithDeadline(time.Minute)
	}
}

func WithPort(port string) PostgresContainerOption {
	return func(cfg *containerConfig) {
		cfg.req.ExposedPorts = append(cfg.req.ExposedPorts, port)
	}
}

// WithName names the container; named containers are reused between test
// packages.
func WithName(containerName string) PostgresContainerOption {
	return func(cfg *containerConfig) {
		cfg.req.Name = containerName
		cfg.reuse = true
	}
}

func WithImage(image string) PostgresContainerOption {
	return func(cfg *containerConfig) {
		cfg.req.Image = image
	}
}

func WithInitialDatabase(user, password, dbName string) PostgresContainerOption {
	return func(cfg *containerConfig) {
		cfg.req.Env["POSTGRES_USER"] = user
		cfg.req.Env["POSTGRES_PASSWORD"] = password
		cfg.req.Env["POSTGRES_DB"] = dbName
	}
}

// SetupPostgres starts a postgres container without durability settings.
func SetupPostgres(ctx context.Context, opts ...PostgresContainerOption) (
	*PostgresContainer, error,
) {
	cfg := &containerConfig{
		req: testcontainers.ContainerRequest{
			Image: defaultImage,
			Env:   map[string]string{},
			Cmd:   []string{"postgres", "-c", "fsync=off", "-c", "synchronous_commit=off"},
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	container, err := testcontainers.GenericContainer(ctx,
		testcontainers.GenericContainerRequest{
			ContainerRequest: cfg.req,
			Started:          true,
			Reuse:            cfg.reuse,
		})
	if err != nil {
		return nil, err
	}
	return &PostgresContainer{Container: container}, nil
}
