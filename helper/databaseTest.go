package helper

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	testDatabaseName     = "grounder_test"
	testDatabaseUser     = "grounder"
	testDatabasePassword = "grounder"
)

// MustStartPostgresContainer starts a pgvector enabled postgres container for tests.
// It returns the teardown function and the mapped host port.
func MustStartPostgresContainer() (func(ctx context.Context, opts ...testcontainers.TerminateOption) error, string, error) {
	ctx := context.Background()

	container, err := postgres.Run(
		ctx,
		"pgvector/pgvector:pg17",
		postgres.WithDatabase(testDatabaseName),
		postgres.WithUsername(testDatabaseUser),
		postgres.WithPassword(testDatabasePassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, "", NewError("start postgres container", err)
	}

	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		return container.Terminate, "", NewError("mapped port", err)
	}

	return container.Terminate, port.Port(), nil
}

// SetTestDatabaseConfigEnvs points the database configuration at the test container.
func SetTestDatabaseConfigEnvs(t *testing.T, port string) {
	t.Setenv("GROUNDER_DB_HOST", "localhost")
	t.Setenv("GROUNDER_DB_PORT", port)
	t.Setenv("GROUNDER_DB_DATABASE", testDatabaseName)
	t.Setenv("GROUNDER_DB_USERNAME", testDatabaseUser)
	t.Setenv("GROUNDER_DB_PASSWORD", testDatabasePassword)
	t.Setenv("GROUNDER_DB_SCHEMA", "public")
	t.Setenv("GROUNDER_DB_SSLMODE", "disable")
}

// NewTestDatabase connects to the test container and panics on failure.
func NewTestDatabase(config *DatabaseConfiguration) *Database {
	logger := slog.New(NewPrettyHandler(os.Stdout, PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{Level: slog.LevelWarn},
	}))
	db, err := NewDatabase("test", config, logger)
	if err != nil {
		panic(err)
	}
	return db
}
