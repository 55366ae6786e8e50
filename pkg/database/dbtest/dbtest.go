// Package dbtest starts a throwaway PostgreSQL container for integration tests
// and applies the catalog migrations to it.
package dbtest

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for database/sql
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	catalogmigrations "github.com/ghuser/bookcatalog/migrations/catalog"
	"github.com/ghuser/bookcatalog/pkg/database"
	"github.com/ghuser/bookcatalog/pkg/logger"
	"github.com/ghuser/bookcatalog/pkg/migrator"
)

var (
	once      sync.Once
	sharedDSN string
	initErr   error
)

// Setup returns a Database connected to a shared, migrated PostgreSQL
// container. The container starts once per test binary. Tests are skipped
// under -short or when no container runtime is available.
func Setup(t *testing.T) *database.Database {
	t.Helper()
	db, err := sql.Open("pgx", DSN(t))
	if err != nil {
		t.Fatalf("dbtest: open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return database.New(db, logger.Discard())
}

// DSN returns the connection string of the shared, migrated container,
// starting it on first use.
func DSN(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("dbtest: skipping PostgreSQL integration test in -short mode")
	}
	once.Do(func() {
		sharedDSN, initErr = startContainerAndMigrate()
	})
	if initErr != nil {
		t.Skipf("dbtest: postgres unavailable: %v", initErr)
	}
	return sharedDSN
}

// Truncate empties every catalog table.
func Truncate(t *testing.T, db *database.Database) {
	t.Helper()
	if _, err := db.DB().ExecContext(context.Background(), "TRUNCATE book_authors, books, authors"); err != nil {
		t.Fatalf("dbtest: truncate: %v", err)
	}
}

func startContainerAndMigrate() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:17-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "catalog",
			"POSTGRES_PASSWORD": "catalog",
			"POSTGRES_DB":       "catalog",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", fmt.Errorf("start container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("get container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return "", fmt.Errorf("get mapped port: %w", err)
	}

	dsn := fmt.Sprintf("postgres://catalog:catalog@%s:%s/catalog?sslmode=disable", host, port.Port())
	if err := migrator.RunMigrationsURL(ctx, dsn, catalogmigrations.FS, logger.Discard()); err != nil {
		return "", err
	}
	return dsn, nil
}
