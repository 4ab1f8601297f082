package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	pgutil "github.com/bibbank/taxrisk/pkg/postgres"
)

const postgresImage = "postgres:16-alpine"

// Postgres is a throwaway database migrated to the latest schema.
type Postgres struct {
	DSN  string
	Pool *pgxpool.Pool
}

// StartPostgres runs a container, applies the migrations in migrationsDir through
// golang-migrate and returns a connected pool. Teardown is registered on t.
func StartPostgres(ctx context.Context, t *testing.T, migrationsDir string) *Postgres {
	t.Helper()

	container, err := tcpostgres.Run(ctx, postgresImage,
		tcpostgres.WithDatabase("taxrisk"),
		tcpostgres.WithUsername("taxrisk"),
		tcpostgres.WithPassword("taxrisk"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() { terminate(t, container) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dir, err := filepath.Abs(migrationsDir)
	require.NoError(t, err)
	require.NoError(t, pgutil.RunMigrations(dsn, "file://"+filepath.ToSlash(dir)), "migrate schema")

	pool, err := pgutil.NewPool(ctx, pgutil.Config{URL: dsn, MaxConns: 4})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return &Postgres{DSN: dsn, Pool: pool}
}

func terminate(t *testing.T, c testcontainers.Container) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.Terminate(ctx); err != nil {
		t.Logf("terminate container: %v", err)
	}
}
