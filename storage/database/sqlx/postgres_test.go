package sqlxrepos_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/practrac/practrac/storage/database"
)

// TestPostgresRepositories runs the repository tests against a throwaway Postgres container.
// Set PRACTRAC_POSTGRES_TESTS=1 to enable (needs a docker daemon).
func TestPostgresRepositories(t *testing.T) {
	if os.Getenv("PRACTRAC_POSTGRES_TESTS") != "1" {
		t.Skip("PRACTRAC_POSTGRES_TESTS is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := postgres.Run(
		ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("practrac"),
		postgres.WithUsername("practrac"),
		postgres.WithPassword("practrac"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sqlx.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(db))

	runRepositoryTests(t, func(t *testing.T) *sqlx.DB {
		_, err := db.Exec("TRUNCATE coach, team, player, drill, drill_video, practice, practice_phase, practice_session, session_phase, attendance, note CASCADE")
		require.NoError(t, err)
		return db
	})
}
