package migrations

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func getTestDB(t *testing.T) (*sql.DB, func()) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	dsn, err := pgContainer.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)

	cleanup := func() {
		db.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return db, cleanup
}

func getMigrationsPath(t *testing.T) string {
	projectRoot, err := filepath.Abs("../..")
	require.NoError(t, err)

	migrationsPath := filepath.Join(projectRoot, "migrations")
	t.Logf("Migrations path: %s", migrationsPath)
	return migrationsPath
}

func TestRunMigrations(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	db, cleanup := getTestDB(t)
	defer cleanup()

	err := Run(db, getMigrationsPath(t))
	require.NoError(t, err)

	for _, table := range []string{"users", "subscriptions", "family_subscriptions", "family_members"} {
		var exists bool
		err = db.QueryRow(`
			SELECT EXISTS (
				SELECT 1 FROM information_schema.tables
				WHERE table_schema = 'public' AND table_name = $1
			)
		`, table).Scan(&exists)
		require.NoError(t, err)
		require.True(t, exists, "Table %q should exist", table)
	}

	var exists bool
	err = db.QueryRow(`
		SELECT EXISTS (
			SELECT 1 FROM pg_indexes
			WHERE schemaname = 'public'
			AND tablename = 'family_members'
			AND indexname = 'idx_family_members_open'
		)
	`).Scan(&exists)
	require.NoError(t, err)
	require.True(t, exists, "Partial unique index should exist")
}

func TestMigrationIdempotency(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	db, cleanup := getTestDB(t)
	defer cleanup()

	migrationsPath := getMigrationsPath(t)

	require.NoError(t, Run(db, migrationsPath))
	require.NoError(t, Run(db, migrationsPath), "Running migrations twice should not fail")
}

func TestFamilyMembersConstraints(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	db, cleanup := getTestDB(t)
	defer cleanup()
	require.NoError(t, Run(db, getMigrationsPath(t)))

	var ownerUID, memberUID, subID, familyID string
	require.NoError(t, db.QueryRow(`INSERT INTO users (name, email, password_hash) VALUES ('Owner', 'owner@example.com', 'x') RETURNING uid`).Scan(&ownerUID))
	require.NoError(t, db.QueryRow(`INSERT INTO users (name, email, password_hash) VALUES ('Member', 'member@example.com', 'x') RETURNING uid`).Scan(&memberUID))
	require.NoError(t, db.QueryRow(`INSERT INTO subscriptions (user_uid, name, price, frequency, category, payment_method, start_date, renewal_date)
		VALUES ($1, 'Netflix', 10, 'monthly', 'premium', 'paypal', NOW() - INTERVAL '1 day', NOW() + INTERVAL '29 days') RETURNING id`, ownerUID).Scan(&subID))
	require.NoError(t, db.QueryRow(`INSERT INTO family_subscriptions (subscription_id, owner_uid) VALUES ($1, $2) RETURNING id`, subID, ownerUID).Scan(&familyID))

	_, err := db.Exec(`INSERT INTO family_members (family_id, user_uid, invite_token_hash, invite_expires_at) VALUES ($1, $2, 'h1', NOW() + INTERVAL '1 day')`, familyID, memberUID)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO family_members (family_id, user_uid, invite_token_hash, invite_expires_at) VALUES ($1, $2, 'h2', NOW() + INTERVAL '1 day')`, familyID, memberUID)
	require.Error(t, err, "second open entry for the same user must be rejected")

	_, err = db.Exec(`UPDATE family_members SET status = 'active' WHERE family_id = $1`, familyID)
	require.Error(t, err, "active entry must not keep invitation token")

	_, err = db.Exec(`UPDATE family_members SET status = 'removed', invite_token_hash = NULL, invite_expires_at = NULL WHERE family_id = $1`, familyID)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO family_members (family_id, user_uid, invite_token_hash, invite_expires_at) VALUES ($1, $2, 'h3', NOW() + INTERVAL '1 day')`, familyID, memberUID)
	require.NoError(t, err, "re-invite after removal is allowed")
}
