package postgres

import (
	"io"
	"testing"

	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/KeyIP-Docket/migrations"
)

func TestSourceURL(t *testing.T) {
	assert.Equal(t, "file://migrations", SourceURL("migrations"))
	assert.Equal(t, "file:///srv/migrations", SourceURL("/srv/migrations"))
	assert.Equal(t, "file://./db", SourceURL("file://./db"))
}

func TestEmbeddedMigrations_Ordered(t *testing.T) {
	src, err := iofs.New(migrations.FS, ".")
	require.NoError(t, err)
	defer src.Close()

	first, err := src.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), first)

	next, err := src.Next(first)
	require.NoError(t, err)
	assert.Equal(t, uint(2), next)

	up, ident, err := src.ReadUp(first)
	require.NoError(t, err)
	defer up.Close()
	assert.Equal(t, "docket", ident)

	body, err := io.ReadAll(up)
	require.NoError(t, err)
	for _, table := range []string{"matter", "event", "task_rules", "task", "renewals_log", "country_renewal", "fees", "event_name"} {
		assert.Contains(t, string(body), "CREATE TABLE IF NOT EXISTS "+table+" ")
	}

	down, _, err := src.ReadDown(first)
	require.NoError(t, err)
	down.Close()
}

func TestRollbackMigration_RejectsNonPositiveSteps(t *testing.T) {
	err := RollbackMigration("postgres://unused", "", 0)
	assert.EqualError(t, err, "steps must be greater than 0, got 0")
}

//Personal.AI order the ending
