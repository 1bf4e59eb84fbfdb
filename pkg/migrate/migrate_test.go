package migrate

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/supplyledger-backend/pkg/db/models"
)

func readMigrations(t *testing.T) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, matches)

	var all strings.Builder
	for _, file := range matches {
		data, err := os.ReadFile(file)
		require.NoError(t, err)
		all.Write(data)
	}
	return all.String()
}

func TestMigrationsDirIsValid(t *testing.T) {
	require.NoError(t, ValidateDir("migrations"))
}

func TestMigrationsCoverEveryModel(t *testing.T) {
	content := readMigrations(t)
	for _, model := range models.All() {
		named, ok := model.(interface{ TableName() string })
		require.True(t, ok, "%T has no table name", model)
		table := named.TableName()
		assert.Contains(t, content, "CREATE TABLE IF NOT EXISTS "+table+" (", "missing create for %s", table)
		assert.Contains(t, content, "DROP TABLE IF EXISTS "+table+";", "missing drop for %s", table)
	}
}

func TestMigrationsEnforceLedgerInvariants(t *testing.T) {
	content := readMigrations(t)
	checks := []string{
		"CHECK (reserved_quantity >= 0 AND reserved_quantity <= quantity)",
		"CHECK (quantity_after = quantity_before + quantity)",
		"CHECK (received_quantity >= 0 AND received_quantity <= quantity)",
		"CHECK (amount > 0)",
		"ON inventory_locations (variant_id, location_type, location_id)",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_outbox_events_event_aggregate",
	}
	for _, sub := range checks {
		assert.Contains(t, content, sub)
	}
}

func TestValidateDirRejectsBadFiles(t *testing.T) {
	cases := map[string]string{
		"bad_name.sql":                  "-- +goose Up\n-- +goose Down\n",
		"20260101000000_no_down.sql":    "-- +goose Up\n",
		"20260101000000_unbalanced.sql": "-- +goose Up\n-- +goose StatementBegin\n-- +goose Down\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
			assert.Error(t, ValidateDir(dir))
		})
	}

	assert.Error(t, ValidateDir(t.TempDir()), "empty dir")
}

func TestValidateRejectsDownBeforeUp(t *testing.T) {
	err := validateSections("-- +goose Down\nDROP TABLE x;\n-- +goose Up\nCREATE TABLE x (id int);\n")
	assert.ErrorContains(t, err, "precedes")
}

func TestEmbeddedMigrationsMatchDisk(t *testing.T) {
	require.NoError(t, ValidateFS(Embedded(), embeddedDir))

	onDisk, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	require.NoError(t, err)
	compiled, err := fs.Glob(Embedded(), embeddedDir+"/*.sql")
	require.NoError(t, err)
	require.Len(t, compiled, len(onDisk))
	for i := range onDisk {
		assert.Equal(t, filepath.Base(onDisk[i]), path.Base(compiled[i]))
	}
}

func TestParseVersion(t *testing.T) {
	v, err := parseVersion("20260105120300")
	require.NoError(t, err)
	assert.Equal(t, int64(20260105120300), v)

	for _, bad := range []string{"", "2026", "2026010512030x"} {
		_, err := parseVersion(bad)
		assert.Error(t, err, bad)
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)

	created, err := createSQLMigration(dir, "Add Payment Index!", at)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "20260203040506_add_payment_index.sql"), created)
	require.NoError(t, ValidateDir(dir))

	_, err = createSQLMigration(dir, "add payment index", at)
	assert.Error(t, err, "duplicate file")

	_, err = createSQLMigration(dir, "!!!", at)
	assert.Error(t, err)
}
