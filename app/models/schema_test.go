package models

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var createTableRe = regexp.MustCompile(`(?i)CREATE TABLE(?: IF NOT EXISTS)?\s+(\w+)`)

// migratedTables collects every table created by the SQL migrations.
func migratedTables(t *testing.T) map[string]string {
	t.Helper()

	files, err := filepath.Glob(filepath.Join("..", "..", "migrations", "*.up.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, files, "no up migrations found")

	tables := make(map[string]string)
	for _, f := range files {
		data, err := os.ReadFile(f)
		require.NoError(t, err)
		for _, m := range createTableRe.FindAllStringSubmatch(string(data), -1) {
			tables[strings.ToLower(m[1])] = string(data)
		}
	}
	return tables
}

// The repositories query the tables GORM derives from the models, while a
// migration-driven deployment only has the tables the SQL files create. The
// two must name the same tables.
func TestModelTableNamesMatchMigrations(t *testing.T) {
	tables := migratedTables(t)

	for _, name := range []string{
		User{}.TableName(),
		Subscription{}.TableName(),
		BillingWebhookEvent{}.TableName(),
	} {
		assert.Contains(t, tables, name, "model table %q has no migration", name)
	}
}

func TestUsersEmailUniquenessIsCaseInsensitive(t *testing.T) {
	tables := migratedTables(t)

	ddl, ok := tables[User{}.TableName()]
	require.True(t, ok)

	// Registration pre-checks with a lower(email) lookup; the index that
	// backs it under concurrency has to be case-insensitive too.
	assert.Regexp(t, `(?i)CREATE UNIQUE INDEX[^;]+ON users\s*\(LOWER\(email\)\)`, ddl)
}
