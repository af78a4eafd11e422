package notifications

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eventhive/backend/pkg/database"
)

// ddlColumns extracts the declared column names from a CREATE TABLE block in
// the embedded schema.
func ddlColumns(t *testing.T, table string) map[string]struct{} {
	t.Helper()
	schema, err := database.SchemaSQL()
	require.NoError(t, err)

	re := regexp.MustCompile(`(?is)CREATE TABLE IF NOT EXISTS ` + table + `\s*\((.*?)\n\);`)
	m := re.FindStringSubmatch(schema)
	require.NotNil(t, m, "no CREATE TABLE block for %s in embedded schema", table)

	cols := make(map[string]struct{})
	for _, line := range strings.Split(m[1], "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		name := strings.ToLower(fields[0])
		switch name {
		case "unique", "primary", "foreign", "constraint", "check":
			continue
		}
		cols[name] = struct{}{}
	}
	return cols
}

// Column names referenced by the repository must exist in the DDL the server
// runs at boot, or every write fails at runtime with an undefined-column
// error that the post-commit relay path only logs.
func TestRepositoryColumnsMatchSchema(t *testing.T) {
	cols := ddlColumns(t, "notifications")

	for _, c := range strings.Split(notificationColumns, ",") {
		_, ok := cols[strings.TrimSpace(c)]
		require.True(t, ok, "repository selects column %q missing from notifications DDL", strings.TrimSpace(c))
	}

	insertRe := regexp.MustCompile(`INSERT INTO notifications \(([^)]+)\)`)
	m := insertRe.FindStringSubmatch(insertNotification)
	require.NotNil(t, m)
	for _, c := range strings.Split(m[1], ",") {
		_, ok := cols[strings.TrimSpace(c)]
		require.True(t, ok, "repository inserts column %q missing from notifications DDL", strings.TrimSpace(c))
	}
}
