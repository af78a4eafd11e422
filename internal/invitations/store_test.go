package invitations

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eventhive/backend/pkg/database"
)

// Every nullable users column the store scans into a plain string must be
// wrapped in COALESCE, or a row with NULL profile fields fails the scan.
func TestUserSelectCoalescesNullableColumns(t *testing.T) {
	schema, err := database.SchemaSQL()
	require.NoError(t, err)

	re := regexp.MustCompile(`(?is)CREATE TABLE IF NOT EXISTS users\s*\((.*?)\n\);`)
	m := re.FindStringSubmatch(schema)
	require.NotNil(t, m, "no CREATE TABLE block for users in embedded schema")

	for _, line := range strings.Split(m[1], "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 || !strings.HasPrefix(strings.ToUpper(fields[1]), "TEXT") {
			continue
		}
		name := strings.ToLower(fields[0])
		if strings.Contains(strings.ToUpper(line), "NOT NULL") {
			continue
		}
		if !strings.Contains(userSelectColumns, name) {
			continue
		}
		require.Contains(t, userSelectColumns, "COALESCE("+name,
			"nullable column %q selected without COALESCE", name)
	}
}
