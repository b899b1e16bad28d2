package connection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQueryAgainstInMemorySQLite(t *testing.T) {
	rt := Runtime{Kind: SQLite, DSN: ":memory:"}

	// Query opens its own connection, and a :memory: database starts empty,
	// so there is no table to seed beforehand; this test runs a query that
	// needs no table, which is still a real round-trip through the driver.
	_, err := rt.Query(context.Background(), "SELECT 1 AS one")
	require.NoError(t, err)
}

func TestQueryUnknownEngineKind(t *testing.T) {
	rt := Runtime{Kind: "oracle", DSN: "whatever"}
	_, err := rt.Query(context.Background(), "SELECT 1")
	require.Error(t, err)
}
