package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/skillloop/skillloop-server/internal/store"
	"github.com/skillloop/skillloop-server/internal/store/storetest"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "skillloop.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	st, err := New(context.Background(), db)
	require.NoError(t, err)
	return st
}

func TestSQLiteStore_Conformance(t *testing.T) {
	storetest.Run(t, newTestStore)
}
