package store

import (
	"path/filepath"
	"testing"

	"github.com/veryx/veryx/internal/testutil"
)

// createTestStore opens a temp-dir store driven by a deterministic clock.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithClock(testutil.NewDeterministicClock()))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}
