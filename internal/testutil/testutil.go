// Package testutil provides shared test helpers for setting up workspaces
// and activity databases.
package testutil

import (
	"os"
	"testing"

	"github.com/norholm/laguz/internal/activity"
	"github.com/norholm/laguz/internal/storage"
)

// TestDB creates a temporary activity database that is automatically cleaned up.
func TestDB(t *testing.T) *activity.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "laguz-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := activity.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestWorkspace creates a temporary workspace directory with a storage.Provider.
func TestWorkspace(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}
