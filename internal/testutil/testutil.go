// Package testutil provides shared test helpers for setting up source
// directories, vaults, and history databases.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/raido/internal/history"
	"github.com/starford/raido/internal/storage"
)

// TestDB creates a temporary history database that is automatically
// cleaned up.
func TestDB(t *testing.T) *history.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "raido-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := history.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestDir creates a temporary directory wrapped in a storage.FS.
func TestDir(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, fs
}

// WriteKeepNote writes a minimal Keep HTML export into dir and returns
// its filename.
func WriteKeepNote(t *testing.T, dir, name, heading, title, body string) string {
	t.Helper()
	html := fmt.Sprintf(`<html><body>
<div class="heading">%s</div>
<div class="title">%s</div>
<div class="content">%s</div>
</body></html>`, heading, title, body)
	if err := os.WriteFile(filepath.Join(dir, name), []byte(html), 0o644); err != nil {
		t.Fatal(err)
	}
	return name
}
