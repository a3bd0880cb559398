// Package testutil provides shared test helpers for log directories, fake
// Heroic installs and databases.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/envtest/internal/index"
	"github.com/starford/envtest/internal/storage"
)

// Logger returns a logger that discards everything below error level.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "envtest-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestLogDir creates a temporary, already-initialised log directory.
func TestLogDir(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "choochoo")
	if err := storage.EnsureDir(dir); err != nil {
		t.Fatal(err)
	}
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// HeroicHome is a temporary home directory laid out like a Heroic install.
type HeroicHome struct {
	Dir string
}

// NewHeroicHome creates an empty fake home directory.
func NewHeroicHome(t *testing.T) *HeroicHome {
	t.Helper()
	return &HeroicHome{Dir: t.TempDir()}
}

// NativeConfig writes ~/.config/Heroic/GameConfig/<name>.json.
func (h *HeroicHome) NativeConfig(t *testing.T, name, content string) string {
	t.Helper()
	return h.write(t, filepath.Join(".config", "Heroic", "GameConfig", name+".json"), content)
}

// FlatpakConfig writes the sandboxed GamesConfig/<name>.json.
func (h *HeroicHome) FlatpakConfig(t *testing.T, name, content string) string {
	t.Helper()
	return h.write(t, filepath.Join(".var", "app", "com.heroicgameslauncher.hgl",
		"config", "heroic", "GamesConfig", name+".json"), content)
}

// Library writes the sandboxed sideload_apps/library.json.
func (h *HeroicHome) Library(t *testing.T, content string) string {
	t.Helper()
	return h.write(t, filepath.Join(".var", "app", "com.heroicgameslauncher.hgl",
		"config", "heroic", "sideload_apps", "library.json"), content)
}

func (h *HeroicHome) write(t *testing.T, rel, content string) string {
	t.Helper()
	p := filepath.Join(h.Dir, rel)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}
