package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/starford/envtest/internal/checksum"
	"github.com/starford/envtest/internal/models"
)

const (
	dirMode  = 0o700
	fileMode = 0o600
)

var logNameRe = regexp.MustCompile(`^log-\d{8}\.log$`)

// IsLogName reports whether name looks like a daily log file name.
func IsLogName(name string) bool {
	return logNameRe.MatchString(name)
}

// EnsureDir creates the log directory if needed and restricts it to the owner.
// Callers log a returned error and carry on; writes then fail one by one.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return fmt.Errorf("storage: create log dir %s: %w", dir, err)
	}
	if err := os.Chmod(dir, dirMode); err != nil {
		return fmt.Errorf("storage: chmod log dir %s: %w", dir, err)
	}
	return nil
}

// FS implements Provider backed by the local file system.
type FS struct {
	root string // absolute path to the log directory
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory does not have to exist yet.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute log directory.
func (f *FS) Root() string {
	return f.root
}

// safePath resolves a plain file name inside the log directory and rejects
// anything containing separators or traversal.
func (f *FS) safePath(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("storage: file name is required")
	}
	cleaned := filepath.Clean(name)
	if cleaned != filepath.Base(cleaned) || strings.Contains(cleaned, "..") {
		return "", fmt.Errorf("storage: invalid file name: %s", name)
	}
	abs := filepath.Join(f.root, cleaned)
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("storage: path escapes log dir: %s", name)
	}
	return abs, nil
}

// List returns metadata for every log-YYYYMMDD.log file, oldest name first.
func (f *FS) List() ([]models.LogFileMeta, error) {
	entries, err := os.ReadDir(f.root)
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	var out []models.LogFileMeta
	for _, e := range entries {
		if e.IsDir() || !IsLogName(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("storage: stat %s: %w", e.Name(), err)
		}
		cs, err := checksum.File(filepath.Join(f.root, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("storage: checksum %s: %w", e.Name(), err)
		}
		out = append(out, models.LogFileMeta{
			Name:      e.Name(),
			Size:      info.Size(),
			Checksum:  cs,
			UpdatedAt: info.ModTime(),
		})
	}
	return out, nil
}

// Read returns the raw bytes of a log file.
func (f *FS) Read(name string) ([]byte, error) {
	abs, err := f.safePath(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", name, err)
	}
	return data, nil
}

// Append writes content to the end of the named file in a single write.
// The directory is not created here; that happens once in EnsureDir.
func (f *FS) Append(name string, content []byte) error {
	abs, err := f.safePath(name)
	if err != nil {
		return err
	}
	fh, err := os.OpenFile(abs, os.O_CREATE|os.O_APPEND|os.O_WRONLY, fileMode)
	if err != nil {
		return fmt.Errorf("storage: open %s: %w", name, err)
	}
	if _, err := fh.Write(content); err != nil {
		_ = fh.Close()
		return fmt.Errorf("storage: append %s: %w", name, err)
	}
	if err := fh.Close(); err != nil {
		return fmt.Errorf("storage: close %s: %w", name, err)
	}
	return nil
}
