package index

import (
	"errors"
	"log/slog"

	"github.com/starford/envtest/internal/checksum"
	"github.com/starford/envtest/internal/parser"
	"github.com/starford/envtest/internal/storage"
)

// Sync walks the log directory and brings the index up to date:
//   - new/changed log files are parsed and their records replaced
//   - files removed from disk are deleted from the index
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List()
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Name] = struct{}{}

		if checksums[m.Name] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Name)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("file", m.Name), slog.String("error", err.Error()))
			continue
		}
		if n, err := indexFile(db, m.Name, data, logger); err != nil {
			logger.Warn("sync: index failed", slog.String("file", m.Name), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("file", m.Name), slog.Int("records", n))
		}
	}

	// Remove stale entries.
	for name := range checksums {
		if _, ok := disk[name]; !ok {
			if err := db.DeleteFile(name); err != nil {
				logger.Warn("sync: delete failed", slog.String("file", name), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("file", name))
			}
		}
	}

	return nil
}

// indexFile parses data and replaces the file's records in the DB. A
// malformed tail is logged and the complete records before it are kept.
func indexFile(db *DB, name string, data []byte, logger *slog.Logger) (int, error) {
	res, err := parser.Parse(data)
	if err != nil {
		if !errors.Is(err, parser.ErrMalformedTail) {
			return 0, err
		}
		logger.Warn("index: partial log file", slog.String("file", name), slog.String("error", err.Error()))
	}
	if res.Skipped > 0 {
		logger.Warn("index: skipped non-record documents", slog.String("file", name), slog.Int("skipped", res.Skipped))
	}
	if err := db.ReplaceFile(name, checksum.Sum(data), res.Records); err != nil {
		return 0, err
	}
	return len(res.Records), nil
}
