package index

import "github.com/starford/envtest/internal/models"

// RecordIndex defines the interface for record indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type RecordIndex interface {
	ReplaceFile(name, checksum string, recs []models.DebugRecord) error
	DeleteFile(name string) error
	GetChecksum(name string) (string, error)
	AllChecksums() (map[string]string, error)
	ListRecords(q RecordQuery) ([]RecordRow, int, error)
	LatestForApp(appid int64) (*RecordRow, error)
	Search(query string, limit int) ([]SearchResult, error)
	Close() error
}

// Verify *DB satisfies RecordIndex at compile time.
var _ RecordIndex = (*DB)(nil)
