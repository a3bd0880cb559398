// Package history answers questions about previously logged records: the
// daily log files on disk and, when available, the record index built from
// them.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"

	"github.com/starford/envtest/internal/apperr"
	"github.com/starford/envtest/internal/index"
	"github.com/starford/envtest/internal/models"
	"github.com/starford/envtest/internal/recorder"
	"github.com/starford/envtest/internal/storage"
)

// RecordItem is one indexed record.
type RecordItem struct {
	LogFile   string          `json:"log_file"`
	Seq       int             `json:"seq"`
	Timestamp string          `json:"timestamp"`
	AppID     int64           `json:"appid"`
	GameInfo  json.RawMessage `json:"game_info"`
}

// SearchHit is one full-text search match.
type SearchHit struct {
	LogFile   string `json:"log_file"`
	Seq       int    `json:"seq"`
	Timestamp string `json:"timestamp"`
	AppID     int64  `json:"appid"`
	Snippet   string `json:"snippet"`
}

// Export is a downloadable copy of one record.
type Export struct {
	Filename string
	Content  []byte
}

// Service coordinates log storage and the optional record index.
type Service struct {
	store storage.Provider
	db    index.RecordIndex
}

// NewService creates a new history service. db may be nil, in which case the
// index-backed methods return apperr.ErrUnavailable.
func NewService(store storage.Provider, db index.RecordIndex) *Service {
	return &Service{store: store, db: db}
}

// IndexAvailable reports whether the record index is wired.
func (s *Service) IndexAvailable() bool {
	return s.db != nil
}

func (s *Service) index() (index.RecordIndex, error) {
	if s.db == nil {
		return nil, fmt.Errorf("history: record index: %w", apperr.ErrUnavailable)
	}
	return s.db, nil
}

// ListRecords returns indexed records, newest first, with the total count.
func (s *Service) ListRecords(_ context.Context, q index.RecordQuery) ([]RecordItem, int, error) {
	db, err := s.index()
	if err != nil {
		return nil, 0, err
	}
	rows, total, err := db.ListRecords(q)
	if err != nil {
		return nil, 0, err
	}
	items := make([]RecordItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, toItem(r))
	}
	return items, total, nil
}

// Search runs a text search over indexed game_info.
func (s *Service) Search(_ context.Context, query string, limit int) ([]SearchHit, error) {
	db, err := s.index()
	if err != nil {
		return nil, err
	}
	results, err := db.Search(query, limit)
	if err != nil {
		return nil, err
	}
	hits := make([]SearchHit, 0, len(results))
	for _, r := range results {
		hits = append(hits, SearchHit{
			LogFile:   r.LogFile,
			Seq:       r.Seq,
			Timestamp: r.Timestamp,
			AppID:     r.AppID,
			Snippet:   r.Snippet,
		})
	}
	return hits, nil
}

// ExportLatest renders the newest record for appid the way it appears in the
// log file, named game_info_<appid>.json.
func (s *Service) ExportLatest(_ context.Context, appid int64) (*Export, error) {
	db, err := s.index()
	if err != nil {
		return nil, err
	}
	row, err := db.LatestForApp(appid)
	if err != nil {
		return nil, err
	}
	text, err := recorder.Encode(models.DebugRecord{
		Timestamp: row.Timestamp,
		AppID:     row.AppID,
		GameInfo:  row.GameInfo,
	})
	if err != nil {
		return nil, err
	}
	return &Export{
		Filename: fmt.Sprintf("game_info_%d.json", appid),
		Content:  []byte(text),
	}, nil
}

// ListLogs returns the daily log files on disk. A log directory that does not
// exist yet has no files.
func (s *Service) ListLogs(_ context.Context) ([]models.LogFileMeta, error) {
	metas, err := s.store.List()
	if errors.Is(err, fs.ErrNotExist) {
		return []models.LogFileMeta{}, nil
	}
	if err != nil {
		return nil, err
	}
	if metas == nil {
		metas = []models.LogFileMeta{}
	}
	return metas, nil
}

// ReadLog returns the raw contents of a daily log file.
func (s *Service) ReadLog(_ context.Context, name string) ([]byte, error) {
	if !storage.IsLogName(name) {
		return nil, fmt.Errorf("history: %q is not a log file name: %w", name, apperr.ErrInvalidInput)
	}
	data, err := s.store.Read(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("history: %s: %w", name, apperr.ErrNotFound)
	}
	return data, err
}

func toItem(r index.RecordRow) RecordItem {
	return RecordItem{
		LogFile:   r.LogFile,
		Seq:       r.Seq,
		Timestamp: r.Timestamp,
		AppID:     r.AppID,
		GameInfo:  r.GameInfo,
	}
}
