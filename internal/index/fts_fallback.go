//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; full-text search uses LIKE fallback on records.game_info.
	return nil
}

func ftsInsert(_ *sql.Tx, _ string, _ int, _ int64, _ string) error {
	// game_info is already stored in the records table; nothing extra to do.
	return nil
}

func ftsDeleteFile(_ *sql.Tx, _ string) {}

// Search performs a LIKE-based search (fallback when FTS5 is not compiled in).
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT log_file, seq, timestamp, appid, substr(game_info, 1, 200)
		FROM records
		WHERE game_info LIKE ?
		ORDER BY timestamp DESC
		LIMIT ?
	`, like, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.LogFile, &r.Seq, &r.Timestamp, &r.AppID, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
