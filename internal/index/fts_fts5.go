//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS records_fts USING fts5(
			log_file UNINDEXED,
			seq UNINDEXED,
			appid UNINDEXED,
			game_info,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsInsert(tx *sql.Tx, logFile string, seq int, appid int64, gameInfo string) error {
	_, err := tx.Exec(`INSERT INTO records_fts (log_file, seq, appid, game_info) VALUES (?, ?, ?, ?)`,
		logFile, seq, appid, gameInfo)
	if err != nil {
		return fmt.Errorf("index: insert fts: %w", err)
	}
	return nil
}

func ftsDeleteFile(tx *sql.Tx, logFile string) {
	_, _ = tx.Exec(`DELETE FROM records_fts WHERE log_file = ?`, logFile)
}

// Search performs an FTS5 full-text search over game_info and returns
// matching records with snippets.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT records_fts.log_file,
		       records_fts.seq,
		       r.timestamp,
		       r.appid,
		       snippet(records_fts, 3, '<b>', '</b>', '...', 32)
		FROM records_fts
		JOIN records r ON r.log_file = records_fts.log_file AND r.seq = records_fts.seq
		WHERE records_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
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
