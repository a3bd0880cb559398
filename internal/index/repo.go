package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/envtest/internal/apperr"
	"github.com/starford/envtest/internal/models"
)

// RecordRow represents a row in the records table.
type RecordRow struct {
	LogFile   string
	Seq       int
	Timestamp string
	AppID     int64
	GameInfo  json.RawMessage
}

// RecordQuery filters ListRecords. A nil AppID lists every app.
type RecordQuery struct {
	AppID  *int64
	Limit  int
	Offset int
}

// SearchResult represents one search hit.
type SearchResult struct {
	LogFile   string
	Seq       int
	Timestamp string
	AppID     int64
	Snippet   string
}

// ReplaceFile swaps every record indexed for the named log file with recs
// inside one transaction, and stores the file's checksum.
func (db *DB) ReplaceFile(name, checksum string, recs []models.DebugRecord) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	ftsDeleteFile(tx, name)
	if _, err := tx.Exec(`DELETE FROM records WHERE log_file = ?`, name); err != nil {
		return fmt.Errorf("index: clear records: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO log_files (name, checksum, indexed_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			checksum   = excluded.checksum,
			indexed_at = excluded.indexed_at
	`, name, checksum, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("index: upsert log file: %w", err)
	}

	if len(recs) > 0 {
		stmt, err := tx.Prepare(`INSERT INTO records (log_file, seq, timestamp, appid, game_info) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare record insert: %w", err)
		}
		defer stmt.Close()
		for i, r := range recs {
			if _, err := stmt.Exec(name, i, r.Timestamp, r.AppID, string(r.GameInfo)); err != nil {
				return fmt.Errorf("index: insert record: %w", err)
			}
			if err := ftsInsert(tx, name, i, r.AppID, string(r.GameInfo)); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// DeleteFile removes a log file and all of its records.
func (db *DB) DeleteFile(name string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDeleteFile(tx, name)
	_, _ = tx.Exec(`DELETE FROM records WHERE log_file = ?`, name)
	_, _ = tx.Exec(`DELETE FROM log_files WHERE name = ?`, name)

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a log file, or empty string if not indexed.
func (db *DB) GetChecksum(name string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM log_files WHERE name = ?`, name).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// AllChecksums returns the checksum of every indexed log file keyed by name.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT name, checksum FROM log_files`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var name, cs string
		if err := rows.Scan(&name, &cs); err != nil {
			return nil, err
		}
		out[name] = cs
	}
	return out, rows.Err()
}

// ListRecords returns records newest first plus the total matching count.
func (db *DB) ListRecords(q RecordQuery) ([]RecordRow, int, error) {
	if q.Limit <= 0 {
		q.Limit = 50
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	where := ""
	var args []any
	if q.AppID != nil {
		where = "WHERE appid = ?"
		args = append(args, *q.AppID)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM records `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count records: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT log_file, seq, timestamp, appid, game_info
		FROM records `+where+`
		ORDER BY timestamp DESC, log_file DESC, seq DESC
		LIMIT ? OFFSET ?
	`, append(args, q.Limit, q.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list records: %w", err)
	}
	defer rows.Close()

	var out []RecordRow
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}

// LatestForApp returns the newest record for appid, or apperr.ErrNotFound.
func (db *DB) LatestForApp(appid int64) (*RecordRow, error) {
	row := db.conn.QueryRow(`
		SELECT log_file, seq, timestamp, appid, game_info
		FROM records
		WHERE appid = ?
		ORDER BY timestamp DESC, log_file DESC, seq DESC
		LIMIT 1
	`, appid)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: no record for appid %d: %w", appid, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: latest record: %w", err)
	}
	return &r, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (RecordRow, error) {
	var r RecordRow
	var info string
	if err := s.Scan(&r.LogFile, &r.Seq, &r.Timestamp, &r.AppID, &info); err != nil {
		return r, err
	}
	r.GameInfo = json.RawMessage(info)
	return r, nil
}
