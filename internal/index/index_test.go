package index

import (
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/starford/envtest/internal/apperr"
	"github.com/starford/envtest/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "envtest-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func rec(ts string, appid int64, info string) models.DebugRecord {
	return models.DebugRecord{Timestamp: ts, AppID: appid, GameInfo: json.RawMessage(info)}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM log_files`).Scan(&count); err != nil {
		t.Fatalf("log_files table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM records`).Scan(&count); err != nil {
		t.Fatalf("records table missing: %v", err)
	}
}

func TestReplaceFileAndGetChecksum(t *testing.T) {
	db := testDB(t)
	recs := []models.DebugRecord{
		rec("2025-03-14T10:00:00.000000", 440, `{"hp":100}`),
		rec("2025-03-14T11:00:00.000000", 570, `"No game info provided"`),
	}
	if err := db.ReplaceFile("log-20250314.log", "abc123", recs); err != nil {
		t.Fatalf("ReplaceFile: %v", err)
	}
	cs, err := db.GetChecksum("log-20250314.log")
	if err != nil {
		t.Fatalf("GetChecksum: %v", err)
	}
	if cs != "abc123" {
		t.Errorf("checksum = %q, want %q", cs, "abc123")
	}

	rows, total, err := db.ListRecords(RecordQuery{})
	if err != nil {
		t.Fatalf("ListRecords: %v", err)
	}
	if total != 2 || len(rows) != 2 {
		t.Fatalf("total = %d, rows = %d", total, len(rows))
	}
	if rows[0].AppID != 570 || rows[1].Seq != 0 {
		t.Errorf("rows not newest first: %+v", rows)
	}
}

func TestReplaceFileReplacesRecords(t *testing.T) {
	db := testDB(t)
	_ = db.ReplaceFile("log-20250314.log", "1", []models.DebugRecord{rec("2025-03-14T10:00:00.000000", 1, `{}`)})
	_ = db.ReplaceFile("log-20250314.log", "2", []models.DebugRecord{
		rec("2025-03-14T10:00:00.000000", 1, `{}`),
		rec("2025-03-14T10:05:00.000000", 1, `{"level":2}`),
	})

	cs, _ := db.GetChecksum("log-20250314.log")
	if cs != "2" {
		t.Errorf("checksum = %q, want %q", cs, "2")
	}
	_, total, _ := db.ListRecords(RecordQuery{})
	if total != 2 {
		t.Errorf("total = %d, want 2 after replace", total)
	}
}

func TestDeleteFile(t *testing.T) {
	db := testDB(t)
	_ = db.ReplaceFile("log-20250314.log", "x", []models.DebugRecord{rec("2025-03-14T10:00:00.000000", 1, `{}`)})

	if err := db.DeleteFile("log-20250314.log"); err != nil {
		t.Fatalf("DeleteFile: %v", err)
	}
	cs, _ := db.GetChecksum("log-20250314.log")
	if cs != "" {
		t.Errorf("deleted file still has checksum %q", cs)
	}
	_, total, _ := db.ListRecords(RecordQuery{})
	if total != 0 {
		t.Errorf("expected 0 records after delete, got %d", total)
	}
}

func TestListRecords_FilterAndPaging(t *testing.T) {
	db := testDB(t)
	_ = db.ReplaceFile("log-20250313.log", "a", []models.DebugRecord{
		rec("2025-03-13T10:00:00.000000", 440, `{"n":1}`),
		rec("2025-03-13T11:00:00.000000", 570, `{"n":2}`),
	})
	_ = db.ReplaceFile("log-20250314.log", "b", []models.DebugRecord{
		rec("2025-03-14T10:00:00.000000", 440, `{"n":3}`),
	})

	appid := int64(440)
	rows, total, err := db.ListRecords(RecordQuery{AppID: &appid, Limit: 1})
	if err != nil {
		t.Fatalf("ListRecords: %v", err)
	}
	if total != 2 {
		t.Errorf("total = %d, want 2", total)
	}
	if len(rows) != 1 || string(rows[0].GameInfo) != `{"n":3}` {
		t.Errorf("first page = %+v", rows)
	}

	rows, _, _ = db.ListRecords(RecordQuery{AppID: &appid, Limit: 1, Offset: 1})
	if len(rows) != 1 || string(rows[0].GameInfo) != `{"n":1}` {
		t.Errorf("second page = %+v", rows)
	}
}

func TestLatestForApp(t *testing.T) {
	db := testDB(t)
	_ = db.ReplaceFile("log-20250314.log", "a", []models.DebugRecord{
		rec("2025-03-14T10:00:00.000000", 440, `{"v":"old"}`),
		rec("2025-03-14T12:00:00.000000", 440, `{"v":"new"}`),
	})

	r, err := db.LatestForApp(440)
	if err != nil {
		t.Fatalf("LatestForApp: %v", err)
	}
	if string(r.GameInfo) != `{"v":"new"}` {
		t.Errorf("game_info = %s", r.GameInfo)
	}

	if _, err := db.LatestForApp(999); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestGetChecksum_NotFound(t *testing.T) {
	db := testDB(t)
	cs, err := db.GetChecksum("log-19990101.log")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs != "" {
		t.Errorf("expected empty checksum, got %q", cs)
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	_ = db.ReplaceFile("log-20250314.log", "1", []models.DebugRecord{
		rec("2025-03-14T10:00:00.000000", 440, `{"note":"uniqueword appears here"}`),
		rec("2025-03-14T10:01:00.000000", 441, `{"note":"nothing"}`),
	})

	results, err := db.Search("uniqueword", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].AppID != 440 || results[0].LogFile != "log-20250314.log" {
		t.Errorf("search results = %+v, want 1 hit for appid 440", results)
	}
}
