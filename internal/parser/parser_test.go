package parser

import (
	"errors"
	"testing"
)

const twoRecords = `{
  "timestamp": "2025-03-14T21:05:09.123456",
  "appid": 440,
  "game_info": {
    "hp": 100
  }
}
{
  "timestamp": "2025-03-14T21:06:00.000000",
  "appid": 0,
  "game_info": "No game info provided"
}
`

func TestParse_ConcatenatedDocuments(t *testing.T) {
	r, err := Parse([]byte(twoRecords))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(r.Records) != 2 {
		t.Fatalf("records = %d, want 2", len(r.Records))
	}
	if r.Records[0].AppID != 440 || string(r.Records[0].GameInfo) != `{"hp":100}` {
		t.Errorf("first record = %+v (%s)", r.Records[0], r.Records[0].GameInfo)
	}
	if string(r.Records[1].GameInfo) != `"No game info provided"` {
		t.Errorf("second game_info = %s", r.Records[1].GameInfo)
	}
}

func TestParse_Empty(t *testing.T) {
	r, err := Parse(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(r.Records) != 0 {
		t.Errorf("records = %v", r.Records)
	}
}

func TestParse_MalformedTailKeepsPrefix(t *testing.T) {
	data := twoRecords + "{\n  \"timestamp\": \"2025-03-14T21:07"
	r, err := Parse([]byte(data))
	if !errors.Is(err, ErrMalformedTail) {
		t.Fatalf("err = %v, want ErrMalformedTail", err)
	}
	if len(r.Records) != 2 {
		t.Errorf("records = %d, want the 2 complete ones", len(r.Records))
	}
}

func TestParse_SkipsNonRecords(t *testing.T) {
	data := `[1,2]` + "\n" + `{"timestamp":"x","appid":"not a number","game_info":1}` + "\n" +
		`{"appid":1}` + "\n" + `{"timestamp":"2025-01-01T00:00:00.000000","appid":5,"game_info":{}}`
	r, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Skipped != 3 {
		t.Errorf("skipped = %d, want 3", r.Skipped)
	}
	if len(r.Records) != 1 || r.Records[0].AppID != 5 {
		t.Errorf("records = %+v", r.Records)
	}
}
