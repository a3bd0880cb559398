package heroic

import (
	"encoding/json"
	"reflect"
	"testing"
)

// jsonEqual compares two JSON documents structurally.
func jsonEqual(t *testing.T, got []byte, want string) bool {
	t.Helper()
	var g, w any
	if err := json.Unmarshal(got, &g); err != nil {
		t.Fatalf("got is not JSON: %v (%s)", err, got)
	}
	if err := json.Unmarshal([]byte(want), &w); err != nil {
		t.Fatalf("want is not JSON: %v", err)
	}
	return reflect.DeepEqual(g, w)
}

func TestNormalizeTitle(t *testing.T) {
	if got := NormalizeTitle("  HaDeS \t\n"); got != "hades" {
		t.Errorf("NormalizeTitle = %q", got)
	}
}

func TestFilterLibrary(t *testing.T) {
	cases := []struct {
		name    string
		doc     string
		appname string
		want    string
	}{
		{
			name:    "single match",
			doc:     `{"games":[{"title":"Hollow Knight","appName":"x"},{"title":"Celeste"}]}`,
			appname: "Hollow Knight",
			want:    `{"games":[{"title":"Hollow Knight","appName":"x"}]}`,
		},
		{
			name:    "case and whitespace insensitive, order kept",
			doc:     `{"games":[{"title":"  Hades  ","n":1},{"title":"Celeste"},{"title":"hades","n":2},{"title":"HADES","n":3}]}`,
			appname: "Hades",
			want:    `{"games":[{"title":"  Hades  ","n":1},{"title":"hades","n":2},{"title":"HADES","n":3}]}`,
		},
		{
			name:    "query is trimmed too",
			doc:     `{"games":[{"title":"Celeste"}]}`,
			appname: "  celeste ",
			want:    `{"games":[{"title":"Celeste"}]}`,
		},
		{
			name:    "no match",
			doc:     `{"games":[{"title":"Celeste"}]}`,
			appname: "Hades",
			want:    `"Not found"`,
		},
		{
			name:    "empty games",
			doc:     `{"games":[]}`,
			appname: "Hades",
			want:    `"Not found"`,
		},
		{
			name:    "bare array is returned raw",
			doc:     `[{"title":"Hades"}]`,
			appname: "Hades",
			want:    `[{"title":"Hades"}]`,
		},
		{
			name:    "object without games is returned raw",
			doc:     `{"library":[{"title":"Hades"}]}`,
			appname: "Hades",
			want:    `{"library":[{"title":"Hades"}]}`,
		},
		{
			name:    "games not an array is returned raw",
			doc:     `{"games":{"title":"Hades"}}`,
			appname: "Hades",
			want:    `{"games":{"title":"Hades"}}`,
		},
		{
			name:    "scalar document is returned raw",
			doc:     `42`,
			appname: "Hades",
			want:    `42`,
		},
		{
			name:    "non-object entries and non-string titles never match",
			doc:     `{"games":["Hades",null,{"title":7},{"title":["Hades"]},{"title":"Hades","ok":true}]}`,
			appname: "Hades",
			want:    `{"games":[{"title":"Hades","ok":true}]}`,
		},
		{
			name:    "missing title matches empty query",
			doc:     `{"games":[{"appName":"a"},{"title":"Hades"}]}`,
			appname: "   ",
			want:    `{"games":[{"appName":"a"}]}`,
		},
		{
			name:    "escaped titles are decoded before comparing",
			doc:     `{"games":[{"title":"Café \"Noir\""}]}`,
			appname: `café "noir"`,
			want:    `{"games":[{"title":"Café \"Noir\""}]}`,
		},
		{
			name:    "nested title does not count",
			doc:     `{"games":[{"meta":{"title":"Hades"}}]}`,
			appname: "Hades",
			want:    `"Not found"`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := FilterLibrary(json.RawMessage(tc.doc), tc.appname)
			if err != nil {
				t.Fatalf("FilterLibrary: %v", err)
			}
			if !jsonEqual(t, got, tc.want) {
				t.Errorf("got %s, want %s", got, tc.want)
			}
		})
	}
}
