package heroic

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/buger/jsonparser"

	"github.com/starford/envtest/internal/models"
)

// NormalizeTitle trims surrounding whitespace and lower-cases s.
func NormalizeTitle(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// parseJSON validates data as a single JSON document and returns its bytes as
// a RawMessage.
func parseJSON(data []byte) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// FilterLibrary narrows a parsed library document to the games whose title
// matches appname. Documents that are not an object with a "games" array are
// returned unchanged. Entries that are not objects, or whose title is missing
// or not a string, never match. Source order is preserved.
func FilterLibrary(doc json.RawMessage, appname string) (json.RawMessage, error) {
	_, typ, _, err := jsonparser.Get(doc)
	if err != nil {
		return nil, fmt.Errorf("heroic: inspect library: %w", err)
	}
	if typ != jsonparser.Object {
		return doc, nil
	}

	games, gtyp, _, err := jsonparser.Get(doc, "games")
	if errors.Is(err, jsonparser.KeyPathNotFoundError) || (err == nil && gtyp != jsonparser.Array) {
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("heroic: read games: %w", err)
	}

	query := NormalizeTitle(appname)
	matches := []json.RawMessage{}
	_, err = jsonparser.ArrayEach(games, func(entry []byte, dt jsonparser.ValueType, _ int, _ error) {
		if dt != jsonparser.Object {
			return
		}
		title, terr := jsonparser.GetString(entry, "title")
		if terr != nil {
			title = ""
		}
		if NormalizeTitle(title) == query {
			matches = append(matches, json.RawMessage(entry))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("heroic: walk games: %w", err)
	}

	if len(matches) == 0 {
		return models.NotFoundJSON(), nil
	}
	out, err := json.Marshal(struct {
		Games []json.RawMessage `json:"games"`
	}{Games: matches})
	if err != nil {
		return nil, fmt.Errorf("heroic: encode matches: %w", err)
	}
	return out, nil
}
