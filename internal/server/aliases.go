package server

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tonearm/tonearm/internal/models"
)

// fieldAliases maps the interaction field names seen in the wild to the
// canonical ones. Keys are compared case-insensitively with underscores
// stripped, so "Rating", "rating" and "completion_rate" all resolve.
var fieldAliases = map[string]string{
	"title":          "title",
	"song":           "title",
	"songtitle":      "title",
	"track":          "title",
	"trackname":      "title",
	"name":           "title",
	"creator":        "creator",
	"artist":         "creator",
	"artistname":     "creator",
	"category":       "category",
	"genre":          "category",
	"mood":           "mood",
	"activity":       "activity",
	"hour":           "hour",
	"hourofday":      "hour",
	"weekend":        "weekend",
	"isweekend":      "weekend",
	"rating":         "rating",
	"score":          "rating",
	"completion":     "completion",
	"completionrate": "completion",
	"played":         "completion",
	"liked":          "liked",
	"favorite":       "liked",
	"skipped":        "skipped",
	"added":          "added",
	"addedtolibrary": "added",
	"seen":           "seen",
	"trackid":        "track_id",
}

// decodeInteractions parses an uploaded record batch, resolving field-name
// aliases to the canonical schema before unmarshaling. A record that fails
// to decode is skipped, not fatal; only a malformed envelope rejects the
// batch. Returns the surviving records and the skipped count.
func decodeInteractions(data []byte) ([]models.Interaction, int, error) {
	var raw []map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, 0, fmt.Errorf("invalid interaction batch: %w", err)
	}

	records := make([]models.Interaction, 0, len(raw))
	skipped := 0
	for _, rec := range raw {
		canonical := make(map[string]json.RawMessage, len(rec))
		for key, val := range rec {
			norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(key)), "_", "")
			if target, ok := fieldAliases[norm]; ok {
				canonical[target] = val
			}
		}
		buf, err := json.Marshal(canonical)
		if err != nil {
			skipped++
			continue
		}
		var out models.Interaction
		if err := json.Unmarshal(buf, &out); err != nil {
			skipped++
			continue
		}
		records = append(records, out)
	}
	return records, skipped, nil
}
