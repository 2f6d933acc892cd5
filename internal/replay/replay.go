// Package replay loads pre-recorded event files: a JSON array of
// records shaped {t, type, ...}, sorted by t non-decreasing. The event
// queue never re-sorts, so an out-of-order file is rejected here.
package replay

import (
	"encoding/json"
	"fmt"

	client "tankdown/client"
)

// Load decodes a replay document against the engine's registry.
func Load(data []byte, registry *client.Registry) ([]client.Record, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("decode replay: %w", err)
	}

	records := make([]client.Record, 0, len(raws))
	lastT := -1.0
	for i, raw := range raws {
		rec, err := registry.Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("replay record %d: %w", i, err)
		}
		if rec.T < lastT {
			return nil, fmt.Errorf("replay record %d: timestamp %v precedes %v; replay files must be sorted", i, rec.T, lastT)
		}
		lastT = rec.T
		records = append(records, rec)
	}
	return records, nil
}
