package pipeline

import (
	"strings"

	"belfiore/internal"
)

// Reconcile collapses a mapped batch by natural key, keeping the first
// occurrence in stable order, and drops records whose key is empty. The
// returned counts feed the sync report.
func Reconcile(records []internal.GeoRecord) (out []internal.GeoRecord, emptyKey, duplicates int) {
	seen := make(map[string]bool, len(records))
	for _, rec := range records {
		key := strings.TrimSpace(rec.CodiceCatastale)
		if key == "" {
			emptyKey++
			continue
		}
		if seen[key] {
			duplicates++
			continue
		}
		seen[key] = true
		out = append(out, rec)
	}
	return out, emptyKey, duplicates
}
