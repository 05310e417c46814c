// Package hit turns prediction rows into collection-endpoint hits: building
// the key/value mapping, encoding it into the wire format, and grouping hits
// into bounded batches.
package hit

import "github.com/edgehill-data/gapush/types"

// Build constructs one Hit from the configured default fields overlaid with
// one row of the prediction result.
//
// The key set is the union of defaults and row columns. Defaults with empty
// values are skipped; on key collision the row value wins.
func Build(defaults map[string]string, columns []string, row []string) types.Hit {
	h := make(types.Hit, len(defaults)+len(columns))

	for k, v := range defaults {
		if v != "" {
			h[k] = v
		}
	}

	for i, col := range columns {
		if i >= len(row) {
			break
		}
		h[col] = row[i]
	}

	return h
}
