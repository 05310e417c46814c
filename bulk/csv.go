// Package bulk delivers a full row set to the collection platform's data
// import surface: the rows become one CSV upload, and stale uploads from
// previous runs are removed so only the freshest import is live.
package bulk

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/edgehill-data/gapush/source"
	"github.com/edgehill-data/gapush/types"
)

// WriteCSV renders the row set as a CSV document with a header row. Column
// names are rewritten to protocol field names before writing.
func WriteCSV(set *types.RowSet) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(source.RenameColumns(set.Columns)); err != nil {
		return nil, fmt.Errorf("csv: header: %w", err)
	}
	for i, row := range set.Rows {
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("csv: row %d: %w", i, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("csv: flush: %w", err)
	}

	return buf.Bytes(), nil
}
