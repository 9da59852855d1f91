package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
)

// ParseCSV reads an uploaded CSV dataset into raw row maps keyed by the
// header row, ready for Normalize. Short rows are padded with empty values;
// the header itself is not normalized here so Normalize stays the single
// place keys get folded.
func ParseCSV(r io.Reader) ([]map[string]any, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("catalog: empty csv upload")
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: read csv header: %w", err)
	}

	var rows []map[string]any
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("catalog: read csv row: %w", err)
		}
		row := make(map[string]any, len(header))
		for i, key := range header {
			if i < len(record) {
				row[key] = record[i]
			} else {
				row[key] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
