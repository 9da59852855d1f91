package conversation

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// WriteCSV renders turns as the downloadable transcript: timestamp, sender,
// message, chronological order.
func WriteCSV(w io.Writer, turns []Turn) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"timestamp", "sender", "message"}); err != nil {
		return fmt.Errorf("conversation: write csv header: %w", err)
	}
	for _, t := range turns {
		record := []string{
			t.Timestamp.UTC().Format(time.RFC3339),
			string(t.Sender),
			t.Text,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("conversation: write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON renders turns as a JSON array.
func WriteJSON(w io.Writer, turns []Turn) error {
	if turns == nil {
		turns = []Turn{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(turns)
}
