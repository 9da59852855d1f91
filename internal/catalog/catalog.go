// Package catalog normalizes uploaded tabular datasets into typed service
// records and resolves free-text messages to a service.
package catalog

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultCapacity is used when a row has no parseable capacidad value.
const DefaultCapacity = 1

// Record is one bookable offering from the uploaded dataset. Price is kept
// as the raw uploaded text: informational replies pass it through unchanged.
type Record struct {
	Name            string
	Price           string
	DurationMinutes int
	Capacity        int

	// Fields holds the whole row under normalized keys, for prompt context
	// and export.
	Fields map[string]string
}

// Matchable reports whether the record can be resolved by name or keyword.
// Rows uploaded without a servicio column stay in the catalog but only
// participate as the positional fallback.
func (r Record) Matchable() bool {
	return r.Name != ""
}

// Catalog is an ordered snapshot of service records. Upload order is
// preserved; a new upload replaces the catalog wholesale.
type Catalog struct {
	Records []Record
}

// Empty reports whether the catalog has no records at all.
func (c Catalog) Empty() bool {
	return len(c.Records) == 0
}

// Normalize folds arbitrary uploaded rows into a catalog snapshot.
// Header keys are lowercased, trimmed and accent-folded so uploads with
// inconsistent spelling (Servicio, SERVICIO, duración) still populate the
// servicio/precio/duracion/capacidad fields. Numeric parse failures degrade
// to defaults; they are never fatal.
func Normalize(rows []map[string]any, defaultDuration int) Catalog {
	if defaultDuration <= 0 {
		defaultDuration = 30
	}
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		fields := make(map[string]string, len(row))
		for key, value := range row {
			fields[FoldKey(key)] = strings.TrimSpace(toString(value))
		}
		rec := Record{
			Name:            fields["servicio"],
			Price:           fields["precio"],
			DurationMinutes: parseIntOr(fields["duracion"], defaultDuration),
			Capacity:        parseIntOr(fields["capacidad"], DefaultCapacity),
			Fields:          fields,
		}
		if rec.Capacity < 1 {
			rec.Capacity = DefaultCapacity
		}
		if rec.DurationMinutes <= 0 {
			rec.DurationMinutes = defaultDuration
		}
		records = append(records, rec)
	}
	return Catalog{Records: records}
}

var accentFolder = strings.NewReplacer(
	"á", "a",
	"é", "e",
	"í", "i",
	"ó", "o",
	"ú", "u",
)

// FoldKey normalizes a header key: lowercase, whitespace stripped, accented
// vowels folded.
func FoldKey(key string) string {
	folded := strings.ToLower(strings.TrimSpace(key))
	folded = strings.ReplaceAll(folded, " ", "")
	return accentFolder.Replace(folded)
}

func toString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		// JSON numbers arrive as float64; render 15 not 15.000000.
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func parseIntOr(raw string, fallback int) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return n
	}
	// "30 min", "30.0" and similar still count.
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return int(f)
	}
	digits := leadingDigits(raw)
	if digits == "" {
		return fallback
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return fallback
	}
	return n
}

func leadingDigits(s string) string {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	return s[:end]
}
