package catalog

import "strings"

// category groups keywords that imply a service family. Order is part of
// the contract: earlier categories win when a message mentions several.
type category struct {
	name     string
	keywords []string
}

var categories = []category{
	{"corte", []string{"corte", "pelo", "cabello", "cortar"}},
	{"manicura", []string{"manicura", "uñas", "unas", "manos"}},
	{"pedicura", []string{"pedicura", "pies"}},
	{"tinte", []string{"tinte", "color", "mechas", "teñir"}},
	{"masaje", []string{"masaje", "masajes", "relajante"}},
	{"depilacion", []string{"depilación", "depilacion", "cera"}},
}

// Match resolves a free-text message to a service record.
//
// Resolution order, first hit wins:
//  1. exact substring: the case-folded message contains a record's name,
//  2. keyword category: a category keyword appears in the message and a
//     record's name contains the category string,
//  3. the first record of a non-empty catalog.
//
// An explicit mention always outranks keyword inference, which outranks the
// default-service assumption. The message itself is only case-folded, not
// accent-folded; the catalog side was accent-folded at ingestion.
func Match(message string, c Catalog) *Record {
	if c.Empty() {
		return nil
	}
	lowered := strings.ToLower(message)

	for i, rec := range c.Records {
		if !rec.Matchable() {
			continue
		}
		if strings.Contains(lowered, strings.ToLower(rec.Name)) {
			return &c.Records[i]
		}
	}

	for _, cat := range categories {
		if !containsAny(lowered, cat.keywords) {
			continue
		}
		for i, rec := range c.Records {
			if !rec.Matchable() {
				continue
			}
			if strings.Contains(strings.ToLower(rec.Name), cat.name) {
				return &c.Records[i]
			}
		}
	}

	return &c.Records[0]
}

func containsAny(message string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(message, kw) {
			return true
		}
	}
	return false
}
