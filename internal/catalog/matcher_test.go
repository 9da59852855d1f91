package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshot(names ...string) Catalog {
	rows := make([]map[string]any, 0, len(names))
	for _, n := range names {
		rows = append(rows, map[string]any{"servicio": n})
	}
	return Normalize(rows, 30)
}

func TestMatchExactName(t *testing.T) {
	c := snapshot("Corte de pelo", "Manicura")

	rec := Match("quiero reservar un corte de pelo para mañana", c)

	require.NotNil(t, rec)
	assert.Equal(t, "Corte de pelo", rec.Name)
}

func TestMatchIsCaseInsensitive(t *testing.T) {
	c := snapshot("Manicura")

	rec := Match("¿Cuánto cuesta la MANICURA?", c)

	require.NotNil(t, rec)
	assert.Equal(t, "Manicura", rec.Name)
}

func TestExactNameBeatsKeyword(t *testing.T) {
	// "corte" is a category keyword, but the explicit mention of an exact
	// service name must win.
	c := snapshot("Corte de pelo", "Manicura")

	rec := Match("necesito un corte para la manicura", c)

	require.NotNil(t, rec)
	assert.Equal(t, "Manicura", rec.Name)
}

func TestKeywordCategoryMatch(t *testing.T) {
	c := snapshot("Manicura", "Corte caballero")

	rec := Match("me quiero cortar el pelo", c)

	require.NotNil(t, rec)
	assert.Equal(t, "Corte caballero", rec.Name)
}

func TestFallbackToFirstRecord(t *testing.T) {
	c := snapshot("Masaje relajante", "Pedicura")

	rec := Match("hola, ¿tenéis hueco esta semana?", c)

	require.NotNil(t, rec)
	assert.Equal(t, "Masaje relajante", rec.Name)
}

func TestEmptyCatalogReturnsNil(t *testing.T) {
	assert.Nil(t, Match("un corte por favor", Catalog{}))
}

func TestRowsWithoutNameAreSkippedButFallbackEligible(t *testing.T) {
	c := Normalize([]map[string]any{
		{"precio": "10"},
		{"servicio": "Manicura"},
	}, 30)

	rec := Match("quiero una manicura", c)
	require.NotNil(t, rec)
	assert.Equal(t, "Manicura", rec.Name)

	// No mention at all: fallback is positional, the nameless first row wins.
	rec = Match("buenas tardes", c)
	require.NotNil(t, rec)
	assert.False(t, rec.Matchable())
}

func TestMatchIsDeterministic(t *testing.T) {
	c := snapshot("Corte de pelo", "Corte caballero", "Manicura")
	msg := "quiero pedir hora para cortarme el pelo"

	first := Match(msg, c)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, Match(msg, c))
	}
}

func TestMessageSideIsNotAccentFolded(t *testing.T) {
	// Catalog values keep their accents (only header keys are folded) and the
	// message is only case-folded, so an accentless spelling neither
	// exact-matches nor resolves through the accentless category string. It
	// lands on the positional fallback. Documented asymmetry, kept as-is.
	c := snapshot("Masaje", "Depilación cera")

	rec := Match("quiero depilacion", c)

	require.NotNil(t, rec)
	assert.Equal(t, "Masaje", rec.Name)

	// With the accent typed out, the exact substring match wins.
	rec = Match("quiero depilación cera", c)
	require.NotNil(t, rec)
	assert.Equal(t, "Depilación cera", rec.Name)
}
