package analysis

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/inspection-report/internal/form"
	"github.com/a3tai/inspection-report/internal/schema"
)

const conformingText = "Aquí está el análisis:\n```json\n" + `{
  "general": {"num_aparato": "A-1234", "carga_kg": 630, "personas": "8", "velocidad": null},
  "items": [
    {"id": "cabina_luz", "estado": "OK", "observaciones": "Funciona"},
    {"id": "puertas_pisadera", "estado": "DEFECTO", "observaciones": "Golpe en la pisadera"}
  ],
  "summary": "Instalación en buen estado salvo la pisadera."
}` + "\n```"

func TestParseText_Conforming(t *testing.T) {
	r := ParseText(conformingText)

	require.False(t, r.Fallback())
	assert.True(t, r.Conforms, r.Problems)
	assert.Equal(t, General{NumAparato: "A-1234", CargaKg: "630", Personas: "8"}, r.General)
	assert.Equal(t, []Item{
		{ID: "cabina_luz", Estado: "OK", Observaciones: "Funciona"},
		{ID: "puertas_pisadera", Estado: "DEFECTO", Observaciones: "Golpe en la pisadera"},
	}, r.Items)
	assert.Equal(t, "Instalación en buen estado salvo la pisadera.", r.Summary)
}

func TestParseText_NonConforming(t *testing.T) {
	r := ParseText(`{"items": [{"id": "foso", "estado": "ROTO"}], "notes": 3}`)

	require.False(t, r.Fallback(), "shape mismatch is not a parse failure")
	assert.False(t, r.Conforms)
	assert.NotEmpty(t, r.Problems)
	assert.Equal(t, []Item{{ID: "foso", Estado: "ROTO"}}, r.Items)
	assert.EqualValues(t, 3, mustNumber(t, r.Data["notes"]))
}

func mustNumber(t *testing.T, v any) int64 {
	t.Helper()
	n, ok := v.(interface{ Int64() (int64, error) })
	require.True(t, ok, "%T", v)
	i, err := n.Int64()
	require.NoError(t, err)
	return i
}

func TestParseText_Fallbacks(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		marker string
	}{
		{"no braces", "No puedo analizar estas imágenes.", MarkerNoJSON},
		{"closing before opening", "} y luego {", MarkerNoJSON},
		{"broken object", `{"general": {"num_aparato": }`, MarkerParseError},
		{"two objects", `{"a": 1} y también {"b": 2}`, MarkerParseError},
		{"array span", `{ [1,2] }`, MarkerParseError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ParseText(tt.text)
			assert.True(t, r.Fallback())
			assert.Equal(t, tt.marker, r.Marker)
			assert.Equal(t, map[string]any{"raw_text": tt.text, "error": tt.marker}, r.Data)
			assert.False(t, r.Conforms)
		})
	}
}

func TestParseText_NoSpanProperty(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("text without braces falls back with its raw text", prop.ForAll(
		func(s string) bool {
			s = strings.NewReplacer("{", "", "}", "").Replace(s)
			r := ParseText(s)
			return r.Marker == MarkerNoJSON && r.RawText == s
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

func TestResult_Apply(t *testing.T) {
	obs := schema.Key{Section: "cierre", Field: "observaciones_finales"}

	s := form.NewSession(schema.Default())
	keys, err := ParseText(conformingText).Apply(s)
	require.NoError(t, err)
	assert.Equal(t, []schema.Key{obs}, keys)
	v, _ := s.Value(obs)
	assert.Equal(t, "Instalación en buen estado salvo la pisadera.", v)

	s = form.NewSession(schema.Default())
	require.NoError(t, s.SetField(obs, "Escrito por el técnico"))
	keys, err = ParseText(conformingText).Apply(s)
	require.NoError(t, err)
	assert.Empty(t, keys)
	v, _ = s.Value(obs)
	assert.Equal(t, "Escrito por el técnico", v)

	keys, err = ParseText("sin datos").Apply(s)
	require.NoError(t, err)
	assert.Empty(t, keys)
}
