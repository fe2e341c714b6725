package form

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"

	"github.com/a3tai/inspection-report/internal/schema"
)

func completeValues() schema.MapValues {
	return schema.MapValues{
		{Section: "general", Field: "obra"}:    "Residencial Norte",
		{Section: "general", Field: "fecha"}:   "2026-10-19",
		{Section: "general", Field: "tecnico"}: "Ana Ruiz",
	}
}

func TestValidate_Complete(t *testing.T) {
	res := Validate(schema.Default(), completeValues())
	assert.True(t, res.OK())
	assert.Empty(t, res.Missing())
}

func TestValidate_EachMissingKey(t *testing.T) {
	for _, k := range RequiredKeys {
		t.Run(k.String()+" absent", func(t *testing.T) {
			values := completeValues()
			delete(values, k)

			res := Validate(schema.Default(), values)
			assert.Equal(t, []schema.Key{k}, res.Missing())
		})
		t.Run(k.String()+" empty", func(t *testing.T) {
			values := completeValues()
			values[k] = ""

			res := Validate(schema.Default(), values)
			assert.Equal(t, []string{k.String()}, res.Strings())
		})
	}
}

func TestValidate_IgnoresPhotosAndOtherFields(t *testing.T) {
	values := completeValues()
	values[schema.Key{Section: "maquinas", Field: "carga_max"}] = ""

	res := Validate(schema.Default(), values)
	assert.True(t, res.OK(), "only the three general keys are enforced")
}

func TestValidate_AnyOtherStateProperty(t *testing.T) {
	keys := schema.Default().Keys()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("required keys present means valid regardless of other fields", prop.ForAll(
		func(picks []int, vals []string) bool {
			values := completeValues()
			for i := 0; i < len(picks) && i < len(vals); i++ {
				k := keys[picks[i]%len(keys)]
				if k.Section == "general" {
					continue
				}
				values[k] = vals[i]
			}
			return Validate(schema.Default(), values).OK()
		},
		gen.SliceOf(gen.IntRange(0, 1000)),
		gen.SliceOf(gen.AlphaString()),
	))

	properties.Property("dropping one required key reports exactly that key", prop.ForAll(
		func(i int) bool {
			values := completeValues()
			k := RequiredKeys[i]
			delete(values, k)
			res := Validate(schema.Default(), values)
			return res.Len() == 1 && res.Has(k)
		},
		gen.IntRange(0, len(RequiredKeys)-1),
	))

	properties.TestingRun(t)
}
