package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApply_AliasExtension(t *testing.T) {
	rules := ECFlowRules()

	in := map[string]string{
		"suite.physical_location": "renci",
		"suite.instance_name":     "ec95d",
		"suite.uid":               "89436",
		"forcing.advisory":        "2024091612",
		"forcing.ensemblename":    "NAMforecast",
		"untouched":               "kept",
	}
	out := rules.Apply(in)

	assert.Equal(t, "renci", out["physical_location"])
	assert.Equal(t, "renci", out["monitoring.rmqmessaging.locationname"])
	assert.Equal(t, "ec95d", out["instance_name"])
	assert.Equal(t, "ec95d", out["instancename"])
	assert.Equal(t, "89436", out["uid"])
	assert.Equal(t, "namforecast", out["enstorm"])
	assert.Equal(t, "namforecast", out["asgs.enstorm"])
	assert.Equal(t, "kept", out["untouched"])

	// Input is never modified.
	assert.NotContains(t, in, "physical_location")
}

func TestApply_AliasOverwritesExistingTarget(t *testing.T) {
	rules := Rules{Aliases: []AliasRule{
		{Source: "a", Targets: []string{"x"}},
		{Source: "b", Targets: []string{"x"}},
	}}

	// Later rule wins on a shared target, and a pre-existing target
	// value is always overwritten.
	out := rules.Apply(map[string]string{"a": "1", "b": "2", "x": "old"})
	assert.Equal(t, "2", out["x"])

	out = rules.Apply(map[string]string{"a": "1", "x": "old"})
	assert.Equal(t, "1", out["x"])
}

func TestApply_IsDeterministic(t *testing.T) {
	rules := ECFlowRules()
	in := map[string]string{
		"suite.physical_location": "renci",
		"forcing.stormname":       "ian",
	}

	first := rules.Apply(in)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, rules.Apply(in))
	}
}

func TestReformat_DigitsPad2(t *testing.T) {
	rules := Rules{Reformats: []Reformat{{Key: "storm_number", Kind: DigitsPad2}}}

	out := rules.Apply(map[string]string{"storm_number": "al03"})
	assert.Equal(t, "03", out["storm_number"])

	out = rules.Apply(map[string]string{"storm_number": "al3"})
	assert.Equal(t, "03", out["storm_number"])

	out = rules.Apply(map[string]string{"storm_number": "not a num"})
	assert.Equal(t, "NaN", out["storm_number"])
}

func TestReformat_FloatCoerce(t *testing.T) {
	rules := Rules{Reformats: []Reformat{{Key: "v", Kind: FloatCoerce}}}

	out := rules.Apply(map[string]string{"v": "1.5e10"})
	assert.Equal(t, "15000000000.0", out["v"])

	// Idempotent.
	out = rules.Apply(out)
	assert.Equal(t, "15000000000.0", out["v"])

	// Non-numeric values pass through unchanged.
	out = rules.Apply(map[string]string{"v": "abc"})
	assert.Equal(t, "abc", out["v"])
}

func TestReformat_IntegerCoerce(t *testing.T) {
	rules := Rules{Reformats: []Reformat{{Key: "v", Kind: IntegerCoerce}}}

	assert.Equal(t, "2024091612", rules.Apply(map[string]string{"v": "2024091612"})["v"])
	assert.Equal(t, "12", rules.Apply(map[string]string{"v": "12.0"})["v"])
	assert.Equal(t, "garbage", rules.Apply(map[string]string{"v": "garbage"})["v"])
}

func TestReformat_CaseFolds(t *testing.T) {
	rules := Rules{Reformats: []Reformat{
		{Key: "up", Kind: Uppercase},
		{Key: "down", Kind: Lowercase},
		{Key: "sentence", Kind: SentenceCase},
	}}

	out := rules.Apply(map[string]string{"up": "ian", "down": "NAMforecast", "sentence": "hurricane IAN"})
	assert.Equal(t, "IAN", out["up"])
	assert.Equal(t, "namforecast", out["down"])
	assert.Equal(t, "Hurricane ian", out["sentence"])

	// All three are idempotent.
	again := rules.Apply(out)
	assert.Equal(t, out, again)
}

func TestReformat_SkipsMissingAndEmpty(t *testing.T) {
	rules := Rules{Reformats: []Reformat{{Key: "v", Kind: DigitsPad2}}}

	out := rules.Apply(map[string]string{"other": "1"})
	assert.NotContains(t, out, "v")

	out = rules.Apply(map[string]string{"v": ""})
	assert.Equal(t, "", out["v"])
}
