package formula

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractIdentifiers_OrderStableAndDeduped(t *testing.T) {
	ids, err := ExtractIdentifiers("tmp = reach * impact\nvalue = tmp / effort + reach")
	require.NoError(t, err)
	assert.Equal(t, []string{"reach", "impact", "effort"}, ids)
}

func TestEvaluateScript_Basic(t *testing.T) {
	env := map[string]float64{"reach": 10000, "impact": 3, "confidence": 0.7, "effort": 20}
	result, err := EvaluateScript(context.Background(), "raw = reach * impact * confidence\nvalue = raw / effort", env, 1)
	require.NoError(t, err)
	assert.InDelta(t, 1050.0, result["value"], 1e-9)
}

func TestEvaluateScript_MissingValue(t *testing.T) {
	_, err := EvaluateScript(context.Background(), "x = 1 + 2", nil, 1)
	assert.ErrorIs(t, err, ErrMissingValue)
}

func TestEvaluateScript_DivisionByZero(t *testing.T) {
	_, err := EvaluateScript(context.Background(), "value = 1 / 0", nil, 1)
	var execErr *ExecutionError
	assert.ErrorAs(t, err, &execErr)
}

func TestEvaluateScript_NonFiniteRejected(t *testing.T) {
	_, err := EvaluateScript(context.Background(), "value = log(-1)", nil, 1)
	var execErr *ExecutionError
	assert.ErrorAs(t, err, &execErr)
}

func TestEvaluateScript_RejectsDisallowedConstructs(t *testing.T) {
	cases := []string{
		"value = obj.attr",
		"value = arr[0]",
		"value = foo(1)",
		"value = 1 == 2",
		"value = lambda x: x",
		"import os",
	}
	for _, c := range cases {
		_, err := EvaluateScript(context.Background(), c, nil, 1)
		require.Error(t, err, c)
		var invalid *InvalidFormulaError
		assert.ErrorAs(t, err, &invalid, c)
	}
}

func TestEvaluateScript_WhitelistedFunctions(t *testing.T) {
	result, err := EvaluateScript(context.Background(), "value = min(max(abs(-5), 2), sqrt(16)) + round(2.345, 1)", nil, 1)
	require.NoError(t, err)
	assert.InDelta(t, 4+2.3, result["value"], 1e-9)
}

func TestEvaluateScript_PowerRightAssociative(t *testing.T) {
	result, err := EvaluateScript(context.Background(), "value = 2 ** 3 ** 2", nil, 1)
	require.NoError(t, err)
	assert.InDelta(t, 512.0, result["value"], 1e-9)
}

func TestEvaluateScript_UnknownIdentifier(t *testing.T) {
	_, err := EvaluateScript(context.Background(), "value = missing_var * 2", nil, 1)
	var execErr *ExecutionError
	assert.ErrorAs(t, err, &execErr)
}

func TestValidateFormula_Warnings(t *testing.T) {
	warnings, err := ValidateFormula("unused = 1 + 2\nvalue = 3", 10)
	require.NoError(t, err)
	assert.Contains(t, warnings, `variable "unused" is assigned but never used`)
}

func TestValidateFormula_MaxLines(t *testing.T) {
	warnings, err := ValidateFormula("a = 1\nb = 2\nvalue = a + b", 2)
	require.NoError(t, err)
	found := false
	for _, w := range warnings {
		if w == "script has 3 statements, exceeding the recommended maximum of 2" {
			found = true
		}
	}
	assert.True(t, found)
}
