package formula

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hermannm.dev/widgetengine/value"
)

func TestCompiledArithmetic(t *testing.T) {
	compiled := Compile("[A] + [B]")
	require.NoError(t, compiled.Err())

	assert.Equal(t, value.Number(5), compiled.Eval(value.RowOf("A", 2, "B", 3)))
	assert.Equal(t, value.Null(), compiled.Eval(value.RowOf("A", "x", "B", 3)))
}

func TestEvaluate(t *testing.T) {
	row := value.RowOf(
		"Revenue", 200,
		"Cost", "150",
		"Region", "north",
		"Empty", "",
		"Order Date", "2024-05-02",
	)

	for _, testCase := range []struct {
		formula  string
		expected value.Value
	}{
		{"[Revenue] - [Cost]", value.Number(50)},
		{"([Revenue] - [Cost]) / [Revenue] * 100", value.Number(25)},
		{"-[Revenue] + 10 * 2", value.Number(-180)},
		{"[Revenue] % 7", value.Number(4)},
		{"[Missing] + 1", value.Number(1)},
		{"[Empty] + 1", value.Number(1)},
		{"[revenue]", value.Number(200)},
		{"[Revenue] / 0", value.Null()},
		{"IF([Revenue] > [Cost], 'profit', 'loss')", value.String("profit")},
		{"IF([Revenue] < 0, 1 / 0, 7)", value.Number(7)},
		{"IF(FALSE, 1)", value.Bool(false)},
		{"[Region] = 'north'", value.Bool(true)},
		{"[Region] <> 'north'", value.Bool(false)},
		{"[Cost] == 150", value.Bool(true)},
		{"AND([Revenue] > 100, [Cost] > 100)", value.Bool(true)},
		{"OR(FALSE, 0, '')", value.Bool(false)},
		{"NOT([Revenue])", value.Bool(false)},
		{"[Revenue] > 100 && [Region]", value.String("north")},
		{"0 || 'fallback'", value.String("fallback")},
		{"!([Revenue] > 100)", value.Bool(false)},
		{"ABS(-3.5)", value.Number(3.5)},
		{"ROUND(2.346, 2)", value.Number(2.35)},
		{"ROUND(-2.5)", value.Number(-3)},
		{"CEILING(1.2) + FLOOR(1.8)", value.Number(3)},
		{"MAX(1, [Revenue], 3)", value.Number(200)},
		{"MIN(4, [Cost])", value.Number(4)},
		{"UPPER([Region])", value.String("NORTH")},
		{"lower('ABC')", value.String("abc")},
		{"CONCAT([Region], '-', 1)", value.String("north-1")},
		{"LEN('héllo')", value.Number(5)},
		{"[Order Date___year] = '2024'", value.Bool(true)},
		{"UPPER([Region]) * 2", value.Null()},
	} {
		assert.Equal(t, testCase.expected, Evaluate(testCase.formula, row), testCase.formula)
	}
}

func TestParseErrors(t *testing.T) {
	for _, formula := range []string{
		"",
		"[A] +",
		"(1 + 2",
		"FOO(1)",
		"ROUND()",
		"NOT(1, 2)",
		"Revenue + 1",
		"'unterminated",
		"1 2",
		"[A] $ 2",
	} {
		assert.Error(t, Parse(formula), formula)
		assert.Equal(t, value.Null(), Evaluate(formula, value.RowOf("A", 1)), formula)
	}
}

func TestNestingLimit(t *testing.T) {
	deep := ""
	for i := 0; i < maxNestingDepth+5; i++ {
		deep += "("
	}
	deep += "1"
	for i := 0; i < maxNestingDepth+5; i++ {
		deep += ")"
	}

	require.Error(t, Parse(deep))
}

func TestValidateFormula(t *testing.T) {
	available := []string{"Revenue", "Cost", "OrderDate"}

	assert.Equal(t, Validation{Valid: true}, ValidateFormula("[Revenue] - [cost]", available))
	assert.True(t, ValidateFormula("[OrderDate___quarter] = '2024 Q1'", available).Valid)

	unbalanced := ValidateFormula("[Revenue - [Cost]", available)
	assert.False(t, unbalanced.Valid)
	assert.Contains(t, unbalanced.Error, "unbalanced brackets")

	unknown := ValidateFormula("[Revenue] + [Tax] +", available)
	assert.False(t, unknown.Valid)
	assert.Equal(t, "unknown field 'Tax'", unknown.Error)

	syntax := ValidateFormula("[Revenue] +", available)
	assert.False(t, syntax.Valid)
	assert.NotEmpty(t, syntax.Error)

	assert.True(t, ValidateFormula("CONCAT('[', [Revenue])", available).Valid)
}

func TestFields(t *testing.T) {
	assert.Equal(t, []string{"A", "B c"}, Fields("[A] + [ B c ] * [A]"))
}

func TestTranspile(t *testing.T) {
	for _, testCase := range []struct {
		formula  string
		expected string
	}{
		{"[Revenue] - [Cost]", "(`Revenue` - `Cost`)"},
		{"[Profit] / [Revenue]", "((`Profit`) * 1.0 / NULLIF(`Revenue`, 0))"},
		{`IF([Name] = "it's", 1, 0)`, "CASE WHEN (`Name` = 'it''s') THEN 1 ELSE 0 END"},
		{"MAX([A], 2) && !ROUND([B], 1)", "(greatest(`A`, 2) AND (NOT round(`B`, 1)))"},
	} {
		transpiled, err := Transpile(testCase.formula, BacktickQuote)
		require.NoError(t, err, testCase.formula)
		assert.Equal(t, testCase.expected, transpiled, testCase.formula)
	}

	_, err := Transpile("[A] +", BacktickQuote)
	assert.Error(t, err)
}
