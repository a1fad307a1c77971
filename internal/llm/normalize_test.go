package llm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripCodeFences(t *testing.T) {
	cases := map[string]struct {
		in   string
		want string
	}{
		"json fence":         {in: "```json\n[1]\n```", want: "[1]"},
		"bare fence":         {in: "```\n{\"a\":1}\n```", want: `{"a":1}`},
		"no fence":           {in: "  {\"a\":1}  ", want: `{"a":1}`},
		"prose around":       {in: "Aqui está:\n```json\n{\"a\":1}\n```\nObrigado", want: `{"a":1}`},
		"unterminated":       {in: "```json\n{\"a\":1}", want: `{"a":1}`},
		"single line fence":  {in: "```{\"a\":1}```", want: `{"a":1}`},
		"fence inside value": {in: "[{\"obs\":\"use ```code``` aqui\"}]", want: "[{\"obs\":\"use ```code``` aqui\"}]"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, StripCodeFences(tc.in))
		})
	}
}

func TestNormalize_FencedMatchesUnfenced(t *testing.T) {
	body := `[{"hora":"07:11","materia_prima":"CMK","quantidade":"50"},{"hora":"08:02","materia_prima":"Areia","quantidade":"12"}]`

	plain, err := Normalize(body)
	require.NoError(t, err)
	fenced, err := Normalize("```json\n" + body + "\n```")
	require.NoError(t, err)

	assert.Equal(t, plain.Columns, fenced.Columns)
	assert.Equal(t, plain.Rows, fenced.Rows)
}

func TestNormalize_ExampleSheetRow(t *testing.T) {
	raw := "```json\n[{\"hora\":\"07:11\",\"materia_prima\":\"CMK\",\"quantidade\":\"50\"}]\n```"

	table, err := Normalize(raw)
	require.NoError(t, err)

	require.Equal(t, 1, table.Len())
	assert.Equal(t, []string{"hora", "materia_prima", "quantidade"}, table.Columns)
	assert.Equal(t, Row{"hora": "07:11", "materia_prima": "CMK", "quantidade": "50"}, table.Rows[0])
}

func TestNormalize_SharedKeysKeepRowAndColumnOrder(t *testing.T) {
	raw := `[{"z":1,"a":2},{"z":3,"a":4},{"z":5,"a":6}]`

	table, err := Normalize(raw)
	require.NoError(t, err)

	assert.Equal(t, []string{"z", "a"}, table.Columns)
	require.Equal(t, 3, table.Len())
	for i, want := range []int64{1, 3, 5} {
		assert.Equal(t, want, table.Cell(i, "z"))
	}
}

func TestNormalize_HeterogeneousRowsUnionColumns(t *testing.T) {
	table, err := Normalize(`[{"a":1},{"b":"x"},{"a":2,"c":true}]`)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, table.Columns)
	assert.Nil(t, table.Cell(1, "a"))
	assert.Equal(t, true, table.Cell(2, "c"))
}

func TestNormalize_SingleObjectFlattensNestedKeys(t *testing.T) {
	raw := `{"cliente":{"nome":"Ana","endereco":{"cidade":"Recife"}},"total":12.5,"itens":[1,2]}`

	table, err := Normalize(raw)
	require.NoError(t, err)

	require.Equal(t, 1, table.Len())
	assert.Equal(t, []string{"cliente.nome", "cliente.endereco.cidade", "total", "itens"}, table.Columns)
	assert.Equal(t, "Ana", table.Cell(0, "cliente.nome"))
	assert.Equal(t, "Recife", table.Cell(0, "cliente.endereco.cidade"))
	assert.Equal(t, 12.5, table.Cell(0, "total"))
	assert.Equal(t, "[1,2]", table.Cell(0, "itens"))
}

func TestNormalize_NullsAreEmpty(t *testing.T) {
	table, err := Normalize(`[{"a":null,"b":"x"}]`)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, table.Columns)
	assert.Nil(t, table.Cell(0, "a"))
}

func TestNormalize_Failures(t *testing.T) {
	for name, raw := range map[string]string{
		"not json":        "not json at all",
		"empty":           "   ",
		"empty fence":     "```json\n```",
		"scalar":          "42",
		"array of scalar": `[1,2,3]`,
		"truncated":       `[{"a":1}`,
	} {
		t.Run(name, func(t *testing.T) {
			table, err := Normalize(raw)
			assert.Nil(t, table)
			require.Error(t, err)

			var perr *ParseError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, raw, perr.Raw)
		})
	}
}

func TestNormalize_FenceInsideStringValue(t *testing.T) {
	table, err := Normalize("[{\"obs\":\"use ```code``` aqui\",\"a\":1}]")
	require.NoError(t, err)

	assert.Equal(t, []string{"obs", "a"}, table.Columns)
	assert.Equal(t, "use ```code``` aqui", table.Cell(0, "obs"))
	assert.Equal(t, int64(1), table.Cell(0, "a"))
	assert.Nil(t, table.Cell(5, "a"))
}
