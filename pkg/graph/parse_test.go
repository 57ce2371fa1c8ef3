package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	doc := `
module: coretools
classname: Pipeline
parameters:
  tools:
    - module: coretools
      classname: PromptTool
      parameters:
        template: "Tell me about {{$topic}}"
        limit: 3
    - module: coretools
      classname: QueryTool
  tags: [a, b]
  retries: 2
  verbose: true
`
	def, err := Parse([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, "coretools", def.Module)
	assert.Equal(t, "Pipeline", def.ClassName)
	assert.Empty(t, def.Method)
	assert.Equal(t, []string{"retries", "tags", "tools", "verbose"}, def.ParameterNames())

	tools := def.Parameters["tools"]
	require.Equal(t, KindToolRefList, tools.Kind)
	require.Len(t, tools.Refs, 2)
	assert.Equal(t, "PromptTool", tools.Refs[0].ClassName)
	assert.Equal(t, "Tell me about {{$topic}}", tools.Refs[0].Parameters["template"].Literal)
	assert.Equal(t, float64(3), tools.Refs[0].Parameters["limit"].Literal)

	assert.Equal(t, KindLiteral, def.Parameters["tags"].Kind)
	assert.Equal(t, []interface{}{"a", "b"}, def.Parameters["tags"].Literal)
	assert.Equal(t, float64(2), def.Parameters["retries"].Literal)
	assert.Equal(t, true, def.Parameters["verbose"].Literal)
}

func TestParse_JSONMatchesYAML(t *testing.T) {
	fromJSON, err := Parse([]byte(`{"module":"m","classname":"T","method":null,"parameters":{"n":1,"s":"x"}}`))
	require.NoError(t, err)
	fromYAML, err := Parse([]byte("module: m\nclassname: T\nparameters:\n  n: 1\n  s: x\n"))
	require.NoError(t, err)

	assert.Equal(t, fromJSON, fromYAML)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not a mapping", `[1, 2]`},
		{"missing module", `{"classname": "T"}`},
		{"empty module", `{"module": ""}`},
		{"classname not a string", `{"module": "m", "classname": 3}`},
		{"parameters not an object", `{"module": "m", "parameters": [1]}`},
		{"nested mapping without module", `{"module": "m", "parameters": {"x": {"classname": "U"}}}`},
		{"malformed", `{"module": `},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestFromMap_MixedListIsLiteral(t *testing.T) {
	def, err := FromMap(map[string]interface{}{
		"module": "m",
		"parameters": map[string]interface{}{
			"items": []interface{}{map[string]interface{}{"module": "x"}, "plain"},
			"empty": []interface{}{},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, KindLiteral, def.Parameters["items"].Kind)
	assert.Equal(t, KindLiteral, def.Parameters["empty"].Kind)
	assert.Equal(t, "m:", def.String())
}
