package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanJSONBlock_JSONFence(t *testing.T) {
	input := "```json\n{\"a\": 1}\n```"
	assert.Equal(t, `{"a": 1}`, CleanJSONBlock(input))
}

func TestCleanJSONBlock_GenericFence(t *testing.T) {
	input := "```\n{\"a\": 1}\n```"
	assert.Equal(t, `{"a": 1}`, CleanJSONBlock(input))
}

func TestCleanJSONBlock_FenceWithLanguageID(t *testing.T) {
	input := "```javascript\n{\"a\": 1}\n```"
	assert.Equal(t, `{"a": 1}`, CleanJSONBlock(input))
}

func TestCleanJSONBlock_NoFence(t *testing.T) {
	assert.Equal(t, `{"a": 1}`, CleanJSONBlock(`  {"a": 1}  `))
}

func TestExtractJSONObject_Plain(t *testing.T) {
	assert.Equal(t, `{"a": 1}`, ExtractJSONObject(`{"a": 1}`))
}

func TestExtractJSONObject_SurroundingProse(t *testing.T) {
	input := `Here is the result you asked for: {"clusters": [{"title": "x"}]} Hope that helps!`
	assert.Equal(t, `{"clusters": [{"title": "x"}]}`, ExtractJSONObject(input))
}

func TestExtractJSONObject_BracesInsideStrings(t *testing.T) {
	input := `{"title": "curly } brace", "n": 1}`
	assert.Equal(t, input, ExtractJSONObject(input))
}

func TestExtractJSONObject_EscapedQuotes(t *testing.T) {
	input := `{"title": "he said \"}\"", "n": 2}`
	assert.Equal(t, input, ExtractJSONObject(input))
}

func TestExtractJSONObject_Unbalanced(t *testing.T) {
	assert.Equal(t, "", ExtractJSONObject(`{"a": 1`))
}

func TestExtractJSONObject_NoObject(t *testing.T) {
	assert.Equal(t, "", ExtractJSONObject("no json here"))
}
