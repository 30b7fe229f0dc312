package agent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseStreamConcatenatesFragments(t *testing.T) {
	input := `{"type":"assistant","message":{"content":[{"type":"text","text":"4"}]}}
{"type":"assistant","message":{"content":[{"type":"text","text":"2"}]}}`

	assert.Equal(t, "42", ParseStream(strings.NewReader(input)))
}

func TestParseStreamDeltaRecords(t *testing.T) {
	input := `{"type":"content_block_delta","delta":{"text":"hello "}}
{"type":"content_block_delta","delta":{"text":"world"}}`

	assert.Equal(t, "hello world", ParseStream(strings.NewReader(input)))
}

func TestParseStreamSkipsMalformedLines(t *testing.T) {
	input := `{"type":"assistant","message":{"content":[{"type":"text","text":"a"}]}}
this is not json
{"type":"system","subtype":"init"}
{"type":"assistant","message":{"content":[{"type":"text","text":"b"}]}}`

	assert.Equal(t, "ab", ParseStream(strings.NewReader(input)))
}

func TestParseStreamIgnoresNonTextContent(t *testing.T) {
	input := `{"type":"assistant","message":{"content":[{"type":"tool_use","text":""}]}}
{"type":"result","message":null}`

	assert.Equal(t, "", ParseStream(strings.NewReader(input)))
}

func TestParseStreamEmptyInput(t *testing.T) {
	assert.Equal(t, "", ParseStream(strings.NewReader("")))
}

func TestExtractFragment(t *testing.T) {
	frag, ok := ExtractFragment([]byte(`{"type":"assistant","message":{"content":[{"type":"text","text":"hi"},{"type":"text","text":"!"}]}}`))
	assert.True(t, ok)
	assert.Equal(t, "hi!", frag)

	_, ok = ExtractFragment([]byte(`{{{`))
	assert.False(t, ok)

	_, ok = ExtractFragment([]byte(`{"type":"assistant"}`))
	assert.False(t, ok)
}
