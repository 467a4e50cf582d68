package util

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAnswerString(t *testing.T) {
	got, err := NormalizeAnswer(json.RawMessage(`"42"`))
	require.NoError(t, err)
	assert.Equal(t, "42", got)
}

func TestNormalizeAnswerTrimsWhitespace(t *testing.T) {
	got, err := NormalizeAnswer(json.RawMessage(`"  abc  "`))
	require.NoError(t, err)
	assert.Equal(t, "abc", got)
}

func TestNormalizeAnswerList(t *testing.T) {
	got, err := NormalizeAnswer(json.RawMessage(`[1, 2, 3]`))
	require.NoError(t, err)
	assert.Equal(t, "[1,2,3]", got)
}

func TestNormalizeAnswerEmpty(t *testing.T) {
	for _, raw := range []string{`""`, `"   "`, `null`, `[]`, ``} {
		_, err := NormalizeAnswer(json.RawMessage(raw))
		assert.ErrorIs(t, err, ErrAnswerEmpty, "raw=%q", raw)
	}
}

func TestAnswersEqual(t *testing.T) {
	assert.True(t, AnswersEqual("42", "42"))
	assert.True(t, AnswersEqual(" 42 ", "42"))
	assert.False(t, AnswersEqual("42", "43"))
	assert.False(t, AnswersEqual("[1,2]", "[2,1]"))
}
