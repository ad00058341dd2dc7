package regex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCombinePatterns(t *testing.T) {
	re, err := CombinePatterns([]string{"^/__hurlfix", "^/metrics$"})
	require.NoError(t, err)
	assert.True(t, re.MatchString("/__hurlfix/health"))
	assert.True(t, re.MatchString("/metrics"))
	assert.False(t, re.MatchString("/error-assert-bytearray"))
}

func TestCombinePatterns_Empty(t *testing.T) {
	re, err := CombinePatterns(nil)
	require.NoError(t, err)
	assert.Nil(t, re)
}

func TestCombinePatterns_Invalid(t *testing.T) {
	_, err := CombinePatterns([]string{"("})
	assert.Error(t, err)
}
