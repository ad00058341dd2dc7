package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashString(t *testing.T) {
	a := HashString("/etc/hurlfix/hurlfix.config.yaml")
	assert.Equal(t, a, HashString("/etc/hurlfix/hurlfix.config.yaml"))
	assert.NotEqual(t, a, HashString("/etc/hurlfix/other.yaml"))
	assert.Regexp(t, `^[0-9a-f]+$`, a)
}
