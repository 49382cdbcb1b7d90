package idgen

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCondition_Shape(t *testing.T) {
	pattern := regexp.MustCompile(`^cond-[a-zA-Z0-9]{10}$`)
	for i := 0; i < 100; i++ {
		id, err := Condition()
		require.NoError(t, err)
		assert.Regexp(t, pattern, id)
	}
}

func TestCondition_Unique(t *testing.T) {
	const count = 5000
	seen := make(map[string]struct{}, count)
	for i := 0; i < count; i++ {
		id, err := Condition()
		require.NoError(t, err)
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %q", id)
		seen[id] = struct{}{}
	}
}

func TestWithPrefix(t *testing.T) {
	id, err := WithPrefix("x-")
	require.NoError(t, err)
	assert.Len(t, id, len("x-")+Length)
	assert.Equal(t, "x-", id[:2])
}
