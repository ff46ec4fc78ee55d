package snowflake

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNodeBounds(t *testing.T) {
	_, err := NewNode(-1)
	assert.Error(t, err)
	_, err = NewNode(1024)
	assert.Error(t, err)
	_, err = NewNode(1023)
	assert.NoError(t, err)
}

func TestGenerateStrictlyIncreasing(t *testing.T) {
	n, err := NewNode(1)
	require.NoError(t, err)

	prev := n.Generate()
	for i := 0; i < 10000; i++ {
		id := n.Generate()
		require.Greater(t, id, prev)
		prev = id
	}
}

func TestIDTime(t *testing.T) {
	n, err := NewNode(1)
	require.NoError(t, err)

	before := time.Now().Add(-time.Second)
	id := n.Generate()
	after := time.Now().Add(time.Second)

	ts := id.Time()
	assert.True(t, ts.After(before), "id time %v before %v", ts, before)
	assert.True(t, ts.Before(after), "id time %v after %v", ts, after)
}
