package registry

import (
	"context"
	"testing"

	"cts/internal/logging"
	"cts/internal/params"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollection_DuplicateNameFailsBeforeRun(t *testing.T) {
	c := NewCollection()
	ran := false
	fn := func(*T) error {
		ran = true
		return nil
	}

	require.NoError(t, c.Add("dup", params.Unit(), fn))
	err := c.Add("dup", params.Options("x", 1), fn)
	assert.ErrorIs(t, err, ErrDuplicateTest)
	assert.False(t, ran)
	assert.Equal(t, []string{"dup"}, c.Names())
}

func TestCollection_RunsSequentiallyInOrder(t *testing.T) {
	c := NewCollection()
	var order []string
	record := func(t *T) error {
		order = append(order, t.Params().String())
		return nil
	}

	require.NoError(t, c.Add("a", params.Options("x", 1, 2), record))
	require.NoError(t, c.Add("b", params.Unit(), record))

	logger := logging.NewLogger(false)
	require.NoError(t, c.Run(context.Background(), logger))

	assert.Equal(t, []string{"x=1", "x=2", ""}, order)
	assert.Equal(t, []string{"a:x=1", "a:x=2", "b"}, c.Names())

	results := logger.Results()
	require.Len(t, results, 3)
	for _, r := range results {
		assert.Equal(t, logging.StatusPassed, r.Result.Status)
	}
}

func TestCollection_RunReportsFailures(t *testing.T) {
	c := NewCollection()
	require.NoError(t, c.Add("ok", nil, func(*T) error { return nil }))
	require.NoError(t, c.Add("bad", params.Options("i", 1, 2), func(t *T) error {
		t.Fail("always")
		return nil
	}))

	logger := logging.NewLogger(false)
	err := c.Run(context.Background(), logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 of 3 cases failed")

	res, ok := logger.Result("bad:i=1")
	require.True(t, ok)
	assert.Equal(t, logging.StatusFailed, res.Status)
}
