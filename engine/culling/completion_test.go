package culling

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompletion_NilIsResolved(t *testing.T) {
	var c *Completion
	assert.True(t, c.IsDone())
	assert.NoError(t, c.Wait())
	assert.NoError(t, c.Err())
	assert.Zero(t, c.Stats())
}

func TestCompletion_FirstResolveWins(t *testing.T) {
	c, complete := NewCompletion()
	assert.False(t, c.IsDone())
	assert.NoError(t, c.Err(), "pending completion reports no error")

	first := errors.New("first")
	complete(first)
	complete(errors.New("second"))
	complete(nil)

	assert.True(t, c.IsDone())
	assert.ErrorIs(t, c.Wait(), first)
	assert.ErrorIs(t, c.Err(), first)
}

func TestCompletion_JoinWaitsForAll(t *testing.T) {
	a, completeA := NewCompletion()
	b, completeB := NewCompletion()
	errB := errors.New("b failed")

	joined := Join(a, b, Completed(), nil)
	completeA(nil)

	select {
	case <-joined.Done():
		t.Fatal("join resolved before every input")
	case <-time.After(10 * time.Millisecond):
	}

	completeB(errB)
	require.ErrorIs(t, joined.Wait(), errB)
}

func TestCompletion_JoinSumsStats(t *testing.T) {
	a := &Completion{done: make(chan struct{})}
	a.resolve(nil, PassStats{Batches: 2, TesterCalls: 5})
	b := &Completion{done: make(chan struct{})}
	b.resolve(nil, PassStats{Batches: 3, TesterCalls: 1})

	joined := Join(a, b)
	require.NoError(t, joined.Wait())
	assert.Equal(t, 5, joined.Stats().Batches)
	assert.Equal(t, 6, joined.Stats().TesterCalls)
}

func TestWaitAll_JoinsErrors(t *testing.T) {
	e1 := errors.New("one")
	e2 := errors.New("two")

	err := WaitAll(Failed(e1), Completed(), Failed(e2))
	assert.ErrorIs(t, err, e1)
	assert.ErrorIs(t, err, e2)
	assert.NoError(t, WaitAll())
}
