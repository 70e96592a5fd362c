package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQTableDefaultsToZero(t *testing.T) {
	q := NewQTable()

	assert.Zero(t, q.Get("s1", 3))
	// First read materializes the state.
	assert.Equal(t, 1, q.Size())
}

func TestQTableSetGet(t *testing.T) {
	q := NewQTable()

	q.Set("s1", 3, 1.5)
	q.Set("s1", 4, -2)
	q.Set("s2", 3, 7)

	assert.Equal(t, 1.5, q.Get("s1", 3))
	assert.Equal(t, -2.0, q.Get("s1", 4))
	assert.Equal(t, 7.0, q.Get("s2", 3))
	assert.Equal(t, 2, q.Size())
}

func TestMaxOver(t *testing.T) {
	q := NewQTable()
	q.Set("s1", 1, -5)
	q.Set("s1", 2, 3)

	assert.Equal(t, 3.0, q.MaxOver("s1", []int{1, 2}))
	// Unseen actions read as zero and can win over negative values.
	assert.Equal(t, 0.0, q.MaxOver("s1", []int{1, 9}))
	// Empty action set is the terminal bootstrap.
	assert.Equal(t, 0.0, q.MaxOver("s1", nil))
}
