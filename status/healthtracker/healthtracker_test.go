package healthtracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTracker(t *testing.T) {
	tr := New(DefaultConfig, "test_store", "write to the test store")
	assert.False(t, tr.Failing())

	tr.AddFailure()
	tr.AddFailure()
	assert.True(t, tr.Failing())
	assert.EqualValues(t, 2, tr.sequence.Load())
	assert.False(t, tr.since.Load().IsZero())

	tr.AddSuccess()
	assert.False(t, tr.Failing())
	assert.EqualValues(t, 0, tr.sequence.Load())
}
