package transfer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBatchProgress_Aggregate(t *testing.T) {
	b := NewBatchProgress()
	assert.Equal(t, 0, b.Aggregate())

	b.Set("u/1/AAAA0001", 50)
	b.Set("u/1/AAAA0002", 100)
	assert.Equal(t, 75, b.Aggregate())
	assert.Equal(t, 2, b.Active())
}

func TestBatchProgress_FinishedTransferLeavesBeforeRecompute(t *testing.T) {
	b := NewBatchProgress()
	b.Set("u/1/AAAA0001", 40)
	b.Set("u/1/AAAA0002", 100)
	assert.Equal(t, 70, b.Aggregate())

	// The finished transfer leaves the set, so the aggregate reflects only
	// what is still moving instead of being dragged up by completed files.
	b.Remove("u/1/AAAA0002")
	assert.Equal(t, 40, b.Aggregate())

	b.Remove("u/1/AAAA0001")
	assert.Equal(t, 0, b.Aggregate())
	assert.Equal(t, 0, b.Active())
}

func TestBatchProgress_SingleTransferTracksItsPercent(t *testing.T) {
	b := NewBatchProgress()
	for _, pct := range []int{0, 20, 40, 100} {
		b.Set("g/2/BBBB0001", pct)
		assert.Equal(t, pct, b.Aggregate())
	}
}
