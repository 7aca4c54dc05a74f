package resourceusage

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_FDsNonNegative(t *testing.T) {
	u := Snapshot()
	assert.GreaterOrEqual(t, u.FDs, 0)
}

func TestSnapshot_DetectsLeakedFD(t *testing.T) {
	before := Snapshot()

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	err = before.Compare(Snapshot(), 1<<30)
	require.Error(t, err)
	var leakErr *LeakError
	require.ErrorAs(t, err, &leakErr)
	assert.Equal(t, "file descriptor count changed", leakErr.Reason)
}

func TestSnapshot_NoLeakWhenFDsClosed(t *testing.T) {
	before := Snapshot()

	r, w, err := os.Pipe()
	require.NoError(t, err)
	require.NoError(t, r.Close())
	require.NoError(t, w.Close())

	assert.NoError(t, before.Compare(Snapshot(), 1<<30))
}

func TestCompare_HeapGrowthWithinToleranceIsNotALeak(t *testing.T) {
	before := Usage{FDs: 3, HeapAlloc: 1000}
	after := Usage{FDs: 3, HeapAlloc: 1500}
	assert.NoError(t, before.Compare(after, 1000))
}

func TestCompare_HeapGrowthBeyondToleranceIsALeak(t *testing.T) {
	before := Usage{FDs: 3, HeapAlloc: 1000}
	after := Usage{FDs: 3, HeapAlloc: 5000}
	err := before.Compare(after, 1000)
	require.Error(t, err)
	var leakErr *LeakError
	require.ErrorAs(t, err, &leakErr)
	assert.Equal(t, "heap allocation grew beyond tolerance", leakErr.Reason)
}

func TestAssertNoLeak_PassesForStableUsage(t *testing.T) {
	before := Snapshot()
	before.AssertNoLeak(t, 64*1024*1024)
}
