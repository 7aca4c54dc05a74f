package systimer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimer_OneShotFiresOnce(t *testing.T) {
	tm := New()
	tm.Start(10*time.Millisecond, 0)

	select {
	case <-tm.C():
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}

	select {
	case <-tm.C():
		t.Fatal("one-shot timer fired a second time")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestTimer_PeriodicRefires(t *testing.T) {
	tm := New()
	tm.Start(5*time.Millisecond, 5*time.Millisecond)
	defer tm.Stop()

	for i := 0; i < 3; i++ {
		select {
		case <-tm.C():
		case <-time.After(time.Second):
			t.Fatalf("periodic timer missed firing %d", i)
		}
	}
}

func TestTimer_StopDisarms(t *testing.T) {
	tm := New()
	tm.Start(20*time.Millisecond, 0)
	require.NoError(t, tm.Stop())

	select {
	case <-tm.C():
		t.Fatal("stopped timer fired")
	case <-time.After(40 * time.Millisecond):
	}
}

func TestTimer_StopWithoutStartErrors(t *testing.T) {
	tm := New()
	assert.ErrorIs(t, tm.Stop(), ErrNotArmed)
}

func TestTimer_RemainingWithoutStartErrors(t *testing.T) {
	tm := New()
	_, err := tm.Remaining()
	assert.ErrorIs(t, err, ErrNotArmed)
}

func TestTimer_RemainingShrinksTowardZero(t *testing.T) {
	tm := New()
	tm.Start(50*time.Millisecond, 0)
	defer tm.Stop()

	first, err := tm.Remaining()
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)
	second, err := tm.Remaining()
	require.NoError(t, err)
	assert.Less(t, second, first)
}

func TestAfter_FiresAfterDuration(t *testing.T) {
	start := time.Now()
	<-After(5 * time.Millisecond)
	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
}
