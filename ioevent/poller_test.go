//go:build linux || darwin

package ioevent

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoller_RegisterFD_ReadReadiness(t *testing.T) {
	p, err := NewPoller()
	require.NoError(t, err)
	defer p.Close()

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	got := make(chan Events, 1)
	require.NoError(t, p.RegisterFD(int(r.Fd()), Read, func(e Events) { got <- e }))

	_, err = w.Write([]byte("x"))
	require.NoError(t, err)

	n, err := p.Poll(1000)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	select {
	case e := <-got:
		assert.NotZero(t, e&Read)
	case <-time.After(time.Second):
		t.Fatal("callback was not invoked")
	}
}

func TestPoller_RegisterFD_DuplicateErrors(t *testing.T) {
	p, err := NewPoller()
	require.NoError(t, err)
	defer p.Close()

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	require.NoError(t, p.RegisterFD(int(r.Fd()), Read, func(Events) {}))
	assert.ErrorIs(t, p.RegisterFD(int(r.Fd()), Read, func(Events) {}), ErrFDAlreadyRegistered)
}

func TestPoller_UnregisterFD_ThenModifyErrors(t *testing.T) {
	p, err := NewPoller()
	require.NoError(t, err)
	defer p.Close()

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	require.NoError(t, p.RegisterFD(int(r.Fd()), Read, func(Events) {}))
	require.NoError(t, p.UnregisterFD(int(r.Fd())))
	assert.ErrorIs(t, p.ModifyFD(int(r.Fd()), Write), ErrFDNotRegistered)
}

func TestPoller_PollTimesOutWithNoReadyFDs(t *testing.T) {
	p, err := NewPoller()
	require.NoError(t, err)
	defer p.Close()

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	require.NoError(t, p.RegisterFD(int(r.Fd()), Read, func(Events) {}))

	n, err := p.Poll(20)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestPoller_ClosePreventsFurtherUse(t *testing.T) {
	p, err := NewPoller()
	require.NoError(t, err)
	require.NoError(t, p.Close())

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()
	assert.ErrorIs(t, p.RegisterFD(int(r.Fd()), Read, func(Events) {}), ErrPollerClosed)
}
