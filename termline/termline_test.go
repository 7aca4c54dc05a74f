package termline

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsTerminal_PipeIsNotATerminal(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	assert.False(t, IsTerminal(int(r.Fd())))
	assert.False(t, IsTerminal(int(w.Fd())))
}

func TestSetRaw_NonTerminalFDErrors(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	_, err = SetRaw(int(r.Fd()))
	assert.Error(t, err)
}

func TestSize_NonTerminalFDErrors(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	_, _, err = Size(int(r.Fd()))
	assert.Error(t, err)
}
