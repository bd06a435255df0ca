package target

import (
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeWaitStatus(t *testing.T) {
	st, err := decodeWaitStatus(syscall.WaitStatus(0x0000))
	require.NoError(t, err)
	assert.Equal(t, KindExited, st.Kind)
	assert.Equal(t, 0, st.ExitCode)

	st, err = decodeWaitStatus(syscall.WaitStatus(0x0300))
	require.NoError(t, err)
	assert.Equal(t, KindExited, st.Kind)
	assert.Equal(t, 3, st.ExitCode)

	st, err = decodeWaitStatus(syscall.WaitStatus(0x0009))
	require.NoError(t, err)
	assert.Equal(t, KindSignaled, st.Kind)
	assert.Equal(t, syscall.SIGKILL, st.Signal)

	st, err = decodeWaitStatus(syscall.WaitStatus(0x057f))
	require.NoError(t, err)
	assert.Equal(t, KindStopped, st.Kind)
	assert.Equal(t, syscall.SIGTRAP, st.Signal)
}

func TestDecodeWaitStatusUnexpected(t *testing.T) {
	// 0xffff is a "continued" status, which a stopped-or-dead tracee can
	// never report
	_, err := decodeWaitStatus(syscall.WaitStatus(0xffff))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnexpectedWaitStatus)
}

func TestStatusAlive(t *testing.T) {
	assert.True(t, Status{Kind: KindStopped, Signal: syscall.SIGTRAP}.Alive())
	assert.False(t, Status{Kind: KindExited}.Alive())
	assert.False(t, Status{Kind: KindSignaled, Signal: syscall.SIGKILL}.Alive())
}
