//go:build linux

package target

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// builds a wait4 status word for "stopped by sig"
func stoppedStatus(sig unix.Signal) unix.WaitStatus {
	return unix.WaitStatus(0x7f | int(sig)<<8)
}

// the kernel's synthetic exit-trap status
func exitTrapWaitStatus() unix.WaitStatus {
	return unix.WaitStatus(0x7f | exitTrapStatus<<8)
}

func TestIsExitEventAcceptsOnlyExitTrap(t *testing.T) {
	require.True(t, isExitEvent(exitTrapWaitStatus()))

	// ordinary signal-delivery stops
	assert.False(t, isExitEvent(stoppedStatus(unix.SIGSTOP)))
	assert.False(t, isExitEvent(stoppedStatus(unix.SIGUSR1)))
	// a plain SIGTRAP stop without the event classification
	assert.False(t, isExitEvent(stoppedStatus(unix.SIGTRAP)))
	// some other ptrace event on top of SIGTRAP
	clone := unix.WaitStatus(0x7f | int(unix.SIGTRAP)<<8 | unix.PTRACE_EVENT_CLONE<<16)
	assert.False(t, isExitEvent(clone))
	// terminal statuses are not stop notifications at all
	assert.False(t, isExitEvent(unix.WaitStatus(7<<8))) // exited with 7
	assert.False(t, isExitEvent(unix.WaitStatus(uint32(unix.SIGKILL))))
}

// Given a stream where only the last status matches, everything before
// it must be discarded and only the last accepted.
func TestExitTrapRecognizedOnlyAtEndOfStream(t *testing.T) {
	stream := []unix.WaitStatus{
		stoppedStatus(unix.SIGUSR1),
		stoppedStatus(unix.SIGTRAP),
		stoppedStatus(unix.SIGSTOP),
		exitTrapWaitStatus(),
	}

	matched := -1
	for i, s := range stream {
		if isExitEvent(s) {
			matched = i
			break
		}
	}
	assert.Equal(t, len(stream)-1, matched)
}

func TestIsExitSiginfo(t *testing.T) {
	assert.True(t, isExitSiginfo(cldTrapped, int32(exitTrapStatus)))

	// trapped, but not the exit classification
	assert.False(t, isExitSiginfo(cldTrapped, int32(unix.SIGTRAP)))
	// exit status without the trap classification
	assert.False(t, isExitSiginfo(cldExited, int32(exitTrapStatus)))
	assert.False(t, isExitSiginfo(cldStopped, int32(unix.SIGSTOP)))
}

func TestDecodeExitCode(t *testing.T) {
	// normal exits carry code<<8
	assert.Equal(t, 0, decodeExitCode(0))
	assert.Equal(t, 7, decodeExitCode(7<<8))
	assert.Equal(t, 255, decodeExitCode(255<<8))

	// signal deaths use the shell convention
	assert.Equal(t, 128+int(unix.SIGKILL), decodeExitCode(uint(unix.SIGKILL)))
	assert.Equal(t, 128+int(unix.SIGTERM), decodeExitCode(uint(unix.SIGTERM)))
}

func TestDesc(t *testing.T) {
	assert.Equal(t, "exit-trap", desc(exitTrapWaitStatus()))
	assert.Equal(t, "exited: 7", desc(unix.WaitStatus(7<<8)))
	assert.Contains(t, desc(stoppedStatus(unix.SIGSTOP)), "stopped")
}
