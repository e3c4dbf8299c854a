//go:build linux

package target

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracerPidOfUntracedProcess(t *testing.T) {
	// our own test process: nobody traces it (a debugger would)
	tracer, err := tracerPid(os.Getpid())
	require.NoError(t, err)
	if tracer != 0 {
		t.Skipf("test process is itself traced by %d", tracer)
	}
	assert.Zero(t, tracer)
}

func TestTracerPidUnknownProcess(t *testing.T) {
	_, err := tracerPid(1 << 22)
	require.Error(t, err)
}
