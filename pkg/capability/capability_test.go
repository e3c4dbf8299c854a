//go:build linux

package capability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"kernel.org/pub/linux/libs/security/libcap/cap"
)

// Ensure must agree with the process's actual effective set afterwards:
// nil iff CAP_SYS_PTRACE ended up effective. Run as root (or with the
// file capability) it succeeds; as a plain user it fails closed.
func TestEnsureAgreesWithEffectiveSet(t *testing.T) {
	err := Ensure()

	if Held() {
		require.NoError(t, err)
	} else {
		require.Error(t, err)
	}
}

func TestEnsureFailsClosedWithoutPermittedBit(t *testing.T) {
	permitted, qerr := cap.GetProc().GetFlag(cap.Permitted, cap.SYS_PTRACE)
	require.NoError(t, qerr)
	if permitted {
		t.Skip("CAP_SYS_PTRACE is in the permitted set of this test process")
	}

	err := Ensure()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotPermitted)
}

func TestEnsureIsIdempotent(t *testing.T) {
	first := Ensure()
	second := Ensure()
	if first == nil {
		assert.NoError(t, second)
	} else {
		assert.Error(t, second)
	}
}
