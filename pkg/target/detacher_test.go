//go:build linux

package target

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// However many interruption signals arrive, exactly one detach request
// may be issued.
func TestDetacherFiresAtMostOnce(t *testing.T) {
	d := NewDetacher(1 << 22) // nothing traced, the request is best effort

	assert.True(t, d.fire())
	assert.False(t, d.fire())
	assert.False(t, d.fire())
}

func TestUninstallIsIdempotent(t *testing.T) {
	d := NewDetacher(1 << 22)
	d.Install()

	d.Uninstall()
	// a deferred second call must not panic on the closed channel
	d.Uninstall()
}

func TestInstallThenFireStillSingleShot(t *testing.T) {
	d := NewDetacher(1 << 22)
	d.Install()
	defer d.Uninstall()

	assert.True(t, d.fire())
	assert.False(t, d.fire())
}
