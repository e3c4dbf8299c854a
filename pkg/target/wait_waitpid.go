//go:build linux && !waitid

package target

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/hitzhangjie/pwait/internal/log"
)

// waitForExitEvent blocks in wait4 until the tracee's exit-trap
// notification arrives. A traced process reports all kinds of stops
// through the same channel; everything that is not the exit trap is
// logged and discarded, and the wait resumes. Wait errors and unexpected
// pids are fatal, there is nothing to retry.
func waitForExitEvent(pid int) error {
	var status unix.WaitStatus
	for {
		wpid, err := unix.Wait4(pid, &status, 0, nil)
		if err != nil {
			return errors.Wrapf(err, "waiting for process %d", pid)
		}
		if wpid != pid {
			return errors.Errorf("waitpid returned wrong process ID %d (expected %d)", wpid, pid)
		}

		log.Debugf("wait status %#x (%s)", int(status), desc(status))

		if isExitEvent(status) {
			return nil
		}
	}
}
