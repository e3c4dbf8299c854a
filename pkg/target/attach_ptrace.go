//go:build linux && ptraceattach

package target

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/hitzhangjie/pwait/internal/log"
)

// attach falls back to PTRACE_ATTACH for kernels without PTRACE_SEIZE.
// This variant is disruptive: the attach itself stops the tracee with
// SIGSTOP, so consume that stop, request the exit notification, and
// resume the tracee before any waiting starts.
func attach(pid int) error {
	log.Debugf("attempting to set ptrace on process %d", pid)

	if err := unix.PtraceAttach(pid); err != nil {
		return err
	}

	var status unix.WaitStatus
	wpid, err := unix.Wait4(pid, &status, 0, nil)
	if err != nil {
		return errors.Wrapf(err, "waiting for attach stop of process %d", pid)
	}
	if wpid != pid {
		return errors.Errorf("wait returned wrong process ID %d (expected %d)", wpid, pid)
	}
	log.Debugf("process %d stopped for attach: %s", pid, desc(status))

	if err := unix.PtraceSetOptions(pid, unix.PTRACE_O_TRACEEXIT); err != nil {
		return errors.Wrapf(err, "requesting exit notification for process %d", pid)
	}

	// resume, attach must not alter the tracee's execution
	if err := unix.PtraceCont(pid, 0); err != nil {
		return errors.Wrapf(err, "resuming process %d", pid)
	}
	return nil
}
