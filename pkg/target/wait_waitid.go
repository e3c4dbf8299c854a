//go:build linux && waitid

package target

import (
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/hitzhangjie/pwait/internal/log"
)

// siginfoChld is the SIGCHLD layout of siginfo_t on 64-bit Linux: the
// three header words, four bytes of union alignment padding, then the
// child fields. x/sys/unix keeps the union opaque, so lay it out here.
type siginfoChld struct {
	Signo  int32
	Errno  int32
	Code   int32
	_      int32
	Pid    int32
	Uid    int32
	Status int32
	_      [100]byte // pad to the kernel's 128-byte siginfo_t
}

// waitForExitEvent is the waitid flavour of the exit-trap wait: same
// recognition rule, expressed over the siginfo code/status fields
// instead of a combined status word. A wait error or a zeroed si_pid
// (no process delivered) is fatal.
func waitForExitEvent(pid int) error {
	var si siginfoChld
	for {
		si.Pid = 0
		if _, _, errno := unix.Syscall6(unix.SYS_WAITID,
			unix.P_PID, uintptr(pid), uintptr(unsafe.Pointer(&si)), unix.WEXITED, 0, 0); errno != 0 {
			return errors.Wrapf(errno, "waiting for process %d", pid)
		}
		if si.Pid == 0 {
			return errors.Errorf("failed to connect to process %d", pid)
		}
		if int(si.Pid) != pid {
			return errors.Errorf("waitid returned wrong process ID %d (expected %d)", si.Pid, pid)
		}

		log.Debugf("siginfo code %d status %#x", si.Code, si.Status)

		if isExitSiginfo(si.Code, si.Status) {
			return nil
		}
	}
}
