//go:build linux

package target

import (
	"strconv"

	"golang.org/x/sys/unix"
)

// When the tracee reaches its exit transition, the wait status is
//
//	(PTRACE_EVENT_EXIT << 16) | (SIGTRAP << 8) | 0x7f
//
// i.e. a stopped status whose upper bits carry SIGTRAP plus the exit
// event classification. Matching this exact composite is how an
// exit-trap notification is told apart from a random signal stop.
const exitTrapStatus = int(unix.SIGTRAP) | unix.PTRACE_EVENT_EXIT<<8

// si_code values a SIGCHLD siginfo classifies the child's state with,
// from the kernel ABI (include/uapi/asm-generic/siginfo.h); x/sys/unix
// doesn't export them.
const (
	cldExited  = 1 // child has exited
	cldTrapped = 4 // traced child has trapped
	cldStopped = 5 // child has stopped
)

// isExitEvent reports whether a wait4-style status word is the kernel's
// synthetic exit-trap notification for a tracee.
func isExitEvent(status unix.WaitStatus) bool {
	return status.Stopped() && int(status)>>8 == exitTrapStatus
}

// isExitSiginfo is the same recognition rule expressed over the fields a
// waitid-style siginfo carries: a trap classification plus the composite
// status.
func isExitSiginfo(code int32, status int32) bool {
	return code == cldTrapped && int(status) == exitTrapStatus
}

// decodeExitCode turns the ptrace event message of an exit-trap, which is
// the raw wait status the tracee is about to report, into the code the
// invoker expects: the process's own exit code for a normal exit, the
// shell convention 128+signal for a signal death.
func decodeExitCode(msg uint) int {
	ws := unix.WaitStatus(msg)
	switch {
	case ws.Exited():
		return ws.ExitStatus()
	case ws.Signaled():
		return 128 + int(ws.Signal())
	default:
		return int(msg)
	}
}

func desc(status unix.WaitStatus) string {
	switch {
	case isExitEvent(status):
		return "exit-trap"
	case status.Continued():
		return "continued"
	case status.Exited():
		return "exited: " + strconv.Itoa(status.ExitStatus())
	case status.Signaled():
		return "signaled: " + status.Signal().String()
	case status.Stopped():
		return "stopped: " + status.StopSignal().String()
	case status.CoreDump():
		return "coredump"
	default:
		return strconv.Itoa(int(status))
	}
}
