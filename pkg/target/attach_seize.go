//go:build linux && !ptraceattach

package target

import (
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/hitzhangjie/pwait/internal/log"
)

// attach seizes the tracee without stopping it. PTRACE_SEIZE (Linux 3.4+)
// takes the option bits in its data argument, so PTRACE_O_TRACEEXIT is
// requested atomically with the attach: we are notified of the exit
// transition and of nothing extra, and the tracee keeps running.
//
// x/sys/unix.PtraceSeize doesn't accept options, so issue the request
// raw. An unsupported option flag comes back as EINVAL here, which makes
// the "exit notification actually requested" check explicit rather than
// implied.
func attach(pid int) error {
	log.Debugf("attempting to set ptrace on process %d", pid)

	if _, _, errno := unix.Syscall6(unix.SYS_PTRACE,
		unix.PTRACE_SEIZE, uintptr(pid), 0, unix.PTRACE_O_TRACEEXIT, 0, 0); errno != 0 {
		return errno
	}

	// seize doesn't stop the tracee, so there is no attach-stop to
	// consume; confirm the relationship exists via procfs instead.
	// TracerPid reports the tracing task, which is our locked tracer
	// thread, so compare against the tid as well as the pid.
	tracer, err := tracerPid(pid)
	if err != nil {
		return errors.Wrap(err, "verify trace relationship")
	}
	if tracer != unix.Gettid() && tracer != os.Getpid() {
		return errors.Errorf("process %d is traced by %d, not us", pid, tracer)
	}
	return nil
}
