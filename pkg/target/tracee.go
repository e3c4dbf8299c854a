//go:build linux

// Package target establishes and observes a trace relationship with one
// already-running process: attach, wait for the kernel's exit-trap
// notification, extract the true exit status, detach. The target is only
// ever observed, never resumed, stepped or inspected.
package target

import (
	"runtime"
	"sync"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v3/process"
	"golang.org/x/sys/unix"

	"github.com/hitzhangjie/pwait/internal/log"
)

// Tracee is the process being waited for. It is constructed once at
// startup and immutable afterwards; pwait does not own the tracee's
// lifecycle, it neither created it nor may it destroy it.
type Tracee struct {
	Pid  int
	Name string // command name, diagnostics only

	once       *sync.Once
	ptraceCh   chan func() // ptrace requests are funneled here, handled by a dedicated goroutine
	ptraceDone chan int    // ptrace request finished
	stopCh     chan int    // release the tracer thread
}

// New validates that pid names a running process and builds the Tracee
// around it. It issues no ptrace request yet.
func New(pid int) (*Tracee, error) {
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return nil, errors.Wrapf(err, "process %d not found", pid)
	}
	name, err := proc.Name()
	if err != nil {
		// attach may still succeed, the name is only for narration
		log.Warnf("reading name of process %d failed: %v", pid, err)
		name = "?"
	}

	return &Tracee{
		Pid:  pid,
		Name: name,

		once:       &sync.Once{},
		ptraceCh:   make(chan func()),
		ptraceDone: make(chan int),
		stopCh:     make(chan int),
	}, nil
}

// ExecPtrace runs fn on the tracer thread and waits for it to finish.
//
// All ptrace requests against a tracee must come from the same tracer
// (thread), including the waits in between, otherwise the kernel answers
// ESRCH. See https://github.com/golang/go/issues/7699.
func (t *Tracee) ExecPtrace(fn func()) {
	t.once.Do(func() {
		go func() {
			// ensure all ptrace requests go via the same tracer (thread)
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()

			for {
				select {
				case reqFn := <-t.ptraceCh:
					reqFn()
					t.ptraceDone <- 1
				case <-t.stopCh:
					return
				}
			}
		}()
	})
	t.ptraceCh <- fn
	<-t.ptraceDone
}

// StopPtrace releases the tracer thread. No ptrace request may be issued
// through this Tracee afterwards.
func (t *Tracee) StopPtrace() {
	close(t.stopCh)
}

// Attach establishes the trace relationship and requests notification of
// the tracee's exit transition. A failed attach is not transient: the
// caller must abort, no retry, and there is no partial state to clean up.
func (t *Tracee) Attach() error {
	var err error
	t.ExecPtrace(func() {
		err = attach(t.Pid)
	})
	if err != nil {
		return errors.Wrapf(err, "setting ptrace on process %d", t.Pid)
	}
	log.Debugf("process %d (%s) attached", t.Pid, t.Name)
	return nil
}

// WaitForExit blocks until the tracee's exit-trap notification is
// observed, discarding every other stop event. There is no timeout: it
// returns only on the exit event, on a wait error, or after an external
// detach made further waiting impossible.
func (t *Tracee) WaitForExit() error {
	var err error
	t.ExecPtrace(func() {
		err = waitForExitEvent(t.Pid)
	})
	return err
}

// ExitStatus retrieves the tracee's true termination status. Valid only
// after WaitForExit returned nil: the exit-trap notification itself
// carries a synthetic SIGTRAP status, the real one is parked in the
// ptrace event message until the tracee is released.
func (t *Tracee) ExitStatus() (int, error) {
	var (
		msg uint
		err error
	)
	t.ExecPtrace(func() {
		msg, err = unix.PtraceGetEventMsg(t.Pid)
	})
	if err != nil {
		return -1, errors.Wrapf(err, "getting process %d exit status", t.Pid)
	}
	return decodeExitCode(msg), nil
}

// Detach releases the trace relationship without affecting the tracee's
// execution state. A tracee that is already gone is not an error.
func (t *Tracee) Detach() error {
	var err error
	t.ExecPtrace(func() {
		err = unix.PtraceDetach(t.Pid)
	})
	if err != nil && err != unix.ESRCH {
		return errors.Wrapf(err, "detaching from process %d", t.Pid)
	}
	log.Debugf("process %d detached", t.Pid)
	return nil
}
