//go:build linux

package target

import (
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/atomic"
	"golang.org/x/sys/unix"
)

// Detacher releases the trace relationship when the supervisor itself is
// interrupted, so the tracee is never left traced by a dying pwait. It
// is armed before the attach and disarmed once the exit event has been
// confirmed, after which a detach would be harmless but useless.
type Detacher struct {
	pid int

	ch       chan os.Signal
	done     chan struct{}
	fired    *atomic.Bool
	disarmed *atomic.Bool
}

// NewDetacher builds a detacher for pid. The pid is captured here, once,
// for the whole process lifetime, so the handler can never see a stale
// target.
func NewDetacher(pid int) *Detacher {
	return &Detacher{
		pid:      pid,
		ch:       make(chan os.Signal, 16),
		done:     make(chan struct{}),
		fired:    atomic.NewBool(false),
		disarmed: atomic.NewBool(false),
	}
}

// Install registers for SIGTERM and SIGINT and starts the watcher
// goroutine. On the first interruption it issues exactly one detach
// request and terminates the run with status 1; the main flow never
// resumes waiting after a signal-triggered detach.
func (d *Detacher) Install() {
	signal.Notify(d.ch, syscall.SIGTERM, syscall.SIGINT, syscall.SIGURG)

	go func() {
		for {
			select {
			case sig := <-d.ch:
				switch sig {
				case syscall.SIGURG:
					// runtime preemption signal, not an operator request
				case syscall.SIGTERM, syscall.SIGINT:
					if d.fire() {
						os.Exit(1)
					}
				}
			case <-d.done:
				return
			}
		}
	}()
}

// Uninstall restores signal delivery and stops the watcher. Idempotent,
// safe to defer alongside the explicit post-wait call.
func (d *Detacher) Uninstall() {
	if !d.disarmed.CAS(false, true) {
		return
	}
	signal.Stop(d.ch)
	close(d.done)
}

// fire issues the detach request, at most once across all signal
// deliveries. It deliberately bypasses the Tracee's ptrace executor:
// that thread may be parked inside wait4, and the handler must not do
// anything that could deadlock against the main flow. The request is
// best effort, the kernel severs the relationship anyway when pwait
// dies.
func (d *Detacher) fire() bool {
	if !d.fired.CAS(false, true) {
		return false
	}
	_ = unix.PtraceDetach(d.pid)
	return true
}
