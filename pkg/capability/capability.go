//go:build linux

// Package capability negotiates CAP_SYS_PTRACE for the current process.
//
// Tracing a process we did not spawn needs CAP_SYS_PTRACE (or full root).
// The negotiation is a best effort to raise the capability from the
// permitted set into the effective set, and it fails closed: any query or
// mutation error means "not held" and the caller must not attach.
package capability

import (
	"os"

	"github.com/pkg/errors"
	"kernel.org/pub/linux/libs/security/libcap/cap"

	"github.com/hitzhangjie/pwait/internal/log"
)

var (
	// ErrNotSupported means the running kernel doesn't know CAP_SYS_PTRACE.
	ErrNotSupported = errors.New("ptrace capability is not supported")
	// ErrNotPermitted means the permitted set excludes CAP_SYS_PTRACE,
	// so the process may not raise it by itself.
	ErrNotPermitted = errors.New("process is not permitted to acquire CAP_SYS_PTRACE")
	// ErrNotHeld means the capability was still not effective after the
	// raise attempt.
	ErrNotHeld = errors.New("process does not have CAP_SYS_PTRACE")
)

// Ensure makes sure the current process holds CAP_SYS_PTRACE in its
// effective set, raising it from the permitted set when needed.
// Returns nil iff the capability is effective afterwards.
//
// Conceptually:
// 1. check the kernel supports CAP_SYS_PTRACE at all
// 2. check whether the process already has it effective, done if so
// 3. check whether the permitted set allows raising it, fail closed if not
// 4. raise it into the effective set
// 5. re-query the effective set and report from that alone, the raise
//    call's own return code is not trusted either way
func Ensure() error {
	if cap.MaxBits() <= cap.SYS_PTRACE {
		log.Errorf("ptrace capability is not supported by this kernel")
		return ErrNotSupported
	}

	set := cap.GetProc()

	held, err := set.GetFlag(cap.Effective, cap.SYS_PTRACE)
	if err != nil {
		log.Errorf("checking effective capabilities failed: %v", err)
		return errors.Wrap(err, "check effective set")
	}
	if held {
		log.Debugf("process %d has CAP_SYS_PTRACE", os.Getpid())
		return nil
	}
	log.Debugf("process %d does not have CAP_SYS_PTRACE", os.Getpid())

	permitted, err := set.GetFlag(cap.Permitted, cap.SYS_PTRACE)
	if err != nil {
		log.Errorf("checking permitted capabilities failed: %v", err)
		return errors.Wrap(err, "check permitted set")
	}
	if !permitted {
		log.Errorf("process is not permitted to acquire CAP_SYS_PTRACE")
		return ErrNotPermitted
	}
	log.Debugf("process is permitted to acquire CAP_SYS_PTRACE")

	if err = set.SetFlag(cap.Effective, true, cap.SYS_PTRACE); err != nil {
		log.Errorf("modifying capability set failed: %v", err)
		return errors.Wrap(err, "raise CAP_SYS_PTRACE")
	}
	if err = set.SetProc(); err != nil {
		// don't bail out here, the re-query below is authoritative
		log.Warnf("setting capability failed: %v", err)
	}

	held, err = cap.GetProc().GetFlag(cap.Effective, cap.SYS_PTRACE)
	if err != nil {
		log.Errorf("re-checking effective capabilities failed: %v", err)
		return errors.Wrap(err, "re-check effective set")
	}
	if !held {
		log.Errorf("process does not have CAP_SYS_PTRACE")
		return ErrNotHeld
	}
	log.Debugf("process %d has CAP_SYS_PTRACE", os.Getpid())
	return nil
}

// Held reports whether CAP_SYS_PTRACE is currently effective, without
// attempting to raise it.
func Held() bool {
	held, err := cap.GetProc().GetFlag(cap.Effective, cap.SYS_PTRACE)
	return err == nil && held
}
