package target

import (
	"fmt"
	"strconv"
	"syscall"
)

// StatusKind is the three-way classification of a traced process's state
// after a wait. It is the only channel through which the execution engine
// reports process state back to the session.
type StatusKind int

const (
	// KindStopped indicates the tracee stopped on a signal; PC holds the
	// instruction pointer it stopped at.
	KindStopped StatusKind = iota

	// KindExited indicates the tracee exited normally; ExitCode holds the
	// exit status.
	KindExited

	// KindSignaled indicates the tracee was terminated by a signal.
	KindSignaled
)

// Status describes the state of the traced process after a stop.
type Status struct {
	Kind     StatusKind
	Signal   syscall.Signal // valid for KindStopped and KindSignaled
	PC       uint64         // valid for KindStopped
	ExitCode int            // valid for KindExited
}

// Alive reports whether the process still exists after this status.
func (s Status) Alive() bool {
	return s.Kind == KindStopped
}

func (s Status) String() string {
	switch s.Kind {
	case KindStopped:
		return fmt.Sprintf("stopped: %v at %#x", s.Signal, s.PC)
	case KindExited:
		return "exited: " + strconv.Itoa(s.ExitCode)
	case KindSignaled:
		return "signaled: " + s.Signal.String()
	default:
		return "unknown"
	}
}

// decodeWaitStatus translates a raw wait4 status into the three-way
// classification. The PC of a stopped process is filled in by the caller,
// which is the only place with access to the registers.
func decodeWaitStatus(ws syscall.WaitStatus) (Status, error) {
	switch {
	case ws.Exited():
		return Status{Kind: KindExited, ExitCode: ws.ExitStatus()}, nil
	case ws.Signaled():
		return Status{Kind: KindSignaled, Signal: ws.Signal()}, nil
	case ws.Stopped():
		return Status{Kind: KindStopped, Signal: ws.StopSignal()}, nil
	default:
		return Status{}, fmt.Errorf("%w: %#x", ErrUnexpectedWaitStatus, uint32(ws))
	}
}
