package target

import (
	"errors"
	"fmt"
)

var (
	// ErrBreakpointNotExisted is returned when clearing an address that
	// has no breakpoint registered.
	ErrBreakpointNotExisted = errors.New("breakpoint not existed")

	// ErrUnexpectedWaitStatus is returned when wait4 reports a status the
	// controller cannot decode. It indicates a contract violation between
	// the controller and the OS; callers must treat it as fatal.
	ErrUnexpectedWaitStatus = errors.New("unexpected wait status")
)

// MemoryAccessError reports a peek or poke that the kernel rejected,
// usually because the address is outside the target's mapped memory.
type MemoryAccessError struct {
	Op   string
	Addr uintptr
	Err  error
}

func (e *MemoryAccessError) Error() string {
	return fmt.Sprintf("%s at %#x: %v", e.Op, e.Addr, e.Err)
}

func (e *MemoryAccessError) Unwrap() error {
	return e.Err
}
