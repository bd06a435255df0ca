package target

import (
	"syscall"
)

// Controller is the slice of the target controller the execution engine
// and the breakpoint table need. *DebuggedProcess implements it; tests
// substitute a scripted fake.
type Controller interface {
	ReadRegister() (*syscall.PtraceRegs, error)
	WriteRegister(regs *syscall.PtraceRegs) error
	PatchByte(addr uintptr, val byte) (byte, error)
	Resume() error
	SingleStep() (Status, error)
	Wait() (Status, error)
}

var _ Controller = (*DebuggedProcess)(nil)

// ContinueOverBreakpoint resumes the target until its next stop, stepping
// over the breakpoint the target is currently stopped at, if any.
//
// A trapped target stops with the instruction pointer one byte past the
// trap opcode. Resuming naively would re-execute the trap forever, so when
// PC-1 is an armed breakpoint: restore the original byte, rewind the
// instruction pointer, single-step the original instruction, re-arm the
// trap, then resume freely. If the single step itself ends the process,
// that classification propagates immediately and nothing is re-armed: the
// process image is gone.
//
// No other operation may resume the target between the rewind and the
// re-arm.
func ContinueOverBreakpoint(ctrl Controller, table *BreakpointTable) (Status, error) {
	regs, err := ctrl.ReadRegister()
	if err != nil {
		return Status{}, err
	}

	site := uintptr(regs.PC() - 1)
	if bp := table.Lookup(site); bp != nil && bp.Armed {
		if _, err := ctrl.PatchByte(site, bp.Orig); err != nil {
			return Status{}, err
		}
		bp.Armed = false

		regs.SetPC(regs.PC() - 1)
		if err := ctrl.WriteRegister(regs); err != nil {
			return Status{}, err
		}

		st, err := ctrl.SingleStep()
		if err != nil {
			return Status{}, err
		}
		if st.Kind != KindStopped {
			return st, nil
		}

		if _, err := ctrl.PatchByte(site, trapInstruction); err != nil {
			return Status{}, err
		}
		bp.Armed = true
	}

	if err := ctrl.Resume(); err != nil {
		return Status{}, err
	}
	st, err := ctrl.Wait()
	if err != nil {
		return st, err
	}
	return normalizeStop(st, table), nil
}

// StepInstruction executes exactly one target instruction, stepping over
// an armed breakpoint at the current stop site the same way
// ContinueOverBreakpoint does.
func StepInstruction(ctrl Controller, table *BreakpointTable) (Status, error) {
	regs, err := ctrl.ReadRegister()
	if err != nil {
		return Status{}, err
	}

	site := uintptr(regs.PC() - 1)
	bp := table.Lookup(site)
	if bp == nil || !bp.Armed {
		st, err := ctrl.SingleStep()
		if err != nil {
			return st, err
		}
		return normalizeStop(st, table), nil
	}

	if _, err := ctrl.PatchByte(site, bp.Orig); err != nil {
		return Status{}, err
	}
	bp.Armed = false

	regs.SetPC(regs.PC() - 1)
	if err := ctrl.WriteRegister(regs); err != nil {
		return Status{}, err
	}

	st, err := ctrl.SingleStep()
	if err != nil {
		return Status{}, err
	}
	if st.Kind != KindStopped {
		return st, nil
	}

	if _, err := ctrl.PatchByte(site, trapInstruction); err != nil {
		return Status{}, err
	}
	bp.Armed = true

	// this stop came from the step itself, not from executing a trap;
	// the PC is already on an instruction boundary. Normalizing here
	// would mislocate a step off a one-byte instruction whose successor
	// is the byte after the trap opcode.
	return st, nil
}

// normalizeStop rewrites the reported PC of a breakpoint stop to the
// breakpoint site itself instead of the byte after the trap opcode.
// The raw registers are untouched; the next continue still observes the
// post-trap PC and performs the rewind.
func normalizeStop(st Status, table *BreakpointTable) Status {
	if st.Kind != KindStopped {
		return st
	}
	if bp := table.Lookup(uintptr(st.PC - 1)); bp != nil && bp.Armed {
		st.PC--
	}
	return st
}
