package target

import (
	"sort"

	"go.uber.org/atomic"
)

var seqNo = atomic.NewUint64(0)

// Breakpoint is one user-requested breakpoint site. Identity is the
// address; the entry survives target restarts so it can be re-armed on a
// fresh process image.
type Breakpoint struct {
	ID    uint64  // breakpoint number, for listing and messages
	Addr  uintptr // breakpoint address
	Pos   string  // source position or the original location token
	Orig  byte    // original byte, valid while Armed
	Armed bool    // trap byte currently installed
}

func newBreakpoint(addr uintptr, pos string) *Breakpoint {
	return &Breakpoint{
		ID:   seqNo.Add(1),
		Addr: addr,
		Pos:  pos,
	}
}

// BreakpointTable tracks every registered breakpoint address and its arm
// state. Addresses registered while no target runs stay unarmed until the
// next target exists.
type BreakpointTable struct {
	bps map[uintptr]*Breakpoint
}

func NewBreakpointTable() *BreakpointTable {
	return &BreakpointTable{bps: map[uintptr]*Breakpoint{}}
}

// Register adds addr to the table. Re-registering an existing address is a
// no-op: the existing entry is returned with fresh == false.
func (t *BreakpointTable) Register(addr uintptr, pos string) (bp *Breakpoint, fresh bool) {
	if bp, ok := t.bps[addr]; ok {
		return bp, false
	}
	bp = newBreakpoint(addr, pos)
	t.bps[addr] = bp
	return bp, true
}

// Lookup returns the breakpoint at addr, or nil.
func (t *BreakpointTable) Lookup(addr uintptr) *Breakpoint {
	return t.bps[addr]
}

func (t *BreakpointTable) Len() int {
	return len(t.bps)
}

// Sorted returns the breakpoints ordered by ID.
func (t *BreakpointTable) Sorted() []*Breakpoint {
	bps := make([]*Breakpoint, 0, len(t.bps))
	for _, bp := range t.bps {
		bps = append(bps, bp)
	}
	sort.Slice(bps, func(i, j int) bool { return bps[i].ID < bps[j].ID })
	return bps
}

// Arm installs the trap byte for bp in the live target, recording the
// original byte. Arming an armed breakpoint is a no-op.
func (t *BreakpointTable) Arm(ctrl Controller, bp *Breakpoint) error {
	if bp.Armed {
		return nil
	}
	orig, err := ctrl.PatchByte(bp.Addr, trapInstruction)
	if err != nil {
		return err
	}
	bp.Orig = orig
	bp.Armed = true
	return nil
}

// ArmAll arms every unarmed breakpoint. It must run once per fresh target,
// before the first resume, so no target instruction executes unguarded.
func (t *BreakpointTable) ArmAll(ctrl Controller) error {
	for _, bp := range t.bps {
		if err := t.Arm(ctrl, bp); err != nil {
			return err
		}
	}
	return nil
}

// DisarmForRestart resets every entry to unarmed. The old process image is
// gone, so the recorded original bytes are meaningless; the addresses stay
// registered for the next run.
func (t *BreakpointTable) DisarmForRestart() {
	for _, bp := range t.bps {
		bp.Armed = false
	}
}

// Remove deletes the breakpoint at addr. When ctrl is non-nil and the
// breakpoint is armed, the original byte is restored first.
func (t *BreakpointTable) Remove(ctrl Controller, addr uintptr) (*Breakpoint, error) {
	bp, ok := t.bps[addr]
	if !ok {
		return nil, ErrBreakpointNotExisted
	}
	if bp.Armed && ctrl != nil {
		if _, err := ctrl.PatchByte(bp.Addr, bp.Orig); err != nil {
			return nil, err
		}
		bp.Armed = false
	}
	delete(t.bps, addr)
	return bp, nil
}

// RemoveAll deletes every breakpoint, restoring original bytes in the live
// target when one exists.
func (t *BreakpointTable) RemoveAll(ctrl Controller) error {
	for addr := range t.bps {
		if _, err := t.Remove(ctrl, addr); err != nil {
			return err
		}
	}
	return nil
}
