package target

import (
	"fmt"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeController scripts the controller interface so the engine's
// protocol can be checked without a live process.
type fakeController struct {
	regs  syscall.PtraceRegs
	mem   map[uintptr]byte
	steps []Status // queued SingleStep results
	waits []Status // queued Wait results
	ops   []string // recorded operation order
}

func newFakeController(pc uint64) *fakeController {
	f := &fakeController{mem: map[uintptr]byte{}}
	f.regs.SetPC(pc)
	return f
}

func (f *fakeController) ReadRegister() (*syscall.PtraceRegs, error) {
	f.ops = append(f.ops, "readregs")
	regs := f.regs
	return &regs, nil
}

func (f *fakeController) WriteRegister(regs *syscall.PtraceRegs) error {
	f.ops = append(f.ops, fmt.Sprintf("writeregs pc=%#x", regs.PC()))
	f.regs = *regs
	return nil
}

func (f *fakeController) PatchByte(addr uintptr, val byte) (byte, error) {
	f.ops = append(f.ops, fmt.Sprintf("patch %#x=%#x", addr, val))
	old := f.mem[addr]
	f.mem[addr] = val
	return old, nil
}

func (f *fakeController) Resume() error {
	f.ops = append(f.ops, "resume")
	return nil
}

func (f *fakeController) SingleStep() (Status, error) {
	f.ops = append(f.ops, "singlestep")
	st := f.steps[0]
	f.steps = f.steps[1:]
	return st, nil
}

func (f *fakeController) Wait() (Status, error) {
	f.ops = append(f.ops, "wait")
	st := f.waits[0]
	f.waits = f.waits[1:]
	return st, nil
}

// arm a breakpoint at addr whose original byte is orig.
func armedTable(t *testing.T, f *fakeController, addr uintptr, orig byte) (*BreakpointTable, *Breakpoint) {
	t.Helper()
	f.mem[addr] = orig
	table := NewBreakpointTable()
	bp, fresh := table.Register(addr, "")
	require.True(t, fresh)
	require.NoError(t, table.Arm(f, bp))
	require.Equal(t, trapInstruction, f.mem[addr])
	require.Equal(t, orig, bp.Orig)
	f.ops = nil // arming is setup; op assertions cover only the call under test
	return table, bp
}

func TestContinueOverBreakpoint(t *testing.T) {
	f := newFakeController(0x1001)
	table, bp := armedTable(t, f, 0x1000, 0x55)

	f.steps = []Status{{Kind: KindStopped, Signal: syscall.SIGTRAP, PC: 0x1003}}
	f.waits = []Status{{Kind: KindExited, ExitCode: 0}}

	st, err := ContinueOverBreakpoint(f, table)
	require.NoError(t, err)
	assert.Equal(t, KindExited, st.Kind)

	// restore original byte, rewind, step, re-arm, then free resume
	assert.Equal(t, []string{
		"readregs",
		"patch 0x1000=0x55",
		"writeregs pc=0x1000",
		"singlestep",
		fmt.Sprintf("patch 0x1000=%#x", trapInstruction),
		"resume",
		"wait",
	}, f.ops)

	assert.Equal(t, trapInstruction, f.mem[0x1000])
	assert.True(t, bp.Armed)
}

func TestContinueExitDuringStep(t *testing.T) {
	f := newFakeController(0x1001)
	table, bp := armedTable(t, f, 0x1000, 0x55)

	// the stepped instruction ends the process: the classification
	// propagates without a re-arm attempt against the dead image
	f.steps = []Status{{Kind: KindExited, ExitCode: 7}}

	st, err := ContinueOverBreakpoint(f, table)
	require.NoError(t, err)
	assert.Equal(t, KindExited, st.Kind)
	assert.Equal(t, 7, st.ExitCode)

	assert.Equal(t, byte(0x55), f.mem[0x1000])
	assert.False(t, bp.Armed)
	assert.NotContains(t, f.ops, "resume")
}

func TestContinueNotAtBreakpoint(t *testing.T) {
	f := newFakeController(0x2001)
	table, _ := armedTable(t, f, 0x1000, 0x55)

	f.waits = []Status{{Kind: KindStopped, Signal: syscall.SIGINT, PC: 0x3000}}

	st, err := ContinueOverBreakpoint(f, table)
	require.NoError(t, err)
	assert.Equal(t, KindStopped, st.Kind)

	// unrelated stop site: straight to free resume, no patching
	assert.Equal(t, []string{"readregs", "resume", "wait"}, f.ops)
}

func TestContinueNormalizesBreakpointStop(t *testing.T) {
	f := newFakeController(0x2001)
	table, bp := armedTable(t, f, 0x1000, 0x55)

	// the free-running target hits the armed trap: the raw stop PC is one
	// byte past the site, the reported PC is the site itself
	f.waits = []Status{{Kind: KindStopped, Signal: syscall.SIGTRAP, PC: uint64(bp.Addr) + 1}}

	st, err := ContinueOverBreakpoint(f, table)
	require.NoError(t, err)
	assert.Equal(t, KindStopped, st.Kind)
	assert.Equal(t, uint64(bp.Addr), st.PC)
}

func TestStepInstructionOverBreakpoint(t *testing.T) {
	f := newFakeController(0x1001)
	table, bp := armedTable(t, f, 0x1000, 0x90)

	// stepping off a one-byte instruction lands exactly one byte past the
	// site; the reported PC must be the landing point, not the site
	f.steps = []Status{{Kind: KindStopped, Signal: syscall.SIGTRAP, PC: 0x1001}}

	st, err := StepInstruction(f, table)
	require.NoError(t, err)
	assert.Equal(t, KindStopped, st.Kind)
	assert.Equal(t, uint64(0x1001), st.PC)
	assert.True(t, bp.Armed)
	assert.Equal(t, trapInstruction, f.mem[0x1000])
}

func TestStepInstructionIntoBreakpoint(t *testing.T) {
	f := newFakeController(0x5000)
	table, bp := armedTable(t, f, 0x5000, 0xe8)

	// the current PC sits on an armed site the target has not executed
	// yet: the stepped instruction is the trap itself, the raw stop PC is
	// one past the site and must be normalized back onto it
	f.steps = []Status{{Kind: KindStopped, Signal: syscall.SIGTRAP, PC: uint64(bp.Addr) + 1}}

	st, err := StepInstruction(f, table)
	require.NoError(t, err)
	assert.Equal(t, KindStopped, st.Kind)
	assert.Equal(t, uint64(bp.Addr), st.PC)
}

func TestStepInstructionPlain(t *testing.T) {
	f := newFakeController(0x4000)
	table := NewBreakpointTable()

	f.steps = []Status{{Kind: KindStopped, Signal: syscall.SIGTRAP, PC: 0x4001}}

	st, err := StepInstruction(f, table)
	require.NoError(t, err)
	assert.Equal(t, KindStopped, st.Kind)
	assert.Equal(t, []string{"readregs", "singlestep"}, f.ops)
}
