package target

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/debugger101/deet/pkg/logflags"
)

// Kind describes how the debug session got hold of the target.
type Kind int

const (
	EXEC   Kind = iota // target launched from an existing binary
	DEBUG              // target built by the debugger, then launched
	ATTACH             // target attached by pid
)

const (
	// wordSize is the machine word the ptrace peek/poke interface moves.
	wordSize = 8

	// trapInstruction is the single-byte INT3 opcode breakpoints are
	// implemented with.
	trapInstruction byte = 0xCC
)

// DebuggedProcess wraps exactly one process placed under trace control.
// It is exclusively owned by the debug session; every ptrace request is
// funneled through one locked OS thread because the kernel requires all
// requests for a tracee to come from the thread that attached it.
//
// issue: https://github.com/golang/go/issues/7699
type DebuggedProcess struct {
	Process *os.Process

	Command string   // launch command, kept so `run` can restart
	Args    []string // launch arguments
	Kind    Kind

	once       *sync.Once
	ptraceCh   chan func() // ptrace requests are executed here
	ptraceDone chan int
	stopCh     chan int
}

func newDebuggedProcess(kind Kind) *DebuggedProcess {
	return &DebuggedProcess{
		Kind:       kind,
		once:       &sync.Once{},
		ptraceCh:   make(chan func()),
		ptraceDone: make(chan int),
		stopCh:     make(chan int),
	}
}

// Launch starts `cmd` with tracing armed and waits for the post-exec trap.
// A stop on anything other than SIGTRAP is a launch failure: the stub is
// killed and reaped, and no target is returned.
func Launch(cmd string, args ...string) (*DebuggedProcess, error) {
	var (
		t   = newDebuggedProcess(EXEC)
		err error
	)
	t.Command = cmd
	t.Args = args

	defer func() {
		if err != nil {
			t.StopPtrace()
		}
	}()

	t.ExecPtrace(func() {
		t.Process, err = t.launchCommand(cmd, args...)
	})
	if err != nil {
		return nil, err
	}

	st, err := t.Wait()
	if err != nil {
		return nil, fmt.Errorf("wait after launch: %w", err)
	}
	if st.Kind != KindStopped || st.Signal != syscall.SIGTRAP {
		// the stub never reached the exec trap, treat as launch failure
		if st.Alive() {
			_, _ = t.Kill()
		}
		err = fmt.Errorf("launch %s: expected SIGTRAP stop, got %v", cmd, st)
		return nil, err
	}
	logflags.PtraceLogger().Debugf("process %d stopped at exec trap, pc %#x", t.Process.Pid, st.PC)

	return t, nil
}

// Attach traces a running process. The command line is recovered from
// procfs so a later `run` can restart the target from scratch.
func Attach(pid int) (*DebuggedProcess, error) {
	var (
		t   = newDebuggedProcess(ATTACH)
		err error
	)
	defer func() {
		if err != nil {
			t.StopPtrace()
		}
	}()

	if t.Process, err = os.FindProcess(pid); err != nil {
		return nil, err
	}

	t.ExecPtrace(func() {
		err = t.attach(pid)
	})
	if err != nil {
		return nil, err
	}

	if t.Command, err = readProcComm(pid); err != nil {
		return nil, err
	}
	if t.Args, err = readProcCommArgs(pid); err != nil {
		return nil, err
	}

	return t, nil
}

// launchCommand executes `execName` with `args` under trace control.
//
// SysProcAttr.Ptrace implies PTRACE_TRACEME in the child before exec, so
// the controller observes the image-load trap before any target
// instruction executes.
func (t *DebuggedProcess) launchCommand(execName string, args ...string) (*os.Process, error) {

	progCmd := exec.Command(execName, args...)
	progCmd.Stdin = os.Stdin
	progCmd.Stdout = os.Stdout
	progCmd.Stderr = os.Stderr

	progCmd.SysProcAttr = &syscall.SysProcAttr{
		Ptrace:     true,
		Setpgid:    true,
		Foreground: false,
	}
	progCmd.Env = os.Environ()
	// stop the runtime of Go tracees from interrupting us with SIGURG
	progCmd.Env = append(progCmd.Env, "GODEBUG=asyncpreemptoff=1")

	if err := progCmd.Start(); err != nil {
		return nil, err
	}
	return progCmd.Process, nil
}

// ExecPtrace runs fn on the dedicated ptrace thread and blocks until done.
func (t *DebuggedProcess) ExecPtrace(fn func()) {
	t.once.Do(func() {
		go func() {
			// ensure all ptrace requests go via the same tracer thread
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

// StopPtrace releases the dedicated ptrace thread.
func (t *DebuggedProcess) StopPtrace() {
	close(t.stopCh)
}

// attach attaches to process pid.
func (t *DebuggedProcess) attach(pid int) error {

	if !checkPid(pid) {
		return fmt.Errorf("process %d not existed", pid)
	}

	if err := syscall.PtraceAttach(pid); err != nil {
		return fmt.Errorf("process %d attach: %v", pid, err)
	}
	logflags.PtraceLogger().Debugf("process %d attached", pid)

	_, status, err := t.waitRaw(pid, syscall.WALL)
	if err != nil {
		return fmt.Errorf("process %d wait: %v", pid, err)
	}
	logflags.PtraceLogger().Debugf("process %d stopped: %v", pid, status.Stopped())
	return nil
}

// Detach releases an attached target, leaving it running.
func (t *DebuggedProcess) Detach() error {
	if !checkPid(t.Process.Pid) {
		return fmt.Errorf("process %d not existed", t.Process.Pid)
	}

	var err error
	t.ExecPtrace(func() {
		err = syscall.PtraceDetach(t.Process.Pid)
	})
	if err != nil {
		return fmt.Errorf("process %d detach: %v", t.Process.Pid, err)
	}
	logflags.PtraceLogger().Debugf("process %d detached", t.Process.Pid)
	return nil
}

// Wait blocks until the target's state changes and classifies the result.
// The instruction pointer is read only for a signal stop.
func (t *DebuggedProcess) Wait() (Status, error) {
	_, ws, err := t.waitRaw(t.Process.Pid, 0)
	if err != nil {
		return Status{}, err
	}
	if ws == nil {
		// reaped a zombie without a status; the process is gone
		return Status{Kind: KindExited}, nil
	}

	st, err := decodeWaitStatus(*ws)
	if err != nil || st.Kind != KindStopped {
		return st, err
	}

	regs, err := t.ReadRegister()
	if err != nil {
		return st, fmt.Errorf("read pc after stop: %w", err)
	}
	st.PC = regs.PC()
	return st, nil
}

// WaitNonblocking polls for a state change. ok is false when the target
// has not changed state.
func (t *DebuggedProcess) WaitNonblocking() (st Status, ok bool, err error) {
	var (
		ws   syscall.WaitStatus
		wpid int
	)
	wpid, err = syscall.Wait4(t.Process.Pid, &ws, syscall.WALL|syscall.WNOHANG, nil)
	if err != nil || wpid == 0 {
		return Status{}, false, err
	}

	st, err = decodeWaitStatus(ws)
	if err != nil || st.Kind != KindStopped {
		return st, err == nil, err
	}
	regs, rerr := t.ReadRegister()
	if rerr != nil {
		return st, true, rerr
	}
	st.PC = regs.PC()
	return st, true, nil
}

// waitRaw waits for pid, working around a wait4 quirk of traced group
// leaders.
//
// If we call wait4/waitpid on a thread that is the leader of its group,
// with options == 0, while ptracing and the thread leader has exited
// leaving zombies of its own then waitpid hangs forever. Therefore we call
// wait4 in a loop with WNOHANG, sleeping a while between calls and exiting
// when either wait4 succeeds or we find out that the thread has become a
// zombie.
//
// References:
// https://sourceware.org/bugzilla/show_bug.cgi?id=12702
// https://sourceware.org/bugzilla/show_bug.cgi?id=10095
func (t *DebuggedProcess) waitRaw(pid, options int) (int, *syscall.WaitStatus, error) {
	var s syscall.WaitStatus
	if (t.Process.Pid != pid) || (options != 0) {
		wpid, err := syscall.Wait4(pid, &s, syscall.WALL|options, nil)
		return wpid, &s, err
	}
	for {
		wpid, err := syscall.Wait4(pid, &s, syscall.WNOHANG|syscall.WALL|options, nil)
		if err != nil {
			return 0, nil, err
		}
		if wpid != 0 {
			return wpid, &s, err
		}
		if procState(pid, t.Command) == statusZombie {
			return pid, nil, nil
		}
		time.Sleep(200 * time.Millisecond)
	}
}

// Resume lets the target run freely until its next stop.
func (t *DebuggedProcess) Resume() error {
	var err error
	t.ExecPtrace(func() {
		err = syscall.PtraceCont(t.Process.Pid, 0)
	})
	return err
}

// SingleStep executes exactly one instruction and classifies the stop.
func (t *DebuggedProcess) SingleStep() (Status, error) {
	var err error
	t.ExecPtrace(func() {
		err = syscall.PtraceSingleStep(t.Process.Pid)
	})
	if err != nil {
		return Status{}, err
	}
	return t.Wait()
}

// Kill sends SIGKILL to the target if it is still alive, then reaps it.
// It reports whether a kill was actually delivered; a target that is
// already gone makes Kill a no-op.
func (t *DebuggedProcess) Kill() (bool, error) {
	err := syscall.Kill(t.Process.Pid, syscall.SIGKILL)
	if err == syscall.ESRCH {
		logflags.PtraceLogger().Debugf("kill %d: already gone", t.Process.Pid)
		return false, nil
	}
	if err != nil {
		return false, err
	}

	// blocking reap, no zombie left behind
	if _, _, err = t.waitRaw(t.Process.Pid, 0); err != nil {
		return true, fmt.Errorf("reap %d: %w", t.Process.Pid, err)
	}
	return true, nil
}

// ReadRegister takes a whole register-set snapshot.
func (t *DebuggedProcess) ReadRegister() (*syscall.PtraceRegs, error) {
	var (
		regs syscall.PtraceRegs
		err  error
	)
	t.ExecPtrace(func() {
		err = syscall.PtraceGetRegs(t.Process.Pid, &regs)
		if err != nil {
			err = fmt.Errorf("get regs error: %v", err)
		}
	})
	if err != nil {
		return nil, err
	}
	return &regs, nil
}

// WriteRegister writes back a whole register-set snapshot. This is the only
// way to relocate the instruction pointer.
func (t *DebuggedProcess) WriteRegister(regs *syscall.PtraceRegs) error {
	var err error
	t.ExecPtrace(func() {
		err = syscall.PtraceSetRegs(t.Process.Pid, regs)
	})
	return err
}

// ReadMemory reads len(buf) bytes at addr into buf, returning the number
// of bytes read.
func (t *DebuggedProcess) ReadMemory(addr uintptr, buf []byte) (int, error) {
	var (
		n   int
		err error
	)
	t.ExecPtrace(func() {
		// PtracePeekText and PtracePeekData behave identically on Linux
		n, err = syscall.PtracePeekText(t.Process.Pid, addr, buf)
	})
	if err != nil {
		return n, &MemoryAccessError{Op: "peek", Addr: addr, Err: err}
	}
	return n, nil
}

// WriteMemory writes value at addr.
func (t *DebuggedProcess) WriteMemory(addr uintptr, value []byte) error {
	var (
		n   int
		err error
	)
	t.ExecPtrace(func() {
		n, err = syscall.PtracePokeData(t.Process.Pid, addr, value)
	})
	if err != nil || n != len(value) {
		return &MemoryAccessError{Op: "poke", Addr: addr, Err: err}
	}
	return nil
}

// alignToWord rounds addr down to the containing machine word.
func alignToWord(addr uintptr) uintptr {
	return addr &^ (wordSize - 1)
}

// spliceByte replaces the byte at offset off inside word, returning the
// previous value and the updated word. Every other byte is untouched.
func spliceByte(word [wordSize]byte, off uintptr, val byte) (byte, [wordSize]byte) {
	old := word[off]
	word[off] = val
	return old, word
}

// PatchByte replaces the single byte at addr with val and returns the byte
// previously there. Sub-word writes are not available through ptrace, so
// the containing aligned word is read, spliced and written back whole.
func (t *DebuggedProcess) PatchByte(addr uintptr, val byte) (byte, error) {
	var (
		old byte
		err error
	)
	t.ExecPtrace(func() {
		aligned := alignToWord(addr)

		var word [wordSize]byte
		n, perr := syscall.PtracePeekText(t.Process.Pid, aligned, word[:])
		if perr != nil || n != wordSize {
			err = &MemoryAccessError{Op: "peek", Addr: aligned, Err: perr}
			return
		}

		var patched [wordSize]byte
		old, patched = spliceByte(word, addr-aligned, val)

		n, perr = syscall.PtracePokeText(t.Process.Pid, aligned, patched[:])
		if perr != nil || n != wordSize {
			err = &MemoryAccessError{Op: "poke", Addr: aligned, Err: perr}
			return
		}
	})
	if err != nil {
		return 0, err
	}
	return old, nil
}
