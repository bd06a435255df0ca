package debug

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var breakCmd = &cobra.Command{
	Use:   "break <locspec>",
	Short: "add a breakpoint",
	Long: `add a breakpoint at a source location.

Supported locspec forms:
- raw hexadecimal address, like 0x401000
- [file:]line number
- function name`,
	Aliases: []string{"b", "breakpoint"},
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupBreakpoints,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return errors.New("need exactly one location")
		}
		s := CurrentSession

		addr, err := resolveLocation(s.resolver, args[0])
		if err != nil {
			// resolution misses are informational, not session errors
			fmt.Println(err)
			return nil
		}

		pos := args[0]
		if file, line, lerr := s.resolver.PCToFileLine(addr); lerr == nil {
			pos = fmt.Sprintf("%s:%d", file, line)
		}

		bp, fresh := s.breakpoints.Register(uintptr(addr), pos)
		if !fresh {
			fmt.Printf("Breakpoint already set at %#x\n", bp.Addr)
			return nil
		}

		// with a live target the trap byte goes in right away; otherwise
		// the breakpoint is armed on the next run
		if s.target != nil {
			if err := s.breakpoints.Arm(s.target, bp); err != nil {
				return fmt.Errorf("arm breakpoint: %v", err)
			}
		}
		fmt.Printf("Set breakpoint %d at %#x\n", bp.ID, bp.Addr)
		return nil
	},
}

func init() {
	debugRootCmd.AddCommand(breakCmd)
}
