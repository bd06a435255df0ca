package debug

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/debugger101/deet/pkg/target"
)

var backtraceCmd = &cobra.Command{
	Use:     "bt",
	Short:   "print a stack backtrace",
	Aliases: []string{"backtrace"},
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupInfo,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		s := CurrentSession
		if !s.requireTarget() {
			return nil
		}

		regs, err := s.target.ReadRegister()
		if err != nil {
			return err
		}

		// stopped at a breakpoint the raw PC is one past the trap byte
		pc := regs.PC()
		if bp := s.breakpoints.Lookup(uintptr(pc - 1)); bp != nil && bp.Armed {
			pc--
		}

		frames, err := target.Backtrace(s.target, s.resolver, pc, regs.Rbp, s.resolver.EntryFunction())
		for i, f := range frames {
			fmt.Printf("#%d %s (%s:%d)\n", i, f.Function, f.File, f.Line)
		}
		if err != nil {
			// a failed walk is reported; the session stays usable
			fmt.Printf("backtrace aborted: %v\n", err)
		}
		return nil
	},
}

func init() {
	debugRootCmd.AddCommand(backtraceCmd)
}
