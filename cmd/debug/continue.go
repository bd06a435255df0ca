package debug

import (
	"github.com/spf13/cobra"

	"github.com/debugger101/deet/pkg/target"
)

var continueCmd = &cobra.Command{
	Use:   "continue",
	Short: "run until the next breakpoint",
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupCtrlFlow,
	},
	Aliases: []string{"c"},
	RunE: func(cmd *cobra.Command, args []string) error {
		s := CurrentSession
		if !s.requireTarget() {
			return nil
		}

		st, err := target.ContinueOverBreakpoint(s.target, s.breakpoints)
		if err != nil {
			checkFatal(err)
			// a memory or register failure aborts this attempt only; the
			// target handle stays valid for a retry
			return err
		}
		s.reportStatus(st)
		return nil
	},
}

func init() {
	debugRootCmd.AddCommand(continueCmd)
}
