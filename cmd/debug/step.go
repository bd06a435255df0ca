package debug

import (
	"github.com/spf13/cobra"

	"github.com/debugger101/deet/pkg/target"
)

var stepCmd = &cobra.Command{
	Use:     "step",
	Short:   "execute one instruction",
	Aliases: []string{"s"},
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupCtrlFlow,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		s := CurrentSession
		if !s.requireTarget() {
			return nil
		}

		st, err := target.StepInstruction(s.target, s.breakpoints)
		if err != nil {
			checkFatal(err)
			return err
		}
		s.reportStatus(st)
		return nil
	},
}

func init() {
	debugRootCmd.AddCommand(stepCmd)
}
