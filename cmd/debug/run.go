package debug

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/debugger101/deet/pkg/target"
)

var runCmd = &cobra.Command{
	Use:   "run [args...]",
	Short: "start the target program",
	Long: `start the target program.

A target that is already running is killed and reaped first. Every
registered breakpoint is armed in the fresh process before it executes
its first instruction.`,
	Aliases: []string{"r"},
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupCtrlFlow,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		s := CurrentSession

		// replace any previous target, best-effort kill + blocking reap
		if s.target != nil {
			if killed, err := s.target.Kill(); killed && err == nil {
				fmt.Printf("Killing running inferior (pid %d)\n", s.target.Process.Pid)
			} else if err != nil {
				return fmt.Errorf("kill previous target: %v", err)
			}
			s.dropTarget()
		}

		runArgs := args
		if len(runArgs) == 0 {
			runArgs = s.defaultArgs
		}

		dbp, err := target.Launch(s.command, runArgs...)
		if err != nil {
			fmt.Println("Error starting subprocess")
			return err
		}
		s.target = dbp

		// arm before the first resume so no instruction runs unguarded
		if err := s.breakpoints.ArmAll(dbp); err != nil {
			return fmt.Errorf("arm breakpoints: %v", err)
		}

		st, err := target.ContinueOverBreakpoint(dbp, s.breakpoints)
		if err != nil {
			checkFatal(err)
			return err
		}
		s.reportStatus(st)
		return nil
	},
}

func init() {
	debugRootCmd.AddCommand(runCmd)
}
