package debug

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/debugger101/deet/pkg/target"
)

var clearallCmd = &cobra.Command{
	Use:   "clearall",
	Short: "clear all breakpoints",
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupBreakpoints,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		s := CurrentSession

		var ctrl target.Controller
		if s.target != nil {
			ctrl = s.target
		}
		if err := s.breakpoints.RemoveAll(ctrl); err != nil {
			return err
		}
		fmt.Println("Cleared all breakpoints")
		return nil
	},
}

func init() {
	debugRootCmd.AddCommand(clearallCmd)
}
