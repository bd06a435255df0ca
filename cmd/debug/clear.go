package debug

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/debugger101/deet/pkg/target"
)

var clearCmd = &cobra.Command{
	Use:   "clear -n <breakpoint no.>",
	Short: "clear the numbered breakpoint",
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupBreakpoints,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := cmd.Flags().GetUint64("n")
		if err != nil {
			return err
		}
		s := CurrentSession

		var brk *target.Breakpoint
		for _, bp := range s.breakpoints.Sorted() {
			if bp.ID == id {
				brk = bp
				break
			}
		}
		if brk == nil {
			return errors.New("breakpoint not existed")
		}

		var ctrl target.Controller
		if s.target != nil {
			ctrl = s.target
		}
		if _, err := s.breakpoints.Remove(ctrl, brk.Addr); err != nil {
			return err
		}
		fmt.Printf("Cleared breakpoint %d at %#x\n", brk.ID, brk.Addr)
		return nil
	},
}

func init() {
	debugRootCmd.AddCommand(clearCmd)

	clearCmd.Flags().Uint64P("n", "n", 1, "breakpoint number")
}
