package debug

import (
	"fmt"

	"github.com/spf13/cobra"
)

var breaksCmd = &cobra.Command{
	Use:     "breaks",
	Short:   "list all breakpoints",
	Aliases: []string{"bs", "breakpoints"},
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupBreakpoints,
	},
	Run: func(cmd *cobra.Command, args []string) {
		for _, bp := range CurrentSession.breakpoints.Sorted() {
			state := "unarmed"
			if bp.Armed {
				state = "armed"
			}
			fmt.Printf("breakpoint[%d] addr:%#x, loc:%s (%s)\n", bp.ID, bp.Addr, bp.Pos, state)
		}
	},
}

func init() {
	debugRootCmd.AddCommand(breaksCmd)
}
