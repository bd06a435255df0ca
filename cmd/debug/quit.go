package debug

import (
	"github.com/spf13/cobra"
)

var quitCmd = &cobra.Command{
	Use:     "quit",
	Short:   "end the debugging session",
	Aliases: []string{"q", "exit"},
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupOthers,
	},
	Run: func(cmd *cobra.Command, args []string) {
		CurrentSession.Stop()
	},
}

func init() {
	debugRootCmd.AddCommand(quitCmd)
}
