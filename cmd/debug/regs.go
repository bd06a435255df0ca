package debug

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var regsCmd = &cobra.Command{
	Use:   "regs",
	Short: "show the register snapshot",
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

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 4, ' ', 0)
		fmt.Fprintf(tw, "rip\t%#x\trsp\t%#x\trbp\t%#x\n", regs.Rip, regs.Rsp, regs.Rbp)
		fmt.Fprintf(tw, "rax\t%#x\trbx\t%#x\trcx\t%#x\n", regs.Rax, regs.Rbx, regs.Rcx)
		fmt.Fprintf(tw, "rdx\t%#x\trsi\t%#x\trdi\t%#x\n", regs.Rdx, regs.Rsi, regs.Rdi)
		fmt.Fprintf(tw, "r8\t%#x\tr9\t%#x\tr10\t%#x\n", regs.R8, regs.R9, regs.R10)
		fmt.Fprintf(tw, "r11\t%#x\tr12\t%#x\tr13\t%#x\n", regs.R11, regs.R12, regs.R13)
		fmt.Fprintf(tw, "r14\t%#x\tr15\t%#x\teflags\t%#x\n", regs.R14, regs.R15, regs.Eflags)
		return tw.Flush()
	},
}

func init() {
	debugRootCmd.AddCommand(regsCmd)
}
