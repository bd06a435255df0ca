package debug

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var disassCmd = &cobra.Command{
	Use:   "disass",
	Short: "disassemble instructions at the current PC",
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupSource,
	},
	Aliases: []string{"dis", "disassemble"},
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			max, _    = cmd.Flags().GetUint64("max")
			syntax, _ = cmd.Flags().GetString("syntax")
		)
		s := CurrentSession
		if !s.requireTarget() {
			return nil
		}
		if syntax == "" {
			syntax = viper.GetString("disass-syntax")
		}

		regs, err := s.target.ReadRegister()
		if err != nil {
			return err
		}

		// when stopped at a breakpoint, decode from the site with the
		// original byte temporarily restored, so the trap byte does not
		// garble the instruction stream
		addr := regs.PC()
		if bp := s.breakpoints.Lookup(uintptr(addr - 1)); bp != nil && bp.Armed {
			addr--
			if _, err := s.target.PatchByte(bp.Addr, bp.Orig); err != nil {
				return err
			}
			defer s.target.PatchByte(bp.Addr, 0xCC)
		}

		return s.target.Disassemble(addr, max, syntax)
	},
}

func init() {
	debugRootCmd.AddCommand(disassCmd)

	disassCmd.Flags().Uint64P("max", "n", 10, "number of instructions to decode")
	disassCmd.Flags().StringP("syntax", "s", "", "assembly syntax: go, gnu, intel")
}
