package debug

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:     "list [linespec]",
	Short:   "show source code",
	Aliases: []string{"l"},
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupSource,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			file   string
			lineno int
		)

		if len(args) != 0 {
			var ok bool
			file, lineno, ok = parseLineSpec(args[0])
			if !ok || file == "" {
				return fmt.Errorf("invalid location: %s, must be file:lineno", args[0])
			}
		} else {
			s := CurrentSession
			if !s.requireTarget() {
				return nil
			}

			regs, err := s.target.ReadRegister()
			if err != nil {
				return err
			}
			pc := regs.PC()
			if bp := s.breakpoints.Lookup(uintptr(pc - 1)); bp != nil && bp.Armed {
				pc--
			}

			file, lineno, err = s.resolver.PCToFileLine(pc)
			if err != nil {
				return fmt.Errorf("no source for pc %#x: %v", pc, err)
			}
		}

		return listFileLines(file, lineno, 5)
	},
}

// listFileLines prints rng lines around lineno, marking the current line.
func listFileLines(file string, lineno, rng int) error {

	lines, offset, err := listFile(file, lineno, rng)
	if err != nil {
		return fmt.Errorf("list file err: %v", err)
	}

	// use 1-based counter
	idx := offset + 1
	for _, ln := range lines {
		if idx != lineno {
			fmt.Printf("%-4s\t%d\t%s\n", "", idx, ln)
		} else {
			fmt.Printf("%-4s\t%d\t%s\n", "=>", idx, ln)
		}
		idx++
	}

	return nil
}

// listFile returns the window of lines around lineno; offset is the
// zero-based index of the first returned line.
func listFile(file string, lineno, rng int) (lines []string, offset int, err error) {
	dat, err := os.ReadFile(file)
	if err != nil {
		err = fmt.Errorf("read file err: %v", err)
		return
	}

	raw := strings.Split(string(dat), "\n")
	count := len(raw)

	begin := lineno - rng
	if begin < 0 {
		begin = 0
	}
	if begin > count {
		return
	}

	end := lineno + rng
	if end > count {
		end = count
	}

	return raw[begin:end], begin, nil
}

func init() {
	debugRootCmd.AddCommand(listCmd)
}
