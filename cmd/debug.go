/*
Copyright © 2024 debugger101

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/debugger101/deet/cmd/debug"
	"github.com/debugger101/deet/pkg/symbol"
)

const (
	BuildExecName = "./__debug_bin__"
)

// debugCmd represents the debug command
var debugCmd = &cobra.Command{
	Use:   "debug [directory|file]",
	Short: "build and debug go program",
	Long:  `build and debug go program.`,
	RunE: func(cmd *cobra.Command, args []string) error {

		// build the tracee without optimizations so line and function
		// lookups stay precise
		cmdName := []string{"."}
		if len(args) != 0 {
			cmdName = args
		}

		cmdArgs := []string{"build", "-gcflags=all=-N -l", "-o", BuildExecName}
		cmdArgs = append(cmdArgs, cmdName...)
		buildCmd := exec.Command("go", cmdArgs...)

		if buf, err := buildCmd.CombinedOutput(); err != nil {
			fmt.Fprintf(os.Stderr, "build error: %v\n", err)
			fmt.Fprintf(os.Stderr, "\terrmsg: %s\n", string(buf))
			return err
		}
		fmt.Printf("build ok\n")

		bi, err := symbol.Analyze(BuildExecName)
		if err != nil {
			return err
		}

		debug.CurrentSession = debug.NewDebugSession(BuildExecName, nil, bi, nil).
			AtExit(debug.Cleanup).
			AtExit(func() { os.RemoveAll(BuildExecName) })
		return nil
	},
	PostRun: func(cmd *cobra.Command, args []string) {
		debug.CurrentSession.Start()
	},
}

func init() {
	rootCmd.AddCommand(debugCmd)
}
