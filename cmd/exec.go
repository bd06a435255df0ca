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
	"errors"

	"github.com/spf13/cobra"

	"github.com/debugger101/deet/cmd/debug"
	"github.com/debugger101/deet/pkg/symbol"
)

// execCmd represents the exec command
var execCmd = &cobra.Command{
	Use:   "exec <prog>",
	Short: "debug an executable program",
	Long: `debug an executable program.

The debugging symbols are loaded up front; the target itself is not
started until the session's run command.`,
	RunE: func(cmd *cobra.Command, args []string) error {

		if len(args) < 1 {
			return errors.New("need a program to debug")
		}

		// a symbol load failure is fatal to the whole session
		bi, err := symbol.Analyze(args[0])
		if err != nil {
			return err
		}

		debug.CurrentSession = debug.NewDebugSession(args[0], args[1:], bi, nil).
			AtExit(debug.Cleanup)
		return nil
	},
	PostRun: func(cmd *cobra.Command, args []string) {
		debug.CurrentSession.Start()
	},
}

func init() {
	rootCmd.AddCommand(execCmd)
}
