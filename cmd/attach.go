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
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/debugger101/deet/cmd/debug"
	"github.com/debugger101/deet/pkg/symbol"
	"github.com/debugger101/deet/pkg/target"
)

// attachCmd represents the attach command
var attachCmd = &cobra.Command{
	Use:   "attach <pid>",
	Short: "debug a running process",
	Long:  `debug a running process.`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		if len(args) != 1 {
			return errors.New("need exactly one pid")
		}

		pid, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("%s is not a valid pid", args[0])
		}

		dbp, err := target.Attach(pid)
		if err != nil {
			return err
		}

		bi, err := symbol.Analyze(fmt.Sprintf("/proc/%d/exe", pid))
		if err != nil {
			return err
		}

		debug.CurrentSession = debug.NewDebugSession(dbp.Command, dbp.Args, bi, dbp).
			AtExit(debug.Cleanup)
		return nil
	},
	PostRun: func(cmd *cobra.Command, args []string) {
		debug.CurrentSession.Start()
	},
}

func init() {
	rootCmd.AddCommand(attachCmd)
}
