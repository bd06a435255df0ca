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
	"path/filepath"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/debugger101/deet/pkg/logflags"
)

var (
	cfgFile   string
	logFlag   bool
	logOutput string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "deet",
	Short: "deet is a simple ptrace-based debugger",
	Long: `deet is a simple ptrace-based debugger for linux/amd64.

It launches or attaches to a target process, sets breakpoints by address,
source line or function name, and inspects stops with symbolic context.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logflags.Setup(logFlag, logOutput)
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.deet.yaml)")
	rootCmd.PersistentFlags().BoolVar(&logFlag, "log", false, "enable debugger logging")
	rootCmd.PersistentFlags().StringVar(&logOutput, "log-output", "", "comma-separated list of log layers (session,ptrace,symbol)")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	home, err := homedir.Dir()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// search config in home directory with name ".deet"
		viper.AddConfigPath(home)
		viper.SetConfigName(".deet")
	}

	viper.SetDefault("prompt", "deet> ")
	viper.SetDefault("history-file", filepath.Join(home, ".deet_history"))
	viper.SetDefault("disass-syntax", "gnu")

	viper.SetEnvPrefix("deet")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}
