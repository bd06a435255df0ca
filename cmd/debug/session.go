// Package debug implements the interactive debugging session: a liner
// shell dispatching to cobra commands that drive the target controller,
// the breakpoint table and the symbol resolver.
package debug

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/cosiner/argv"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/debugger101/deet/pkg/logflags"
	"github.com/debugger101/deet/pkg/symbol"
	"github.com/debugger101/deet/pkg/target"
)

const (
	cmdGroupAnnotation = "cmd_group_annotation"

	cmdGroupBreakpoints = "1-breaks"
	cmdGroupSource      = "2-source"
	cmdGroupCtrlFlow    = "3-execute"
	cmdGroupInfo        = "4-info"
	cmdGroupOthers      = "5-other"
	cmdGroupCobra       = "other"

	cmdGroupDelimiter = "-"

	descShort = "deet interactive debugging commands"
)

var debugRootCmd = &cobra.Command{
	Use:   "help [command]",
	Short: descShort,
}

var (
	CurrentSession *DebugSession
)

// DebugSession owns the state of one debugging session: the command
// shell, the symbol resolver, at most one live target and the breakpoint
// table. Exactly one session exists for the lifetime of the program and
// it processes one command at a time.
type DebugSession struct {
	done   chan bool
	prefix string
	root   *cobra.Command
	liner  *liner.State
	last   string

	historyFile string

	command     string   // target program path, used by run
	defaultArgs []string // arguments from the command line, used when run has none

	resolver    symbol.Resolver
	target      *target.DebuggedProcess // nil while no target is live
	breakpoints *target.BreakpointTable

	defers []func()
}

// NewDebugSession creates the interactive session. dbp is non-nil only
// for attached targets, which start out live and stopped.
func NewDebugSession(command string, args []string, resolver symbol.Resolver, dbp *target.DebuggedProcess) *DebugSession {

	fn := func(cmd *cobra.Command, args []string) {
		fmt.Println(cmd.Short)
		fmt.Println()
		fmt.Println(cmd.Use)
		fmt.Println(cmd.Flags().FlagUsages())

		usage := helpMessageByGroups(cmd)
		fmt.Println(usage)
	}
	debugRootCmd.SetHelpFunc(fn)

	return &DebugSession{
		done:        make(chan bool),
		prefix:      viper.GetString("prompt"),
		root:        debugRootCmd,
		liner:       liner.NewLiner(),
		last:        "",
		historyFile: viper.GetString("history-file"),
		command:     command,
		defaultArgs: args,
		resolver:    resolver,
		target:      dbp,
		breakpoints: target.NewBreakpointTable(),
	}
}

// Start runs the command loop until the session is stopped.
func (s *DebugSession) Start() {
	s.liner.SetCompleter(s.complete)
	s.liner.SetTabCompletionStyle(liner.TabPrints)

	s.loadHistory()

	defer func() {
		for idx := len(s.defers) - 1; idx >= 0; idx-- {
			s.defers[idx]()
		}
	}()

	for {
		select {
		case <-s.done:
			s.saveHistory()
			s.liner.Close()
			return
		default:
		}

		txt, err := s.liner.Prompt(s.prefix)
		if err == liner.ErrPromptAborted {
			// ctrl-c
			fmt.Println(`Type "quit" to exit`)
			continue
		}
		if err == io.EOF {
			// ctrl-d quits
			fmt.Println()
			s.Stop()
			continue
		}
		if err != nil {
			panic(err)
		}

		txt = strings.TrimSpace(txt)
		if len(txt) != 0 {
			s.last = txt
			s.liner.AppendHistory(txt)
		} else {
			// empty input repeats the last command
			txt = s.last
		}
		if txt == "" {
			continue
		}

		words, err := argv.Argv(txt, func(s string) (string, error) {
			return "", fmt.Errorf("backtick not supported in '%s'", s)
		}, nil)
		if err != nil || len(words) != 1 {
			fmt.Println("Unrecognized command.")
			continue
		}

		s.root.SetArgs(words[0])
		s.root.Execute()
	}
}

// AtExit registers fn to run when the session ends, last registered first.
func (s *DebugSession) AtExit(fn func()) *DebugSession {
	s.defers = append(s.defers, fn)
	return s
}

// Stop ends the command loop.
func (s *DebugSession) Stop() {
	close(s.done)
}

// loadHistory restores the persisted command history. Best effort: a
// missing or unreadable history file never prevents the session from
// starting.
func (s *DebugSession) loadHistory() {
	f, err := os.Open(s.historyFile)
	if err != nil {
		logflags.SessionLogger().Debugf("no history loaded from %s: %v", s.historyFile, err)
		return
	}
	defer f.Close()
	if _, err := s.liner.ReadHistory(f); err != nil {
		logflags.SessionLogger().Debugf("history %s unreadable: %v", s.historyFile, err)
	}
}

func (s *DebugSession) saveHistory() {
	f, err := os.Create(s.historyFile)
	if err != nil {
		fmt.Printf("Warning: failed to save history file at %s: %v\n", s.historyFile, err)
		return
	}
	defer f.Close()
	if _, err := s.liner.WriteHistory(f); err != nil {
		fmt.Printf("Warning: failed to save history file at %s: %v\n", s.historyFile, err)
	}
}

// complete offers command-name completion, plus function-name completion
// for the break command.
func (s *DebugSession) complete(line string) []string {
	for _, brk := range []string{"break ", "b "} {
		if strings.HasPrefix(line, brk) {
			prefix := strings.TrimPrefix(line, brk)
			var cmds []string
			for _, name := range s.resolver.FunctionsWithPrefix(prefix) {
				cmds = append(cmds, brk+name)
			}
			return cmds
		}
	}

	cmds := []string{}
	for _, c := range debugRootCmd.Commands() {
		// complete cmd
		if strings.HasPrefix(c.Use, line) {
			cmds = append(cmds, strings.Split(c.Use, " ")[0])
		}
		// complete cmd's aliases
		for _, alias := range c.Aliases {
			if strings.HasPrefix(alias, line) {
				cmds = append(cmds, alias)
			}
		}
	}
	return cmds
}

// requireTarget reports whether a target is live, printing the standard
// notice when none is.
func (s *DebugSession) requireTarget() bool {
	if s.target != nil {
		return true
	}
	fmt.Println("The program is not running.")
	return false
}

// dropTarget discards the target handle after the process is gone. The
// breakpoint addresses stay registered, unarmed, for the next run.
func (s *DebugSession) dropTarget() {
	if s.target == nil {
		return
	}
	s.target.StopPtrace()
	s.target = nil
	s.breakpoints.DisarmForRestart()
}

// reportStatus renders a stop classification, with symbolic context when
// the stop address resolves.
func (s *DebugSession) reportStatus(st target.Status) {
	switch st.Kind {
	case target.KindStopped:
		fmt.Printf("Child stopped (signal %v)\n", st.Signal)
		if file, line, err := s.resolver.PCToFileLine(st.PC); err == nil {
			if fn, err := s.resolver.PCToFunction(st.PC); err == nil {
				fmt.Printf("Stopped at %s:%d (%s)\n", file, line, fn)
			} else {
				fmt.Printf("Stopped at %s:%d\n", file, line)
			}
		}
	case target.KindExited:
		fmt.Printf("Child exited (status %d)\n", st.ExitCode)
		s.dropTarget()
	case target.KindSignaled:
		fmt.Printf("Child signaled (%v)\n", st.Signal)
		s.dropTarget()
	}
}

// checkFatal handles errors that indicate a controller/OS contract
// violation; guessing at the target's state would corrupt it, so the
// whole program aborts.
func checkFatal(err error) {
	if err == nil || !errors.Is(err, target.ErrUnexpectedWaitStatus) {
		return
	}
	fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
	os.Exit(1)
}

// Cleanup disposes of the live target when the session ends: attached
// processes are detached and left running, launched ones are killed.
func Cleanup() {
	s := CurrentSession
	if s == nil || s.target == nil {
		return
	}

	dbp := s.target
	if dbp.Kind == target.ATTACH {
		// the process keeps running after detach, leave no trap bytes behind
		if err := s.breakpoints.RemoveAll(dbp); err != nil {
			fmt.Fprintf(os.Stderr, "restore breakpoints: %v\n", err)
		}
		if err := dbp.Detach(); err != nil {
			fmt.Fprintf(os.Stderr, "detach tracee %d: %v\n", dbp.Process.Pid, err)
		}
	} else {
		if killed, err := dbp.Kill(); killed && err == nil {
			fmt.Printf("Killing running inferior (pid %d)\n", dbp.Process.Pid)
		} else if err != nil {
			fmt.Fprintf(os.Stderr, "kill tracee %d: %v\n", dbp.Process.Pid, err)
		}
	}
	s.dropTarget()
}

// helpMessageByGroups presents the commands grouped by topic.
func helpMessageByGroups(cmd *cobra.Command) string {

	// key:group, val:sorted commands in same group
	groups := map[string][]string{}
	for _, c := range cmd.Commands() {
		// commands without a group go into the other group
		var groupName string
		v, ok := c.Annotations[cmdGroupAnnotation]
		if !ok {
			groupName = "other"
		} else {
			groupName = v
		}

		groupCmds := groups[groupName]
		groupCmds = append(groupCmds, fmt.Sprintf("  %-16s:%s", c.Name(), c.Short))
		sort.Strings(groupCmds)

		groups[groupName] = groupCmds
	}

	if len(groups[cmdGroupCobra]) != 0 {
		groups[cmdGroupOthers] = append(groups[cmdGroupOthers], groups[cmdGroupCobra]...)
	}
	delete(groups, cmdGroupCobra)

	groupNames := []string{}
	for k := range groups {
		groupNames = append(groupNames, k)
	}
	sort.Strings(groupNames)

	buf := bytes.Buffer{}
	for _, groupName := range groupNames {
		commands := groups[groupName]

		group := strings.Split(groupName, cmdGroupDelimiter)[1]
		buf.WriteString(fmt.Sprintf("- [%s]\n", group))

		for _, cmd := range commands {
			buf.WriteString(fmt.Sprintf("%s\n", cmd))
		}
		buf.WriteString("\n")
	}
	return buf.String()
}
