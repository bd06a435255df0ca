// Package logflags selects which layers of the debugger emit logs.
//
// Loggers are logrus entries tagged with a `layer` field; a layer that is
// not enabled via --log-output logs at panic level, which keeps it silent.
package logflags

import (
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/sirupsen/logrus"
)

var session = false
var ptrace = false
var symbol = false

func makeLogger(flag bool, fields logrus.Fields) *logrus.Entry {
	logger := logrus.New().WithFields(fields)
	logger.Logger.Level = logrus.DebugLevel
	if !flag {
		logger.Logger.Level = logrus.PanicLevel
	}
	return logger
}

// Session returns true if the interactive session should log.
func Session() bool {
	return session
}

// SessionLogger returns a logger for the interactive session.
func SessionLogger() *logrus.Entry {
	return makeLogger(session, logrus.Fields{"layer": "session"})
}

// Ptrace returns true if ptrace requests should be logged.
func Ptrace() bool {
	return ptrace
}

// PtraceLogger returns a logger for the target controller's ptrace traffic.
func PtraceLogger() *logrus.Entry {
	return makeLogger(ptrace, logrus.Fields{"layer": "ptrace"})
}

// Symbol returns true if the symbol layer should log.
func Symbol() bool {
	return symbol
}

// SymbolLogger returns a logger for DWARF/ELF symbol loading.
func SymbolLogger() *logrus.Entry {
	return makeLogger(symbol, logrus.Fields{"layer": "symbol"})
}

var errLogstrWithoutLog = errors.New("--log-output specified without --log")

// Setup sets the layer flags based on the contents of logstr.
func Setup(logFlag bool, logstr string) error {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	if !logFlag {
		log.SetOutput(io.Discard)
		if logstr != "" {
			return errLogstrWithoutLog
		}
		return nil
	}
	if logstr == "" {
		logstr = "session"
	}
	for _, logcmd := range strings.Split(logstr, ",") {
		switch logcmd {
		case "session":
			session = true
		case "ptrace":
			ptrace = true
		case "symbol":
			symbol = true
		default:
			return fmt.Errorf("invalid log layer %q", logcmd)
		}
	}
	return nil
}
