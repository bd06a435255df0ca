package symbol

import (
	"errors"
	"fmt"
)

var (
	// ErrOpenFailed reports that the binary itself could not be opened.
	ErrOpenFailed = errors.New("could not open binary")

	// ErrNotFound reports a symbol lookup miss.
	ErrNotFound = errors.New("not found")
)

// FormatError reports a binary that was opened but whose debug
// information is missing or malformed.
type FormatError struct {
	Detail string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("could not load debugging symbols: %s", e.Detail)
}

// Resolver is the read-only symbolic lookup service the debug session
// consumes. It is loaded once at startup; *BinaryInfo implements it.
type Resolver interface {
	// LineToPC returns a breakpoint-suitable address for a source line.
	// An empty file matches any compile unit, first hit wins.
	LineToPC(file string, line int) (uint64, error)

	// FuncToPC returns the entry address of the named function.
	FuncToPC(name string) (uint64, error)

	// PCToFunction returns the name of the function enclosing pc.
	PCToFunction(pc uint64) (string, error)

	// PCToFileLine returns the source position nearest at or below pc.
	PCToFileLine(pc uint64) (string, int, error)

	// FunctionsWithPrefix returns function names starting with prefix,
	// for completion.
	FunctionsWithPrefix(prefix string) []string

	// EntryFunction returns the name of the program's entry function,
	// where backtraces stop.
	EntryFunction() string
}
