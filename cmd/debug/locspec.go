package debug

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/debugger101/deet/pkg/symbol"
)

// resolveLocation turns a breakpoint location token into an address.
//
// Precedence is explicit: a token starting with 0x is a raw hexadecimal
// address; a token shaped like a line spec (file:line, or a bare decimal
// line number) goes to the line table; anything else is tried as a
// function name. A bare decimal never falls through to function lookup.
// An unresolvable token yields an error naming the token.
func resolveLocation(r symbol.Resolver, loc string) (uint64, error) {
	if strings.HasPrefix(loc, "0x") || strings.HasPrefix(loc, "0X") {
		addr, err := strconv.ParseUint(loc[2:], 16, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid address %s", loc)
		}
		return addr, nil
	}

	if file, line, ok := parseLineSpec(loc); ok {
		addr, err := r.LineToPC(file, line)
		if err != nil {
			return 0, fmt.Errorf("No such line %s", loc)
		}
		return addr, nil
	}

	addr, err := r.FuncToPC(loc)
	if err != nil {
		return 0, fmt.Errorf("No such function %s", loc)
	}
	return addr, nil
}

// parseLineSpec recognizes `file:line` and bare `line` tokens. The file
// part is empty for a bare line number, meaning any compile unit.
func parseLineSpec(s string) (file string, line int, ok bool) {
	if v, err := strconv.Atoi(s); err == nil {
		return "", v, v > 0
	}

	idx := strings.LastIndex(s, ":")
	if idx <= 0 || idx == len(s)-1 {
		return "", 0, false
	}
	v, err := strconv.Atoi(s[idx+1:])
	if err != nil || v <= 0 {
		return "", 0, false
	}
	return s[:idx], v, true
}
