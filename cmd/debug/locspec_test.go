package debug

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/debugger101/deet/pkg/symbol"
)

// fakeResolver records which lookup a location token was routed to.
type fakeResolver struct {
	lines map[string]uint64 // "file:line"
	funcs map[string]uint64

	lineCalls []string
	funcCalls []string
}

var _ symbol.Resolver = (*fakeResolver)(nil)

func (r *fakeResolver) LineToPC(file string, line int) (uint64, error) {
	key := fmt.Sprintf("%s:%d", file, line)
	r.lineCalls = append(r.lineCalls, key)
	if addr, ok := r.lines[key]; ok {
		return addr, nil
	}
	return 0, symbol.ErrNotFound
}

func (r *fakeResolver) FuncToPC(name string) (uint64, error) {
	r.funcCalls = append(r.funcCalls, name)
	if addr, ok := r.funcs[name]; ok {
		return addr, nil
	}
	return 0, symbol.ErrNotFound
}

func (r *fakeResolver) PCToFunction(pc uint64) (string, error)      { return "", symbol.ErrNotFound }
func (r *fakeResolver) PCToFileLine(pc uint64) (string, int, error) { return "", 0, symbol.ErrNotFound }
func (r *fakeResolver) FunctionsWithPrefix(prefix string) []string  { return nil }
func (r *fakeResolver) EntryFunction() string                       { return "main.main" }

func TestResolveLocationHexAddress(t *testing.T) {
	r := &fakeResolver{}

	addr, err := resolveLocation(r, "0x40116c")
	require.NoError(t, err)
	assert.Equal(t, uint64(0x40116c), addr)

	// a 0x token never reaches the symbol tables
	assert.Empty(t, r.lineCalls)
	assert.Empty(t, r.funcCalls)

	_, err = resolveLocation(r, "0xzz")
	assert.Error(t, err)
}

func TestResolveLocationBareLine(t *testing.T) {
	r := &fakeResolver{lines: map[string]uint64{":20": 0x2000}}

	addr, err := resolveLocation(r, "20")
	require.NoError(t, err)
	assert.Equal(t, uint64(0x2000), addr)
	assert.Equal(t, []string{":20"}, r.lineCalls)
}

func TestResolveLocationFileLine(t *testing.T) {
	r := &fakeResolver{lines: map[string]uint64{"main.go:12": 0x3000}}

	addr, err := resolveLocation(r, "main.go:12")
	require.NoError(t, err)
	assert.Equal(t, uint64(0x3000), addr)
}

func TestResolveLocationFunction(t *testing.T) {
	r := &fakeResolver{funcs: map[string]uint64{"main.main": 0x4000}}

	addr, err := resolveLocation(r, "main.main")
	require.NoError(t, err)
	assert.Equal(t, uint64(0x4000), addr)
	assert.Empty(t, r.lineCalls)
}

func TestResolveLocationUnknownFunctionNamesToken(t *testing.T) {
	r := &fakeResolver{}

	_, err := resolveLocation(r, "nosuchfunc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nosuchfunc")
}

func TestResolveLocationBareLineNeverFallsBackToFunction(t *testing.T) {
	r := &fakeResolver{}

	_, err := resolveLocation(r, "42")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "42")
	assert.Empty(t, r.funcCalls)
}

func TestParseLineSpec(t *testing.T) {
	file, line, ok := parseLineSpec("main.go:7")
	require.True(t, ok)
	assert.Equal(t, "main.go", file)
	assert.Equal(t, 7, line)

	file, line, ok = parseLineSpec("7")
	require.True(t, ok)
	assert.Equal(t, "", file)
	assert.Equal(t, 7, line)

	_, _, ok = parseLineSpec("main.main")
	assert.False(t, ok)

	_, _, ok = parseLineSpec("main.go:")
	assert.False(t, ok)

	_, _, ok = parseLineSpec("-3")
	assert.False(t, ok)
}
