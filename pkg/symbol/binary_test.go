package symbol

import (
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildFixture compiles testdata/hello with optimizations and inlining
// disabled so its DWARF tables look like a debug build's.
func buildFixture(t *testing.T) string {
	t.Helper()
	if runtime.GOOS != "linux" {
		t.Skip("fixture analysis requires a linux ELF binary")
	}
	if _, err := exec.LookPath("go"); err != nil {
		t.Skip("go tool not available")
	}

	bin := filepath.Join(t.TempDir(), "hello")
	cmd := exec.Command("go", "build", `-gcflags=all=-N -l`, "-o", bin, ".")
	cmd.Dir = filepath.Join("testdata", "hello")
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("build fixture: %v\n%s", err, out)
	}
	return bin
}

func TestAnalyzeFixture(t *testing.T) {
	bi, err := Analyze(buildFixture(t))
	require.NoError(t, err)

	assert.NotEmpty(t, bi.Functions)
	assert.NotEmpty(t, bi.Sources)
	assert.Equal(t, "main.main", bi.EntryFunction())
}

func TestFuncToPCPrefersMainPackage(t *testing.T) {
	bi, err := Analyze(buildFixture(t))
	require.NoError(t, err)

	exact, err := bi.FuncToPC("main.main")
	require.NoError(t, err)
	assert.NotZero(t, exact)

	// a Go binary also carries runtime.main; the bare name must still
	// land in package main
	bare, err := bi.FuncToPC("main")
	require.NoError(t, err)
	assert.Equal(t, exact, bare)

	_, err = bi.FuncToPC("nosuchfunc")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPCRoundTrip(t *testing.T) {
	bi, err := Analyze(buildFixture(t))
	require.NoError(t, err)

	pc, err := bi.FuncToPC("main.greet")
	require.NoError(t, err)

	name, err := bi.PCToFunction(pc)
	require.NoError(t, err)
	assert.Equal(t, "main.greet", name)

	file, line, err := bi.PCToFileLine(pc)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(file, "main.go"), "file = %s", file)
	assert.Greater(t, line, 0)
}

func TestLineToPC(t *testing.T) {
	bi, err := Analyze(buildFixture(t))
	require.NoError(t, err)

	// line 11 is the greet call inside main
	addr, err := bi.LineToPC("main.go", 11)
	require.NoError(t, err)
	assert.NotZero(t, addr)

	// suffix match against the full compile-unit path
	suffixAddr, err := bi.LineToPC("hello/main.go", 11)
	require.NoError(t, err)
	assert.Equal(t, addr, suffixAddr)

	_, err = bi.LineToPC("main.go", 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFunctionsWithPrefix(t *testing.T) {
	bi, err := Analyze(buildFixture(t))
	require.NoError(t, err)

	names := bi.FunctionsWithPrefix("main.")
	assert.Contains(t, names, "main.main")
	assert.Contains(t, names, "main.greet")
	assert.True(t, sort.StringsAreSorted(names))
}

func TestAnalyzeMissingBinary(t *testing.T) {
	_, err := Analyze(filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, ErrOpenFailed)
}
