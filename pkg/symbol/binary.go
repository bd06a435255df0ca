package symbol

import (
	"debug/dwarf"
	"debug/elf"
	"fmt"
	"sort"
	"strings"

	"github.com/derekparker/trie"

	"github.com/debugger101/deet/pkg/logflags"
)

// BinaryInfo holds the line-number and function-boundary tables parsed
// from a binary's DWARF sections. It is read-only after Analyze returns.
type BinaryInfo struct {
	Sources      map[string]map[int][]*dwarf.LineEntry // key=filename, val=map[lineno]lineEntries
	Functions    []*Function
	CompileUnits []*CompileUnit

	funcIndex   *trie.Trie // function names, for completion
	sourceFiles []string   // sorted filenames, for deterministic bare-line lookup
	entryFunc   string

	// only used for parsing purpose
	curCompileUnit *CompileUnit
}

var _ Resolver = (*BinaryInfo)(nil)

// Analyze parses the DWARF debug information of execFile.
func Analyze(execFile string) (*BinaryInfo, error) {

	file, err := elf.Open(execFile)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrOpenFailed, execFile, err)
	}
	defer file.Close()

	dwarfData, err := file.DWARF()
	if err != nil {
		return nil, &FormatError{Detail: err.Error()}
	}

	bi := &BinaryInfo{
		Sources:   make(map[string]map[int][]*dwarf.LineEntry),
		funcIndex: trie.New(),
	}
	if err := bi.parseLineAndInfo(dwarfData); err != nil {
		return nil, &FormatError{Detail: err.Error()}
	}
	bi.buildIndexes()

	logflags.SymbolLogger().Debugf("analyzed %s: %d functions, %d source files",
		execFile, len(bi.Functions), len(bi.sourceFiles))
	return bi, nil
}

// parseLineAndInfo walks .(z)debug_info and the per-unit line tables.
//
// unit entries: see DWARF v4 chapter 3.3.1 normal and partial compilation
// unit entries
func (bi *BinaryInfo) parseLineAndInfo(dwarfData *dwarf.Data) error {

	reader := dwarfData.Reader()
	for {
		entry, err := reader.Next()
		if err != nil {
			return err
		}
		if entry == nil { // reaches the end
			break
		}

		// parse compile unit and line table
		if entry.Tag == dwarf.TagCompileUnit {
			cu := &CompileUnit{entry: entry, bi: bi}
			bi.curCompileUnit = cu
			bi.CompileUnits = append(bi.CompileUnits, cu)

			rd, err := dwarfData.LineReader(entry)
			if err != nil {
				return err
			}
			if rd == nil {
				continue
			}
			if err := cu.parseLineSection(rd); err != nil {
				return err
			}
		}

		// parse subprogram
		if entry.Tag == dwarf.TagSubprogram {
			fn := &Function{cu: bi.curCompileUnit}
			fn.parseFrom(entry)
			if fn.name == "" || fn.highpc <= fn.lowpc {
				continue
			}
			bi.Functions = append(bi.Functions, fn)
			if bi.curCompileUnit != nil {
				bi.curCompileUnit.functions = append(bi.curCompileUnit.functions, fn)
			}
		}
	}
	return nil
}

func (bi *BinaryInfo) buildIndexes() {
	for file := range bi.Sources {
		bi.sourceFiles = append(bi.sourceFiles, file)
	}
	sort.Strings(bi.sourceFiles)

	sort.Slice(bi.Functions, func(i, j int) bool { return bi.Functions[i].lowpc < bi.Functions[j].lowpc })
	for _, fn := range bi.Functions {
		bi.funcIndex.Add(fn.name, fn)
	}

	// Go binaries qualify the entry function as main.main, C binaries
	// leave it as main.
	bi.entryFunc = "main"
	for _, fn := range bi.Functions {
		if fn.name == "main.main" {
			bi.entryFunc = "main.main"
			break
		}
	}
}

// FuncToPC returns the entry address of the named function. An exact match
// wins, then a main-package match, then any package-qualified suffix
// match, so `main` finds `main.main` rather than `runtime.main` in a Go
// binary.
func (bi *BinaryInfo) FuncToPC(name string) (uint64, error) {
	var mainMatch, suffixMatch *Function
	for _, fn := range bi.Functions {
		if fn.name == name {
			return fn.lowpc, nil
		}
		if mainMatch == nil && fn.name == "main."+name {
			mainMatch = fn
		}
		if suffixMatch == nil && strings.HasSuffix(fn.name, "."+name) {
			suffixMatch = fn
		}
	}
	if mainMatch != nil {
		return mainMatch.lowpc, nil
	}
	if suffixMatch != nil {
		return suffixMatch.lowpc, nil
	}
	return 0, fmt.Errorf("function %s: %w", name, ErrNotFound)
}

// PCToFunction returns the function whose range covers pc.
//
// note: not considered inline function
func (bi *BinaryInfo) PCToFunction(pc uint64) (string, error) {
	for _, fn := range bi.Functions {
		if fn.lowpc <= pc && pc < fn.highpc {
			return fn.name, nil
		}
	}
	return "", fmt.Errorf("pc %#x: %w", pc, ErrNotFound)
}

// PCToFileLine returns the source position whose line entry is nearest at
// or below pc.
func (bi *BinaryInfo) PCToFileLine(pc uint64) (string, int, error) {
	var (
		found    bool
		bestAddr uint64
		bestFile string
		bestLine int
	)
	for filename, lines := range bi.Sources {
		for lineno, lineEntries := range lines {
			for _, lineEntry := range lineEntries {
				if lineEntry.Address == pc {
					return filename, lineno, nil
				}
				if lineEntry.Address <= pc && (!found || lineEntry.Address > bestAddr) {
					found = true
					bestAddr = lineEntry.Address
					bestFile = filename
					bestLine = lineno
				}
			}
		}
	}
	if !found {
		return "", 0, fmt.Errorf("pc %#x: %w", pc, ErrNotFound)
	}
	return bestFile, bestLine, nil
}

// LineToPC returns a breakpoint-suitable address for file:line. An empty
// file matches every compile unit in sorted order, first hit winning; a
// non-empty file matches exactly or by path suffix, so `main.go` finds
// `/path/to/main.go`.
func (bi *BinaryInfo) LineToPC(file string, line int) (uint64, error) {
	for _, candidate := range bi.matchFiles(file) {
		entries := bi.Sources[candidate][line]
		if len(entries) == 0 {
			continue
		}
		return breakpointEntry(entries), nil
	}
	if file == "" {
		return 0, fmt.Errorf("line %d: %w", line, ErrNotFound)
	}
	return 0, fmt.Errorf("line %s:%d: %w", file, line, ErrNotFound)
}

func (bi *BinaryInfo) matchFiles(file string) []string {
	if file == "" {
		return bi.sourceFiles
	}
	if _, ok := bi.Sources[file]; ok {
		return []string{file}
	}
	var matches []string
	for _, candidate := range bi.sourceFiles {
		if strings.HasSuffix(candidate, "/"+file) {
			matches = append(matches, candidate)
		}
	}
	return matches
}

// breakpointEntry picks the address to trap a source line at: the
// prologue-end entry when the line table marks one, else the lowest
// address for the line.
func breakpointEntry(entries []*dwarf.LineEntry) uint64 {
	for _, entry := range entries {
		if entry.PrologueEnd {
			return entry.Address
		}
	}
	addr := entries[0].Address
	for _, entry := range entries[1:] {
		if entry.Address < addr {
			addr = entry.Address
		}
	}
	return addr
}

// FunctionsWithPrefix returns the names of functions starting with prefix.
func (bi *BinaryInfo) FunctionsWithPrefix(prefix string) []string {
	names := bi.funcIndex.PrefixSearch(prefix)
	sort.Strings(names)
	return names
}

// EntryFunction returns the name the backtrace walker stops at.
func (bi *BinaryInfo) EntryFunction() string {
	return bi.entryFunc
}
