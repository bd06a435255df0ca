package symbol

import (
	"debug/dwarf"
)

// Function describes one subprogram entry.
//
// see DWARFv4 3.3 subroutine and entry point entries
type Function struct {
	name     string
	lowpc    uint64
	highpc   uint64
	declFile int64
	external bool

	entry *dwarf.Entry
	cu    *CompileUnit
}

func (f *Function) Name() string {
	return f.name
}

// Entry returns the address of the function's first instruction.
func (f *Function) Entry() uint64 {
	return f.lowpc
}

func (f *Function) parseFrom(curEntry *dwarf.Entry) {

	for _, field := range curEntry.Field {
		switch field.Attr {
		case dwarf.AttrName:
			if val, ok := field.Val.(string); ok {
				f.name = val
			}
		case dwarf.AttrLowpc:
			if val, ok := field.Val.(uint64); ok {
				f.lowpc = val
			}
		case dwarf.AttrHighpc:
			// highpc is either an address or an offset from lowpc,
			// depending on the attribute class
			switch val := field.Val.(type) {
			case uint64:
				f.highpc = val
			case int64:
				f.highpc = f.lowpc + uint64(val)
			}
		case dwarf.AttrDeclFile:
			if val, ok := field.Val.(int64); ok {
				f.declFile = val
			}
		case dwarf.AttrExternal:
			if val, ok := field.Val.(bool); ok {
				f.external = val
			}
		}
	}

	f.entry = curEntry
}
