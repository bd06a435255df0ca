package target

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// maxStackFrames caps the frame-pointer walk so a corrupted chain cannot
// loop forever.
const maxStackFrames = 64

// Frame is one entry of a stack backtrace.
type Frame struct {
	PC       uint64
	Function string
	File     string
	Line     int
}

// MemoryReader is the slice of the target controller the stack walker
// needs.
type MemoryReader interface {
	ReadMemory(addr uintptr, buf []byte) (int, error)
}

// FrameResolver resolves instruction pointers to symbolic context.
type FrameResolver interface {
	PCToFunction(pc uint64) (string, error)
	PCToFileLine(pc uint64) (string, int, error)
}

// Backtrace walks the frame-pointer chain starting at pc with frame base
// fp. The walk ends at the program's entry function entryFunc. Each frame
// base holds the caller's frame base, with the saved return address one
// word above it.
//
// Frames resolved before a failure are returned alongside the error; a
// failed walk never invalidates the session.
func Backtrace(mem MemoryReader, sym FrameResolver, pc, fp uint64, entryFunc string) ([]Frame, error) {
	var frames []Frame

	for len(frames) < maxStackFrames {
		fn, err := sym.PCToFunction(pc)
		if err != nil {
			return frames, fmt.Errorf("no function for pc %#x: %w", pc, err)
		}
		file, line, err := sym.PCToFileLine(pc)
		if err != nil {
			return frames, fmt.Errorf("no line for pc %#x: %w", pc, err)
		}
		frames = append(frames, Frame{PC: pc, Function: fn, File: file, Line: line})

		if fn == entryFunc {
			return frames, nil
		}
		if fp == 0 {
			return frames, nil
		}

		// [fp] caller's frame base, [fp+8] saved return address
		buf := make([]byte, 2*wordSize)
		n, err := mem.ReadMemory(uintptr(fp), buf)
		if err != nil || n != len(buf) {
			return frames, fmt.Errorf("read frame at %#x: %w", fp, err)
		}

		var callerFP, ret uint64
		reader := bytes.NewBuffer(buf)
		if err := binary.Read(reader, binary.LittleEndian, &callerFP); err != nil {
			return frames, err
		}
		if err := binary.Read(reader, binary.LittleEndian, &ret); err != nil {
			return frames, err
		}

		pc = ret
		fp = callerFP
	}
	return frames, nil
}
