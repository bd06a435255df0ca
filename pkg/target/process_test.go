package target

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAlignToWord(t *testing.T) {
	assert.Equal(t, uintptr(0x1000), alignToWord(0x1000))
	assert.Equal(t, uintptr(0x1000), alignToWord(0x1001))
	assert.Equal(t, uintptr(0x1000), alignToWord(0x1007))
	assert.Equal(t, uintptr(0x1008), alignToWord(0x1008))
}

func TestSpliceByteExact(t *testing.T) {
	// splicing any offset must leave every other byte untouched and
	// splicing the old byte back must reproduce the original word
	word := [wordSize]byte{0, 1, 2, 3, 4, 5, 6, 7}

	for off := uintptr(0); off < wordSize; off++ {
		old, patched := spliceByte(word, off, trapInstruction)
		assert.Equal(t, byte(off), old)
		assert.Equal(t, trapInstruction, patched[off])
		for i := uintptr(0); i < wordSize; i++ {
			if i != off {
				assert.Equal(t, word[i], patched[i])
			}
		}

		restoredOld, restored := spliceByte(patched, off, old)
		assert.Equal(t, trapInstruction, restoredOld)
		assert.Equal(t, word, restored)
	}
}
