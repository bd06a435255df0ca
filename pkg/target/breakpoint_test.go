package target

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterIdempotent(t *testing.T) {
	table := NewBreakpointTable()

	bp1, fresh := table.Register(0x1000, "main.go:10")
	require.True(t, fresh)

	bp2, fresh := table.Register(0x1000, "main.go:10")
	assert.False(t, fresh)
	assert.Same(t, bp1, bp2)
	assert.Equal(t, bp1.ID, bp2.ID)
	assert.Equal(t, 1, table.Len())
}

func TestArmAllAndDisarmForRestart(t *testing.T) {
	f := newFakeController(0)
	f.mem[0x1000] = 0x55
	f.mem[0x2000] = 0x48

	table := NewBreakpointTable()
	table.Register(0x1000, "")
	table.Register(0x2000, "")

	require.NoError(t, table.ArmAll(f))
	assert.Equal(t, trapInstruction, f.mem[0x1000])
	assert.Equal(t, trapInstruction, f.mem[0x2000])
	assert.Equal(t, byte(0x55), table.Lookup(0x1000).Orig)
	assert.Equal(t, byte(0x48), table.Lookup(0x2000).Orig)

	// arming twice must not capture the trap byte as the original
	require.NoError(t, table.ArmAll(f))
	assert.Equal(t, byte(0x55), table.Lookup(0x1000).Orig)

	// the target is replaced: entries stay registered but unarmed
	table.DisarmForRestart()
	assert.Equal(t, 2, table.Len())
	for _, bp := range table.Sorted() {
		assert.False(t, bp.Armed)
	}

	// a fresh process image gets fresh original bytes
	f2 := newFakeController(0)
	f2.mem[0x1000] = 0x90
	f2.mem[0x2000] = 0xc3
	require.NoError(t, table.ArmAll(f2))
	assert.Equal(t, byte(0x90), table.Lookup(0x1000).Orig)
	assert.Equal(t, byte(0xc3), table.Lookup(0x2000).Orig)
}

func TestRemoveRestoresOriginalByte(t *testing.T) {
	f := newFakeController(0)
	f.mem[0x1000] = 0x55

	table := NewBreakpointTable()
	table.Register(0x1000, "")
	require.NoError(t, table.ArmAll(f))

	bp, err := table.Remove(f, 0x1000)
	require.NoError(t, err)
	assert.Equal(t, byte(0x55), f.mem[0x1000])
	assert.False(t, bp.Armed)
	assert.Equal(t, 0, table.Len())

	_, err = table.Remove(f, 0x1000)
	assert.ErrorIs(t, err, ErrBreakpointNotExisted)
}

func TestRemoveWithoutTarget(t *testing.T) {
	table := NewBreakpointTable()
	table.Register(0x1000, "")

	// no live target: nothing to restore, the entry just goes away
	_, err := table.Remove(nil, 0x1000)
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
}

func TestSortedByID(t *testing.T) {
	table := NewBreakpointTable()
	table.Register(0x3000, "")
	table.Register(0x1000, "")
	table.Register(0x2000, "")

	bps := table.Sorted()
	require.Len(t, bps, 3)
	assert.True(t, bps[0].ID < bps[1].ID && bps[1].ID < bps[2].ID)
}
