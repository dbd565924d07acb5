package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDict(t *testing.T) *dictionary {
	m := newMemory()
	start, size, err := m.region("DICT", 0x400, 512, nil)
	require.NoError(t, err)
	d, err := newDictionary(m, start, size)
	require.NoError(t, err)
	return d
}

func Test_dictionary_layout(t *testing.T) {
	d := testDict(t)

	require.NoError(t, d.create("FOO", 0x0030, []int{11, 22}, false, true))
	ffa := d.find("FOO")
	require.NotZero(t, ffa)

	assert.Equal(t, byte(3), d.mem.readByte(ffa), "flags byte is the name length")
	assert.Equal(t, "FOO", d.name(ffa))
	// no pad byte after the name, even or odd length
	assert.Equal(t, ffa+1+3, d.ffa2lfa(ffa))
	assert.Equal(t, 0x0030, d.mem.readCell(d.ffa2cfa(ffa)))
	pfa := d.ffa2pfa(ffa)
	assert.Equal(t, 11, d.mem.readCell(pfa))
	assert.Equal(t, 22, d.mem.readCell(pfa+2))
	assert.Equal(t, d.ffa2cfa(ffa), pfa2cfa(pfa))
	assert.Equal(t, pfa, cfa2pfa(d.ffa2cfa(ffa)))
}

func Test_dictionary_chain(t *testing.T) {
	d := testDict(t)

	require.NoError(t, d.create("A", 0x0030, nil, false, true))
	require.NoError(t, d.create("B", 0x0031, nil, false, true))
	require.NoError(t, d.create("A", 0x0032, nil, false, true))

	// newest shadowing entry wins
	ffa := d.find("A")
	require.NotZero(t, ffa)
	assert.Equal(t, 0x0032, d.mem.readCell(d.ffa2cfa(ffa)))

	// older entry still reachable through its link
	older := d.findFrom("A", d.prev(ffa))
	require.NotZero(t, older)
	assert.Equal(t, 0x0030, d.mem.readCell(d.ffa2cfa(older)))

	assert.Zero(t, d.find("C"))
}

func Test_dictionary_defining(t *testing.T) {
	d := testDict(t)

	require.NoError(t, d.create("HIDDEN", 0x0030, nil, false, false))
	assert.Zero(t, d.find("HIDDEN"), "entry invisible while defining")
	require.NoError(t, d.finished())
	assert.NotZero(t, d.find("HIDDEN"))

	assert.Error(t, d.finished(), "nothing being defined")
}

func Test_dictionary_forget(t *testing.T) {
	d := testDict(t)

	require.NoError(t, d.create("KEEP", 0x0030, nil, false, true))
	require.NoError(t, d.create("GONE", 0x0031, []int{1, 2, 3}, false, true))
	ffa := d.find("GONE")
	require.NotZero(t, ffa)

	require.NoError(t, d.forget("GONE"))
	assert.Zero(t, d.find("GONE"))
	assert.NotZero(t, d.find("KEEP"))
	assert.Equal(t, ffa, d.here(), "write pointer lands on the forgotten flags address")

	assert.Error(t, d.forget("NEVER"))
}

func Test_dictionary_name_truncation(t *testing.T) {
	d := testDict(t)

	long := "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	require.NoError(t, d.create(long, 0x0030, nil, false, true))
	ffa := d.find(long[:maxNameLen])
	require.NotZero(t, ffa)
	assert.Equal(t, long[:maxNameLen], d.name(ffa))
}

func Test_dictionary_immediate_flag(t *testing.T) {
	d := testDict(t)

	require.NoError(t, d.create("NOW", 0x0030, nil, true, true))
	ffa := d.find("NOW")
	require.NotZero(t, ffa)
	assert.NotZero(t, d.mem.readByte(ffa)&flagImmediate)
	assert.Equal(t, "NOW", d.name(ffa))
}
