package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_memory_regions(t *testing.T) {
	m := newMemory()

	start, size, err := m.region("LOW", 0x100, 0x80, nil)
	require.NoError(t, err)
	assert.Equal(t, 0x100, start)
	assert.Equal(t, 0x80, size)

	// negative size grows down from the anchor
	start, size, err = m.region("DOWN", 0x100, -0x40, nil)
	require.NoError(t, err)
	assert.Equal(t, 0xC0, start)
	assert.Equal(t, 0x40, size)

	_, _, err = m.region("CLASH", 0x170, 0x40, nil)
	var overlap regionOverlapError
	require.ErrorAs(t, err, &overlap)
	assert.Equal(t, "CLASH", overlap.name)
	assert.Equal(t, "LOW", overlap.other)

	_, _, err = m.region("HUGE", memSize-8, 0x40, nil)
	assert.Error(t, err)

	assert.Equal(t, "DOWN", m.owner(0xC0).name)
	assert.Equal(t, "LOW", m.owner(0x17F).name)
	assert.Nil(t, m.owner(0x180))
	assert.Nil(t, m.owner(0xBF))
}

func Test_memory_scalars(t *testing.T) {
	m := newMemory()

	m.writeCell(0x200, 0x1234)
	assert.Equal(t, byte(0x12), m.readByte(0x200), "cells are big-endian")
	assert.Equal(t, byte(0x34), m.readByte(0x201))
	assert.Equal(t, 0x1234, m.readCell(0x200))

	m.writeDouble(0x300, 0xDEADBEEF)
	assert.Equal(t, 0xDEADBEEF, m.readDouble(0x300))
	assert.Equal(t, 0xDEAD, m.readCell(0x300))
	assert.Equal(t, 0xBEEF, m.readCell(0x302))

	assert.Panics(t, func() { m.readByte(-1) })
	assert.Panics(t, func() { m.writeByte(memSize, 0) })
}

// recordingHandler captures handler-delegated accesses.
type recordingHandler struct {
	reads  []int
	writes []int
	cells  map[int]byte
}

func (h *recordingHandler) readByte(addr int) byte {
	h.reads = append(h.reads, addr)
	return h.cells[addr]
}

func (h *recordingHandler) writeByte(addr int, b byte) {
	h.writes = append(h.writes, addr)
	if h.cells == nil {
		h.cells = make(map[int]byte)
	}
	h.cells[addr] = b
}

func Test_memory_handler_routing(t *testing.T) {
	m := newMemory()
	var h recordingHandler
	_, _, err := m.region("HOOK", 0x40, 0x10, &h)
	require.NoError(t, err)
	_, _, err = m.region("PLAIN", 0x50, 0x10, nil)
	require.NoError(t, err)

	m.writeCell(0x4E, 0xAABB)
	assert.Equal(t, 0xAABB, m.readCell(0x4E))
	assert.Equal(t, []int{0x4E, 0x4F}, h.writes, "every byte of a cell goes through the handler")
	assert.Equal(t, []int{0x4E, 0x4F}, h.reads)

	// plain and gap addresses bypass the handler
	m.writeByte(0x51, 7)
	m.writeByte(0x200, 9)
	assert.Equal(t, byte(7), m.readByte(0x51))
	assert.Equal(t, byte(9), m.readByte(0x200))
	assert.Len(t, h.writes, 2)

	assert.Panics(t, func() { m.call(0x44) }, "handler without call capability")
	assert.Panics(t, func() { m.call(0x52) }, "unbound region")
}
