package main

import "sort"

// The machine addresses a flat 64Ki byte store. At boot it is partitioned
// into named, non-overlapping regions; a region may be bound to a handler
// which then services every byte access inside it (this is how the native
// dispatch ranges masquerade as ordinary memory). All multi-byte scalars are
// big-endian: the source format leaves byte order undefined, so we fix one.
const memSize = 64 * 1024

type regionHandler interface {
	readByte(addr int) byte
	writeByte(addr int, b byte)
}

// caller is the executable capability of a handler-bound region; only the
// native routine range implements it.
type caller interface {
	call(addr int)
}

type region struct {
	name    string
	start   int
	size    int
	handler regionHandler
}

func (r region) contains(addr int) bool { return addr >= r.start && addr < r.start+r.size }

type memory struct {
	bytes   []byte
	regions []region // sorted by start
}

func newMemory() *memory {
	return &memory{bytes: make([]byte, memSize)}
}

// region carves a new named region out of the store. A negative size means
// the region ends at anchor and grows downward from it; a positive size
// grows upward from anchor. Overlap with any prior region is fatal.
func (m *memory) region(name string, anchor, size int, h regionHandler) (start, n int, err error) {
	if size < 0 {
		start, n = anchor+size, -size
	} else {
		start, n = anchor, size
	}
	if start < 0 || start+n > memSize {
		return 0, 0, addressError(start + n)
	}
	for _, r := range m.regions {
		if start < r.start+r.size && r.start < start+n {
			return 0, 0, regionOverlapError{name, r.name}
		}
	}
	i := sort.Search(len(m.regions), func(i int) bool { return m.regions[i].start > start })
	m.regions = append(m.regions, region{})
	copy(m.regions[i+1:], m.regions[i:])
	m.regions[i] = region{name, start, n, h}
	return start, n, nil
}

// owner resolves the region containing addr, or nil for a gap address.
func (m *memory) owner(addr int) *region {
	i, j := 0, len(m.regions)
	for i < j {
		h := int(uint(i+j) >> 1)
		if m.regions[h].start <= addr {
			i = h + 1
		} else {
			j = h
		}
	}
	if i > 0 && m.regions[i-1].contains(addr) {
		return &m.regions[i-1]
	}
	return nil
}

func (m *memory) readByte(addr int) byte {
	if addr < 0 || addr >= memSize {
		panic(haltError{addressError(addr)})
	}
	if r := m.owner(addr); r != nil && r.handler != nil {
		return r.handler.readByte(addr)
	}
	return m.bytes[addr]
}

func (m *memory) writeByte(addr int, b byte) {
	if addr < 0 || addr >= memSize {
		panic(haltError{addressError(addr)})
	}
	if r := m.owner(addr); r != nil && r.handler != nil {
		r.handler.writeByte(addr, b)
		return
	}
	m.bytes[addr] = b
}

// call is defined only for regions bound to an executable handler.
func (m *memory) call(addr int) {
	if r := m.owner(addr); r != nil {
		if c, ok := r.handler.(caller); ok {
			c.call(addr)
			return
		}
	}
	panic(haltError{nativeDispatchError{"call", addr}})
}

// A cell is the machine's native 2-byte unit; a double is two cells. Both
// are exactly consecutive byte accesses so that handler-bound regions see
// every one of them.

func (m *memory) readCell(addr int) int {
	return int(m.readByte(addr))<<8 | int(m.readByte(addr+1))
}

func (m *memory) writeCell(addr, v int) {
	m.writeByte(addr, byte(v>>8))
	m.writeByte(addr+1, byte(v))
}

func (m *memory) readDouble(addr int) int {
	return m.readCell(addr)<<16 | m.readCell(addr+2)
}

func (m *memory) writeDouble(addr, v int) {
	m.writeCell(addr, v>>16)
	m.writeCell(addr+2, v&0xFFFF)
}
