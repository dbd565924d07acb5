package main

import (
	"errors"
	"fmt"
)

// Dictionary entry layout, byte exact:
//
//	FFA -> Flags  1 byte  {b7 immediate, b6 defining, b5 unused, b4..b0 name length}
//	NFA -> Name   <length> bytes, no terminator, no pad
//	LFA -> Link   2 bytes, FFA of previous entry; 0 ends the chain
//	CFA -> Code   2 bytes, native dispatch address or the shared DODOES address
//	PFA -> Params 0..n cells
//
// The dictionary is append-only and bump-allocated on a lastUsed upward
// stack; forget is the only shrink operation and is destructive.
const (
	flagImmediate = 0x80
	flagDefining  = 0x40
	maskCount     = 0x1F
	maxNameLen    = 31
)

type dictionary struct {
	*stack
	lastFFA     int
	definingFFA int // 0 while no entry is in progress
}

func newDictionary(mem *memory, start, size int) (*dictionary, error) {
	d := &dictionary{stack: newStack(mem, "dict", start, size, 1, lastUsed)}
	// a zero flags byte roots the search chain
	ffa, err := d.pushByte(0)
	if err != nil {
		return nil, err
	}
	d.lastFFA = ffa
	return d, nil
}

func (d *dictionary) compileByte(b byte) error {
	_, err := d.pushByte(b)
	return err
}

func (d *dictionary) compileCell(v int) error {
	_, err := d.pushCell(v)
	return err
}

// create starts a new entry; it stays marked defining, invisible to find,
// until finished. cf < 0 leaves the code field for the caller to compile.
func (d *dictionary) create(name string, cf int, pf []int, immediate, finish bool) error {
	if len(name) > maxNameLen {
		name = name[:maxNameLen]
	}
	ff := byte(len(name)) | flagDefining
	if immediate {
		ff |= flagImmediate
	}
	ffa, err := d.pushByte(ff)
	if err != nil {
		return err
	}
	d.definingFFA = ffa
	for i := 0; i < len(name); i++ {
		if err := d.compileByte(name[i]); err != nil {
			return err
		}
	}
	if err := d.compileCell(d.lastFFA); err != nil {
		return err
	}
	if cf >= 0 {
		if err := d.compileCell(cf); err != nil {
			return err
		}
	}
	for _, p := range pf {
		if err := d.compileCell(p & 0xFFFF); err != nil {
			return err
		}
	}
	if finish {
		return d.finished()
	}
	return nil
}

// finished clears the defining bit on the entry in progress and makes it the
// visible top of chain.
func (d *dictionary) finished() error {
	if d.definingFFA == 0 {
		return errors.New("dict: no definition in progress")
	}
	ff := d.mem.readByte(d.definingFFA)
	d.mem.writeByte(d.definingFFA, ff&^flagDefining)
	d.lastFFA = d.definingFFA
	d.definingFFA = 0
	return nil
}

//// Field skip arithmetic. Name fields are never padded, so every skip is a
//// pure function of the flags byte.

func (d *dictionary) ffa2nfa(ffa int) int { return ffa + 1 }

func (d *dictionary) ffa2lfa(ffa int) int {
	count := int(d.mem.readByte(ffa) & maskCount)
	return ffa + 1 + count
}

func (d *dictionary) ffa2cfa(ffa int) int { return d.ffa2lfa(ffa) + 2 }
func (d *dictionary) ffa2pfa(ffa int) int { return d.ffa2lfa(ffa) + 4 }

func pfa2cfa(pfa int) int { return pfa - 2 }
func cfa2pfa(cfa int) int { return cfa + 2 }

// prev follows an entry's link field to its predecessor's FFA.
func (d *dictionary) prev(ffa int) int {
	return d.mem.readCell(d.ffa2lfa(ffa))
}

func (d *dictionary) name(ffa int) string {
	count := int(d.mem.readByte(ffa) & maskCount)
	nfa := d.ffa2nfa(ffa)
	b := make([]byte, count)
	for i := range b {
		b[i] = d.mem.readByte(nfa + i)
	}
	return string(b)
}

// find walks the chain newest to oldest looking for an exact name match,
// skipping entries still being defined. It returns the matching FFA, or 0
// when the chain roots out.
func (d *dictionary) find(name string) int {
	return d.findFrom(name, d.lastFFA)
}

func (d *dictionary) findFrom(name string, ffa int) int {
	for {
		ff := d.mem.readByte(ffa)
		if ff == 0 {
			return 0
		}
		if ff&flagDefining == 0 && d.name(ffa) == name {
			return ffa
		}
		ffa = d.prev(ffa)
	}
}

// forget truncates the dictionary at the named entry: everything from it to
// the top is discarded in one pointer move.
func (d *dictionary) forget(name string) error {
	ffa := d.find(name)
	if ffa == 0 {
		return fmt.Errorf("forget %s: not in dictionary", name)
	}
	d.lastFFA = d.prev(ffa)
	d.ptr = ffa
	return nil
}

// here is the dictionary write pointer, exposed to Forth as H.
func (d *dictionary) here() int       { return d.ptr }
func (d *dictionary) setHere(ptr int) { d.ptr = ptr }
