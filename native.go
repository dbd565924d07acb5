package main

// Native dispatch tables occupy two reserved low-memory regions. The routine
// table maps each address in its range to a host operation; the variable
// table maps address ranges onto host accessors so that machine registers
// read and write like ordinary memory cells.

type nativeRoutine struct {
	name string // leading space marks a hidden routine: addressable, not typeable
	fn   func(*Forth)
}

type routineTable struct {
	f        *Forth
	start    int
	routines []nativeRoutine
}

func (t *routineTable) readByte(addr int) byte {
	panic(haltError{nativeDispatchError{"read", addr}})
}

func (t *routineTable) writeByte(addr int, b byte) {
	panic(haltError{nativeDispatchError{"write", addr}})
}

func (t *routineTable) call(addr int) {
	i := addr - t.start
	if i < 0 || i >= len(t.routines) {
		panic(haltError{nativeDispatchError{"call", addr}})
	}
	t.routines[i].fn(t.f)
}

// address returns the dispatch address of a named routine, hidden ones
// included; asking for an unknown name is a boot bug and fatal.
func (t *routineTable) address(name string) int {
	for i, r := range t.routines {
		if r.name == name {
			return t.start + i
		}
	}
	panic(haltError{nativeDispatchError{"lookup " + name, t.start}})
}

type nativeVariable struct {
	name   string
	offset int
	width  int
	get    func() int
	set    func(int) // nil for a read-only register
}

type variableTable struct {
	start int
	vars  []nativeVariable
}

func (t *variableTable) lookup(addr int) *nativeVariable {
	off := addr - t.start
	for i := range t.vars {
		v := &t.vars[i]
		if off >= v.offset && off < v.offset+v.width {
			return v
		}
	}
	return nil
}

func (t *variableTable) readByte(addr int) byte {
	v := t.lookup(addr)
	if v == nil || v.get == nil {
		panic(haltError{nativeDispatchError{"read", addr}})
	}
	shift := (v.width - 1 - (addr - t.start - v.offset)) * 8
	return byte(v.get() >> shift)
}

func (t *variableTable) writeByte(addr int, b byte) {
	v := t.lookup(addr)
	if v == nil || v.set == nil {
		panic(haltError{nativeDispatchError{"write", addr}})
	}
	shift := (v.width - 1 - (addr - t.start - v.offset)) * 8
	cur := 0
	if v.get != nil {
		cur = v.get()
	}
	v.set(cur&^(0xFF<<shift) | int(b)<<shift)
}

// address returns the mapped address of a named register.
func (t *variableTable) address(name string) int {
	for _, v := range t.vars {
		if v.name == name {
			return t.start + v.offset
		}
	}
	panic(haltError{nativeDispatchError{"lookup " + name, t.start}})
}
