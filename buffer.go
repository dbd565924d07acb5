package main

import "fmt"

// A stack is a region plus one pointer index. Two independent axes fix its
// addressing convention: growth direction (+1 toward high addresses, -1
// toward low) and pointer semantics (first free slot, or last used slot).
// All four combinations are legal; the pointer never leaves its convention's
// range, and a move that would take it outside fails before anything is
// written.

type ptrKind int

const (
	firstFree ptrKind = iota
	lastUsed
)

type stack struct {
	mem   *memory
	name  string
	start int
	size  int
	dirn  int // +1 or -1
	kind  ptrKind
	ptr   int
}

func newStack(mem *memory, name string, start, size, dirn int, kind ptrKind) *stack {
	if dirn >= 0 {
		dirn = 1
	} else {
		dirn = -1
	}
	s := &stack{mem: mem, name: name, start: start, size: size, dirn: dirn, kind: kind}
	s.reset()
	return s
}

func (s *stack) reset() { s.ptr = s.origin() }

// origin is the pointer value of an empty stack.
func (s *stack) origin() int {
	last := s.start + s.size - 1
	switch {
	case s.dirn > 0 && s.kind == firstFree:
		return s.start
	case s.dirn > 0:
		return s.start - 1
	case s.kind == firstFree:
		return last
	default:
		return last + 1
	}
}

func (s *stack) used() int {
	if s.dirn > 0 {
		if s.kind == firstFree {
			return s.ptr - s.start
		}
		return s.ptr - s.start + 1
	}
	if s.kind == firstFree {
		return s.start + s.size - 1 - s.ptr
	}
	return s.start + s.size - s.ptr
}

func (s *stack) free() int { return s.size - s.used() }

// absAddr is the absolute address of a value n bytes wide sitting rel bytes
// back from the top of stack (rel 0 is TOS for every width).
func (s *stack) absAddr(rel, n int) int {
	if s.dirn > 0 {
		if s.kind == firstFree {
			return s.ptr - rel - n
		}
		return s.ptr - rel - (n - 1)
	}
	if s.kind == firstFree {
		return s.ptr + rel + 1
	}
	return s.ptr + rel
}

func (s *stack) overflow() error  { return fmt.Errorf("%s: %w", s.name, errBufferOverflow) }
func (s *stack) underflow() error { return fmt.Errorf("%s: %w", s.name, errBufferUnderflow) }

// write stores bytes rel bytes back from TOS without moving the pointer.
func (s *stack) write(rel int, b []byte) error {
	if rel+len(b) > s.used() {
		return s.underflow()
	}
	addr := s.absAddr(rel, len(b))
	for i, v := range b {
		s.mem.writeByte(addr+i, v)
	}
	return nil
}

// read loads n bytes rel bytes back from TOS without moving the pointer.
func (s *stack) read(rel, n int) ([]byte, error) {
	if rel+n > s.used() {
		return nil, s.underflow()
	}
	addr := s.absAddr(rel, n)
	b := make([]byte, n)
	for i := range b {
		b[i] = s.mem.readByte(addr + i)
	}
	return b, nil
}

// pushBytes grows the stack and stores b at the new top, returning the
// absolute address of the stored value. The pointer does not move on
// overflow.
func (s *stack) pushBytes(b []byte) (int, error) {
	if s.free() < len(b) {
		return 0, s.overflow()
	}
	s.ptr += len(b) * s.dirn
	if err := s.write(0, b); err != nil {
		return 0, err
	}
	return s.absAddr(0, len(b)), nil
}

func (s *stack) popBytes(n int) ([]byte, error) {
	b, err := s.read(0, n)
	if err != nil {
		return nil, err
	}
	s.ptr -= n * s.dirn
	return b, nil
}

func (s *stack) pushByte(b byte) (int, error) { return s.pushBytes([]byte{b}) }

func (s *stack) pushCell(v int) (int, error) {
	return s.pushBytes([]byte{byte(v >> 8), byte(v)})
}

func (s *stack) pushDouble(v int) (int, error) {
	return s.pushBytes([]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)})
}

func (s *stack) popByte() (byte, error) {
	b, err := s.popBytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (s *stack) popCell() (int, error) {
	b, err := s.popBytes(2)
	if err != nil {
		return 0, err
	}
	return int(b[0])<<8 | int(b[1]), nil
}

func (s *stack) popDouble() (int, error) {
	b, err := s.popBytes(4)
	if err != nil {
		return 0, err
	}
	return int(b[0])<<24 | int(b[1])<<16 | int(b[2])<<8 | int(b[3]), nil
}

// getCell and setCell address cells by cell index back from TOS; neither
// moves the pointer.
func (s *stack) getCell(i int) (int, error) {
	b, err := s.read(i*2, 2)
	if err != nil {
		return 0, err
	}
	return int(b[0])<<8 | int(b[1]), nil
}

func (s *stack) setCell(i, v int) error {
	return s.write(i*2, []byte{byte(v >> 8), byte(v)})
}

func (s *stack) getByte(rel int) (byte, error) {
	b, err := s.read(rel, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (s *stack) setByte(rel int, b byte) error { return s.write(rel, []byte{b}) }

//// Forth stack manipulation, defined for any cell stack.

func (s *stack) dup() error { // ( n -- n n )
	v, err := s.getCell(0)
	if err != nil {
		return err
	}
	_, err = s.pushCell(v)
	return err
}

func (s *stack) swap() error { // ( n1 n2 -- n2 n1 )
	a, err := s.getCell(0)
	if err != nil {
		return err
	}
	b, err := s.getCell(1)
	if err != nil {
		return err
	}
	if err := s.setCell(0, b); err != nil {
		return err
	}
	return s.setCell(1, a)
}

func (s *stack) rot() error { // ( n1 n2 n3 -- n2 n3 n1 )
	n3, err := s.getCell(0)
	if err != nil {
		return err
	}
	n2, err := s.getCell(1)
	if err != nil {
		return err
	}
	n1, err := s.getCell(2)
	if err != nil {
		return err
	}
	if err := s.setCell(0, n1); err != nil {
		return err
	}
	if err := s.setCell(1, n3); err != nil {
		return err
	}
	return s.setCell(2, n2)
}

func (s *stack) over() error { // ( n1 n2 -- n1 n2 n1 )
	v, err := s.getCell(1)
	if err != nil {
		return err
	}
	_, err = s.pushCell(v)
	return err
}

func (s *stack) drop() error { // ( n -- )
	_, err := s.popCell()
	return err
}

func (s *stack) nip() error { // ( n1 n2 -- n2 )
	v, err := s.getCell(0)
	if err != nil {
		return err
	}
	if err := s.setCell(1, v); err != nil {
		return err
	}
	_, err = s.popCell()
	return err
}

func (s *stack) tuck() error { // ( n1 n2 -- n2 n1 n2 )
	n2, err := s.getCell(0)
	if err != nil {
		return err
	}
	n1, err := s.getCell(1)
	if err != nil {
		return err
	}
	if err := s.setCell(1, n2); err != nil {
		return err
	}
	if err := s.setCell(0, n1); err != nil {
		return err
	}
	_, err = s.pushCell(n2)
	return err
}

// vars is a bump-allocated cell region; a variable is just an address in it.
type vars struct {
	*stack
}

func newVars(mem *memory, name string, start, size int) *vars {
	return &vars{newStack(mem, name, start, size, 1, lastUsed)}
}

// create allocates one cell, returning its address.
func (v *vars) create(init int) (int, error) {
	return v.pushCell(init)
}
