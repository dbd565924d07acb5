package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/whaleygeek/pyforth/internal/blockio"
)

// Canonical truth values. Everything non-zero is accepted as true by
// 0BRANCH, but the comparison words only ever produce these two.
const (
	forthFalse = 0x0000
	forthTrue  = 0xFFFF
)

// eofKey is the sentinel KEY leaves on the stack at end of input.
const eofKey = 0x04

// Boot memory map. Exact addresses are configuration; non-overlap is what
// matters and is checked fatally when the regions are carved.
const (
	addrNatives  = 0x0000 // routine dispatch table
	addrRegs     = 0x0100 // variable dispatch table
	addrDict     = 0x0400
	sizeDict     = 4096
	anchorData   = 0x2000 // data stack grows down from here, TIB up
	anchorReturn = 0x4000 // return stack grows down from here, user vars up
	addrPad      = 0x5000 // WORD's scratch buffer
	sizePad      = 84
	sizeTIB      = 80
	sizeStack    = 1024
	sizeUser     = 256
	sizeDispatch = 256
)

// Forth is one complete machine: memory, dictionary, both stacks, the
// native dispatch tables, and the inner interpreter state.
type Forth struct {
	ioCore

	mem  *memory
	dict *dictionary
	ds   *stack
	rs   *stack
	tib  *stack
	uv   *vars

	routines  *routineTable
	registers *variableTable

	ip      int
	running bool
	exits   int // EXITs consumed by the threading engine, one level each
	limit   int // remaining threaded steps; 0 means unlimited
	base    int

	spanAddr int // SPAN user variable cell
	inAddr   int // IN> user variable cell

	// cached dispatch address for the engine's hot path
	dodoesAddr int

	store blockio.Store

	ctx    context.Context
	booted bool
}

func (f *Forth) halt(err error) {
	func() {
		defer func() { recover() }()
		if f.out != nil {
			f.out.Flush()
		}
	}()
	f.logf("halt error: %v", err)
	panic(haltError{err})
}

func (f *Forth) haltif(err error) {
	if err != nil {
		f.halt(err)
	}
}

// abort clears both stacks and abandons the current top-level command. The
// REPL driver reports the reason and resumes; everything else surfaces it.
func (f *Forth) abort(err error) {
	f.ds.reset()
	f.rs.reset()
	f.running = false
	f.exits = 0
	f.logf("abort: %v", err)
	panic(abortError{err})
}

func (f *Forth) abortf(format string, args ...interface{}) {
	f.abort(fmt.Errorf(format, args...))
}

func (f *Forth) abortif(err error) {
	if err != nil {
		f.abort(err)
	}
}

//// Stack helpers used by every primitive.

func (f *Forth) dpush(v int) {
	_, err := f.ds.pushCell(v)
	f.abortif(err)
}

func (f *Forth) dpop() int {
	v, err := f.ds.popCell()
	f.abortif(err)
	return v
}

func (f *Forth) rpush(v int) {
	_, err := f.rs.pushCell(v)
	f.abortif(err)
}

func (f *Forth) rpop() int {
	v, err := f.rs.popCell()
	f.abortif(err)
	return v
}

//// Boot.

func (f *Forth) boot() error {
	if f.booted {
		return nil
	}
	defer f.withLogPrefix("boot ")()
	f.mem = newMemory()
	f.base = 10

	f.routines = &routineTable{f: f, start: addrNatives, routines: f.dispatch()}
	if _, _, err := f.mem.region("NATIVE", addrNatives, sizeDispatch, f.routines); err != nil {
		return err
	}
	f.registers = &variableTable{start: addrRegs, vars: f.mappedRegisters()}
	if _, _, err := f.mem.region("REGS", addrRegs, sizeDispatch, f.registers); err != nil {
		return err
	}

	start, size, err := f.mem.region("DICT", addrDict, sizeDict, nil)
	if err != nil {
		return err
	}
	if f.dict, err = newDictionary(f.mem, start, size); err != nil {
		return err
	}

	if start, size, err = f.mem.region("DS", anchorData, -sizeStack, nil); err != nil {
		return err
	}
	f.ds = newStack(f.mem, "data stack", start, size, -1, lastUsed)

	if start, size, err = f.mem.region("TIB", anchorData, sizeTIB, nil); err != nil {
		return err
	}
	f.tib = newStack(f.mem, "tib", start, size, 1, firstFree)

	if start, size, err = f.mem.region("RS", anchorReturn, -sizeStack, nil); err != nil {
		return err
	}
	f.rs = newStack(f.mem, "return stack", start, size, -1, lastUsed)

	if start, size, err = f.mem.region("UV", anchorReturn, sizeUser, nil); err != nil {
		return err
	}
	f.uv = newVars(f.mem, "uservars", start, size)

	if _, _, err = f.mem.region("PAD", addrPad, sizePad, nil); err != nil {
		return err
	}

	f.dodoesAddr = f.routines.address(" DODOES")

	if err := f.registerNatives(); err != nil {
		return err
	}
	if err := f.synthesise(); err != nil {
		return err
	}
	f.booted = true
	return nil
}

// registerNatives gives every dispatch table entry a dictionary presence.
// Routines become zero-parameter words whose code field is the dispatch
// address itself; hidden names (leading space) get entries too, so threaded
// definitions can reference them, but WORD can never produce their name.
// Mapped registers become RDPFA words pushing their mapped address.
func (f *Forth) registerNatives() error {
	for i, r := range f.routines.routines {
		if err := f.dict.create(r.name, addrNatives+i, nil, false, true); err != nil {
			return err
		}
	}
	rdpfa := f.routines.address(" RDPFA")
	for _, v := range f.registers.vars {
		addr := f.registers.start + v.offset
		if err := f.dict.create(v.name, rdpfa, []int{addr}, false, true); err != nil {
			return err
		}
	}
	return nil
}

// dispatch is the native routine table; list position is dispatch address.
// NOP holds position zero so that address 0 never names a real operation.
func (f *Forth) dispatch() []nativeRoutine {
	return []nativeRoutine{
		{"NOP", (*Forth).nNop},
		{"ABORT", (*Forth).nAbort},
		{"!", (*Forth).nStore},
		{"@", (*Forth).nFetch},
		{"C!", (*Forth).nStore8},
		{"C@", (*Forth).nFetch8},
		{"EMIT", (*Forth).nEmit},
		{".", (*Forth).nDot},
		{"SWAP", (*Forth).nSwap},
		{"DUP", (*Forth).nDup},
		{"OVER", (*Forth).nOver},
		{"ROT", (*Forth).nRot},
		{"DROP", (*Forth).nDrop},
		{"NIP", (*Forth).nNip},
		{"TUCK", (*Forth).nTuck},
		{"+", (*Forth).nAdd},
		{"-", (*Forth).nSub},
		{"AND", (*Forth).nAnd},
		{"OR", (*Forth).nOr},
		{"XOR", (*Forth).nXor},
		{"*", (*Forth).nMul},
		{"/", (*Forth).nDiv},
		{"MOD", (*Forth).nMod},
		{"0=", (*Forth).nZeroEq},
		{"NOT", (*Forth).nNot},
		{"0<", (*Forth).nZeroLt},
		{"0>", (*Forth).nZeroGt},
		{"U<", (*Forth).nULt},
		{"KEY", (*Forth).nKey},
		{"RBLK", (*Forth).nRblk},
		{"WBLK", (*Forth).nWblk},
		{"BRANCH", (*Forth).nBranch},
		{"0BRANCH", (*Forth).nZeroBranch},
		{" RDPFA", (*Forth).nRdpfa},
		{" DODOES", (*Forth).nDodoes},
		{" DOLIT", (*Forth).nDolit},
		{" DOSTR", (*Forth).nDostr},
		{"EXECUTE", (*Forth).nExecute},
		{"EXIT", (*Forth).nExit},
		{"BYE", (*Forth).nBye},
		{"WORD", (*Forth).nWord},
		{"NUMBER", (*Forth).nNumber},
		{"FIND", (*Forth).nFind},
		{"INTERPRET", (*Forth).nInterpret},
		{"EXPECT", (*Forth).nExpect},
		{"TYPE", (*Forth).nType},
	}
}

// mappedRegisters exposes machine state as memory cells in the REGS region.
// Reading or writing them from Forth goes through these accessors; writing
// a read-only register is fatal.
func (f *Forth) mappedRegisters() []nativeVariable {
	return []nativeVariable{
		{"IP", 0, 2, func() int { return f.ip }, func(v int) { f.ip = v }},
		{"SP", 2, 2, func() int { return f.ds.ptr }, func(v int) { f.ds.ptr = v }},
		{"S0", 4, 2, func() int { return f.ds.origin() }, nil},
		{"RP", 6, 2, func() int { return f.rs.ptr }, func(v int) { f.rs.ptr = v }},
		{"R0", 8, 2, func() int { return f.rs.origin() }, nil},
		{"H", 10, 2, func() int { return f.dict.here() }, func(v int) { f.dict.setHere(v) }},
		{"D0", 12, 2, func() int { return f.dict.start }, nil},
		{"BASE", 14, 2, func() int { return f.base }, f.setBase},
	}
}

func (f *Forth) setBase(v int) {
	if v < 2 || v > 36 {
		f.abortf("BASE %d out of range", v)
	}
	f.base = v
}

//// The inner interpreter.

// nDodoes is the shared threading engine every compound word's code field
// points at. One flat loop serves arbitrarily deep Forth-level nesting:
// entering a callee bumps depth instead of recursing on the host stack, and
// each EXIT consumed unwinds exactly one level. Forth code tail-loops via
// BRANCH, so host frames must not accumulate per Forth call.
func (f *Forth) nDodoes() {
	depth := 1
	for f.running {
		if f.ctx != nil {
			f.haltif(f.ctx.Err())
		}
		if f.limit > 0 {
			f.limit--
			if f.limit == 0 {
				f.running = false
				break
			}
		}
		cfa := f.mem.readCell(f.ip)
		cf := f.mem.readCell(cfa)
		if f.logfn != nil {
			f.logf("exec @%04x %s ds=%d rs=%d", f.ip, f.codeName(cfa, cf), f.ds.used()/2, f.rs.used()/2)
		}
		f.rpush(f.ip + 2)
		f.ip = cfa2pfa(cfa)
		if cf == f.dodoesAddr {
			depth++
			continue
		}
		f.mem.call(cf)
		if f.exits > 0 {
			f.exits--
			depth--
			if depth == 0 {
				return
			}
			f.ip = f.rpop()
			continue
		}
		f.ip = f.rpop()
	}
}

func (f *Forth) codeName(cfa, cf int) string {
	if cf == f.dodoesAddr {
		if ffa := f.nameFor(cfa); ffa != "" {
			return ffa
		}
		return fmt.Sprintf("word@%04x", cfa)
	}
	if i := cf - f.routines.start; i >= 0 && i < len(f.routines.routines) {
		return f.routines.routines[i].name
	}
	return fmt.Sprintf("cf@%04x", cf)
}

// nameFor scans the chain for the entry owning a code field address.
func (f *Forth) nameFor(cfa int) string {
	for ffa := f.dict.lastFFA; ffa != 0; ffa = f.dict.prev(ffa) {
		if f.mem.readByte(ffa) == 0 {
			return ""
		}
		if f.dict.ffa2cfa(ffa) == cfa {
			return f.dict.name(ffa)
		}
	}
	return ""
}

// nExecute pops a code field address and dispatches it: the one call-by-
// value primitive under both the outer interpreter and user code.
func (f *Forth) nExecute() {
	cfa := f.dpop()
	cf := f.mem.readCell(cfa)
	f.ip = cfa2pfa(cfa)
	f.mem.call(cf)
}

// nExit leaves the current definition. The engine, not EXIT itself, unwinds
// the level: a primitive cannot cut its caller's host frame, so it consumes
// its own resume cell and leaves a pending-exit mark for the nearest loop.
func (f *Forth) nExit() {
	if f.rs.used() >= 2 {
		f.ip = f.rpop()
		f.exits++
	} else {
		f.running = false
	}
}

// nDolit pushes the literal cell inlined after DOLIT in the caller's
// parameter stream, stepping the saved resume address past it.
func (f *Forth) nDolit() {
	saved := f.rpop()
	f.dpush(f.mem.readCell(saved))
	f.rpush(saved + 2)
}

// nDostr pushes the address of the counted string inlined after DOSTR,
// stepping the saved resume address past it (length byte plus text, rounded
// up to whole cells).
func (f *Forth) nDostr() {
	saved := f.rpop()
	n := 1 + int(f.mem.readByte(saved))
	n += n % 2
	f.dpush(saved)
	f.rpush(saved + n)
}

// nBranch adds the signed cell-count operand, taken relative to the
// operand's own position, to the saved resume address.
func (f *Forth) nBranch() {
	saved := f.rpop()
	rel := int(int16(f.mem.readCell(saved)))
	f.rpush((saved + 2*rel) & 0xFFFF)
}

// nZeroBranch branches only when the flag it pops is canonical false.
func (f *Forth) nZeroBranch() {
	flag := f.dpop()
	saved := f.rpop()
	if flag == forthFalse {
		rel := int(int16(f.mem.readCell(saved)))
		f.rpush((saved + 2*rel) & 0xFFFF)
	} else {
		f.rpush(saved + 2)
	}
}

// nRdpfa pushes the first parameter cell of the word being executed; it is
// the code behavior behind constants, user variables and mapped registers.
func (f *Forth) nRdpfa() {
	f.dpush(f.mem.readCell(f.ip))
}

//// Primitive words.

func (f *Forth) nNop() {}

func (f *Forth) nAbort() {
	f.abort(errors.New("ABORT"))
}

func (f *Forth) nBye() {
	f.running = false
}

func (f *Forth) nStore() { // ( n a -- )
	a := f.dpop()
	f.mem.writeCell(a, f.dpop())
}

func (f *Forth) nFetch() { // ( a -- n )
	f.dpush(f.mem.readCell(f.dpop()))
}

// nStore8 narrows a cell-wide stack slot onto one byte of memory.
func (f *Forth) nStore8() { // ( n a -- )
	a := f.dpop()
	f.mem.writeByte(a, byte(f.dpop()))
}

func (f *Forth) nFetch8() { // ( a -- n )
	f.dpush(int(f.mem.readByte(f.dpop())))
}

func (f *Forth) nEmit() { // ( c -- )
	f.writeByte(byte(f.dpop()))
}

// nDot prints TOS unsigned in the current BASE, followed by one space.
func (f *Forth) nDot() { // ( n -- )
	n := f.dpop()
	f.writeString(strings.ToUpper(strconv.FormatUint(uint64(n), f.base)) + " ")
}

func (f *Forth) nSwap() { f.abortif(f.ds.swap()) }
func (f *Forth) nDup()  { f.abortif(f.ds.dup()) }
func (f *Forth) nOver() { f.abortif(f.ds.over()) }
func (f *Forth) nRot()  { f.abortif(f.ds.rot()) }
func (f *Forth) nDrop() { f.abortif(f.ds.drop()) }
func (f *Forth) nNip()  { f.abortif(f.ds.nip()) }
func (f *Forth) nTuck() { f.abortif(f.ds.tuck()) }

func (f *Forth) nAdd() { // ( n1 n2 -- sum )
	n2, n1 := f.dpop(), f.dpop()
	f.dpush(n1 + n2)
}

func (f *Forth) nSub() { // ( n1 n2 -- diff )
	n2, n1 := f.dpop(), f.dpop()
	f.dpush(n1 - n2)
}

func (f *Forth) nAnd() {
	n2, n1 := f.dpop(), f.dpop()
	f.dpush(n1 & n2)
}

func (f *Forth) nOr() {
	n2, n1 := f.dpop(), f.dpop()
	f.dpush(n1 | n2)
}

func (f *Forth) nXor() {
	n2, n1 := f.dpop(), f.dpop()
	f.dpush(n1 ^ n2)
}

func (f *Forth) nMul() { // ( n1 n2 -- prod )
	n2, n1 := f.dpop(), f.dpop()
	f.dpush(n1 * n2)
}

func (f *Forth) nDiv() { // ( n1 n2 -- quot )
	n2, n1 := f.dpop(), f.dpop()
	if n2 == 0 {
		f.abort(errZeroDivide)
	}
	f.dpush(n1 / n2)
}

func (f *Forth) nMod() { // ( n1 n2 -- rem )
	n2, n1 := f.dpop(), f.dpop()
	if n2 == 0 {
		f.abort(errZeroDivide)
	}
	f.dpush(n1 % n2)
}

func (f *Forth) pushFlag(b bool) {
	if b {
		f.dpush(forthTrue)
	} else {
		f.dpush(forthFalse)
	}
}

func (f *Forth) nZeroEq() { f.pushFlag(f.dpop() == 0) }
func (f *Forth) nNot()    { f.pushFlag(f.dpop() == forthFalse) }

// 0< and 0> read the cell as a signed 16-bit value; U< is the one unsigned
// comparison.
func (f *Forth) nZeroLt() { f.pushFlag(int16(f.dpop()) < 0) }
func (f *Forth) nZeroGt() { f.pushFlag(int16(f.dpop()) > 0) }

func (f *Forth) nULt() { // ( u1 u2 -- ? )
	u2, u1 := f.dpop(), f.dpop()
	f.pushFlag(u1 < u2)
}

func (f *Forth) nKey() { // ( -- c )
	if b, ok := f.readKey(); ok {
		f.dpush(int(b))
	} else {
		f.dpush(eofKey)
	}
}

//// Block transfer. Blocks are 1024 bytes; block 0 is reserved by
//// convention, as on native systems where it holds the boot track.

func (f *Forth) blockArgs() (block, addr int) {
	addr = f.dpop()
	block = f.dpop()
	if f.store == nil {
		f.abort(errNoBlockStore)
	}
	if block == 0 {
		f.abortf("block 0 is reserved")
	}
	return block, addr
}

func (f *Forth) nRblk() { // ( n a -- )
	block, addr := f.blockArgs()
	var buf [blockio.BlockSize]byte
	f.abortif(f.store.ReadBlock(block, buf[:]))
	for i, b := range buf {
		f.mem.writeByte(addr+i, b)
	}
}

func (f *Forth) nWblk() { // ( n a -- )
	block, addr := f.blockArgs()
	var buf [blockio.BlockSize]byte
	for i := range buf {
		buf[i] = f.mem.readByte(addr + i)
	}
	f.abortif(f.store.WriteBlock(block, buf[:]))
}
