package main

import "fmt"

//// Text input. EXPECT fills the TIB; SPAN holds the line length and IN>
//// the parse offset, both ordinary user-variable cells so Forth code can
//// inspect and reset them.

// nextInChar yields the next unparsed TIB character, false at end of line.
func (f *Forth) nextInChar() (byte, bool) {
	span := f.mem.readCell(f.spanAddr)
	in := f.mem.readCell(f.inAddr)
	if in >= span {
		return 0, false
	}
	f.mem.writeCell(f.inAddr, in+1)
	return f.mem.readByte(f.tib.start + in), true
}

// scanWord copies the next separator-delimited token into the PAD as a
// counted string and returns the PAD address; a zero count means the line
// is exhausted. Leading separator runs are skipped.
func (f *Forth) scanWord(sep byte) int {
	var c byte
	var ok bool
	for {
		if c, ok = f.nextInChar(); !ok {
			f.mem.writeByte(addrPad, 0)
			return addrPad
		}
		if c != sep {
			break
		}
	}
	n := 0
	for {
		if n < sizePad-1 {
			f.mem.writeByte(addrPad+1+n, c)
			n++
		}
		if c, ok = f.nextInChar(); !ok || c == sep {
			break
		}
	}
	f.mem.writeByte(addrPad, byte(n))
	return addrPad
}

// countedAt reads a counted string out of memory.
func (f *Forth) countedAt(addr int) string {
	n := int(f.mem.readByte(addr))
	b := make([]byte, n)
	for i := range b {
		b[i] = f.mem.readByte(addr + 1 + i)
	}
	return string(b)
}

func (f *Forth) nWord() { // ( c -- a )
	sep := byte(f.dpop())
	f.dpush(f.scanWord(sep))
}

// parseNumber parses digits 0-9 A-Z up to base. A leading - negates; any
// of `, / . ;` widens the result to a double.
func parseNumber(s string, base int) (val int, double bool, err error) {
	rest := s
	neg := false
	if len(rest) > 0 && rest[0] == '-' {
		neg = true
		rest = rest[1:]
	}
	digits := 0
	for i := 0; i < len(rest); i++ {
		c := rest[i]
		var v int
		switch {
		case c == ',' || c == '/' || c == '.' || c == ';':
			double = true
			continue
		case c >= '0' && c <= '9':
			v = int(c - '0')
		case c >= 'A' && c <= 'Z':
			v = int(c-'A') + 10
		default:
			return 0, false, fmt.Errorf("%q: not a number in base %d", s, base)
		}
		if v >= base {
			return 0, false, fmt.Errorf("%q: not a number in base %d", s, base)
		}
		val = val*base + v
		digits++
	}
	if digits == 0 {
		return 0, false, fmt.Errorf("%q: not a number in base %d", s, base)
	}
	if neg {
		val = -val
	}
	return val, double, nil
}

func (f *Forth) nNumber() { // ( a -- n | d )
	addr := f.dpop()
	val, double, err := parseNumber(f.countedAt(addr), f.base)
	f.abortif(err)
	if double {
		_, err = f.ds.pushDouble(val)
		f.abortif(err)
	} else {
		f.dpush(val)
	}
}

func (f *Forth) nFind() { // ( a -- cfa | 0 )
	addr := f.dpop()
	if ffa := f.dict.find(f.countedAt(addr)); ffa != 0 {
		f.dpush(f.dict.ffa2cfa(ffa))
	} else {
		f.dpush(0)
	}
}

// nInterpret consumes the rest of the line: each token is executed if
// found, pushed as a number otherwise, and an unparseable token aborts.
func (f *Forth) nInterpret() {
	for f.running {
		addr := f.scanWord(' ')
		if f.mem.readByte(addr) == 0 {
			return
		}
		if ffa := f.dict.find(f.countedAt(addr)); ffa != 0 {
			f.dpush(f.dict.ffa2cfa(ffa))
			f.nExecute()
			continue
		}
		f.dpush(addr)
		f.nNumber()
	}
}

// nExpect reads one line into memory. Newline ends the line unstored;
// end of input on an empty line stops the machine; SPAN records the count.
func (f *Forth) nExpect() { // ( a n -- )
	max := f.dpop()
	addr := f.dpop()
	n := 0
	for n < max {
		c, ok := f.readKey()
		if !ok || c == eofKey {
			if n == 0 {
				f.running = false
			}
			break
		}
		if c == '\n' {
			break
		}
		if c == '\r' {
			continue
		}
		f.mem.writeByte(addr+n, c)
		n++
	}
	f.mem.writeCell(f.spanAddr, n)
}

func (f *Forth) nType() { // ( a n -- )
	n := f.dpop()
	addr := f.dpop()
	for i := 0; i < n; i++ {
		f.writeByte(f.mem.readByte(addr + i))
	}
}

//// Boot-time word synthesis: a tiny assembler that threads existing
//// definitions into new ones.

// lit compiles ` DOLIT` plus an inline cell.
type lit int

// cstr compiles ` DOSTR` plus an inline counted string.
type cstr string

// again compiles a BRANCH back to the start of the definition.
type again struct{}

func (f *Forth) cfaOf(name string) int {
	ffa := f.dict.find(name)
	if ffa == 0 {
		return 0
	}
	return f.dict.ffa2cfa(ffa)
}

// createWord assembles a threaded definition. Strings name existing words,
// bare ints are raw cells (branch operands), and the typed items above
// expand to their inline forms. EXIT is appended automatically.
func (f *Forth) createWord(name string, items ...interface{}) error {
	if err := f.dict.create(name, f.dodoesAddr, nil, false, false); err != nil {
		return err
	}
	start := f.dict.here()
	for _, it := range items {
		var err error
		switch v := it.(type) {
		case string:
			cfa := f.cfaOf(v)
			if cfa == 0 {
				return fmt.Errorf("createWord %s: unknown word %q", name, v)
			}
			err = f.dict.compileCell(cfa)
		case int:
			err = f.dict.compileCell(v)
		case lit:
			if err = f.dict.compileCell(f.cfaOf(" DOLIT")); err == nil {
				err = f.dict.compileCell(int(v))
			}
		case cstr:
			if err = f.dict.compileCell(f.cfaOf(" DOSTR")); err == nil {
				err = f.compileCounted(string(v))
			}
		case again:
			if err = f.dict.compileCell(f.cfaOf("BRANCH")); err == nil {
				err = f.dict.compileCell((start - f.dict.here()) / 2)
			}
		default:
			return fmt.Errorf("createWord %s: bad item %T", name, it)
		}
		if err != nil {
			return err
		}
	}
	if err := f.dict.compileCell(f.cfaOf("EXIT")); err != nil {
		return err
	}
	return f.dict.finished()
}

// compileCounted lays down a counted string padded to a whole cell, so the
// following threaded cell stays aligned.
func (f *Forth) compileCounted(s string) error {
	if len(s) > 255 {
		return fmt.Errorf("string %.16q... too long", s)
	}
	if err := f.dict.compileByte(byte(len(s))); err != nil {
		return err
	}
	for i := 0; i < len(s); i++ {
		if err := f.dict.compileByte(s[i]); err != nil {
			return err
		}
	}
	if (1+len(s))%2 != 0 {
		return f.dict.compileByte(0)
	}
	return nil
}

func (f *Forth) createConst(name string, value int) error {
	return f.dict.create(name, f.rdpfaAddr(), []int{value}, false, true)
}

func (f *Forth) createVar(name string, init int) (int, error) {
	addr, err := f.uv.create(init)
	if err != nil {
		return 0, err
	}
	return addr, f.dict.create(name, f.rdpfaAddr(), []int{addr}, false, true)
}

func (f *Forth) rdpfaAddr() int { return f.routines.address(" RDPFA") }

// synthesise builds the Forth-level half of the system: the user
// variables, the convenience words from the starter vocabulary, and QUIT,
// the REPL itself.
func (f *Forth) synthesise() error {
	var err error
	if f.spanAddr, err = f.createVar("SPAN", 0); err != nil {
		return err
	}
	if f.inAddr, err = f.createVar("IN>", 0); err != nil {
		return err
	}
	if err = f.createConst("TIB", f.tib.start); err != nil {
		return err
	}
	if err = f.createConst("TIBZ", sizeTIB); err != nil {
		return err
	}

	defs := []struct {
		name  string
		items []interface{}
	}{
		{"=", w("-", "0=")},
		{"<>", w("-", "0=", "NOT")},
		{"<", w("-", "0<")},
		{">", w("-", "0>")},
		{"FALSE", w(lit(forthFalse))},
		{"TRUE", w(lit(forthTrue))},
		{"1+", w(lit(1), "+")},
		{"1-", w(lit(1), "-")},
		{"2+", w(lit(2), "+")},
		{"2-", w(lit(2), "-")},
		{"2*", w(lit(2), "*")},
		{"2/", w(lit(2), "/")},
		{"NEGATE", w(lit(0xFFFF), "*")},
		{"COUNT", w("DUP", lit(1), "+", "SWAP", "C@")},
		{"CR", w(lit(10), "EMIT")},
		{"SPACE", w(lit(32), "EMIT")},
		{"SPACES", w("DUP", "0>", "0BRANCH", 5, "SPACE", "1-", "BRANCH", -7, "DROP")},
		{"2DUP", w("OVER", "OVER")},
		{"2DROP", w("DROP", "DROP")},
		{"?DUP", w("DUP", "0BRANCH", 2, "DUP")},
		{"ABS", w("DUP", "0<", "0BRANCH", 2, "NEGATE")},
		{"MIN", w("2DUP", ">", "0BRANCH", 4, "NIP", "BRANCH", 2, "DROP")},
		{"MAX", w("2DUP", "<", "0BRANCH", 4, "NIP", "BRANCH", 2, "DROP")},
		{"+!", w("SWAP", "OVER", "@", "+", "SWAP", "!")},
		{"HEX", w(lit(16), "BASE", "!")},
		{"DECIMAL", w(lit(10), "BASE", "!")},
		{"OCTAL", w(lit(8), "BASE", "!")},
		{"QUIT", w(
			lit(0), "SPAN", "!",
			"TIB", "TIBZ", "EXPECT",
			lit(0), "IN>", "!",
			"INTERPRET",
			cstr("Ok"), "COUNT", "TYPE", "CR",
			again{})},
	}
	for _, d := range defs {
		if err := f.createWord(d.name, d.items...); err != nil {
			return err
		}
	}
	return nil
}

func w(items ...interface{}) []interface{} { return items }

//// Drivers.

// executeWord runs one named word to completion; the entry point used by
// the REPL driver and tests.
func (f *Forth) executeWord(name string) error {
	cfa := f.cfaOf(name)
	if cfa == 0 {
		return fmt.Errorf("unknown word %q", name)
	}
	f.running = true
	f.dpush(cfa)
	f.nExecute()
	return nil
}

// interpretLine loads one line into the TIB and interprets it; an abort
// surfaces as the returned error.
func (f *Forth) interpretLine(line string) error {
	return f.catchAbort(func() {
		if len(line) > sizeTIB {
			line = line[:sizeTIB]
		}
		for i := 0; i < len(line); i++ {
			f.mem.writeByte(f.tib.start+i, line[i])
		}
		f.mem.writeCell(f.spanAddr, len(line))
		f.mem.writeCell(f.inAddr, 0)
		f.running = true
		f.nInterpret()
	})
}

func (f *Forth) catchAbort(fn func()) (err error) {
	defer func() {
		if e := recover(); e != nil {
			ae, ok := e.(abortError)
			if !ok {
				panic(e)
			}
			err = ae.error
		}
	}()
	fn()
	return nil
}

// interact runs the REPL until BYE, end of input, or the step limit. An
// abort reports its reason and re-enters QUIT with cleared stacks.
func (f *Forth) interact() error {
	if err := f.boot(); err != nil {
		return err
	}
	quit := f.cfaOf("QUIT")
	for {
		err := f.catchAbort(func() {
			f.running = true
			f.dpush(quit)
			f.nExecute()
		})
		if err == nil {
			return nil
		}
		f.writeString("? " + err.Error() + "\n")
	}
}
