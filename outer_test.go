package main

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_parseNumber(t *testing.T) {
	for _, tc := range []struct {
		s      string
		base   int
		val    int
		double bool
		bad    bool
	}{
		{s: "123", base: 10, val: 123},
		{s: "0", base: 10, val: 0},
		{s: "-5", base: 10, val: -5},
		{s: "1F", base: 16, val: 31},
		{s: "-FF", base: 16, val: -255},
		{s: "777", base: 8, val: 511},
		{s: "Z", base: 36, val: 35},
		{s: "1,000", base: 10, val: 1000, double: true},
		{s: "3.14", base: 10, val: 314, double: true},
		{s: "12;", base: 10, val: 12, double: true},
		{s: "1/2", base: 10, val: 12, double: true},
		{s: "1F", base: 10, bad: true},
		{s: "8", base: 8, bad: true},
		{s: "abc", base: 16, bad: true, val: 0}, // lower case is not a digit
		{s: "", base: 10, bad: true},
		{s: "-", base: 10, bad: true},
		{s: "12 3", base: 10, bad: true},
	} {
		t.Run(fmt.Sprintf("%q base %d", tc.s, tc.base), func(t *testing.T) {
			val, double, err := parseNumber(tc.s, tc.base)
			if tc.bad {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.val, val)
			assert.Equal(t, tc.double, double)
		})
	}
}

func Test_number_word(t *testing.T) {
	forthTestCases{
		forthTest("decimal").withLines("123").expectStack(123),
		forthTest("negative wraps").withLines("-5").expectStack(0xFFFB),
		forthTest("out of base aborts").withLines("1F").expectAbort("not a number in base 10"),
		forthTest("base applies").withLines("HEX", "1F").expectStack(31),
		forthTest("double pushes two cells").withLines("1,000").expectStack(1000, 0),
	}.run(t)
}

func Test_word_scanning(t *testing.T) {
	forthTestCases{
		forthTest("word scans next token").
			withLines("32 WORD HELLO").
			expectCheck(func(t *testing.T, f *Forth) {
				addr, err := f.ds.popCell()
				require.NoError(t, err)
				assert.Equal(t, "HELLO", f.countedAt(addr))
			}),
		forthTest("word skips leading separators").
			withLines("32 WORD      SPACED"). // multiple separators before the token
			expectCheck(func(t *testing.T, f *Forth) {
				addr, err := f.ds.popCell()
				require.NoError(t, err)
				assert.Equal(t, "SPACED", f.countedAt(addr))
			}),
		forthTest("word at end of line").
			withLines("32 WORD").
			expectCheck(func(t *testing.T, f *Forth) {
				addr, err := f.ds.popCell()
				require.NoError(t, err)
				assert.Equal(t, "", f.countedAt(addr), "zero count when exhausted")
			}),
	}.run(t)
}

func Test_find_word(t *testing.T) {
	forthTestCases{
		forthTest("find known").
			withLines("32 WORD DUP FIND").
			expectCheck(func(t *testing.T, f *Forth) {
				assert.Equal(t, []int{f.cfaOf("DUP")}, stackCells(f.ds))
			}),
		forthTest("find unknown").withLines("32 WORD NOPE99 FIND").expectStack(0),
	}.run(t)
}

func Test_expect(t *testing.T) {
	forthTestCases{
		forthTest("reads a line into the buffer").
			withInput("HELLO\nrest").
			do(func(t *testing.T, f *Forth) {
				f.dpush(f.tib.start)
				f.dpush(sizeTIB)
				f.nExpect()
			}).
			expectStack().
			expectCheck(func(t *testing.T, f *Forth) {
				assert.Equal(t, 5, f.mem.readCell(f.spanAddr), "SPAN records the count")
				got := make([]byte, 5)
				for i := range got {
					got[i] = f.mem.readByte(f.tib.start + i)
				}
				assert.Equal(t, "HELLO", string(got))
			}),
		forthTest("capacity bounds the read").
			withInput("ABCDEFGH").
			do(func(t *testing.T, f *Forth) {
				f.dpush(f.tib.start)
				f.dpush(4)
				f.nExpect()
			}).
			expectCheck(func(t *testing.T, f *Forth) {
				assert.Equal(t, 4, f.mem.readCell(f.spanAddr))
			}),
		forthTest("end of stream stops the machine").
			withInput("").
			do(func(t *testing.T, f *Forth) {
				f.running = true
				f.dpush(f.tib.start)
				f.dpush(sizeTIB)
				f.nExpect()
				assert.False(t, f.running)
			}),
	}.run(t)
}

func Test_synthesised_words(t *testing.T) {
	forthTestCases{
		forthTest("increments").withLines("5 1+ 5 1- 5 2+ 5 2-").expectStack(6, 4, 7, 3),
		forthTest("doubling").withLines("5 2* 5 2/").expectStack(10, 2),
		forthTest("negate").withLines("7 NEGATE 7 +").expectStack(0),
		forthTest("abs").withLines("5 NEGATE ABS 5 ABS").expectStack(5, 5),
		forthTest("min max").withLines("3 7 MIN 3 7 MAX").expectStack(3, 7),
		forthTest("min of negative").withLines("1 NEGATE 1 MIN").expectStack(0xFFFF),
		forthTest("qdup nonzero").withLines("5 ?DUP").expectStack(5, 5),
		forthTest("qdup zero").withLines("0 ?DUP").expectStack(0),
		forthTest("two dup drop").withLines("1 2 2DUP 2DROP").expectStack(1, 2),
		forthTest("count").
			do(func(t *testing.T, f *Forth) {
				f.mem.writeByte(0x6000, 3)
				f.mem.writeByte(0x6001, 'A')
				f.mem.writeByte(0x6002, 'B')
				f.mem.writeByte(0x6003, 'C')
			}).
			withLines("24576 COUNT").
			expectStack(0x6001, 3),
		forthTest("type").
			do(func(t *testing.T, f *Forth) {
				for i, c := range []byte("HELLO") {
					f.mem.writeByte(0x6000+i, c)
				}
			}).
			withLines("24576 5 TYPE").
			expectOutput("HELLO"),
		forthTest("cr space spaces").withLines("CR SPACE 3 SPACES").expectOutput("\n    "),
		forthTest("spaces of zero").withLines("0 SPACES").expectOutput(""),
		forthTest("radix words").withLines("HEX BASE @ DECIMAL BASE @ OCTAL BASE @ DECIMAL").
			expectStack(16, 10, 8),
	}.run(t)
}

func Test_repl(t *testing.T) {
	forthTestCases{
		forthTest("prompts ok per line").
			withInput("1 2 + .\n").
			runREPL().
			expectOutput("3 Ok\n"),
		forthTest("several lines").
			withInput("2 3 +\n.\n").
			runREPL().
			expectOutput("Ok\n5 Ok\n"),
		forthTest("bye stops mid line").
			withInput("7 . BYE 9 .\nnever .\n").
			runREPL().
			expectOutput("7 "),
		forthTest("abort reports and resumes").
			withInput("FOO\n1 .\n").
			runREPL().
			expectOutput("? \"FOO\": not a number in base 10\n1 Ok\n"),
		forthTest("abort clears the stack").
			withInput("1 2 3 BADWORD\n. \n").
			runREPL().
			expectOutput("? \"BADWORD\": not a number in base 10\n? data stack: buffer underflow\n"),
		forthTest("empty line is ok").
			withInput("\n").
			runREPL().
			expectOutput("Ok\n"),
	}.run(t)
}

func Test_execute_word_helper(t *testing.T) {
	f := New(WithOutput(new(strings.Builder)))
	require.NoError(t, f.boot())
	assert.Error(t, f.executeWord("NOPE"))

	f.dpush(2)
	f.dpush(3)
	require.NoError(t, f.executeWord("+"))
	assert.Equal(t, []int{5}, stackCells(f.ds))
}

func Test_dumper(t *testing.T) {
	f := New()
	require.NoError(t, f.boot())
	var out strings.Builder
	forthDumper{f: f, out: &out}.dump()
	dump := out.String()

	assert.Contains(t, dump, `"QUIT"`)
	assert.Contains(t, dump, "native DUP")
	assert.Contains(t, dump, "region DICT")
	assert.Contains(t, dump, "DOLIT")
	// every visible native is registered and disassembles by name
	assert.Contains(t, dump, `"EXECUTE"`)
}
