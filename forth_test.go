package main

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/whaleygeek/pyforth/internal/logio"
)

type forthTestCases []forthTestCase

func (fts forthTestCases) run(t *testing.T) {
	for _, ft := range fts {
		if !t.Run(ft.name, ft.run) {
			return
		}
	}
}

func forthTest(name string) (ft forthTestCase) {
	ft.name = name
	return ft
}

// forthTestCase builds a machine, optionally runs setup ops and interprets
// source lines (or the full REPL against withInput), then checks
// expectations. Setup ops run after boot, before any line.
type forthTestCase struct {
	name    string
	opts    []Option
	setup   []func(t *testing.T, f *Forth)
	lines   []string
	repl    bool
	timeout time.Duration

	wantAbort string
	expect    []func(t *testing.T, f *Forth)
}

func (ft forthTestCase) withOptions(opts ...Option) forthTestCase {
	ft.opts = append(ft.opts, opts...)
	return ft
}

func (ft forthTestCase) withInput(input string) forthTestCase {
	ft.opts = append(ft.opts, WithInput(strings.NewReader(input)))
	return ft
}

// runREPL runs Run instead of interpreting lines directly.
func (ft forthTestCase) runREPL() forthTestCase {
	ft.repl = true
	return ft
}

func (ft forthTestCase) do(ops ...func(t *testing.T, f *Forth)) forthTestCase {
	ft.setup = append(ft.setup, ops...)
	return ft
}

func (ft forthTestCase) withLines(lines ...string) forthTestCase {
	ft.lines = append(ft.lines, lines...)
	return ft
}

func (ft forthTestCase) withTimeout(timeout time.Duration) forthTestCase {
	ft.timeout = timeout
	return ft
}

// expectAbort asserts that interpreting the lines aborts with a reason
// containing the given fragment.
func (ft forthTestCase) expectAbort(reason string) forthTestCase {
	ft.wantAbort = reason
	return ft
}

func (ft forthTestCase) expectOutput(output string) forthTestCase {
	var out strings.Builder
	ft.opts = append(ft.opts, WithOutput(&out))
	ft.expect = append(ft.expect, func(t *testing.T, f *Forth) {
		assert.Equal(t, output, out.String(), "expected output")
	})
	return ft
}

// expectStack asserts data stack cells bottom first.
func (ft forthTestCase) expectStack(values ...int) forthTestCase {
	ft.expect = append(ft.expect, func(t *testing.T, f *Forth) {
		if values == nil {
			values = []int{}
		}
		assert.Equal(t, values, stackCells(f.ds), "expected data stack")
	})
	return ft
}

func (ft forthTestCase) expectCheck(check func(t *testing.T, f *Forth)) forthTestCase {
	ft.expect = append(ft.expect, check)
	return ft
}

func (ft forthTestCase) run(t *testing.T) {
	f := New(ft.opts...)
	defer f.Close()

	timeout := ft.timeout
	if timeout == 0 {
		timeout = time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var aborted error
	err := func() error {
		if ft.repl {
			return f.Run(ctx)
		}
		if err := f.boot(); err != nil {
			return err
		}
		for _, op := range ft.setup {
			op(t, f)
		}
		for _, line := range ft.lines {
			if lerr := f.interpretLine(line); lerr != nil {
				aborted = lerr
				break
			}
		}
		return nil
	}()

	if !assert.NoError(t, err, "unexpected machine error") {
		ft.dumpToTest(t, f)
		return
	}
	if ft.wantAbort != "" {
		if !assert.Error(t, aborted, "expected an abort") {
			return
		}
		assert.Contains(t, aborted.Error(), ft.wantAbort, "expected abort reason")
	} else if !assert.NoError(t, aborted, "unexpected abort") {
		return
	}

	for _, expect := range ft.expect {
		expect(t, f)
	}
	if t.Failed() {
		ft.dumpToTest(t, f)
	}
}

func (ft forthTestCase) dumpToTest(t *testing.T, f *Forth) {
	lw := &logio.Writer{Logf: t.Logf}
	forthDumper{f: f, out: lw}.dump()
	lw.Sync()
}
