package main

import (
	"context"
	"errors"
	"io"

	"github.com/whaleygeek/pyforth/internal/blockio"
	"github.com/whaleygeek/pyforth/internal/panicerr"
)

// New builds an un-booted machine; Run boots it on first use.
func New(opts ...Option) *Forth {
	var f Forth
	f.apply(opts...)
	return &f
}

// Run boots the machine if needed and runs its REPL until BYE, end of
// input, context cancellation, or the configured step limit. Normal halts
// return nil; a fatal machine condition or recovered panic does not.
func (f *Forth) Run(ctx context.Context) error {
	err := panicerr.Recover("forth", func() error {
		f.ctx = ctx
		defer func() {
			f.ctx = nil
			if f.out != nil {
				f.out.Flush()
			}
		}()
		return f.interact()
	})
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	var halt haltError
	if errors.As(err, &halt) {
		err = halt.error
	}
	return err
}

func WithInput(r io.Reader) Option          { return withInput(r) }
func WithOutput(w io.Writer) Option         { return withOutput(w) }
func WithTee(w io.Writer) Option            { return withTee(w) }
func WithBlockStore(s blockio.Store) Option { return withStore(s) }
func WithLimit(limit int) Option            { return withLimit(limit) }

func WithLogf(logfn func(mess string, args ...interface{})) Option { return withLogfn(logfn) }
