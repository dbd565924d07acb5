package main

import (
	"bufio"
	"bytes"
	"io"

	"github.com/whaleygeek/pyforth/internal/blockio"
	"github.com/whaleygeek/pyforth/internal/flushio"
)

type Option interface{ apply(f *Forth) }

var defaults = []Option{
	withInput(bytes.NewReader(nil)),
	withOutput(io.Discard),
}

func (f *Forth) apply(opts ...Option) {
	for _, opt := range defaults {
		if opt != nil {
			opt.apply(f)
		}
	}
	for _, opt := range opts {
		if opt != nil {
			opt.apply(f)
		}
	}
}

type withLogfn func(mess string, args ...interface{})

func (logfn withLogfn) apply(f *Forth) {
	f.logfn = logfn
}

type inputOption struct{ io.Reader }
type outputOption struct{ io.Writer }
type teeOption struct{ io.Writer }
type storeOption struct{ blockio.Store }
type limitOption int

func withInput(r io.Reader) inputOption     { return inputOption{r} }
func withOutput(w io.Writer) outputOption   { return outputOption{w} }
func withTee(w io.Writer) teeOption         { return teeOption{w} }
func withStore(s blockio.Store) storeOption { return storeOption{s} }
func withLimit(limit int) limitOption       { return limitOption(limit) }

func (i inputOption) apply(f *Forth) {
	f.in = bufio.NewReader(i.Reader)
	if c, ok := i.Reader.(io.Closer); ok {
		f.closers = append(f.closers, c)
	}
}

func (o outputOption) apply(f *Forth) {
	if f.out != nil {
		f.out.Flush()
	}
	f.out = flushio.NewWriteFlusher(o.Writer)
	if c, ok := o.Writer.(io.Closer); ok {
		f.closers = append(f.closers, c)
	}
}

func (o teeOption) apply(f *Forth) {
	f.out = flushio.WriteFlushers(f.out, flushio.NewWriteFlusher(o.Writer))
}

func (s storeOption) apply(f *Forth) {
	f.store = s.Store
	if c, ok := s.Store.(io.Closer); ok {
		f.closers = append(f.closers, c)
	}
}

func (lim limitOption) apply(f *Forth) {
	f.limit = int(lim)
}
