package main

import (
	"bufio"
	"io"

	"github.com/whaleygeek/pyforth/internal/flushio"
)

// ioCore owns the character channels: a buffered byte source for KEY and a
// flushable sink for EMIT. Output is flushed before every blocking read so a
// prompt is never stuck in a buffer.
type ioCore struct {
	in  *bufio.Reader
	out flushio.WriteFlusher

	logfn   func(mess string, args ...interface{})
	closers []io.Closer
}

func (ioc *ioCore) Close() (err error) {
	for i := len(ioc.closers) - 1; i >= 0; i-- {
		if cerr := ioc.closers[i].Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (ioc *ioCore) logf(mess string, args ...interface{}) {
	if ioc.logfn != nil {
		ioc.logfn(mess, args...)
	}
}

func (ioc *ioCore) withLogPrefix(prefix string) func() {
	logfn := ioc.logfn
	if logfn == nil {
		return func() {}
	}
	ioc.logfn = func(mess string, args ...interface{}) {
		logfn(prefix+mess, args...)
	}
	return func() {
		ioc.logfn = logfn
	}
}

// readKey reads one byte from the input source; ok is false at end of
// stream. IO errors other than EOF halt the machine.
func (f *Forth) readKey() (byte, bool) {
	f.haltif(f.out.Flush())
	b, err := f.in.ReadByte()
	if err == io.EOF {
		return 0, false
	}
	f.haltif(err)
	return b, true
}

func (f *Forth) writeByte(b byte) {
	_, err := f.out.Write([]byte{b})
	f.haltif(err)
}

func (f *Forth) writeString(s string) {
	_, err := io.WriteString(f.out, s)
	f.haltif(err)
}
