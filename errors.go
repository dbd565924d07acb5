package main

import (
	"errors"
	"fmt"
)

var (
	errBufferOverflow  = errors.New("buffer overflow")
	errBufferUnderflow = errors.New("buffer underflow")
	errZeroDivide      = errors.New("division by zero")
	errNoBlockStore    = errors.New("no block store attached")
)

// haltError wraps any condition that stops the whole machine; Run unwraps it
// and treats a nil cause as a normal halt.
type haltError struct{ error }

func (err haltError) Error() string {
	if err.error != nil {
		return fmt.Sprintf("halted: %v", err.error)
	}
	return "halted"
}
func (err haltError) Unwrap() error { return err.error }

// abortError abandons the current top-level command; the REPL driver clears
// up and resumes, anything else surfaces it as a plain error.
type abortError struct{ error }

func (err abortError) Error() string { return fmt.Sprintf("aborted: %v", err.error) }
func (err abortError) Unwrap() error { return err.error }

type regionOverlapError struct {
	name, other string
}

func (err regionOverlapError) Error() string {
	return fmt.Sprintf("region %s overlaps with %s", err.name, err.other)
}

type nativeDispatchError struct {
	op   string
	addr int
}

func (err nativeDispatchError) Error() string {
	return fmt.Sprintf("native %s at unbound address %#04x", err.op, err.addr)
}

type addressError int

func (addr addressError) Error() string { return fmt.Sprintf("address %#x out of memory", int(addr)) }
