package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/whaleygeek/pyforth/internal/blockio"
)

func main() {
	ctx := context.Background()

	var timeout time.Duration
	var trace, dump bool
	var limit int
	var disk string
	flag.DurationVar(&timeout, "timeout", 0, "specify a time limit")
	flag.BoolVar(&trace, "trace", false, "enable trace logging")
	flag.IntVar(&limit, "limit", 0, "stop after this many threaded steps")
	flag.StringVar(&disk, "disk", "", "disk image file for RBLK/WBLK")
	flag.BoolVar(&dump, "dump", false, "dump the dictionary on exit")
	flag.Parse()

	var opts = []Option{
		WithInput(os.Stdin),
		WithOutput(os.Stdout),
	}
	if trace {
		opts = append(opts, WithLogf(log.Printf))
	}
	if limit != 0 {
		opts = append(opts, WithLimit(limit))
	}
	if disk != "" {
		store, err := blockio.OpenFile(disk)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
			os.Exit(1)
		}
		opts = append(opts, WithBlockStore(store))
	}
	f := New(opts...)

	if timeout != 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	err := f.Run(ctx)
	if dump {
		forthDumper{f: f, out: os.Stderr}.dump()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %+v\n", err)
		os.Exit(1)
	}
}
