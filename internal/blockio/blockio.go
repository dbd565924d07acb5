// Package blockio provides numbered fixed-size block storage, the
// traditional Forth mass-storage model.
package blockio

import (
	"fmt"
	"io"
	"os"
)

// BlockSize is the fixed transfer unit in bytes.
const BlockSize = 1024

// Store reads and writes numbered blocks. Both methods require p to be
// exactly BlockSize long.
type Store interface {
	ReadBlock(num int, p []byte) error
	WriteBlock(num int, p []byte) error
}

func checkBlock(num int, p []byte) error {
	if num < 0 {
		return fmt.Errorf("invalid block number %d", num)
	}
	if len(p) != BlockSize {
		return fmt.Errorf("block buffer is %d bytes, need %d", len(p), BlockSize)
	}
	return nil
}

// File is a Store backed by a seekable file; blocks live at num*BlockSize.
// Reads past the end of the file yield zero bytes, so a fresh disk image
// reads as all-zero blocks.
type File struct {
	F *os.File
}

// OpenFile opens (creating if necessary) a disk image file.
func OpenFile(name string) (*File, error) {
	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}
	return &File{F: f}, nil
}

func (bf *File) ReadBlock(num int, p []byte) error {
	if err := checkBlock(num, p); err != nil {
		return err
	}
	n, err := bf.F.ReadAt(p, int64(num)*BlockSize)
	if err == io.EOF {
		for i := n; i < len(p); i++ {
			p[i] = 0
		}
		return nil
	}
	return err
}

func (bf *File) WriteBlock(num int, p []byte) error {
	if err := checkBlock(num, p); err != nil {
		return err
	}
	_, err := bf.F.WriteAt(p, int64(num)*BlockSize)
	return err
}

// Close closes the underlying file.
func (bf *File) Close() error { return bf.F.Close() }

// Mem is an in-memory Store; unwritten blocks read as zero.
type Mem struct {
	blocks map[int][]byte
}

func (m *Mem) ReadBlock(num int, p []byte) error {
	if err := checkBlock(num, p); err != nil {
		return err
	}
	if b, ok := m.blocks[num]; ok {
		copy(p, b)
	} else {
		for i := range p {
			p[i] = 0
		}
	}
	return nil
}

func (m *Mem) WriteBlock(num int, p []byte) error {
	if err := checkBlock(num, p); err != nil {
		return err
	}
	if m.blocks == nil {
		m.blocks = make(map[int][]byte)
	}
	b := make([]byte, BlockSize)
	copy(b, p)
	m.blocks[num] = b
	return nil
}
