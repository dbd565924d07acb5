package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
)

// forthDumper renders machine state for the -dump flag and for failing
// tests: the region table, both stacks, and a disassembly of every
// dictionary entry newest-first.
type forthDumper struct {
	f   *Forth
	out io.Writer
}

func (d forthDumper) dump() {
	f := d.f
	if !f.booted {
		fmt.Fprintf(d.out, "# machine not booted\n")
		return
	}
	fmt.Fprintf(d.out, "# Machine Dump\n")
	for _, r := range f.mem.regions {
		fmt.Fprintf(d.out, "  region %-6s %#04x..%#04x\n", r.name, r.start, r.start+r.size)
	}
	fmt.Fprintf(d.out, "  data: %v\n", stackCells(f.ds))
	fmt.Fprintf(d.out, "  return: %v\n", stackCells(f.rs))

	ends := d.entryEnds()
	for ffa := f.dict.lastFFA; ffa != 0; ffa = f.dict.prev(ffa) {
		if f.mem.readByte(ffa) == 0 {
			break
		}
		d.dumpEntry(ffa, ends[ffa])
	}
}

// entryEnds maps each entry's flags address to the address just past its
// parameter field: the next entry laid down in memory, or the write
// pointer for the newest one.
func (d forthDumper) entryEnds() map[int]int {
	var ffas []int
	for ffa := d.f.dict.lastFFA; ffa != 0; ffa = d.f.dict.prev(ffa) {
		if d.f.mem.readByte(ffa) == 0 {
			break
		}
		ffas = append(ffas, ffa)
	}
	sort.Ints(ffas)
	ends := make(map[int]int, len(ffas))
	for i, ffa := range ffas {
		if i+1 < len(ffas) {
			ends[ffa] = ffas[i+1]
		} else {
			ends[ffa] = d.f.dict.here()
		}
	}
	return ends
}

func (d forthDumper) dumpEntry(ffa, end int) {
	f := d.f
	flags := f.mem.readByte(ffa)
	name := f.dict.name(ffa)
	mark := ""
	if flags&flagImmediate != 0 {
		mark = " IMM"
	}
	cfa := f.dict.ffa2cfa(ffa)
	cf := f.mem.readCell(cfa)
	switch {
	case cf == f.dodoesAddr:
		fmt.Fprintf(d.out, "  @%04x %-10q%s :%s\n", ffa, name, mark, d.disasm(cfa2pfa(cfa), end))
	case d.routineName(cf) != "":
		fmt.Fprintf(d.out, "  @%04x %-10q%s native %s\n", ffa, name, mark, d.routineName(cf))
	default:
		fmt.Fprintf(d.out, "  @%04x %-10q%s cf=%04x%s\n", ffa, name, mark, cf, d.disasm(cfa2pfa(cfa), end))
	}
}

// disasm renders a parameter field, resolving cells to word names and
// decoding the operands that follow literal, string, and branch words.
func (d forthDumper) disasm(pfa, end int) string {
	f := d.f
	names := d.cfaNames()
	dolit, dostr := f.cfaOf(" DOLIT"), f.cfaOf(" DOSTR")
	branch, zbranch := f.cfaOf("BRANCH"), f.cfaOf("0BRANCH")
	s := ""
	for addr := pfa; addr < end; {
		cell := f.mem.readCell(addr)
		addr += 2
		switch cell {
		case dolit:
			s += " DOLIT " + strconv.Itoa(f.mem.readCell(addr))
			addr += 2
		case dostr:
			str := f.countedAt(addr)
			n := 1 + len(str)
			addr += n + n%2
			s += fmt.Sprintf(" DOSTR %q", str)
		case branch, zbranch:
			s += fmt.Sprintf(" %s %d", names[cell], int(int16(f.mem.readCell(addr))))
			addr += 2
		default:
			if name, ok := names[cell]; ok {
				s += " " + name
			} else {
				s += " " + strconv.Itoa(cell)
			}
		}
	}
	return s
}

func (d forthDumper) cfaNames() map[int]string {
	names := make(map[int]string)
	for ffa := d.f.dict.lastFFA; ffa != 0; ffa = d.f.dict.prev(ffa) {
		if d.f.mem.readByte(ffa) == 0 {
			break
		}
		names[d.f.dict.ffa2cfa(ffa)] = d.f.dict.name(ffa)
	}
	return names
}

func (d forthDumper) routineName(cf int) string {
	if i := cf - d.f.routines.start; i >= 0 && i < len(d.f.routines.routines) {
		return d.f.routines.routines[i].name
	}
	return ""
}

func stackCells(s *stack) []int {
	n := s.used() / 2
	cells := make([]int, 0, n)
	for i := n - 1; i >= 0; i-- {
		if v, err := s.getCell(i); err == nil {
			cells = append(cells, v)
		}
	}
	return cells
}
