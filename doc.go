/* Package main implements pyforth, a small byte-addressable Forth machine.

The machine is a 64KiB byte array carved into named regions. Two low
regions are special: reads, writes and calls landing in them dispatch to
host Go code, which is how native routines and machine registers appear
to Forth programs as ordinary memory. Everything else is plain storage:
the dictionary, the data and return stacks, the text input buffer, user
variables, and the PAD scratch buffer.

The dictionary is an append-only chain of binary entries, each holding a
flags byte with the name length, the counted name, a link to the previous
entry, a code field, and a parameter field. Native words have a code
field pointing into the dispatch region and an empty parameter field;
compound words share a single code field target, the DODOES engine, and
their parameter field is threaded code: a sequence of other words' code
field addresses.

DODOES is one flat loop with an explicit nesting depth. Entering a
compound callee bumps the depth instead of recursing on the Go stack, so
Forth-level tail loops built from BRANCH run in constant host stack. A
few hidden words with space-prefixed names (DOLIT, DOSTR, RDPFA) read
operands inlined in their caller's thread; their names cannot be typed
because the tokenizer splits on spaces.

The outer interpreter is bootstrapped half in Go natives (WORD, NUMBER,
FIND, INTERPRET, EXPECT) and half in Forth itself: QUIT, the REPL, is a
threaded word assembled at boot, as are the comparison and convenience
words of the starter vocabulary.

	$ pyforth
	1 2 + .
	3 Ok

Blocks of 1024 bytes move between memory and a disk image via RBLK and
WBLK when a store is configured (-disk flag, or WithBlockStore).
*/
package main
