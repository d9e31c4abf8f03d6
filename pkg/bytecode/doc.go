// Package bytecode holds compiled scripts: the operand encoding shared by
// the compiler and the VM, the immutable Unit with its source map and
// shared-ownership count, and the persisted form.
//
// Encoding (all little-endian):
//
//	opcode      uint16 ordinal into one of the language's tables
//	int         int32
//	float       float32
//	string      bytes followed by NUL
//	byte-string uint16 length, then the bytes
//	address     uint32 absolute offset into the unit
//	slot        one byte
//
// Every rvalue/variable operand starts with a Tag saying which form
// follows. Conditions are a chain of (operand, comparator byte, operand,
// logic byte) terminated by LogicEnd.
package bytecode
