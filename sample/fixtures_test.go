package sample

import (
	"bytes"
	"encoding/binary"

	"github.com/wasmlab/typecorpus/wasm"
)

// Abbreviation table for the DWARF fixtures, all strings inline, all
// references DW_FORM_ref4, 4-byte addresses.
//
//	 1 compile_unit     (children) name
//	 2 subprogram       (children) low_pc name type
//	 3 formal_parameter             name type
//	 4 base_type                    name encoding byte_size
//	 5 pointer_type                 type
//	 6 const_type                   type
//	 7 subprogram       (children) low_pc name
//	 8 typedef                      name type
//	 9 enumeration_type             name type
//	10 structure_type               name
//	11 volatile_type                type
//	12 array_type                   type
//	13 subroutine_type              (no attributes)
//	14 unspecified_type             name
//	15 pointer_type                 (no attributes)
//	16 formal_parameter             name
//	17 class_type                   name
//	18 union_type                   name
//	19 reference_type               type
var testAbbrev = []byte{
	0x01, 0x11, 0x01, 0x03, 0x08, 0x00, 0x00,
	0x02, 0x2E, 0x01, 0x11, 0x01, 0x03, 0x08, 0x49, 0x13, 0x00, 0x00,
	0x03, 0x05, 0x00, 0x03, 0x08, 0x49, 0x13, 0x00, 0x00,
	0x04, 0x24, 0x00, 0x03, 0x08, 0x3E, 0x0B, 0x0B, 0x0B, 0x00, 0x00,
	0x05, 0x0F, 0x00, 0x49, 0x13, 0x00, 0x00,
	0x06, 0x26, 0x00, 0x49, 0x13, 0x00, 0x00,
	0x07, 0x2E, 0x01, 0x11, 0x01, 0x03, 0x08, 0x00, 0x00,
	0x08, 0x16, 0x00, 0x03, 0x08, 0x49, 0x13, 0x00, 0x00,
	0x09, 0x04, 0x00, 0x03, 0x08, 0x49, 0x13, 0x00, 0x00,
	0x0A, 0x13, 0x00, 0x03, 0x08, 0x00, 0x00,
	0x0B, 0x35, 0x00, 0x49, 0x13, 0x00, 0x00,
	0x0C, 0x01, 0x00, 0x49, 0x13, 0x00, 0x00,
	0x0D, 0x15, 0x00, 0x00, 0x00,
	0x0E, 0x3B, 0x00, 0x03, 0x08, 0x00, 0x00,
	0x0F, 0x0F, 0x00, 0x00, 0x00,
	0x10, 0x05, 0x00, 0x03, 0x08, 0x00, 0x00,
	0x11, 0x02, 0x00, 0x03, 0x08, 0x00, 0x00,
	0x12, 0x17, 0x00, 0x03, 0x08, 0x00, 0x00,
	0x13, 0x10, 0x00, 0x49, 0x13, 0x00, 0x00,
	0x00,
}

// infoBuilder assembles a single DWARF 4 compilation unit in the 32-bit
// format. Emitted offsets are valid ref4 values since the unit starts
// the section.
type infoBuilder struct {
	buf bytes.Buffer
}

func newInfoBuilder(cuName string) *infoBuilder {
	b := &infoBuilder{}
	b.buf.Write(make([]byte, 11)) // header, patched in bytes()
	b.buf.WriteByte(0x01)
	b.str(cuName)
	return b
}

func (b *infoBuilder) str(s string) {
	b.buf.WriteString(s)
	b.buf.WriteByte(0)
}

func (b *infoBuilder) ref4(off uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], off)
	b.buf.Write(tmp[:])
}

func (b *infoBuilder) here() uint32 {
	return uint32(b.buf.Len())
}

func (b *infoBuilder) baseType(name string, enc, size byte) uint32 {
	off := b.here()
	b.buf.WriteByte(0x04)
	b.str(name)
	b.buf.WriteByte(enc)
	b.buf.WriteByte(size)
	return off
}

func (b *infoBuilder) refDie(abbrev byte, to uint32) uint32 {
	off := b.here()
	b.buf.WriteByte(abbrev)
	b.ref4(to)
	return off
}

func (b *infoBuilder) pointerType(to uint32) uint32  { return b.refDie(0x05, to) }
func (b *infoBuilder) constType(to uint32) uint32    { return b.refDie(0x06, to) }
func (b *infoBuilder) volatileType(to uint32) uint32 { return b.refDie(0x0B, to) }
func (b *infoBuilder) arrayType(to uint32) uint32    { return b.refDie(0x0C, to) }
func (b *infoBuilder) refType(to uint32) uint32      { return b.refDie(0x13, to) }

func (b *infoBuilder) namedDie(abbrev byte, name string) uint32 {
	off := b.here()
	b.buf.WriteByte(abbrev)
	b.str(name)
	return off
}

func (b *infoBuilder) structType(name string) uint32      { return b.namedDie(0x0A, name) }
func (b *infoBuilder) classType(name string) uint32       { return b.namedDie(0x11, name) }
func (b *infoBuilder) unionType(name string) uint32       { return b.namedDie(0x12, name) }
func (b *infoBuilder) unspecifiedType(name string) uint32 { return b.namedDie(0x0E, name) }

func (b *infoBuilder) typedefType(name string, to uint32) uint32 {
	off := b.here()
	b.buf.WriteByte(0x08)
	b.str(name)
	b.ref4(to)
	return off
}

func (b *infoBuilder) enumType(name string, to uint32) uint32 {
	off := b.here()
	b.buf.WriteByte(0x09)
	b.str(name)
	b.ref4(to)
	return off
}

func (b *infoBuilder) subroutineType() uint32 {
	off := b.here()
	b.buf.WriteByte(0x0D)
	return off
}

func (b *infoBuilder) pointerNoInner() uint32 {
	off := b.here()
	b.buf.WriteByte(0x0F)
	return off
}

// subprogram starts a subprogram entry; ret == 0 means no return type.
// Follow with param calls and a final end.
func (b *infoBuilder) subprogram(lowPC uint32, name string, ret uint32) {
	if ret != 0 {
		b.buf.WriteByte(0x02)
	} else {
		b.buf.WriteByte(0x07)
	}
	var addr [4]byte
	binary.LittleEndian.PutUint32(addr[:], lowPC)
	b.buf.Write(addr[:])
	b.str(name)
	if ret != 0 {
		b.ref4(ret)
	}
}

func (b *infoBuilder) param(name string, typ uint32) {
	b.buf.WriteByte(0x03)
	b.str(name)
	b.ref4(typ)
}

func (b *infoBuilder) paramNoType(name string) {
	b.buf.WriteByte(0x10)
	b.str(name)
}

func (b *infoBuilder) end() {
	b.buf.WriteByte(0x00)
}

func (b *infoBuilder) bytes() []byte {
	b.end() // compile unit children
	out := b.buf.Bytes()
	binary.LittleEndian.PutUint32(out[0:4], uint32(len(out)-4))
	binary.LittleEndian.PutUint16(out[4:6], 4)
	binary.LittleEndian.PutUint32(out[6:10], 0)
	out[10] = 4
	return out
}

// testBodyRel is the code-section-relative offset of the single body in
// modules built by buildTestModule: count byte plus body-size byte.
const testBodyRel = 2

func appendSection(buf *bytes.Buffer, id byte, payload []byte) {
	buf.WriteByte(id)
	buf.Write(wasm.EncodeLEB128u(uint32(len(payload))))
	buf.Write(payload)
}

func appendCustom(buf *bytes.Buffer, name string, content []byte) {
	var payload bytes.Buffer
	payload.Write(wasm.EncodeLEB128u(uint32(len(name))))
	payload.WriteString(name)
	payload.Write(content)
	appendSection(buf, 0, payload.Bytes())
}

// buildTestModule assembles a module with one function of type
// (i32) -> i32 whose body is [local.get 0, end], plus the given debug
// sections and optional function names.
func buildTestModule(info, abbrev []byte, names map[uint32]string) []byte {
	var buf bytes.Buffer
	buf.Write([]byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00})
	appendSection(&buf, 1, []byte{0x01, 0x60, 0x01, 0x7F, 0x01, 0x7F})
	appendSection(&buf, 3, []byte{0x01, 0x00})
	body := append([]byte{0x00}, wasm.EncodeInstructions([]wasm.Instruction{
		{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: 0}},
		{Opcode: wasm.OpEnd},
	})...)
	appendSection(&buf, 10, append([]byte{0x01, byte(len(body))}, body...))
	if abbrev != nil {
		appendCustom(&buf, ".debug_abbrev", abbrev)
	}
	if info != nil {
		appendCustom(&buf, ".debug_info", info)
	}
	if names != nil {
		var sub bytes.Buffer
		sub.Write(wasm.EncodeLEB128u(uint32(len(names))))
		for idx, name := range names {
			sub.Write(wasm.EncodeLEB128u(idx))
			sub.Write(wasm.EncodeLEB128u(uint32(len(name))))
			sub.WriteString(name)
		}
		var content bytes.Buffer
		content.WriteByte(1) // function names subsection
		content.Write(wasm.EncodeLEB128u(uint32(sub.Len())))
		content.Write(sub.Bytes())
		appendCustom(&buf, "name", content.Bytes())
	}
	return buf.Bytes()
}
