package wasm_test

import (
	"bytes"
	"testing"

	"github.com/wasmlab/typecorpus/wasm"
)

// The extractor only decodes instruction streams; the encoder exists so
// tests across the module can assemble bodies from instruction values
// instead of hand-written byte strings. Round-tripping here keeps the
// two halves honest against each other.
func TestInstructionRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		instr wasm.Instruction
	}{
		{"unreachable", wasm.Instruction{Opcode: wasm.OpUnreachable}},
		{"nop", wasm.Instruction{Opcode: wasm.OpNop}},
		{"block empty", wasm.Instruction{Opcode: wasm.OpBlock, Imm: wasm.BlockImm{Type: -64}}},
		{"loop i32", wasm.Instruction{Opcode: wasm.OpLoop, Imm: wasm.BlockImm{Type: -1}}},
		{"if i64", wasm.Instruction{Opcode: wasm.OpIf, Imm: wasm.BlockImm{Type: -2}}},
		{"else", wasm.Instruction{Opcode: wasm.OpElse}},
		{"end", wasm.Instruction{Opcode: wasm.OpEnd}},
		{"br", wasm.Instruction{Opcode: wasm.OpBr, Imm: wasm.BranchImm{LabelIdx: 0}}},
		{"br_if", wasm.Instruction{Opcode: wasm.OpBrIf, Imm: wasm.BranchImm{LabelIdx: 1}}},
		{"br_table", wasm.Instruction{Opcode: wasm.OpBrTable, Imm: wasm.BrTableImm{Labels: []uint32{0, 1, 2}, Default: 3}}},
		{"return", wasm.Instruction{Opcode: wasm.OpReturn}},
		{"call", wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: 42}}},
		{"call_indirect", wasm.Instruction{Opcode: wasm.OpCallIndirect, Imm: wasm.CallIndirectImm{TypeIdx: 1, TableIdx: 0}}},
		{"return_call", wasm.Instruction{Opcode: wasm.OpReturnCall, Imm: wasm.CallImm{FuncIdx: 10}}},
		{"local.get", wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: 0}}},
		{"local.set", wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: 1}}},
		{"local.tee", wasm.Instruction{Opcode: wasm.OpLocalTee, Imm: wasm.LocalImm{LocalIdx: 2}}},
		{"global.get", wasm.Instruction{Opcode: wasm.OpGlobalGet, Imm: wasm.GlobalImm{GlobalIdx: 0}}},
		{"table.get", wasm.Instruction{Opcode: wasm.OpTableGet, Imm: wasm.TableImm{TableIdx: 0}}},
		{"i32.load", wasm.Instruction{Opcode: wasm.OpI32Load, Imm: wasm.MemoryImm{Align: 2, Offset: 0}}},
		{"i64.store offset", wasm.Instruction{Opcode: wasm.OpI64Store, Imm: wasm.MemoryImm{Align: 3, Offset: 8}}},
		{"memory.size", wasm.Instruction{Opcode: wasm.OpMemorySize, Imm: wasm.MemoryIdxImm{MemIdx: 0}}},
		{"i32.const", wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 42}}},
		{"i32.const negative", wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: -1}}},
		{"i64.const max", wasm.Instruction{Opcode: wasm.OpI64Const, Imm: wasm.I64Imm{Value: 0x7FFFFFFFFFFFFFFF}}},
		{"i64.const min", wasm.Instruction{Opcode: wasm.OpI64Const, Imm: wasm.I64Imm{Value: -0x8000000000000000}}},
		{"f32.const", wasm.Instruction{Opcode: wasm.OpF32Const, Imm: wasm.F32Imm{Value: 3.14}}},
		{"f64.const", wasm.Instruction{Opcode: wasm.OpF64Const, Imm: wasm.F64Imm{Value: 2.71828}}},
		{"ref.null func", wasm.Instruction{Opcode: wasm.OpRefNull, Imm: wasm.RefNullImm{HeapType: -16}}},
		{"ref.func", wasm.Instruction{Opcode: wasm.OpRefFunc, Imm: wasm.RefFuncImm{FuncIdx: 42}}},
		{"select typed", wasm.Instruction{Opcode: wasm.OpSelectType, Imm: wasm.SelectTypeImm{Types: []wasm.ValType{wasm.ValI32}}}},
		{"i32.add", wasm.Instruction{Opcode: wasm.OpI32Add}},
		{"f64.div", wasm.Instruction{Opcode: wasm.OpF64Div}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := wasm.EncodeInstructions([]wasm.Instruction{tt.instr})
			decoded, err := wasm.DecodeInstructions(encoded)
			if err != nil {
				t.Fatalf("decode of %x: %v", encoded, err)
			}
			if len(decoded) != 1 {
				t.Fatalf("instruction count = %d, want 1", len(decoded))
			}
			if decoded[0].Opcode != tt.instr.Opcode {
				t.Errorf("opcode = 0x%02x, want 0x%02x", decoded[0].Opcode, tt.instr.Opcode)
			}
		})
	}
}

// Bodies assembled for fixtures concatenate instructions; make sure the
// stream form round-trips too, not just single instructions.
func TestEncodeInstructionsStream(t *testing.T) {
	instrs := []wasm.Instruction{
		{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: 0}},
		{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 10}},
		{Opcode: wasm.OpI32Add},
		{Opcode: wasm.OpEnd},
	}

	var buf bytes.Buffer
	wasm.EncodeInstructionsTo(&buf, instrs)
	if !bytes.Equal(buf.Bytes(), wasm.EncodeInstructions(instrs)) {
		t.Error("EncodeInstructionsTo and EncodeInstructions disagree")
	}
	if !bytes.Equal(buf.Bytes(), []byte{0x20, 0x00, 0x41, 0x0A, 0x6A, 0x0B}) {
		t.Errorf("encoded stream = %x", buf.Bytes())
	}

	decoded, err := wasm.DecodeInstructions(buf.Bytes())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded) != len(instrs) {
		t.Fatalf("instruction count = %d, want %d", len(decoded), len(instrs))
	}
	for i := range instrs {
		if decoded[i].Opcode != instrs[i].Opcode {
			t.Errorf("instruction %d opcode = 0x%02x, want 0x%02x",
				i, decoded[i].Opcode, instrs[i].Opcode)
		}
	}
}

func TestDecodeUnknownOpcode(t *testing.T) {
	if _, err := wasm.DecodeInstructions([]byte{0xFF}); err == nil {
		t.Error("expected error for unknown opcode 0xFF")
	}
}
