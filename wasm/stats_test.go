package wasm_test

import (
	"crypto/sha256"
	"testing"

	"github.com/wasmlab/typecorpus/wasm"
)

// statsBody prefixes an empty locals declaration to the encoded stream.
func statsBody(instrs ...wasm.Instruction) []byte {
	return append([]byte{0x00}, wasm.EncodeInstructions(instrs)...)
}

func statsModule(t *testing.T, body []byte) *wasm.BinaryStats {
	t.Helper()
	buf := header()
	sec(buf, 1, []byte{0x01, 0x60, 0x01, 0x7F, 0x01, 0x7F})
	sec(buf, 3, []byte{0x01, 0x00})
	code := append([]byte{0x01, byte(len(body))}, body...)
	sec(buf, 10, code)

	s, err := wasm.Stats("test.wasm", buf.Bytes())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	return s
}

func TestStats(t *testing.T) {
	body := statsBody(
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: 0}},
		wasm.Instruction{Opcode: wasm.OpI32Add},
		wasm.Instruction{Opcode: wasm.OpEnd},
	)
	s := statsModule(t, body)

	if s.Path != "test.wasm" {
		t.Errorf("path = %q", s.Path)
	}
	if s.FunctionBodies != 1 {
		t.Errorf("bodies = %d, want 1", s.FunctionBodies)
	}
	if s.FunctionBodyBytes != len(body) {
		t.Errorf("body bytes = %d, want %d", s.FunctionBodyBytes, len(body))
	}
	if s.InstructionCount != 3 {
		t.Errorf("instructions = %d, want 3", s.InstructionCount)
	}
	if s.FileSize == 0 {
		t.Error("file size not recorded")
	}
	if len(s.SignatureHex()) != sha256.Size*2 {
		t.Errorf("signature hex length = %d", len(s.SignatureHex()))
	}
}

func TestStatsSignatureIgnoresOperands(t *testing.T) {
	a := statsModule(t, statsBody(
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: 0}},
		wasm.Instruction{Opcode: wasm.OpI32Add},
		wasm.Instruction{Opcode: wasm.OpEnd},
	))
	// Different local index.
	b := statsModule(t, statsBody(
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: 1}},
		wasm.Instruction{Opcode: wasm.OpI32Add},
		wasm.Instruction{Opcode: wasm.OpEnd},
	))
	// i32.sub instead of i32.add.
	c := statsModule(t, statsBody(
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: 0}},
		wasm.Instruction{Opcode: wasm.OpI32Sub},
		wasm.Instruction{Opcode: wasm.OpEnd},
	))

	if a.Signature != b.Signature {
		t.Error("operand change altered the structural signature")
	}
	if a.Signature == c.Signature {
		t.Error("mnemonic change did not alter the structural signature")
	}
	if a.FileSHA256 == b.FileSHA256 {
		t.Error("different files share a content hash")
	}
}

func TestStatsSignatureSeesBodyBoundaries(t *testing.T) {
	one := statsModule(t, statsBody(
		wasm.Instruction{Opcode: wasm.OpI32Add},
		wasm.Instruction{Opcode: wasm.OpI32Add},
		wasm.Instruction{Opcode: wasm.OpEnd},
	))

	buf := header()
	sec(buf, 1, []byte{0x01, 0x60, 0x01, 0x7F, 0x01, 0x7F})
	sec(buf, 3, []byte{0x02, 0x00, 0x00})
	sec(buf, 10, []byte{
		0x02,
		0x03, 0x00, 0x6A, 0x0B,
		0x03, 0x00, 0x6A, 0x0B,
	})
	two, err := wasm.Stats("two.wasm", buf.Bytes())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}

	if one.Signature == two.Signature {
		t.Error("signature must hash per-body, not one flat mnemonic stream")
	}
	if two.FunctionBodies != 2 {
		t.Errorf("bodies = %d, want 2", two.FunctionBodies)
	}
}
