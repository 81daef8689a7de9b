package wasm_test

import (
	"bytes"
	"context"
	"testing"

	goerrors "errors"

	"github.com/tetratelabs/wazero"

	"github.com/wasmlab/typecorpus/errors"
	"github.com/wasmlab/typecorpus/wasm"
)

func sec(buf *bytes.Buffer, id byte, payload []byte) {
	buf.WriteByte(id)
	buf.Write(wasm.EncodeLEB128u(uint32(len(payload))))
	buf.Write(payload)
}

func custom(buf *bytes.Buffer, name string, content []byte) {
	var p bytes.Buffer
	p.Write(wasm.EncodeLEB128u(uint32(len(name))))
	p.WriteString(name)
	p.Write(content)
	sec(buf, 0, p.Bytes())
}

func header() *bytes.Buffer {
	var buf bytes.Buffer
	buf.Write([]byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00})
	return &buf
}

func TestIsWasm(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{"valid", []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00, 0xFF}, true},
		{"exact header", []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}, true},
		{"short", []byte{0x00, 0x61, 0x73}, false},
		{"wrong version", []byte{0x00, 0x61, 0x73, 0x6D, 0x02, 0x00, 0x00, 0x00}, false},
		{"empty", nil, false},
		{"text", []byte("(module)"), false},
	}
	for _, tt := range tests {
		if got := wasm.IsWasm(tt.data); got != tt.want {
			t.Errorf("%s: IsWasm = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestParseModule(t *testing.T) {
	buf := header()
	// Two type entries: a func type and a GC struct placeholder.
	sec(buf, 1, []byte{
		0x02,
		0x60, 0x02, 0x7F, 0x7F, 0x01, 0x7F, // (i32, i32) -> i32
		0x5F, 0x01, 0x7F, 0x00, // struct with one immutable i32 field
	})
	// One imported function and one imported memory.
	sec(buf, 2, []byte{
		0x02,
		0x03, 'e', 'n', 'v', 0x01, 'f', 0x00, 0x00,
		0x03, 'e', 'n', 'v', 0x01, 'm', 0x02, 0x00, 0x01,
	})
	sec(buf, 3, []byte{0x01, 0x00})
	sec(buf, 6, []byte{0x00}) // global section, skipped by size
	codeStart := buf.Len() + 2
	sec(buf, 10, []byte{0x01, 0x04, 0x00, 0x20, 0x00, 0x0B})
	custom(buf, "producers", []byte{0xAA, 0xBB})
	// Function names subsection mapping global index 1 to "add".
	custom(buf, "name", []byte{0x01, 0x06, 0x01, 0x01, 0x03, 'a', 'd', 'd'})

	m, err := wasm.ParseModule(buf.Bytes())
	if err != nil {
		t.Fatalf("ParseModule: %v", err)
	}

	if m.NumImportedFuncs != 1 {
		t.Errorf("imported funcs = %d, want 1", m.NumImportedFuncs)
	}
	if len(m.Types) != 2 || m.Types[0] == nil || m.Types[1] != nil {
		t.Errorf("types = %v, want func type then nil placeholder", m.Types)
	}
	if got := len(m.Types[0].Params); got != 2 {
		t.Errorf("param count = %d, want 2", got)
	}
	if m.CodeSectionOffset != codeStart {
		t.Errorf("code section offset = %d, want %d", m.CodeSectionOffset, codeStart)
	}
	if len(m.Functions) != 1 {
		t.Fatalf("function count = %d, want 1", len(m.Functions))
	}
	fn := m.Functions[0]
	if fn.Idx != 1 {
		t.Errorf("function index = %d, want 1 (after import)", fn.Idx)
	}
	if fn.Body.Offset != codeStart+2 {
		t.Errorf("body offset = %d, want %d", fn.Body.Offset, codeStart+2)
	}
	if !bytes.Equal(fn.Body.Bytes, []byte{0x00, 0x20, 0x00, 0x0B}) {
		t.Errorf("body bytes = %x", fn.Body.Bytes)
	}
	if !bytes.Equal(m.CustomSections["producers"], []byte{0xAA, 0xBB}) {
		t.Errorf("custom section = %x", m.CustomSections["producers"])
	}
	if m.FunctionNames[1] != "add" {
		t.Errorf("function names = %v", m.FunctionNames)
	}

	instrs, err := fn.Body.Instructions()
	if err != nil {
		t.Fatalf("Instructions: %v", err)
	}
	if len(instrs) != 2 {
		t.Errorf("instruction count = %d, want 2 (local.get, end)", len(instrs))
	}
}

func TestParseModuleLocalsSkipped(t *testing.T) {
	buf := header()
	sec(buf, 1, []byte{0x01, 0x60, 0x00, 0x00})
	sec(buf, 3, []byte{0x01, 0x00})
	// Two locals groups: 2 x i32, 1 x f64, then [local.set 0, end].
	body := []byte{0x02, 0x02, 0x7F, 0x01, 0x7C, 0x21, 0x00, 0x0B}
	code := append([]byte{0x01, byte(len(body))}, body...)
	sec(buf, 10, code)

	m, err := wasm.ParseModule(buf.Bytes())
	if err != nil {
		t.Fatalf("ParseModule: %v", err)
	}
	instrs, err := m.Functions[0].Body.Instructions()
	if err != nil {
		t.Fatalf("Instructions: %v", err)
	}
	if len(instrs) != 2 || instrs[0].Opcode != wasm.OpLocalSet {
		t.Errorf("instructions = %+v, want [local.set, end]", instrs)
	}
}

func TestParseModuleErrors(t *testing.T) {
	funcNoCode := header()
	sec(funcNoCode, 1, []byte{0x01, 0x60, 0x00, 0x00})
	sec(funcNoCode, 3, []byte{0x01, 0x00})

	dupCode := header()
	sec(dupCode, 1, []byte{0x01, 0x60, 0x00, 0x00})
	sec(dupCode, 3, []byte{0x01, 0x00})
	sec(dupCode, 10, []byte{0x01, 0x02, 0x00, 0x0B})
	sec(dupCode, 10, []byte{0x01, 0x02, 0x00, 0x0B})

	countMismatch := header()
	sec(countMismatch, 1, []byte{0x01, 0x60, 0x00, 0x00})
	sec(countMismatch, 3, []byte{0x02, 0x00, 0x00})
	sec(countMismatch, 10, []byte{0x01, 0x02, 0x00, 0x0B})

	badTypeRef := header()
	sec(badTypeRef, 1, []byte{0x01, 0x60, 0x00, 0x00})
	sec(badTypeRef, 3, []byte{0x01, 0x05})
	sec(badTypeRef, 10, []byte{0x01, 0x02, 0x00, 0x0B})

	overrun := header()
	sec(overrun, 1, []byte{0x01, 0x60, 0x00, 0x00})
	overrun.Truncate(overrun.Len() - 2) // section promises more than the file has

	tests := []struct {
		name string
		data []byte
	}{
		{"functions without code", funcNoCode.Bytes()},
		{"duplicate code section", dupCode.Bytes()},
		{"function/code count mismatch", countMismatch.Bytes()},
		{"bad type reference", badTypeRef.Bytes()},
		{"section overruns file", overrun.Bytes()},
		{"not wasm", []byte("hello")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := wasm.ParseModule(tt.data); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestNameSectionBestEffort(t *testing.T) {
	build := func(nameContent []byte) []byte {
		buf := header()
		sec(buf, 1, []byte{0x01, 0x60, 0x00, 0x00})
		sec(buf, 3, []byte{0x01, 0x00})
		sec(buf, 10, []byte{0x01, 0x02, 0x00, 0x0B})
		custom(buf, "name", nameContent)
		return buf.Bytes()
	}

	// An unknown subsection kind after the function names stops parsing
	// silently, keeping what was already decoded.
	m, err := wasm.ParseModule(build([]byte{
		0x01, 0x05, 0x01, 0x00, 0x02, 'f', '0', // function names: 0 -> "f0"
		0x09, 0x01, 0xFF, // unknown subsection kind 9
	}))
	if err != nil {
		t.Fatalf("ParseModule: %v", err)
	}
	if m.FunctionNames[0] != "f0" {
		t.Errorf("function names = %v", m.FunctionNames)
	}

	// A truncated subsection header is ignored entirely.
	m, err = wasm.ParseModule(build([]byte{0x01}))
	if err != nil {
		t.Fatalf("ParseModule: %v", err)
	}
	if len(m.FunctionNames) != 0 {
		t.Errorf("function names = %v, want none", m.FunctionNames)
	}

	// A duplicate function index inside the map is a hard error.
	_, err = wasm.ParseModule(build([]byte{
		0x01, 0x09, 0x02,
		0x00, 0x02, 'f', '0',
		0x00, 0x02, 'g', '0',
	}))
	if err == nil {
		t.Fatal("expected error for duplicate name index")
	}
	var e *errors.Error
	if !goerrors.As(err, &e) || e.Kind != errors.KindDuplicate {
		t.Errorf("error = %v, want kind duplicate", err)
	}
}

// The decode fixtures must be real modules, not just bytes this package
// happens to accept.
func TestFixtureValidatesWithWazero(t *testing.T) {
	buf := header()
	sec(buf, 1, []byte{0x01, 0x60, 0x01, 0x7F, 0x01, 0x7F})
	sec(buf, 3, []byte{0x01, 0x00})
	sec(buf, 10, []byte{0x01, 0x04, 0x00, 0x20, 0x00, 0x0B})
	data := buf.Bytes()

	ctx := context.Background()
	r := wazero.NewRuntime(ctx)
	defer r.Close(ctx)
	compiled, err := r.CompileModule(ctx, data)
	if err != nil {
		t.Fatalf("wazero rejects fixture: %v", err)
	}
	compiled.Close(ctx)

	if _, err := wasm.ParseModule(data); err != nil {
		t.Fatalf("ParseModule: %v", err)
	}
}
