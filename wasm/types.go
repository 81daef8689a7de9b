package wasm

import (
	"bytes"
)

// Module represents the slice of a WebAssembly binary the extractor needs:
// function signatures, function bodies with their file offsets, custom
// sections and the decoded function-name map.
type Module struct {
	// Types holds the type section entries. Non-function forms (GC types)
	// are kept as nil placeholders so type indices stay aligned; they only
	// become an error if a function references one.
	Types []*FuncType

	// Functions holds the local (non-imported) functions in declaration
	// order, each with its resolved signature and raw body.
	Functions []Function

	// NumImportedFuncs is the number of imported functions. Local function
	// indices start after them.
	NumImportedFuncs uint32

	// CodeSectionOffset is the absolute file offset of the code section
	// payload (the body-count field). Zero when no code section exists.
	CodeSectionOffset int

	// CustomSections maps custom section names to their raw payloads.
	CustomSections map[string][]byte

	// FunctionNames maps function indices to names from the "name" custom
	// section. Nil when the section is absent or unparseable.
	FunctionNames map[uint32]string
}

// Function is a local function: its index in the module's function index
// space, its signature and its body.
type Function struct {
	Type FuncType
	Body Body
	Idx  uint32
}

// Body is a function body as stored in the code section: local declarations
// followed by the instruction stream, terminated by an end opcode.
type Body struct {
	// Offset is the absolute file offset of the first body byte (the start
	// of the local declarations, right after the body-size field).
	Offset int

	// Bytes is the raw body: locals plus code including the final end.
	Bytes []byte
}

// Instructions decodes the body's instruction stream, skipping the local
// declarations.
func (b Body) Instructions() ([]Instruction, error) {
	r := bytes.NewReader(b.Bytes)
	if err := skipLocalDecls(r); err != nil {
		return nil, err
	}
	return DecodeInstructions(b.Bytes[len(b.Bytes)-r.Len():])
}

func skipLocalDecls(r *bytes.Reader) error {
	groups, err := ReadLEB128u(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < groups; i++ {
		if _, err := ReadLEB128u(r); err != nil {
			return err
		}
		t, err := r.ReadByte()
		if err != nil {
			return err
		}
		// Typed references carry a heap type after the leading byte.
		if t == byte(ValRefNull) || t == byte(ValRef) {
			if _, err := ReadLEB128s64(r); err != nil {
				return err
			}
		}
	}
	return nil
}

// FuncType represents a WebAssembly function signature with parameter and
// result types.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

// ValType represents a WebAssembly value type.
// See constants.go for ValI32, ValI64, ValF32, ValF64, etc.
type ValType byte

func (v ValType) String() string {
	switch v {
	case ValI32:
		return "i32"
	case ValI64:
		return "i64"
	case ValF32:
		return "f32"
	case ValF64:
		return "f64"
	case ValV128:
		return "v128"
	case ValFuncRef:
		return "funcref"
	case ValExtern:
		return "externref"
	case ValExnRef:
		return "exnref"
	case ValAnyRef:
		return "anyref"
	case ValEqRef:
		return "eqref"
	case ValI31Ref:
		return "i31ref"
	case ValStructRef:
		return "structref"
	case ValArrayRef:
		return "arrayref"
	case ValNullRef:
		return "nullref"
	case ValNullExternRef:
		return "nullexternref"
	case ValNullFuncRef:
		return "nullfuncref"
	case ValRefNull:
		return "ref null"
	case ValRef:
		return "ref"
	default:
		return "unknown"
	}
}

// ExtValType represents an extended value type that can include reference
// types with heap type information (typed select operands).
type ExtValType struct {
	Kind    byte    // ExtValKindSimple or ExtValKindRef
	ValType ValType // For simple types
	RefType RefType // For reference types (0x63, 0x64)
}

// Extended value type kinds
const (
	ExtValKindSimple byte = 0 // Simple valtype (single byte)
	ExtValKindRef    byte = 1 // Reference type with heap type
)

// RefType represents a reference type with nullable flag and heap type
type RefType struct {
	Nullable bool
	HeapType int64 // Encoded as s33: negative for abstract types, positive for type indices
}
