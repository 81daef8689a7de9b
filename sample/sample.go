// Package sample matches wasm function bodies with their DWARF
// descriptions and turns the pairs into training examples: a textual
// rendering of the body on one side, a flattened type token sequence on
// the other.
package sample

import (
	"os"

	"github.com/wasmlab/typecorpus/dwarf"
	"github.com/wasmlab/typecorpus/errors"
	"github.com/wasmlab/typecorpus/wasm"
)

// Role says which value of the function a sample describes: one
// positional parameter or the single return value.
type Role struct {
	IsReturn  bool
	ParamIdx  uint32
	ParamName string
}

// Sample is one training example. B and T are refined as the pipeline
// progresses: the matcher emits raw bodies and DWARF cursors, the
// producers replace them with a rendered body string and a token
// sequence.
type Sample[B, T any] struct {
	File              string
	CompilationUnit   string
	FunctionIdx       uint32
	FunctionNameWasm  string
	FunctionNameDwarf string
	Role              Role
	WasmType          wasm.ValType
	Body              B
	Type              T
}

// RawSample is the matcher's output: body bytes undecoded, type still a
// DWARF cursor (nil when the parameter declared no type).
type RawSample = Sample[wasm.Body, *dwarf.Entry]

// FromFile reads one wasm binary and extracts its raw samples.
func FromFile(path string) ([]RawSample, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Load("read file", err)
	}
	return FromData(path, data)
}

// FromData matches each local function against the DWARF subprogram at
// its code-section-relative offset. A function survives only when both
// sides agree on the parameter count; parameters are zipped by position.
// A return sample needs both a single wasm result and a DWARF return
// type, but a disagreement there only withholds the return sample, not
// the function's parameters.
func FromData(path string, data []byte) ([]RawSample, error) {
	m, err := wasm.ParseModule(data)
	if err != nil {
		return nil, err
	}
	d, err := dwarf.FromModule(m)
	if err != nil {
		return nil, err
	}
	idx, err := dwarf.BuildFuncIndex(d)
	if err != nil {
		return nil, err
	}

	var out []RawSample
	for _, fn := range m.Functions {
		rel := uint64(fn.Body.Offset - m.CodeSectionOffset)
		df, ok := idx.Take(rel)
		if !ok {
			continue
		}
		if len(fn.Type.Params) != len(df.Params) {
			continue
		}

		nameWasm := m.FunctionNames[fn.Idx]
		delete(m.FunctionNames, fn.Idx)

		base := RawSample{
			File:              path,
			CompilationUnit:   df.CompilationUnit,
			FunctionIdx:       fn.Idx,
			FunctionNameWasm:  nameWasm,
			FunctionNameDwarf: df.Name,
			Body:              fn.Body,
		}
		for i, p := range df.Params {
			s := base
			s.Role = Role{ParamIdx: uint32(i), ParamName: p.Name}
			s.WasmType = fn.Type.Params[i]
			s.Type = p.Type
			out = append(out, s)
		}
		if len(fn.Type.Results) == 1 && df.ReturnType != nil {
			s := base
			s.Role = Role{IsReturn: true}
			s.WasmType = fn.Type.Results[0]
			s.Type = df.ReturnType
			out = append(out, s)
		}
	}
	return out, nil
}
