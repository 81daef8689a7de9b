package dwarf

import (
	dw "debug/dwarf"

	"github.com/wasmlab/typecorpus/errors"
)

// Param is a resolved formal parameter: its declared name (empty when the
// producer omitted it) and the cursor of its type entry, nil when neither
// the parameter nor its abstract origin declares one.
type Param struct {
	Name string
	Type *Entry
}

// Function is a subprogram resolved through its abstract origin, indexed
// by its DW_AT_low_pc code offset.
type Function struct {
	CompilationUnit string
	Name            string
	Params          []Param
	ReturnType      *Entry
}

// FuncIndex maps code offsets to resolved subprograms. Lookups remove the
// entry, so one DWARF function matches at most one wasm body.
type FuncIndex struct {
	funcs map[uint64]Function
}

// Len returns the number of unmatched functions left in the index.
func (x *FuncIndex) Len() int {
	return len(x.funcs)
}

// Take removes and returns the function at the given code offset.
func (x *FuncIndex) Take(off uint64) (Function, bool) {
	f, ok := x.funcs[off]
	if ok {
		delete(x.funcs, off)
	}
	return f, ok
}

// BuildFuncIndex walks every unit and indexes subprograms by DW_AT_low_pc.
//
// Producers sometimes emit several subprograms for the same offset
// (merged or deduplicated functions). The first entry wins; later ones
// are only compared for shape (name, parameter count, return presence).
// A shape mismatch poisons the offset: offset 0 is a known artifact of
// stripped entries and is silently dropped, any other poisoned offset
// fails the whole binary since samples from it would be unreliable.
func BuildFuncIndex(d *Data) (*FuncIndex, error) {
	funcs := make(map[uint64]Function)
	inconsistent := make(map[uint64]bool)
	cuName := ""

	r := d.dw.Reader()
	for {
		ent, err := r.Next()
		if err != nil {
			return nil, errors.Wrap(errors.PhaseDebugInfo, errors.KindMalformedDebugInfo, err, "walk entries")
		}
		if ent == nil {
			break
		}

		switch ent.Tag {
		case dw.TagCompileUnit:
			if s, ok := ent.Val(dw.AttrName).(string); ok {
				cuName = s
			} else {
				cuName = ""
			}

		case dw.TagSubprogram:
			f := ent.AttrField(dw.AttrLowpc)
			if f == nil {
				continue
			}
			if f.Class != dw.ClassAddress {
				return nil, errors.Unsupported(errors.PhaseDebugInfo, "DW_AT_low_pc with non-address class")
			}
			pc, ok := f.Val.(uint64)
			if !ok {
				return nil, errors.MalformedDebugInfo("address attribute holds %T", f.Val)
			}

			fn, err := d.resolveFunction(d.entryAt(ent.Offset, ent.Tag))
			if err != nil {
				return nil, err
			}
			fn.CompilationUnit = cuName

			if prev, dup := funcs[pc]; dup {
				if !sameShape(prev, fn) {
					inconsistent[pc] = true
				}
				continue
			}
			funcs[pc] = fn
		}
	}

	poisoned := 0
	for pc := range inconsistent {
		delete(funcs, pc)
		if pc != 0 {
			poisoned++
		}
	}
	if poisoned > 0 {
		return nil, errors.Duplicate(errors.PhaseDebugInfo,
			"%d code offsets with conflicting duplicate subprograms", poisoned)
	}

	return &FuncIndex{funcs: funcs}, nil
}

func sameShape(a, b Function) bool {
	return a.Name == b.Name &&
		len(a.Params) == len(b.Params) &&
		(a.ReturnType == nil) == (b.ReturnType == nil)
}

// maxOriginDepth bounds DW_AT_abstract_origin chains so malformed
// debug info cannot send resolution into a cycle.
const maxOriginDepth = 16

// resolveFunction gathers a subprogram's name, parameters and return
// type. An entry with DW_AT_abstract_origin describes an inlined or
// out-of-line instance; the description lives on the origin, so
// resolution restarts there and the concrete entry contributes nothing.
func (d *Data) resolveFunction(e Entry) (Function, error) {
	return d.resolveFunctionAt(e, 0)
}

func (d *Data) resolveFunctionAt(e Entry, depth int) (Function, error) {
	if depth > maxOriginDepth {
		return Function{}, errors.MalformedDebugInfo("abstract origin chain deeper than %d", maxOriginDepth)
	}
	origin, err := e.AttrEntry(dw.AttrAbstractOrigin)
	if err != nil {
		return Function{}, err
	}
	if origin != nil {
		return d.resolveFunctionAt(*origin, depth+1)
	}

	var fn Function
	fn.Name, _, err = e.AttrString(dw.AttrName)
	if err != nil {
		return Function{}, err
	}

	params, err := formalParams(e)
	if err != nil {
		return Function{}, err
	}
	fn.Params = make([]Param, len(params))
	for i, p := range params {
		fn.Params[i], err = resolveParam(p)
		if err != nil {
			return Function{}, err
		}
	}

	fn.ReturnType, err = e.AttrEntry(dw.AttrType)
	if err != nil {
		return Function{}, err
	}

	return fn, nil
}

func formalParams(e Entry) ([]Entry, error) {
	children, err := e.Children()
	if err != nil {
		return nil, err
	}
	var params []Entry
	for _, c := range children {
		if c.Tag == dw.TagFormalParameter {
			params = append(params, c)
		}
	}
	return params, nil
}

// resolveParam reads a parameter's name and type, chasing the parameter's
// own abstract origin when the concrete entry carries neither.
func resolveParam(e Entry) (Param, error) {
	origin, err := e.AttrEntry(dw.AttrAbstractOrigin)
	if err != nil {
		return Param{}, err
	}

	name, ok, err := e.AttrString(dw.AttrName)
	if err != nil {
		return Param{}, err
	}
	if !ok && origin != nil {
		name, _, err = origin.AttrString(dw.AttrName)
		if err != nil {
			return Param{}, err
		}
	}

	typ, err := e.AttrEntry(dw.AttrType)
	if err != nil {
		return Param{}, err
	}
	if typ == nil && origin != nil {
		typ, err = origin.AttrEntry(dw.AttrType)
		if err != nil {
			return Param{}, err
		}
	}

	return Param{Name: name, Type: typ}, nil
}
