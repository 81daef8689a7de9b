package wasm

import (
	"bytes"
	"io"

	"github.com/wasmlab/typecorpus/errors"
	"github.com/wasmlab/typecorpus/wasm/internal/binary"
)

// ParseModule decodes the sections relevant to extraction: type, import,
// function, code and custom. Everything else is skipped by its declared
// size. Body byte offsets are absolute positions in data so they can be
// correlated with DWARF code addresses.
func ParseModule(data []byte) (*Module, error) {
	if !IsWasm(data) {
		return nil, errors.MalformedModule("bad magic bytes or version")
	}

	r := binary.NewReader(bytes.NewReader(data))
	if _, err := r.ReadBytes(8); err != nil {
		return nil, errors.MalformedModule("truncated header")
	}

	m := &Module{CustomSections: map[string][]byte{}}
	var funcTypeIdxs []uint32
	var bodies []Body
	sawCode := false

	for {
		id, err := r.ReadByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(errors.PhaseDecode, errors.KindMalformedModule, err, "read section id")
		}
		size, err := r.ReadU32()
		if err != nil {
			return nil, errors.Wrap(errors.PhaseDecode, errors.KindMalformedModule, err, "read section size")
		}
		payloadStart := r.Position()
		end := payloadStart + int(size)
		if end > len(data) {
			return nil, errors.MalformedModule("section %d extends past end of file", id)
		}

		switch id {
		case SectionType:
			if err := parseTypeSection(r, m); err != nil {
				return nil, err
			}

		case SectionImport:
			n, err := parseImportSection(r)
			if err != nil {
				return nil, err
			}
			m.NumImportedFuncs = n

		case SectionFunction:
			count, err := r.ReadU32()
			if err != nil {
				return nil, errors.Wrap(errors.PhaseDecode, errors.KindMalformedModule, err, "function section count")
			}
			funcTypeIdxs = make([]uint32, count)
			for i := range funcTypeIdxs {
				funcTypeIdxs[i], err = r.ReadU32()
				if err != nil {
					return nil, errors.Wrap(errors.PhaseDecode, errors.KindMalformedModule, err, "function section entry")
				}
			}

		case SectionCode:
			if sawCode {
				return nil, errors.MalformedModule("duplicate code section")
			}
			sawCode = true
			m.CodeSectionOffset = payloadStart
			bodies, err = parseCodeSection(r, data, end)
			if err != nil {
				return nil, err
			}

		case SectionCustom:
			name, err := r.ReadName()
			if err != nil {
				return nil, errors.Wrap(errors.PhaseDecode, errors.KindMalformedModule, err, "custom section name")
			}
			if r.Position() > end {
				return nil, errors.MalformedModule("custom section name overruns section")
			}
			m.CustomSections[name] = data[r.Position():end]
		}

		if err := r.Reset(end); err != nil {
			return nil, errors.Wrap(errors.PhaseDecode, errors.KindMalformedModule, err, "seek past section")
		}
	}

	if len(funcTypeIdxs) > 0 && !sawCode {
		return nil, errors.MalformedModule("module declares functions but has no code section")
	}
	if len(bodies) != len(funcTypeIdxs) {
		return nil, errors.MalformedModule("function section declares %d functions, code section has %d bodies",
			len(funcTypeIdxs), len(bodies))
	}

	m.Functions = make([]Function, len(bodies))
	for i, tIdx := range funcTypeIdxs {
		if int(tIdx) >= len(m.Types) {
			return nil, errors.MalformedModule("function %d references type %d, only %d types", i, tIdx, len(m.Types))
		}
		ft := m.Types[tIdx]
		if ft == nil {
			return nil, errors.MalformedModule("function %d references non-function type %d", i, tIdx)
		}
		m.Functions[i] = Function{
			Idx:  m.NumImportedFuncs + uint32(i),
			Type: *ft,
			Body: bodies[i],
		}
	}

	names, err := parseNameSection(m.CustomSections["name"])
	if err != nil {
		return nil, err
	}
	m.FunctionNames = names

	return m, nil
}

func parseTypeSection(r *binary.Reader, m *Module) error {
	count, err := r.ReadU32()
	if err != nil {
		return errors.Wrap(errors.PhaseDecode, errors.KindMalformedModule, err, "type section count")
	}
	m.Types = make([]*FuncType, 0, count)
	for i := uint32(0); i < count; i++ {
		if err := parseTypeEntry(r, m); err != nil {
			return err
		}
	}
	return nil
}

// parseTypeEntry decodes one type section entry. Function types are kept;
// GC forms are skipped but hold their place in the type index space with a
// nil entry. Rec groups expand into one slot per member.
func parseTypeEntry(r *binary.Reader, m *Module) error {
	form, err := r.ReadByte()
	if err != nil {
		return errors.Wrap(errors.PhaseDecode, errors.KindMalformedModule, err, "type entry form")
	}

	switch form {
	case FuncTypeByte:
		ft, err := parseFuncType(r)
		if err != nil {
			return err
		}
		m.Types = append(m.Types, ft)

	case StructTypeByte:
		fields, err := r.ReadU32()
		if err != nil {
			return errors.Wrap(errors.PhaseDecode, errors.KindMalformedModule, err, "struct field count")
		}
		for i := uint32(0); i < fields; i++ {
			if err := skipFieldType(r); err != nil {
				return err
			}
		}
		m.Types = append(m.Types, nil)

	case ArrayTypeByte:
		if err := skipFieldType(r); err != nil {
			return err
		}
		m.Types = append(m.Types, nil)

	case SubTypeByte, SubFinalByte:
		parents, err := r.ReadU32()
		if err != nil {
			return errors.Wrap(errors.PhaseDecode, errors.KindMalformedModule, err, "subtype parent count")
		}
		for i := uint32(0); i < parents; i++ {
			if _, err := r.ReadU32(); err != nil {
				return errors.Wrap(errors.PhaseDecode, errors.KindMalformedModule, err, "subtype parent")
			}
		}
		return parseTypeEntry(r, m)

	case RecTypeByte:
		members, err := r.ReadU32()
		if err != nil {
			return errors.Wrap(errors.PhaseDecode, errors.KindMalformedModule, err, "rec group count")
		}
		for i := uint32(0); i < members; i++ {
			if err := parseTypeEntry(r, m); err != nil {
				return err
			}
		}

	default:
		return errors.MalformedModule("unknown type form 0x%02x", form)
	}
	return nil
}

func parseFuncType(r *binary.Reader) (*FuncType, error) {
	params, err := parseValTypeVec(r)
	if err != nil {
		return nil, err
	}
	results, err := parseValTypeVec(r)
	if err != nil {
		return nil, err
	}
	return &FuncType{Params: params, Results: results}, nil
}

func parseValTypeVec(r *binary.Reader) ([]ValType, error) {
	count, err := r.ReadU32()
	if err != nil {
		return nil, errors.Wrap(errors.PhaseDecode, errors.KindMalformedModule, err, "value type count")
	}
	types := make([]ValType, count)
	for i := range types {
		vt, err := parseValType(r)
		if err != nil {
			return nil, err
		}
		types[i] = vt
	}
	return types, nil
}

// parseValType reads a value type, consuming the trailing heap type of
// typed references. Only the leading byte is kept.
func parseValType(r *binary.Reader) (ValType, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, errors.Wrap(errors.PhaseDecode, errors.KindMalformedModule, err, "value type")
	}
	if b == byte(ValRefNull) || b == byte(ValRef) {
		if _, err := r.ReadS64(); err != nil {
			return 0, errors.Wrap(errors.PhaseDecode, errors.KindMalformedModule, err, "heap type")
		}
	}
	return ValType(b), nil
}

// skipFieldType consumes a GC field type: a storage type (a value type or a
// packed i8/i16 byte) followed by a mutability flag.
func skipFieldType(r *binary.Reader) error {
	if _, err := parseValType(r); err != nil {
		return err
	}
	if _, err := r.ReadByte(); err != nil { // mutability
		return errors.Wrap(errors.PhaseDecode, errors.KindMalformedModule, err, "field mutability")
	}
	return nil
}

// parseImportSection walks the imports far enough to count the imported
// functions, which offset the local function index space.
func parseImportSection(r *binary.Reader) (uint32, error) {
	count, err := r.ReadU32()
	if err != nil {
		return 0, errors.Wrap(errors.PhaseDecode, errors.KindMalformedModule, err, "import section count")
	}
	var funcs uint32
	for i := uint32(0); i < count; i++ {
		if _, err := r.ReadName(); err != nil {
			return 0, errors.Wrap(errors.PhaseDecode, errors.KindMalformedModule, err, "import module name")
		}
		if _, err := r.ReadName(); err != nil {
			return 0, errors.Wrap(errors.PhaseDecode, errors.KindMalformedModule, err, "import field name")
		}
		kind, err := r.ReadByte()
		if err != nil {
			return 0, errors.Wrap(errors.PhaseDecode, errors.KindMalformedModule, err, "import kind")
		}
		switch kind {
		case KindFunc:
			if _, err := r.ReadU32(); err != nil {
				return 0, errors.Wrap(errors.PhaseDecode, errors.KindMalformedModule, err, "import type index")
			}
			funcs++
		case KindTable:
			if _, err := parseValType(r); err != nil {
				return 0, err
			}
			if err := skipLimits(r); err != nil {
				return 0, err
			}
		case KindMemory:
			if err := skipLimits(r); err != nil {
				return 0, err
			}
		case KindGlobal:
			if _, err := parseValType(r); err != nil {
				return 0, err
			}
			if _, err := r.ReadByte(); err != nil { // mutability
				return 0, errors.Wrap(errors.PhaseDecode, errors.KindMalformedModule, err, "global mutability")
			}
		case KindTag:
			if _, err := r.ReadByte(); err != nil { // attribute
				return 0, errors.Wrap(errors.PhaseDecode, errors.KindMalformedModule, err, "tag attribute")
			}
			if _, err := r.ReadU32(); err != nil {
				return 0, errors.Wrap(errors.PhaseDecode, errors.KindMalformedModule, err, "tag type index")
			}
		default:
			return 0, errors.MalformedModule("unknown import kind 0x%02x", kind)
		}
	}
	return funcs, nil
}

func skipLimits(r *binary.Reader) error {
	flags, err := r.ReadByte()
	if err != nil {
		return errors.Wrap(errors.PhaseDecode, errors.KindMalformedModule, err, "limits flags")
	}
	if _, err := r.ReadU64(); err != nil {
		return errors.Wrap(errors.PhaseDecode, errors.KindMalformedModule, err, "limits min")
	}
	if flags&0x1 != 0 {
		if _, err := r.ReadU64(); err != nil {
			return errors.Wrap(errors.PhaseDecode, errors.KindMalformedModule, err, "limits max")
		}
	}
	return nil
}

// parseCodeSection records, for each body, its absolute offset and raw
// bytes. Bodies are not decoded here; Body.Instructions does that lazily.
func parseCodeSection(r *binary.Reader, data []byte, end int) ([]Body, error) {
	count, err := r.ReadU32()
	if err != nil {
		return nil, errors.Wrap(errors.PhaseDecode, errors.KindMalformedModule, err, "code section count")
	}
	bodies := make([]Body, 0, count)
	for i := uint32(0); i < count; i++ {
		size, err := r.ReadU32()
		if err != nil {
			return nil, errors.Wrap(errors.PhaseDecode, errors.KindMalformedModule, err, "body size")
		}
		offset := r.Position()
		if offset+int(size) > end {
			return nil, errors.MalformedModule("body %d overruns code section", i)
		}
		bodies = append(bodies, Body{
			Offset: offset,
			Bytes:  data[offset : offset+int(size)],
		})
		if err := r.Reset(offset + int(size)); err != nil {
			return nil, errors.Wrap(errors.PhaseDecode, errors.KindMalformedModule, err, "seek past body")
		}
	}
	return bodies, nil
}

// Name section subsection kinds.
const (
	nameSubsectionModule   byte = 0
	nameSubsectionFunction byte = 1
	nameSubsectionLocal    byte = 2
)

// parseNameSection extracts the function-name map from a "name" custom
// section payload. The section is optional tooling metadata, so a malformed
// subsection header or an unknown subsection kind stops parsing without an
// error. A malformed function-name map is an error: either the map is
// usable or the whole section is suspect.
func parseNameSection(payload []byte) (map[uint32]string, error) {
	if payload == nil {
		return nil, nil
	}
	r := binary.NewReader(bytes.NewReader(payload))
	var names map[uint32]string
	for {
		kind, err := r.ReadByte()
		if err != nil {
			break
		}
		size, err := r.ReadU32()
		if err != nil {
			break
		}
		end := r.Position() + int(size)
		if end > len(payload) {
			break
		}
		switch kind {
		case nameSubsectionModule, nameSubsectionLocal:
			// Skipped.
		case nameSubsectionFunction:
			count, err := r.ReadU32()
			if err != nil {
				return nil, errors.Wrap(errors.PhaseDecode, errors.KindMalformedModule, err, "function name count")
			}
			if names == nil {
				names = make(map[uint32]string, count)
			}
			for i := uint32(0); i < count; i++ {
				idx, err := r.ReadU32()
				if err != nil {
					return nil, errors.Wrap(errors.PhaseDecode, errors.KindMalformedModule, err, "function name index")
				}
				name, err := r.ReadName()
				if err != nil {
					return nil, errors.Wrap(errors.PhaseDecode, errors.KindMalformedModule, err, "function name")
				}
				if prev, ok := names[idx]; ok {
					return nil, errors.Duplicate(errors.PhaseDecode, "function %d named both %q and %q", idx, prev, name)
				}
				names[idx] = name
			}
		default:
			return names, nil
		}
		if err := r.Reset(end); err != nil {
			break
		}
	}
	return names, nil
}
