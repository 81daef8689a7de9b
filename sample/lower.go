package sample

import (
	dw "debug/dwarf"
	"fmt"

	"github.com/wasmlab/typecorpus/dwarf"
	"github.com/wasmlab/typecorpus/errors"
)

// LowerType flattens a DWARF type tree into a token sequence. A nil
// cursor stands for a value with no type attribute and lowers to Unknown.
func LowerType(e *dwarf.Entry) (Type, error) {
	t := make(Type, 0, 4)
	if err := lowerInto(&t, e); err != nil {
		return nil, err
	}
	return t, nil
}

func lowerInto(t *Type, e *dwarf.Entry) error {
	if e == nil {
		*t = append(*t, Token{Kind: TokenUnknown})
		return nil
	}

	switch e.Tag {
	case dw.TagBaseType:
		norm, err := normalizePrimitive(e)
		if err != nil {
			return err
		}
		*t = append(*t, Token{Kind: TokenPrimitive, Name: norm})
		return nil

	case dw.TagPointerType, dw.TagReferenceType, dw.TagRvalueReferenceType, dw.TagPtrToMemberType:
		*t = append(*t, Token{Kind: TokenPointer})
		return lowerInner(t, e)

	case dw.TagConstType:
		*t = append(*t, Token{Kind: TokenConst})
		return lowerInner(t, e)

	case dw.TagArrayType:
		*t = append(*t, Token{Kind: TokenArray})
		return lowerInner(t, e)

	case dw.TagVolatileType, dw.TagRestrictType:
		return lowerInner(t, e)

	case dw.TagTypedef:
		name, ok, err := e.AttrString(dw.AttrName)
		if err != nil {
			return err
		}
		if !ok {
			return errors.MalformedDebugInfo("typedef at 0x%x without a name", e.Offset)
		}
		*t = append(*t, Token{Kind: TokenTypedef, Name: name})
		return lowerInner(t, e)

	case dw.TagEnumerationType:
		if err := appendNominal(t, e); err != nil {
			return err
		}
		*t = append(*t, Token{Kind: TokenEnum})
		return lowerInner(t, e)

	case dw.TagStructType:
		return lowerAggregate(t, e, TokenStruct)
	case dw.TagClassType:
		return lowerAggregate(t, e, TokenClass)
	case dw.TagUnionType:
		return lowerAggregate(t, e, TokenUnion)

	case dw.TagSubroutineType:
		*t = append(*t, Token{Kind: TokenFunction})
		return nil

	case dw.TagUnspecifiedType:
		name, _, err := e.AttrString(dw.AttrName)
		if err != nil {
			return err
		}
		if name != "decltype(nullptr)" {
			return errors.Unsupported(errors.PhaseExtract,
				fmt.Sprintf("unspecified type %q", name))
		}
		*t = append(*t, Token{Kind: TokenPointer}, Token{Kind: TokenUnknown})
		return nil
	}

	return errors.Unsupported(errors.PhaseExtract, fmt.Sprintf("type tag %s", e.Tag))
}

// lowerInner descends into DW_AT_type; its absence lowers to Unknown.
func lowerInner(t *Type, e *dwarf.Entry) error {
	inner, err := e.AttrEntry(dw.AttrType)
	if err != nil {
		return err
	}
	return lowerInto(t, inner)
}

// Aggregates contribute their nominal name and tag only, members are
// never visited.
func lowerAggregate(t *Type, e *dwarf.Entry, kind TokenKind) error {
	if err := appendNominal(t, e); err != nil {
		return err
	}
	*t = append(*t, Token{Kind: kind})
	return nil
}

func appendNominal(t *Type, e *dwarf.Entry) error {
	name, ok, err := e.AttrString(dw.AttrName)
	if err != nil {
		return err
	}
	if ok {
		*t = append(*t, Token{Kind: TokenNominal, Name: name})
	}
	return nil
}

// normalizePrimitive collapses source-level spelling onto a fixed set of
// machine-width names keyed on (encoding, byte size) plus, for the 1-byte
// and UTF encodings, the literal source name. Combinations outside the
// table are a hard error so an unhandled source type gets triaged instead
// of silently mis-normalized.
func normalizePrimitive(e *dwarf.Entry) (string, error) {
	name, _, err := e.AttrString(dw.AttrName)
	if err != nil {
		return "", err
	}
	enc, ok, err := e.AttrUint(dw.AttrEncoding)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errors.MalformedDebugInfo("base type %q without an encoding", name)
	}
	size, ok, err := e.AttrUint(dw.AttrByteSize)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errors.MalformedDebugInfo("base type %q without a byte size", name)
	}

	switch enc {
	case dwarf.EncBoolean:
		if size == 1 {
			return "bool", nil
		}
	case dwarf.EncFloat:
		switch size {
		case 4:
			return "float32_t", nil
		case 8:
			return "float64_t", nil
		case 16:
			return "float128_t", nil
		}
	case dwarf.EncComplexFloat:
		if size == 8 || size == 16 {
			return "complex", nil
		}
	case dwarf.EncSigned, dwarf.EncSignedChar:
		if enc == dwarf.EncSignedChar && size == 1 && name == "char" {
			return "char", nil
		}
		if s, ok := intName("int", size); ok {
			return s, nil
		}
	case dwarf.EncUnsigned, dwarf.EncUnsignedChar:
		if enc == dwarf.EncUnsignedChar && size == 1 && name == "char" {
			return "char", nil
		}
		if s, ok := intName("uint", size); ok {
			return s, nil
		}
	case dwarf.EncUTF:
		if size == 2 && name == "char16_t" {
			return "char16_t", nil
		}
		if size == 4 && name == "char32_t" {
			return "char32_t", nil
		}
	}

	return "", errors.Unsupported(errors.PhaseExtract,
		fmt.Sprintf("base type %q with encoding 0x%x and size %d", name, enc, size))
}

func intName(prefix string, size uint64) (string, bool) {
	switch size {
	case 1, 2, 4, 8:
		return fmt.Sprintf("%s%d_t", prefix, size*8), true
	}
	return "", false
}

// ParamType lowers a parameter's type cursor; a parameter that declared
// no type (even through its abstract origin) yields Unknown.
func ParamType(p dwarf.Param) (Type, error) {
	return LowerType(p.Type)
}
