package sample

import (
	"fmt"
	"strings"
)

// TokenKind enumerates the nodes of the flattened type grammar.
type TokenKind uint8

const (
	TokenUnknown TokenKind = iota
	TokenPrimitive
	TokenPointer
	TokenArray
	TokenConst
	TokenStruct
	TokenClass
	TokenUnion
	TokenEnum
	TokenFunction
	TokenNominal
	TokenTypedef
	TokenEnd
)

// Token is one node of a flattened type. Name carries the source-level
// name for Nominal and Typedef, and the normalized machine-width name
// for Primitive.
type Token struct {
	Kind TokenKind
	Name string
}

func (t Token) String() string {
	switch t.Kind {
	case TokenUnknown:
		return "unknown"
	case TokenPrimitive:
		return "primitive " + t.Name
	case TokenPointer:
		return "pointer"
	case TokenArray:
		return "array"
	case TokenConst:
		return "const"
	case TokenStruct:
		return "struct"
	case TokenClass:
		return "class"
	case TokenUnion:
		return "union"
	case TokenEnum:
		return "enum"
	case TokenFunction:
		return "function"
	case TokenNominal:
		return fmt.Sprintf("name %q", t.Name)
	case TokenTypedef:
		return fmt.Sprintf("typedef %q", t.Name)
	case TokenEnd:
		return "end"
	}
	return fmt.Sprintf("token(%d)", t.Kind)
}

// Type is the prediction target: an ordered token sequence, never empty.
type Type []Token

func (t Type) String() string {
	parts := make([]string, len(t))
	for i, tok := range t {
		parts[i] = tok.String()
	}
	return strings.Join(parts, " ")
}

// IsUnknown reports whether the type is exactly the single Unknown
// token. Types that merely contain Unknown somewhere, like a pointer to
// an unresolvable pointee, still carry structure worth predicting.
func (t Type) IsUnknown() bool {
	return len(t) == 1 && t[0].Kind == TokenUnknown
}

// TypedefMode selects how Simplify treats typedef tokens.
type TypedefMode uint8

const (
	TypedefKeep TypedefMode = iota
	TypedefToNominal
	TypedefRemove
)

// ParseTypedefMode maps the CLI spelling to a mode.
func ParseTypedefMode(s string) (TypedefMode, error) {
	switch s {
	case "keep":
		return TypedefKeep, nil
	case "to-nominal":
		return TypedefToNominal, nil
	case "remove":
		return TypedefRemove, nil
	}
	return 0, fmt.Errorf("unknown typedef mode %q (keep, to-nominal, remove)", s)
}

// SimplifyOptions are the configuration-driven rewrites applied to a
// lowered type before it is written. RemoveNames and KeepNames are
// mutually exclusive.
type SimplifyOptions struct {
	RemoveNames          bool
	KeepNames            map[string]struct{}
	Typedefs             TypedefMode
	FlattenOutermostName bool
	RemoveConst          bool
	ClassToStruct        bool
}

// Simplify rewrites a token sequence per the options. The input is not
// modified.
func Simplify(t Type, opt SimplifyOptions) Type {
	out := make(Type, 0, len(t))
	sawName := false
	for _, tok := range t {
		if tok.Kind == TokenTypedef {
			switch opt.Typedefs {
			case TypedefRemove:
				continue
			case TypedefToNominal:
				tok = Token{Kind: TokenNominal, Name: tok.Name}
			}
		}
		switch tok.Kind {
		case TokenNominal:
			if opt.RemoveNames {
				continue
			}
			if opt.KeepNames != nil {
				if _, ok := opt.KeepNames[tok.Name]; !ok {
					continue
				}
			}
			if opt.FlattenOutermostName && sawName {
				continue
			}
			sawName = true
		case TokenTypedef:
			if opt.FlattenOutermostName && sawName {
				continue
			}
			sawName = true
		case TokenConst:
			if opt.RemoveConst {
				continue
			}
		case TokenClass:
			if opt.ClassToStruct {
				tok = Token{Kind: TokenStruct}
			}
		}
		out = append(out, tok)
	}
	return out
}
