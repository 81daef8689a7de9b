package sample

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/rand"
	"strings"

	"github.com/wasmlab/typecorpus/wasm"
)

// ReprKind selects how a function body is rendered into model input.
type ReprKind uint8

const (
	// ReprHash renders the body as a content hash. Only useful for
	// measuring non-determinism across runs, not as model input.
	ReprHash ReprKind = iota
	// ReprFull renders every instruction.
	ReprFull
	// ReprSubrange renders the first n instructions for parameters and
	// the last n for returns.
	ReprSubrange
	// ReprWindows renders the windows around accesses of the sample's
	// own value, shuffled.
	ReprWindows
)

// ParseReprKind maps the CLI spelling to a kind.
func ParseReprKind(s string) (ReprKind, error) {
	switch s {
	case "hash":
		return ReprHash, nil
	case "full":
		return ReprFull, nil
	case "subrange":
		return ReprSubrange, nil
	case "windows":
		return ReprWindows, nil
	}
	return 0, fmt.Errorf("unknown wasm repr %q (hash, full, subrange, windows)", s)
}

// ReprOptions configures body rendering. N is the subrange length or the
// window size; RawType prefixes the output with the sample's wasm value
// type.
type ReprOptions struct {
	Kind    ReprKind
	N       int
	RawType bool
}

// Render produces the textual body representation for one sample. The
// rng drives window shuffling and must come from the run's seeded
// generator so output is reproducible.
func (o ReprOptions) Render(body wasm.Body, role Role, vt wasm.ValType, rng *rand.Rand) (string, error) {
	var sb strings.Builder
	if o.RawType {
		sb.WriteString(vt.String())
		sb.WriteString(" <begin> ")
	}

	if o.Kind == ReprHash {
		sum := sha256.Sum256(body.Bytes)
		sb.WriteString(hex.EncodeToString(sum[:]))
		return sb.String(), nil
	}

	instrs, err := body.Instructions()
	if err != nil {
		return "", err
	}
	var param *uint32
	if !role.IsReturn {
		idx := role.ParamIdx
		param = &idx
	}

	switch o.Kind {
	case ReprFull:
		if err := renderSeq(&sb, instrs, param); err != nil {
			return "", err
		}

	case ReprSubrange:
		n := o.N
		if n > len(instrs) {
			n = len(instrs)
		}
		part := instrs[:n]
		if role.IsReturn {
			part = instrs[len(instrs)-n:]
		}
		if err := renderSeq(&sb, part, param); err != nil {
			return "", err
		}

	case ReprWindows:
		wins := keepWindows(instrs, role, o.N)
		rng.Shuffle(len(wins), func(i, j int) {
			wins[i], wins[j] = wins[j], wins[i]
		})
		for i, w := range wins {
			if i > 0 {
				sb.WriteString(" <window> ")
			}
			if err := renderSeq(&sb, w, param); err != nil {
				return "", err
			}
		}

	default:
		return "", fmt.Errorf("unhandled repr kind %d", o.Kind)
	}

	return sb.String(), nil
}

func renderSeq(sb *strings.Builder, instrs []wasm.Instruction, param *uint32) error {
	for i, in := range instrs {
		if i > 0 {
			sb.WriteString(" ; ")
		}
		if err := wasm.FormatInstruction(sb, in, param); err != nil {
			return err
		}
	}
	return nil
}

// keepWindows slides a window of size n over the body, padded with n
// empty slots on both sides so boundary windows stay full-size. A window
// survives when its center instruction accesses the sample's parameter,
// or, for returns, when it ends in an explicit return or is the last
// window before the body's final end. Padding is stripped from kept
// windows.
func keepWindows(instrs []wasm.Instruction, role Role, n int) [][]wasm.Instruction {
	if n <= 0 {
		return nil
	}
	padded := make([]*wasm.Instruction, 0, len(instrs)+2*n)
	for i := 0; i < n; i++ {
		padded = append(padded, nil)
	}
	for i := range instrs {
		padded = append(padded, &instrs[i])
	}
	for i := 0; i < n; i++ {
		padded = append(padded, nil)
	}

	var kept [][]wasm.Instruction
	for w := 0; w+n <= len(padded); w++ {
		win := padded[w : w+n]
		keep := false
		if !role.IsReturn {
			if c := win[n/2]; c != nil {
				if idx, ok := c.LocalIndex(); ok && idx == role.ParamIdx {
					keep = true
				}
			}
		} else {
			if last := win[n-1]; last != nil && last.IsReturn() {
				keep = true
			} else if w == len(instrs)-1 {
				keep = true
			}
		}
		if !keep {
			continue
		}
		stripped := make([]wasm.Instruction, 0, n)
		for _, in := range win {
			if in != nil {
				stripped = append(stripped, *in)
			}
		}
		kept = append(kept, stripped)
	}
	return kept
}

// UsesParam reports whether any instruction in the body reads or writes
// the sample's parameter local. Parameters no instruction touches carry
// no signal and get dropped upstream.
func UsesParam(body wasm.Body, idx uint32) (bool, error) {
	instrs, err := body.Instructions()
	if err != nil {
		return false, err
	}
	for _, in := range instrs {
		if i, ok := in.LocalIndex(); ok && i == idx {
			return true, nil
		}
	}
	return false, nil
}
