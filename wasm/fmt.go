package wasm

import (
	"fmt"
	"strconv"
	"strings"
)

// LocalIndex returns the accessed local index when the instruction is a
// local.get, local.set or local.tee.
func (i Instruction) LocalIndex() (uint32, bool) {
	switch i.Opcode {
	case OpLocalGet, OpLocalSet, OpLocalTee:
		return i.Imm.(LocalImm).LocalIdx, true
	}
	return 0, false
}

// IsReturn reports whether the instruction is an explicit return.
func (i Instruction) IsReturn() bool {
	return i.Opcode == OpReturn
}

// FormatInstruction appends the instruction's mnemonic and operands to sb.
// When param is non-nil, local accesses of that index render as " <param>"
// instead of the numeric index, abstracting away which slot the parameter
// landed in. Structure-only operands (block types, call targets, type
// indices, alignment) are omitted.
func FormatInstruction(sb *strings.Builder, instr Instruction, param *uint32) error {
	name, err := InstrName(instr)
	if err != nil {
		return err
	}
	sb.WriteString(name)

	switch instr.Opcode {
	case OpLocalGet, OpLocalSet, OpLocalTee:
		imm := instr.Imm.(LocalImm)
		if param != nil && imm.LocalIdx == *param {
			sb.WriteString(" <param>")
		} else {
			fmt.Fprintf(sb, " %d", imm.LocalIdx)
		}

	case OpRethrow, OpBr, OpBrIf:
		fmt.Fprintf(sb, " %d", instr.Imm.(BranchImm).LabelIdx)

	case OpBrTable:
		imm := instr.Imm.(BrTableImm)
		for _, l := range imm.Labels {
			fmt.Fprintf(sb, " %d", l)
		}
		fmt.Fprintf(sb, " %d", imm.Default)

	case OpGlobalGet, OpGlobalSet:
		fmt.Fprintf(sb, " %d", instr.Imm.(GlobalImm).GlobalIdx)

	case OpTableGet, OpTableSet:
		fmt.Fprintf(sb, " %d", instr.Imm.(TableImm).TableIdx)

	case OpMemorySize, OpMemoryGrow:
		if imm := instr.Imm.(MemoryIdxImm); imm.MemIdx != 0 {
			fmt.Fprintf(sb, " %d", imm.MemIdx)
		}

	case OpI32Const:
		fmt.Fprintf(sb, " %d", instr.Imm.(I32Imm).Value)

	case OpI64Const:
		fmt.Fprintf(sb, " %d", instr.Imm.(I64Imm).Value)

	case OpF32Const:
		sb.WriteByte(' ')
		sb.WriteString(strconv.FormatFloat(float64(instr.Imm.(F32Imm).Value), 'g', -1, 32))

	case OpF64Const:
		sb.WriteByte(' ')
		sb.WriteString(strconv.FormatFloat(instr.Imm.(F64Imm).Value, 'g', -1, 64))

	case OpI32Load, OpI64Load, OpF32Load, OpF64Load,
		OpI32Load8S, OpI32Load8U, OpI32Load16S, OpI32Load16U,
		OpI64Load8S, OpI64Load8U, OpI64Load16S, OpI64Load16U, OpI64Load32S, OpI64Load32U,
		OpI32Store, OpI64Store, OpF32Store, OpF64Store,
		OpI32Store8, OpI32Store16, OpI64Store8, OpI64Store16, OpI64Store32:
		formatMemArg(sb, instr.Imm.(MemoryImm))

	case OpPrefixMisc:
		formatMiscOperands(sb, instr.Imm.(MiscImm))

	case OpPrefixSIMD:
		formatSIMDOperands(sb, instr.Imm.(SIMDImm))

	case OpPrefixAtomic:
		if imm := instr.Imm.(AtomicImm); imm.MemArg != nil {
			formatMemArg(sb, *imm.MemArg)
		}
	}
	return nil
}

// formatMemArg renders a memarg. Alignment is a performance hint, not a
// semantic one, so it is left out.
func formatMemArg(sb *strings.Builder, imm MemoryImm) {
	if imm.MemIdx != 0 {
		fmt.Fprintf(sb, " (memory %d)", imm.MemIdx)
	}
	if imm.Offset != 0 {
		fmt.Fprintf(sb, " offset=%d", imm.Offset)
	}
}

func formatMiscOperands(sb *strings.Builder, imm MiscImm) {
	switch imm.SubOpcode {
	case MiscMemoryInit:
		fmt.Fprintf(sb, " %d %d", imm.Operands[0], imm.Operands[1]) // segment, memory
	case MiscDataDrop, MiscElemDrop:
		fmt.Fprintf(sb, " %d", imm.Operands[0])
	case MiscMemoryCopy:
		fmt.Fprintf(sb, " %d %d", imm.Operands[1], imm.Operands[0]) // src, dst
	case MiscMemoryFill:
		fmt.Fprintf(sb, " %d", imm.Operands[0])
	case MiscTableInit:
		fmt.Fprintf(sb, " %d %d", imm.Operands[1], imm.Operands[0]) // table, segment
	case MiscTableCopy:
		fmt.Fprintf(sb, " %d %d", imm.Operands[1], imm.Operands[0]) // src, dst
	case MiscTableGrow, MiscTableSize, MiscTableFill, MiscMemoryDiscard:
		fmt.Fprintf(sb, " %d", imm.Operands[0])
	}
}

func formatSIMDOperands(sb *strings.Builder, imm SIMDImm) {
	if imm.MemArg != nil {
		formatMemArg(sb, *imm.MemArg)
	}
	switch imm.SubOpcode {
	case SimdV128Const:
		// Little-endian bytes rendered as four 32-bit hex lanes.
		for i := 0; i+4 <= len(imm.V128Bytes); i += 4 {
			fmt.Fprintf(sb, " 0x%02x%02x%02x%02x",
				imm.V128Bytes[i+3], imm.V128Bytes[i+2], imm.V128Bytes[i+1], imm.V128Bytes[i])
		}
	case SimdI8x16Shuffle:
		for _, lane := range imm.V128Bytes {
			fmt.Fprintf(sb, " %d", lane)
		}
	}
	if imm.LaneIdx != nil {
		fmt.Fprintf(sb, " %d", *imm.LaneIdx)
	}
}
