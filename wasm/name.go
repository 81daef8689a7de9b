package wasm

import (
	"github.com/wasmlab/typecorpus/errors"
)

// InstrName returns the canonical text-format mnemonic for a decoded
// instruction. GC-prefixed opcodes are not named; a binary using them is
// rejected rather than silently mis-rendered.
func InstrName(i Instruction) (string, error) {
	switch i.Opcode {
	case OpPrefixMisc:
		imm := i.Imm.(MiscImm)
		if name, ok := miscNames[imm.SubOpcode]; ok {
			return name, nil
		}
		return "", errors.Unsupported(errors.PhaseDecode, "unnamed 0xFC sub-opcode")
	case OpPrefixSIMD:
		imm := i.Imm.(SIMDImm)
		if name, ok := simdNames[imm.SubOpcode]; ok {
			return name, nil
		}
		return "", errors.Unsupported(errors.PhaseDecode, "unnamed SIMD sub-opcode")
	case OpPrefixAtomic:
		imm := i.Imm.(AtomicImm)
		if name, ok := atomicNames[imm.SubOpcode]; ok {
			return name, nil
		}
		return "", errors.Unsupported(errors.PhaseDecode, "unnamed atomic sub-opcode")
	case OpPrefixGC:
		return "", errors.Unsupported(errors.PhaseDecode, "GC instruction")
	default:
		if name, ok := opNames[i.Opcode]; ok {
			return name, nil
		}
		return "", errors.Unsupported(errors.PhaseDecode, "unnamed opcode")
	}
}

var opNames = map[byte]string{
	OpUnreachable:        "unreachable",
	OpNop:                "nop",
	OpBlock:              "block",
	OpLoop:               "loop",
	OpIf:                 "if",
	OpElse:               "else",
	OpTry:                "try",
	OpCatch:              "catch",
	OpThrow:              "throw",
	OpRethrow:            "rethrow",
	OpThrowRef:           "throw_ref",
	OpEnd:                "end",
	OpBr:                 "br",
	OpBrIf:               "br_if",
	OpBrTable:            "br_table",
	OpReturn:             "return",
	OpCall:               "call",
	OpCallIndirect:       "call_indirect",
	OpReturnCall:         "return_call",
	OpReturnCallIndirect: "return_call_indirect",
	OpCallRef:            "call_ref",
	OpReturnCallRef:      "return_call_ref",
	OpDelegate:           "delegate",
	OpCatchAll:           "catch_all",
	OpTryTable:           "try_table",

	OpDrop:       "drop",
	OpSelect:     "select",
	OpSelectType: "select",

	OpLocalGet:  "local.get",
	OpLocalSet:  "local.set",
	OpLocalTee:  "local.tee",
	OpGlobalGet: "global.get",
	OpGlobalSet: "global.set",
	OpTableGet:  "table.get",
	OpTableSet:  "table.set",

	OpI32Load:    "i32.load",
	OpI64Load:    "i64.load",
	OpF32Load:    "f32.load",
	OpF64Load:    "f64.load",
	OpI32Load8S:  "i32.load8_s",
	OpI32Load8U:  "i32.load8_u",
	OpI32Load16S: "i32.load16_s",
	OpI32Load16U: "i32.load16_u",
	OpI64Load8S:  "i64.load8_s",
	OpI64Load8U:  "i64.load8_u",
	OpI64Load16S: "i64.load16_s",
	OpI64Load16U: "i64.load16_u",
	OpI64Load32S: "i64.load32_s",
	OpI64Load32U: "i64.load32_u",
	OpI32Store:   "i32.store",
	OpI64Store:   "i64.store",
	OpF32Store:   "f32.store",
	OpF64Store:   "f64.store",
	OpI32Store8:  "i32.store8",
	OpI32Store16: "i32.store16",
	OpI64Store8:  "i64.store8",
	OpI64Store16: "i64.store16",
	OpI64Store32: "i64.store32",
	OpMemorySize: "memory.size",
	OpMemoryGrow: "memory.grow",

	OpI32Const: "i32.const",
	OpI64Const: "i64.const",
	OpF32Const: "f32.const",
	OpF64Const: "f64.const",

	OpI32Eqz: "i32.eqz",
	OpI32Eq:  "i32.eq",
	OpI32Ne:  "i32.ne",
	OpI32LtS: "i32.lt_s",
	OpI32LtU: "i32.lt_u",
	OpI32GtS: "i32.gt_s",
	OpI32GtU: "i32.gt_u",
	OpI32LeS: "i32.le_s",
	OpI32LeU: "i32.le_u",
	OpI32GeS: "i32.ge_s",
	OpI32GeU: "i32.ge_u",

	OpI64Eqz: "i64.eqz",
	OpI64Eq:  "i64.eq",
	OpI64Ne:  "i64.ne",
	OpI64LtS: "i64.lt_s",
	OpI64LtU: "i64.lt_u",
	OpI64GtS: "i64.gt_s",
	OpI64GtU: "i64.gt_u",
	OpI64LeS: "i64.le_s",
	OpI64LeU: "i64.le_u",
	OpI64GeS: "i64.ge_s",
	OpI64GeU: "i64.ge_u",

	OpF32Eq: "f32.eq",
	OpF32Ne: "f32.ne",
	OpF32Lt: "f32.lt",
	OpF32Gt: "f32.gt",
	OpF32Le: "f32.le",
	OpF32Ge: "f32.ge",

	OpF64Eq: "f64.eq",
	OpF64Ne: "f64.ne",
	OpF64Lt: "f64.lt",
	OpF64Gt: "f64.gt",
	OpF64Le: "f64.le",
	OpF64Ge: "f64.ge",

	OpI32Clz:    "i32.clz",
	OpI32Ctz:    "i32.ctz",
	OpI32Popcnt: "i32.popcnt",
	OpI32Add:    "i32.add",
	OpI32Sub:    "i32.sub",
	OpI32Mul:    "i32.mul",
	OpI32DivS:   "i32.div_s",
	OpI32DivU:   "i32.div_u",
	OpI32RemS:   "i32.rem_s",
	OpI32RemU:   "i32.rem_u",
	OpI32And:    "i32.and",
	OpI32Or:     "i32.or",
	OpI32Xor:    "i32.xor",
	OpI32Shl:    "i32.shl",
	OpI32ShrS:   "i32.shr_s",
	OpI32ShrU:   "i32.shr_u",
	OpI32Rotl:   "i32.rotl",
	OpI32Rotr:   "i32.rotr",

	OpI64Clz:    "i64.clz",
	OpI64Ctz:    "i64.ctz",
	OpI64Popcnt: "i64.popcnt",
	OpI64Add:    "i64.add",
	OpI64Sub:    "i64.sub",
	OpI64Mul:    "i64.mul",
	OpI64DivS:   "i64.div_s",
	OpI64DivU:   "i64.div_u",
	OpI64RemS:   "i64.rem_s",
	OpI64RemU:   "i64.rem_u",
	OpI64And:    "i64.and",
	OpI64Or:     "i64.or",
	OpI64Xor:    "i64.xor",
	OpI64Shl:    "i64.shl",
	OpI64ShrS:   "i64.shr_s",
	OpI64ShrU:   "i64.shr_u",
	OpI64Rotl:   "i64.rotl",
	OpI64Rotr:   "i64.rotr",

	OpF32Abs:      "f32.abs",
	OpF32Neg:      "f32.neg",
	OpF32Ceil:     "f32.ceil",
	OpF32Floor:    "f32.floor",
	OpF32Trunc:    "f32.trunc",
	OpF32Nearest:  "f32.nearest",
	OpF32Sqrt:     "f32.sqrt",
	OpF32Add:      "f32.add",
	OpF32Sub:      "f32.sub",
	OpF32Mul:      "f32.mul",
	OpF32Div:      "f32.div",
	OpF32Min:      "f32.min",
	OpF32Max:      "f32.max",
	OpF32Copysign: "f32.copysign",

	OpF64Abs:      "f64.abs",
	OpF64Neg:      "f64.neg",
	OpF64Ceil:     "f64.ceil",
	OpF64Floor:    "f64.floor",
	OpF64Trunc:    "f64.trunc",
	OpF64Nearest:  "f64.nearest",
	OpF64Sqrt:     "f64.sqrt",
	OpF64Add:      "f64.add",
	OpF64Sub:      "f64.sub",
	OpF64Mul:      "f64.mul",
	OpF64Div:      "f64.div",
	OpF64Min:      "f64.min",
	OpF64Max:      "f64.max",
	OpF64Copysign: "f64.copysign",

	OpI32WrapI64:        "i32.wrap_i64",
	OpI32TruncF32S:      "i32.trunc_f32_s",
	OpI32TruncF32U:      "i32.trunc_f32_u",
	OpI32TruncF64S:      "i32.trunc_f64_s",
	OpI32TruncF64U:      "i32.trunc_f64_u",
	OpI64ExtendI32S:     "i64.extend_i32_s",
	OpI64ExtendI32U:     "i64.extend_i32_u",
	OpI64TruncF32S:      "i64.trunc_f32_s",
	OpI64TruncF32U:      "i64.trunc_f32_u",
	OpI64TruncF64S:      "i64.trunc_f64_s",
	OpI64TruncF64U:      "i64.trunc_f64_u",
	OpF32ConvertI32S:    "f32.convert_i32_s",
	OpF32ConvertI32U:    "f32.convert_i32_u",
	OpF32ConvertI64S:    "f32.convert_i64_s",
	OpF32ConvertI64U:    "f32.convert_i64_u",
	OpF32DemoteF64:      "f32.demote_f64",
	OpF64ConvertI32S:    "f64.convert_i32_s",
	OpF64ConvertI32U:    "f64.convert_i32_u",
	OpF64ConvertI64S:    "f64.convert_i64_s",
	OpF64ConvertI64U:    "f64.convert_i64_u",
	OpF64PromoteF32:     "f64.promote_f32",
	OpI32ReinterpretF32: "i32.reinterpret_f32",
	OpI64ReinterpretF64: "i64.reinterpret_f64",
	OpF32ReinterpretI32: "f32.reinterpret_i32",
	OpF64ReinterpretI64: "f64.reinterpret_i64",

	OpI32Extend8S:  "i32.extend8_s",
	OpI32Extend16S: "i32.extend16_s",
	OpI64Extend8S:  "i64.extend8_s",
	OpI64Extend16S: "i64.extend16_s",
	OpI64Extend32S: "i64.extend32_s",

	OpRefNull:      "ref.null",
	OpRefIsNull:    "ref.is_null",
	OpRefFunc:      "ref.func",
	OpRefAsNonNull: "ref.as_non_null",
	OpRefEq:        "ref.eq",
	OpBrOnNull:     "br_on_null",
	OpBrOnNonNull:  "br_on_non_null",
}

var miscNames = map[uint32]string{
	MiscI32TruncSatF32S: "i32.trunc_sat_f32_s",
	MiscI32TruncSatF32U: "i32.trunc_sat_f32_u",
	MiscI32TruncSatF64S: "i32.trunc_sat_f64_s",
	MiscI32TruncSatF64U: "i32.trunc_sat_f64_u",
	MiscI64TruncSatF32S: "i64.trunc_sat_f32_s",
	MiscI64TruncSatF32U: "i64.trunc_sat_f32_u",
	MiscI64TruncSatF64S: "i64.trunc_sat_f64_s",
	MiscI64TruncSatF64U: "i64.trunc_sat_f64_u",
	MiscMemoryInit:      "memory.init",
	MiscDataDrop:        "data.drop",
	MiscMemoryCopy:      "memory.copy",
	MiscMemoryFill:      "memory.fill",
	MiscTableInit:       "table.init",
	MiscElemDrop:        "elem.drop",
	MiscTableCopy:       "table.copy",
	MiscTableGrow:       "table.grow",
	MiscTableSize:       "table.size",
	MiscTableFill:       "table.fill",
	MiscMemoryDiscard:   "memory.discard",
}

var atomicNames = map[uint32]string{
	AtomicNotify:           "memory.atomic.notify",
	AtomicWait32:           "memory.atomic.wait32",
	AtomicWait64:           "memory.atomic.wait64",
	AtomicFence:            "atomic.fence",
	AtomicI32Load:          "i32.atomic.load",
	AtomicI64Load:          "i64.atomic.load",
	AtomicI32Load8U:        "i32.atomic.load8_u",
	AtomicI32Load16U:       "i32.atomic.load16_u",
	AtomicI64Load8U:        "i64.atomic.load8_u",
	AtomicI64Load16U:       "i64.atomic.load16_u",
	AtomicI64Load32U:       "i64.atomic.load32_u",
	AtomicI32Store:         "i32.atomic.store",
	AtomicI64Store:         "i64.atomic.store",
	AtomicI32Store8:        "i32.atomic.store8",
	AtomicI32Store16:       "i32.atomic.store16",
	AtomicI64Store8:        "i64.atomic.store8",
	AtomicI64Store16:       "i64.atomic.store16",
	AtomicI64Store32:       "i64.atomic.store32",
	AtomicI32RmwAdd:        "i32.atomic.rmw.add",
	AtomicI64RmwAdd:        "i64.atomic.rmw.add",
	AtomicI32Rmw8AddU:      "i32.atomic.rmw8.add_u",
	AtomicI32Rmw16AddU:     "i32.atomic.rmw16.add_u",
	AtomicI64Rmw8AddU:      "i64.atomic.rmw8.add_u",
	AtomicI64Rmw16AddU:     "i64.atomic.rmw16.add_u",
	AtomicI64Rmw32AddU:     "i64.atomic.rmw32.add_u",
	AtomicI32RmwSub:        "i32.atomic.rmw.sub",
	AtomicI64RmwSub:        "i64.atomic.rmw.sub",
	AtomicI32Rmw8SubU:      "i32.atomic.rmw8.sub_u",
	AtomicI32Rmw16SubU:     "i32.atomic.rmw16.sub_u",
	AtomicI64Rmw8SubU:      "i64.atomic.rmw8.sub_u",
	AtomicI64Rmw16SubU:     "i64.atomic.rmw16.sub_u",
	AtomicI64Rmw32SubU:     "i64.atomic.rmw32.sub_u",
	AtomicI32RmwAnd:        "i32.atomic.rmw.and",
	AtomicI64RmwAnd:        "i64.atomic.rmw.and",
	AtomicI32Rmw8AndU:      "i32.atomic.rmw8.and_u",
	AtomicI32Rmw16AndU:     "i32.atomic.rmw16.and_u",
	AtomicI64Rmw8AndU:      "i64.atomic.rmw8.and_u",
	AtomicI64Rmw16AndU:     "i64.atomic.rmw16.and_u",
	AtomicI64Rmw32AndU:     "i64.atomic.rmw32.and_u",
	AtomicI32RmwOr:         "i32.atomic.rmw.or",
	AtomicI64RmwOr:         "i64.atomic.rmw.or",
	AtomicI32Rmw8OrU:       "i32.atomic.rmw8.or_u",
	AtomicI32Rmw16OrU:      "i32.atomic.rmw16.or_u",
	AtomicI64Rmw8OrU:       "i64.atomic.rmw8.or_u",
	AtomicI64Rmw16OrU:      "i64.atomic.rmw16.or_u",
	AtomicI64Rmw32OrU:      "i64.atomic.rmw32.or_u",
	AtomicI32RmwXor:        "i32.atomic.rmw.xor",
	AtomicI64RmwXor:        "i64.atomic.rmw.xor",
	AtomicI32Rmw8XorU:      "i32.atomic.rmw8.xor_u",
	AtomicI32Rmw16XorU:     "i32.atomic.rmw16.xor_u",
	AtomicI64Rmw8XorU:      "i64.atomic.rmw8.xor_u",
	AtomicI64Rmw16XorU:     "i64.atomic.rmw16.xor_u",
	AtomicI64Rmw32XorU:     "i64.atomic.rmw32.xor_u",
	AtomicI32RmwXchg:       "i32.atomic.rmw.xchg",
	AtomicI64RmwXchg:       "i64.atomic.rmw.xchg",
	AtomicI32Rmw8XchgU:     "i32.atomic.rmw8.xchg_u",
	AtomicI32Rmw16XchgU:    "i32.atomic.rmw16.xchg_u",
	AtomicI64Rmw8XchgU:     "i64.atomic.rmw8.xchg_u",
	AtomicI64Rmw16XchgU:    "i64.atomic.rmw16.xchg_u",
	AtomicI64Rmw32XchgU:    "i64.atomic.rmw32.xchg_u",
	AtomicI32RmwCmpxchg:    "i32.atomic.rmw.cmpxchg",
	AtomicI64RmwCmpxchg:    "i64.atomic.rmw.cmpxchg",
	AtomicI32Rmw8CmpxchgU:  "i32.atomic.rmw8.cmpxchg_u",
	AtomicI32Rmw16CmpxchgU: "i32.atomic.rmw16.cmpxchg_u",
	AtomicI64Rmw8CmpxchgU:  "i64.atomic.rmw8.cmpxchg_u",
	AtomicI64Rmw16CmpxchgU: "i64.atomic.rmw16.cmpxchg_u",
	AtomicI64Rmw32CmpxchgU: "i64.atomic.rmw32.cmpxchg_u",
}

// simdNames is keyed on the finalized SIMD sub-opcode numbering. The
// v128.const entry carries its interpretation suffix because its operand
// chunks are rendered as i32x4 lanes.
var simdNames = map[uint32]string{
	0x00: "v128.load",
	0x01: "v128.load8x8_s",
	0x02: "v128.load8x8_u",
	0x03: "v128.load16x4_s",
	0x04: "v128.load16x4_u",
	0x05: "v128.load32x2_s",
	0x06: "v128.load32x2_u",
	0x07: "v128.load8_splat",
	0x08: "v128.load16_splat",
	0x09: "v128.load32_splat",
	0x0A: "v128.load64_splat",
	0x0B: "v128.store",
	0x0C: "v128.const i32x4",
	0x0D: "i8x16.shuffle",
	0x0E: "i8x16.swizzle",
	0x0F: "i8x16.splat",
	0x10: "i16x8.splat",
	0x11: "i32x4.splat",
	0x12: "i64x2.splat",
	0x13: "f32x4.splat",
	0x14: "f64x2.splat",
	0x15: "i8x16.extract_lane_s",
	0x16: "i8x16.extract_lane_u",
	0x17: "i8x16.replace_lane",
	0x18: "i16x8.extract_lane_s",
	0x19: "i16x8.extract_lane_u",
	0x1A: "i16x8.replace_lane",
	0x1B: "i32x4.extract_lane",
	0x1C: "i32x4.replace_lane",
	0x1D: "i64x2.extract_lane",
	0x1E: "i64x2.replace_lane",
	0x1F: "f32x4.extract_lane",
	0x20: "f32x4.replace_lane",
	0x21: "f64x2.extract_lane",
	0x22: "f64x2.replace_lane",
	0x23: "i8x16.eq",
	0x24: "i8x16.ne",
	0x25: "i8x16.lt_s",
	0x26: "i8x16.lt_u",
	0x27: "i8x16.gt_s",
	0x28: "i8x16.gt_u",
	0x29: "i8x16.le_s",
	0x2A: "i8x16.le_u",
	0x2B: "i8x16.ge_s",
	0x2C: "i8x16.ge_u",
	0x2D: "i16x8.eq",
	0x2E: "i16x8.ne",
	0x2F: "i16x8.lt_s",
	0x30: "i16x8.lt_u",
	0x31: "i16x8.gt_s",
	0x32: "i16x8.gt_u",
	0x33: "i16x8.le_s",
	0x34: "i16x8.le_u",
	0x35: "i16x8.ge_s",
	0x36: "i16x8.ge_u",
	0x37: "i32x4.eq",
	0x38: "i32x4.ne",
	0x39: "i32x4.lt_s",
	0x3A: "i32x4.lt_u",
	0x3B: "i32x4.gt_s",
	0x3C: "i32x4.gt_u",
	0x3D: "i32x4.le_s",
	0x3E: "i32x4.le_u",
	0x3F: "i32x4.ge_s",
	0x40: "i32x4.ge_u",
	0x41: "f32x4.eq",
	0x42: "f32x4.ne",
	0x43: "f32x4.lt",
	0x44: "f32x4.gt",
	0x45: "f32x4.le",
	0x46: "f32x4.ge",
	0x47: "f64x2.eq",
	0x48: "f64x2.ne",
	0x49: "f64x2.lt",
	0x4A: "f64x2.gt",
	0x4B: "f64x2.le",
	0x4C: "f64x2.ge",
	0x4D: "v128.not",
	0x4E: "v128.and",
	0x4F: "v128.andnot",
	0x50: "v128.or",
	0x51: "v128.xor",
	0x52: "v128.bitselect",
	0x53: "v128.any_true",
	0x54: "v128.load8_lane",
	0x55: "v128.load16_lane",
	0x56: "v128.load32_lane",
	0x57: "v128.load64_lane",
	0x58: "v128.store8_lane",
	0x59: "v128.store16_lane",
	0x5A: "v128.store32_lane",
	0x5B: "v128.store64_lane",
	0x5C: "v128.load32_zero",
	0x5D: "v128.load64_zero",
	0x5E: "f32x4.demote_f64x2_zero",
	0x5F: "f64x2.promote_low_f32x4",
	0x60: "i8x16.abs",
	0x61: "i8x16.neg",
	0x62: "i8x16.popcnt",
	0x63: "i8x16.all_true",
	0x64: "i8x16.bitmask",
	0x65: "i8x16.narrow_i16x8_s",
	0x66: "i8x16.narrow_i16x8_u",
	0x67: "f32x4.ceil",
	0x68: "f32x4.floor",
	0x69: "f32x4.trunc",
	0x6A: "f32x4.nearest",
	0x6B: "i8x16.shl",
	0x6C: "i8x16.shr_s",
	0x6D: "i8x16.shr_u",
	0x6E: "i8x16.add",
	0x6F: "i8x16.add_sat_s",
	0x70: "i8x16.add_sat_u",
	0x71: "i8x16.sub",
	0x72: "i8x16.sub_sat_s",
	0x73: "i8x16.sub_sat_u",
	0x74: "f64x2.ceil",
	0x75: "f64x2.floor",
	0x76: "i8x16.min_s",
	0x77: "i8x16.min_u",
	0x78: "i8x16.max_s",
	0x79: "i8x16.max_u",
	0x7A: "f64x2.trunc",
	0x7B: "i8x16.avgr_u",
	0x7C: "i16x8.extadd_pairwise_i8x16_s",
	0x7D: "i16x8.extadd_pairwise_i8x16_u",
	0x7E: "i32x4.extadd_pairwise_i16x8_s",
	0x7F: "i32x4.extadd_pairwise_i16x8_u",
	0x80: "i16x8.abs",
	0x81: "i16x8.neg",
	0x82: "i16x8.q15mulr_sat_s",
	0x83: "i16x8.all_true",
	0x84: "i16x8.bitmask",
	0x85: "i16x8.narrow_i32x4_s",
	0x86: "i16x8.narrow_i32x4_u",
	0x87: "i16x8.extend_low_i8x16_s",
	0x88: "i16x8.extend_high_i8x16_s",
	0x89: "i16x8.extend_low_i8x16_u",
	0x8A: "i16x8.extend_high_i8x16_u",
	0x8B: "i16x8.shl",
	0x8C: "i16x8.shr_s",
	0x8D: "i16x8.shr_u",
	0x8E: "i16x8.add",
	0x8F: "i16x8.add_sat_s",
	0x90: "i16x8.add_sat_u",
	0x91: "i16x8.sub",
	0x92: "i16x8.sub_sat_s",
	0x93: "i16x8.sub_sat_u",
	0x94: "f64x2.nearest",
	0x95: "i16x8.mul",
	0x96: "i16x8.min_s",
	0x97: "i16x8.min_u",
	0x98: "i16x8.max_s",
	0x99: "i16x8.max_u",
	0x9B: "i16x8.avgr_u",
	0x9C: "i16x8.extmul_low_i8x16_s",
	0x9D: "i16x8.extmul_high_i8x16_s",
	0x9E: "i16x8.extmul_low_i8x16_u",
	0x9F: "i16x8.extmul_high_i8x16_u",
	0xA0: "i32x4.abs",
	0xA1: "i32x4.neg",
	0xA3: "i32x4.all_true",
	0xA4: "i32x4.bitmask",
	0xA7: "i32x4.extend_low_i16x8_s",
	0xA8: "i32x4.extend_high_i16x8_s",
	0xA9: "i32x4.extend_low_i16x8_u",
	0xAA: "i32x4.extend_high_i16x8_u",
	0xAB: "i32x4.shl",
	0xAC: "i32x4.shr_s",
	0xAD: "i32x4.shr_u",
	0xAE: "i32x4.add",
	0xB1: "i32x4.sub",
	0xB5: "i32x4.mul",
	0xB6: "i32x4.min_s",
	0xB7: "i32x4.min_u",
	0xB8: "i32x4.max_s",
	0xB9: "i32x4.max_u",
	0xBA: "i32x4.dot_i16x8_s",
	0xBC: "i32x4.extmul_low_i16x8_s",
	0xBD: "i32x4.extmul_high_i16x8_s",
	0xBE: "i32x4.extmul_low_i16x8_u",
	0xBF: "i32x4.extmul_high_i16x8_u",
	0xC0: "i64x2.abs",
	0xC1: "i64x2.neg",
	0xC3: "i64x2.all_true",
	0xC4: "i64x2.bitmask",
	0xC7: "i64x2.extend_low_i32x4_s",
	0xC8: "i64x2.extend_high_i32x4_s",
	0xC9: "i64x2.extend_low_i32x4_u",
	0xCA: "i64x2.extend_high_i32x4_u",
	0xCB: "i64x2.shl",
	0xCC: "i64x2.shr_s",
	0xCD: "i64x2.shr_u",
	0xCE: "i64x2.add",
	0xD1: "i64x2.sub",
	0xD5: "i64x2.mul",
	0xD6: "i64x2.eq",
	0xD7: "i64x2.ne",
	0xD8: "i64x2.lt_s",
	0xD9: "i64x2.gt_s",
	0xDA: "i64x2.le_s",
	0xDB: "i64x2.ge_s",
	0xDC: "i64x2.extmul_low_i32x4_s",
	0xDD: "i64x2.extmul_high_i32x4_s",
	0xDE: "i64x2.extmul_low_i32x4_u",
	0xDF: "i64x2.extmul_high_i32x4_u",
	0xE0: "f32x4.abs",
	0xE1: "f32x4.neg",
	0xE3: "f32x4.sqrt",
	0xE4: "f32x4.add",
	0xE5: "f32x4.sub",
	0xE6: "f32x4.mul",
	0xE7: "f32x4.div",
	0xE8: "f32x4.min",
	0xE9: "f32x4.max",
	0xEA: "f32x4.pmin",
	0xEB: "f32x4.pmax",
	0xEC: "f64x2.abs",
	0xED: "f64x2.neg",
	0xEF: "f64x2.sqrt",
	0xF0: "f64x2.add",
	0xF1: "f64x2.sub",
	0xF2: "f64x2.mul",
	0xF3: "f64x2.div",
	0xF4: "f64x2.min",
	0xF5: "f64x2.max",
	0xF6: "f64x2.pmin",
	0xF7: "f64x2.pmax",
	0xF8: "i32x4.trunc_sat_f32x4_s",
	0xF9: "i32x4.trunc_sat_f32x4_u",
	0xFA: "f32x4.convert_i32x4_s",
	0xFB: "f32x4.convert_i32x4_u",
	0xFC: "i32x4.trunc_sat_f64x2_s_zero",
	0xFD: "i32x4.trunc_sat_f64x2_u_zero",
	0xFE: "f64x2.convert_low_i32x4_s",
	0xFF: "f64x2.convert_low_i32x4_u",
}
