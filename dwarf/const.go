package dwarf

// DW_ATE base type encodings (debug/dwarf does not export these).
const (
	EncBoolean      uint64 = 0x02
	EncComplexFloat uint64 = 0x03
	EncFloat        uint64 = 0x04
	EncSigned       uint64 = 0x05
	EncSignedChar   uint64 = 0x06
	EncUnsigned     uint64 = 0x07
	EncUnsignedChar uint64 = 0x08
	EncUTF          uint64 = 0x10
)
