package wasm

import "bytes"

// wasmMagic is the 4-byte magic followed by binary format version 1.
var wasmMagic = []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}

// IsWasm reports whether data starts with the WebAssembly magic bytes and
// version. A file shorter than the header is simply not a wasm module.
func IsWasm(data []byte) bool {
	return len(data) >= len(wasmMagic) && bytes.Equal(data[:len(wasmMagic)], wasmMagic)
}
