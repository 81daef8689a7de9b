// Package wasm decodes WebAssembly binaries for corpus extraction.
//
// The decoder keeps only what correlating machine code with DWARF debug
// info requires: function signatures, raw function bodies annotated with
// their absolute file offsets, the custom sections, and the function-name
// map from the "name" section. Bodies decode lazily into instruction
// streams that can be rendered as text mnemonics, hashed structurally, or
// sliced into context windows around parameter accesses.
package wasm
