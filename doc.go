// Package typecorpus builds training corpora for wasm type prediction.
//
// The extractor walks a tree of files, keeps the wasm binaries, drops
// structural duplicates, matches each function body against the DWARF
// subprogram compiled alongside it, and writes one sample per parameter
// and return value: a textual rendering of the instruction stream paired
// with a flattened encoding of the source-level type.
//
// # Architecture Overview
//
// The module is organized into several packages with distinct responsibilities:
//
//	typecorpus/
//	├── wasm/        WASM binary decoding, instruction model, formatting, stats
//	├── dwarf/       debug/dwarf wrapper: entry cursors and the subprogram index
//	├── sample/      wasm/DWARF matching, type token language, body reprs
//	├── pipeline/    parallel extraction over many binaries
//	├── writer/      flat corpus output files
//	├── errors/      structured error types for debugging
//	└── cmd/extract/ the command-line front end
//
// # Quick Start
//
//	rep, err := pipeline.Run(pipeline.Config{
//		Inputs:  []string{"./binaries"},
//		OutDir:  "corpus",
//		Workers: runtime.NumCPU(),
//		Repr:    sample.ReprOptions{Kind: sample.ReprWindows, N: 9},
//	})
//
// The report carries the counters and failure list for display; the
// corpus lands under OutDir as param/ and return/ directories.
package typecorpus
