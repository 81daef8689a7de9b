// Package writer lays finished samples out as flat corpus files: a
// param/ and a return/ directory, each holding wasm.txt, type.txt and
// info.jsonl with one line per sample, aligned across the three files.
package writer

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/wasmlab/typecorpus/errors"
	"github.com/wasmlab/typecorpus/sample"
)

// Record is one info.jsonl line. Pointer fields serialize as null when
// the source carried no value.
type Record struct {
	File              string  `json:"file"`
	CompilationUnit   *string `json:"compilation_unit"`
	FunctionIdx       uint32  `json:"function_idx"`
	FunctionNameWasm  *string `json:"function_name_wasm"`
	FunctionNameDwarf *string `json:"function_name_dwarf"`
	ParamIdx          *uint32 `json:"param_idx,omitempty"`
	ParamName         *string `json:"param_name,omitempty"`
	WasmType          string  `json:"wasm_type"`
}

type roleFiles struct {
	files   []*os.File
	wasm    *bufio.Writer
	typ     *bufio.Writer
	info    *bufio.Writer
	written int64
}

func openRole(dir string) (*roleFiles, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Load("create output dir "+dir, err)
	}
	rf := &roleFiles{}
	for _, name := range []string{"wasm.txt", "type.txt", "info.jsonl"} {
		f, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			rf.close()
			return nil, errors.Load("create "+name, err)
		}
		rf.files = append(rf.files, f)
	}
	rf.wasm = bufio.NewWriter(rf.files[0])
	rf.typ = bufio.NewWriter(rf.files[1])
	rf.info = bufio.NewWriter(rf.files[2])
	return rf, nil
}

func (rf *roleFiles) close() {
	for _, f := range rf.files {
		f.Close()
	}
}

func (rf *roleFiles) line(w *bufio.Writer, s string) error {
	n, err := w.WriteString(s)
	rf.written += int64(n)
	if err != nil {
		return err
	}
	if err := w.WriteByte('\n'); err != nil {
		return err
	}
	rf.written++
	return nil
}

func (rf *roleFiles) flush() error {
	for _, w := range []*bufio.Writer{rf.wasm, rf.typ, rf.info} {
		if err := w.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// SampleWriter appends finished samples to the corpus files. Not safe
// for concurrent use; the pipeline funnels all samples through one
// writing goroutine.
type SampleWriter struct {
	param *roleFiles
	ret   *roleFiles
}

// New creates the output layout under dir, truncating existing files.
func New(dir string) (*SampleWriter, error) {
	param, err := openRole(filepath.Join(dir, "param"))
	if err != nil {
		return nil, err
	}
	ret, err := openRole(filepath.Join(dir, "return"))
	if err != nil {
		param.close()
		return nil, err
	}
	return &SampleWriter{param: param, ret: ret}, nil
}

// Write appends one sample to its role's three files.
func (w *SampleWriter) Write(s sample.Sample[string, sample.Type]) error {
	rf := w.param
	if s.Role.IsReturn {
		rf = w.ret
	}
	if err := rf.line(rf.wasm, s.Body); err != nil {
		return errors.Wrap(errors.PhaseWrite, errors.KindIOFailure, err, "write wasm.txt")
	}
	if err := rf.line(rf.typ, s.Type.String()); err != nil {
		return errors.Wrap(errors.PhaseWrite, errors.KindIOFailure, err, "write type.txt")
	}

	rec := Record{
		File:              s.File,
		CompilationUnit:   optional(s.CompilationUnit),
		FunctionIdx:       s.FunctionIdx,
		FunctionNameWasm:  optional(s.FunctionNameWasm),
		FunctionNameDwarf: optional(s.FunctionNameDwarf),
		WasmType:          s.WasmType.String(),
	}
	if !s.Role.IsReturn {
		idx := s.Role.ParamIdx
		rec.ParamIdx = &idx
		rec.ParamName = optional(s.Role.ParamName)
	}
	line, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(errors.PhaseWrite, errors.KindInvalidData, err, "encode info record")
	}
	if err := rf.line(rf.info, string(line)); err != nil {
		return errors.Wrap(errors.PhaseWrite, errors.KindIOFailure, err, "write info.jsonl")
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Flush drains the buffers and reports the total bytes written so far.
func (w *SampleWriter) Flush() (int64, error) {
	for _, rf := range []*roleFiles{w.param, w.ret} {
		if err := rf.flush(); err != nil {
			return 0, errors.Wrap(errors.PhaseWrite, errors.KindIOFailure, err, "flush output")
		}
	}
	return w.param.written + w.ret.written, nil
}

// Close flushes and closes every output file.
func (w *SampleWriter) Close() error {
	_, err := w.Flush()
	w.param.close()
	w.ret.close()
	return err
}
