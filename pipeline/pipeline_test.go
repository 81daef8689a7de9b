package pipeline

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"

	goerrors "errors"

	"github.com/wasmlab/typecorpus/sample"
	"github.com/wasmlab/typecorpus/wasm"
)

// buildModule assembles a minimal one-function module of type
// (i32) -> i32 with the given body instructions.
func buildModule(instrs ...wasm.Instruction) []byte {
	var buf bytes.Buffer
	buf.Write([]byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00})
	sec := func(id byte, payload []byte) {
		buf.WriteByte(id)
		buf.Write(wasm.EncodeLEB128u(uint32(len(payload))))
		buf.Write(payload)
	}
	sec(1, []byte{0x01, 0x60, 0x01, 0x7F, 0x01, 0x7F})
	sec(3, []byte{0x01, 0x00})
	body := append([]byte{0x00}, wasm.EncodeInstructions(instrs)...)
	sec(10, append([]byte{0x01, byte(len(body))}, body...))
	return buf.Bytes()
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun(t *testing.T) {
	in := t.TempDir()
	// a1 and a2 differ only in a local index, so they share a
	// structural signature; b has a different mnemonic sequence.
	writeFile(t, in, "a1.wasm", buildModule(
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: 0}},
		wasm.Instruction{Opcode: wasm.OpEnd},
	))
	writeFile(t, in, "a2.wasm", buildModule(
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: 1}},
		wasm.Instruction{Opcode: wasm.OpEnd},
	))
	writeFile(t, in, "b.wasm", buildModule(
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 0}},
		wasm.Instruction{Opcode: wasm.OpEnd},
	))
	writeFile(t, in, "junk.txt", []byte("not a module"))

	rep, err := Run(Config{
		Inputs:   []string{in},
		OutDir:   t.TempDir(),
		Workers:  2,
		Repr:     sample.ReprOptions{Kind: sample.ReprFull},
		StatsMax: 5,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if rep.Files != 4 {
		t.Errorf("files = %d, want 4", rep.Files)
	}
	if rep.NonWasm != 1 {
		t.Errorf("non-wasm = %d, want 1", rep.NonWasm)
	}
	if rep.ParseFailures != 0 {
		t.Errorf("parse failures = %d, want 0", rep.ParseFailures)
	}
	if rep.Before.Binaries != 3 || rep.After.Binaries != 2 {
		t.Errorf("dedup = %d -> %d, want 3 -> 2", rep.Before.Binaries, rep.After.Binaries)
	}
	if len(rep.MostDuplicated) != 1 || rep.MostDuplicated[0].Count != 2 {
		t.Errorf("most duplicated = %+v", rep.MostDuplicated)
	}
	// No debug info anywhere, so nothing matches and nothing is written.
	if rep.ParamsWritten != 0 || rep.ReturnsWritten != 0 {
		t.Errorf("written = %d params, %d returns, want 0", rep.ParamsWritten, rep.ReturnsWritten)
	}
	if len(rep.Errors) != 0 {
		t.Errorf("errors = %v", rep.Errors)
	}
}

func TestRunCollectsParseFailures(t *testing.T) {
	in := t.TempDir()
	// Valid magic, then a function section promising a body the module
	// never provides.
	bad := []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00, 0x03, 0x02, 0x01, 0x00}
	writeFile(t, in, "bad.wasm", bad)

	rep, err := Run(Config{
		Inputs:  []string{in},
		OutDir:  t.TempDir(),
		Workers: 1,
		Repr:    sample.ReprOptions{Kind: sample.ReprFull},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.ParseFailures != 1 {
		t.Errorf("parse failures = %d, want 1", rep.ParseFailures)
	}
	if len(rep.Errors) != 1 {
		t.Fatalf("errors = %v, want one entry", rep.Errors)
	}
	if rep.Errors[0].File == "" {
		t.Error("file error lost its path")
	}
}

func TestCollectFilesSorted(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, dir, "b.wasm", []byte{1})
	writeFile(t, sub, "a.wasm", []byte{2})

	files, err := CollectFiles([]string{dir})
	if err != nil {
		t.Fatalf("CollectFiles: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("file count = %d, want 2", len(files))
	}
	if files[0] != filepath.Join(dir, "b.wasm") || files[1] != filepath.Join(sub, "a.wasm") {
		t.Errorf("order = %v", files)
	}
}

func TestCollectFilesMissingInput(t *testing.T) {
	if _, err := CollectFiles([]string{"/no/such/path"}); err == nil {
		t.Error("expected error for missing input")
	}
}

func TestCollectorSorted(t *testing.T) {
	c := &Collector{}
	c.Add("z.wasm", goerrors.New("boom"))
	c.Add("a.wasm", goerrors.New("crash"))
	got := c.Sorted()
	if len(got) != 2 || got[0].File != "a.wasm" || got[1].File != "z.wasm" {
		t.Errorf("sorted = %v", got)
	}
}

func TestNameStatsCSV(t *testing.T) {
	s := NewNameStats()
	s.Add("Point", "b.wasm")
	s.Add("Point", "a.wasm")
	s.Add("Point", "a.wasm")
	s.Add("Color", "a.wasm")

	var buf bytes.Buffer
	if err := s.WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	want := "name,file,count\n" +
		"\"Color\",\"a.wasm\",1\n" +
		"\"Point\",\"a.wasm\",2\n" +
		"\"Point\",\"b.wasm\",1\n"
	if buf.String() != want {
		t.Errorf("csv = %q, want %q", buf.String(), want)
	}
}

func TestForEach(t *testing.T) {
	items := make([]int, 100)
	for i := range items {
		items[i] = i
	}
	var mu sync.Mutex
	sum := 0
	ForEach(4, items, func(v int) {
		mu.Lock()
		sum += v
		mu.Unlock()
	})
	if sum != 4950 {
		t.Errorf("sum = %d, want 4950", sum)
	}
}

func TestDedupStats(t *testing.T) {
	mk := func(path string, sig byte, bodies int) *wasm.BinaryStats {
		s := &wasm.BinaryStats{Path: path, FunctionBodies: bodies}
		s.Signature[0] = sig
		return s
	}
	stats := []*wasm.BinaryStats{
		mk("c.wasm", 1, 2),
		mk("a.wasm", 1, 2),
		mk("b.wasm", 2, 3),
	}
	unique, groups := dedupStats(stats, 10)
	if len(unique) != 2 {
		t.Fatalf("unique = %d, want 2", len(unique))
	}
	if unique[0].Path != "a.wasm" {
		t.Errorf("representative = %q, want lexically smallest path", unique[0].Path)
	}
	if len(groups) != 1 || groups[0].Path != "a.wasm" || groups[0].Count != 2 {
		t.Errorf("groups = %+v", groups)
	}
	if got := sumTotals(unique); got.FunctionBodies != 5 {
		t.Errorf("bodies after dedup = %d, want 5", got.FunctionBodies)
	}
}
