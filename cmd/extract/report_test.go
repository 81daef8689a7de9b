package main

import (
	"strings"
	"testing"

	goerrors "errors"

	"github.com/wasmlab/typecorpus/pipeline"
	"github.com/wasmlab/typecorpus/sample"
)

func TestRenderReportPlain(t *testing.T) {
	rep := &pipeline.Report{
		Files:         10,
		NonWasm:       3,
		ParseFailures: 1,
		Before:        pipeline.Totals{Binaries: 6, FunctionBodies: 40, Instructions: 900},
		After:         pipeline.Totals{Binaries: 4, FunctionBodies: 30, Instructions: 700},
		MostDuplicated: []pipeline.DupGroup{
			{Path: "a.wasm", Count: 3},
		},
		DuplicationPercent:  33.3,
		ParamsWritten:       12,
		ReturnsWritten:      4,
		UnusedParamsRemoved: 2,
		UnknownTypesRemoved: 1,
		BytesWritten:        2048,
		TypeDistribution: []pipeline.TypeCount{
			{Type: "primitive int32_t", Count: 9},
		},
		Errors: []pipeline.FileError{
			{File: "bad.wasm", Err: goerrors.New("boom")},
		},
	}

	out := renderReportWith(rep, newReportStyles(false))
	for _, want := range []string{
		"files scanned: 10",
		"not wasm: 3",
		"6 -> 4 (33.3% duplicates)",
		"3x a.wasm",
		"params written: 12",
		"primitive int32_t",
		"failures (1)",
		"bad.wasm: boom",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestBuildConfig(t *testing.T) {
	opts := &options{
		outDir:             "out",
		repr:               "windows",
		windowSize:         7,
		typedefs:           "to-nominal",
		keepNames:          []string{"Point"},
		workers:            4,
		seed:               42,
		filterUnusedParams: true,
	}
	cfg, err := buildConfig(opts, []string{"in"})
	if err != nil {
		t.Fatalf("buildConfig: %v", err)
	}
	if cfg.Repr.Kind != sample.ReprWindows || cfg.Repr.N != 7 {
		t.Errorf("repr = %+v", cfg.Repr)
	}
	if cfg.Simplify.Typedefs != sample.TypedefToNominal {
		t.Errorf("typedef mode = %v", cfg.Simplify.Typedefs)
	}
	if _, ok := cfg.Simplify.KeepNames["Point"]; !ok {
		t.Error("keep-name not mapped")
	}
	if cfg.Seed != 42 || cfg.Workers != 4 {
		t.Errorf("cfg = %+v", cfg)
	}
	if !cfg.FilterUnusedParams || cfg.FilterUnknownTypes {
		t.Errorf("filters = %v, %v, want true, false",
			cfg.FilterUnusedParams, cfg.FilterUnknownTypes)
	}
}

func TestFilterFlagDefaults(t *testing.T) {
	cmd := newRootCmd()
	for _, name := range []string{"wasm-filter-unused-param", "type-filter-unknown"} {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			t.Fatalf("flag %q not registered", name)
		}
		if f.DefValue != "true" {
			t.Errorf("flag %q default = %q, want true", name, f.DefValue)
		}
	}
}

func TestBuildConfigRejectsNameFlagClash(t *testing.T) {
	opts := &options{
		repr:        "full",
		typedefs:    "keep",
		removeNames: true,
		keepNames:   []string{"Point"},
	}
	if _, err := buildConfig(opts, []string{"in"}); err == nil {
		t.Error("expected error for --remove-names with --keep-name")
	}
}

func TestBuildConfigRejectsBadRepr(t *testing.T) {
	opts := &options{repr: "bogus", typedefs: "keep"}
	if _, err := buildConfig(opts, []string{"in"}); err == nil {
		t.Error("expected error for unknown repr")
	}
}
