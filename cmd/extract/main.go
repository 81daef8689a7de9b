// Command extract builds a type-prediction training corpus from wasm
// binaries with embedded DWARF debug info.
package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wasmlab/typecorpus/pipeline"
	"github.com/wasmlab/typecorpus/sample"
)

type options struct {
	outDir     string
	repr       string
	windowSize int
	rawType    bool

	removeNames      bool
	keepNames        []string
	typedefs         string
	flattenOutermost bool
	removeConst      bool
	classToStruct    bool

	filterUnusedParams bool
	filterUnknownTypes bool

	seed      int64
	workers   int
	statsMax  int
	nameStats string
	logFile   string
	verbose   bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "extract [flags] <input>...",
		Short: "Build a wasm type-prediction corpus from binaries with DWARF debug info",
		Long: `extract walks the given files and directories, keeps the wasm binaries,
drops structural duplicates, matches function bodies against the DWARF
subprograms embedded alongside them, and writes one training sample per
parameter and return value into the output directory.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts, args)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.outDir, "out", "o", "corpus", "output directory")
	f.StringVar(&opts.repr, "wasm-repr", "windows", "body representation: hash, full, subrange, windows")
	f.IntVar(&opts.windowSize, "window-size", 9, "window or subrange length in instructions")
	f.BoolVar(&opts.rawType, "raw-type", false, "prefix each body with its raw wasm value type")
	f.BoolVar(&opts.removeNames, "remove-names", false, "drop all nominal type names")
	f.StringSliceVar(&opts.keepNames, "keep-name", nil, "keep only these nominal names (repeatable)")
	f.StringVar(&opts.typedefs, "typedefs", "keep", "typedef handling: keep, to-nominal, remove")
	f.BoolVar(&opts.flattenOutermost, "flatten-outermost-name", false, "keep only the first name token per type")
	f.BoolVar(&opts.removeConst, "remove-const", false, "drop const tokens")
	f.BoolVar(&opts.classToStruct, "class-to-struct", false, "rewrite class tokens to struct")
	f.BoolVar(&opts.filterUnusedParams, "wasm-filter-unused-param", true, "drop params no instruction touches")
	f.BoolVar(&opts.filterUnknownTypes, "type-filter-unknown", true, "drop samples whose type is unknown")
	f.Int64Var(&opts.seed, "seed", 0, "window shuffle seed")
	f.IntVar(&opts.workers, "workers", runtime.NumCPU(), "parallel workers")
	f.IntVar(&opts.statsMax, "stats-max", 10, "rows in the report tables")
	f.StringVar(&opts.nameStats, "name-stats", "", "write type-name statistics CSV to this path")
	f.StringVar(&opts.logFile, "log-file", "", "also log to this file (JSON)")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	return cmd
}

func run(opts *options, inputs []string) error {
	cfg, err := buildConfig(opts, inputs)
	if err != nil {
		return err
	}

	log, closeLog, err := newLogger(opts)
	if err != nil {
		return err
	}
	defer closeLog()
	pipeline.SetLogger(log)

	rep, err := pipeline.Run(cfg)
	if err != nil {
		return err
	}
	fmt.Print(renderReport(rep))
	return nil
}

func buildConfig(opts *options, inputs []string) (pipeline.Config, error) {
	var cfg pipeline.Config

	kind, err := sample.ParseReprKind(opts.repr)
	if err != nil {
		return cfg, err
	}
	mode, err := sample.ParseTypedefMode(opts.typedefs)
	if err != nil {
		return cfg, err
	}
	if opts.removeNames && len(opts.keepNames) > 0 {
		return cfg, fmt.Errorf("--remove-names and --keep-name are mutually exclusive")
	}
	var keep map[string]struct{}
	if len(opts.keepNames) > 0 {
		keep = make(map[string]struct{}, len(opts.keepNames))
		for _, n := range opts.keepNames {
			keep[n] = struct{}{}
		}
	}

	return pipeline.Config{
		Inputs:  inputs,
		OutDir:  opts.outDir,
		Workers: opts.workers,
		Seed:    opts.seed,
		Repr: sample.ReprOptions{
			Kind:    kind,
			N:       opts.windowSize,
			RawType: opts.rawType,
		},
		Simplify: sample.SimplifyOptions{
			RemoveNames:          opts.removeNames,
			KeepNames:            keep,
			Typedefs:             mode,
			FlattenOutermostName: opts.flattenOutermost,
			RemoveConst:          opts.removeConst,
			ClassToStruct:        opts.classToStruct,
		},
		StatsMax:           opts.statsMax,
		NameStatsPath:      opts.nameStats,
		FilterUnusedParams: opts.filterUnusedParams,
		FilterUnknownTypes: opts.filterUnknownTypes,
	}, nil
}

func newLogger(opts *options) (*zap.Logger, func(), error) {
	level := zapcore.InfoLevel
	if opts.verbose {
		level = zapcore.DebugLevel
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stderr), level),
	}

	var file *os.File
	if opts.logFile != "" {
		f, err := os.OpenFile(opts.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		file = f
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(f),
			level,
		))
	}

	log := zap.New(zapcore.NewTee(cores...))
	closer := func() {
		_ = log.Sync()
		if file != nil {
			file.Close()
		}
	}
	return log, closer, nil
}
