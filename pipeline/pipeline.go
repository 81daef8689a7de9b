// Package pipeline drives corpus extraction over a set of input files:
// a parallel stats pass, a sequential dedup pass, and a parallel
// extraction pass feeding one sequential writer.
package pipeline

import (
	"math/rand"
	"os"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/wasmlab/typecorpus/errors"
	"github.com/wasmlab/typecorpus/sample"
	"github.com/wasmlab/typecorpus/wasm"
	"github.com/wasmlab/typecorpus/writer"
)

// Config selects inputs, output layout and the per-sample transforms.
type Config struct {
	Inputs        []string
	OutDir        string
	Workers       int
	Seed          int64
	Repr          sample.ReprOptions
	Simplify      sample.SimplifyOptions
	StatsMax      int
	NameStatsPath string

	// FilterUnusedParams drops parameter samples whose local no
	// instruction touches. FilterUnknownTypes drops samples whose type
	// lowered to nothing but Unknown.
	FilterUnusedParams bool
	FilterUnknownTypes bool
}

// TypeCount is one row of the type distribution.
type TypeCount struct {
	Type  string
	Count int
}

// Report aggregates everything a run produced, for rendering by the CLI
// after all workers finish.
type Report struct {
	Files         int
	NonWasm       int
	ParseFailures int

	Before             Totals
	After              Totals
	MostDuplicated     []DupGroup
	DuplicationPercent float64

	ParamsWritten       int
	ReturnsWritten      int
	UnusedParamsRemoved int
	UnknownTypesRemoved int
	BytesWritten        int64

	TypeDistribution []TypeCount
	Errors           []FileError
}

// Run executes the three passes and returns the aggregated report.
// Failures of individual files never abort the run; they are collected
// into the report. Only input walking and output writing are fatal.
func Run(cfg Config) (*Report, error) {
	log := Logger()
	rep := &Report{}
	coll := &Collector{}

	files, err := CollectFiles(cfg.Inputs)
	if err != nil {
		return nil, err
	}
	rep.Files = len(files)
	log.Info("scanning inputs",
		zap.Int("files", len(files)),
		zap.Int("workers", cfg.Workers))

	// Pass 1: magic filter and per-binary stats.
	var mu sync.Mutex
	var stats []*wasm.BinaryStats
	ForEach(cfg.Workers, files, func(path string) {
		data, err := os.ReadFile(path)
		if err != nil {
			coll.Add(path, errors.Load("read file", err))
			return
		}
		if !wasm.IsWasm(data) {
			mu.Lock()
			rep.NonWasm++
			mu.Unlock()
			return
		}
		st, err := wasm.Stats(path, data)
		if err != nil {
			coll.Add(path, err)
			mu.Lock()
			rep.ParseFailures++
			mu.Unlock()
			return
		}
		mu.Lock()
		stats = append(stats, st)
		mu.Unlock()
	})

	// Pass 2: structural dedup.
	unique, groups := dedupStats(stats, cfg.StatsMax)
	rep.Before = sumTotals(stats)
	rep.After = sumTotals(unique)
	rep.MostDuplicated = groups
	if rep.Before.Binaries > 0 {
		dropped := rep.Before.Binaries - rep.After.Binaries
		rep.DuplicationPercent = 100 * float64(dropped) / float64(rep.Before.Binaries)
	}
	log.Info("deduplicated binaries",
		zap.Int("before", rep.Before.Binaries),
		zap.Int("after", rep.After.Binaries))

	// Pass 3: parallel producers, one sequential writer.
	out, err := writer.New(cfg.OutDir)
	if err != nil {
		return nil, err
	}
	names := NewNameStats()
	typeDist := make(map[string]int)

	ch := make(chan sample.Sample[string, sample.Type], chanCapacity(cfg.Workers))
	done := make(chan struct{})
	var writeErr error
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for s := range ch {
			if err := out.Write(s); err != nil {
				writeErr = err
				close(done)
				return
			}
			if s.Role.IsReturn {
				rep.ReturnsWritten++
			} else {
				rep.ParamsWritten++
			}
			typeDist[s.Type.String()]++
		}
	}()

	ForEach(cfg.Workers, unique, func(st *wasm.BinaryStats) {
		select {
		case <-done:
			return
		default:
		}
		samples, fc, err := extractFile(st.Path, cfg, names)
		mu.Lock()
		rep.UnusedParamsRemoved += fc.unusedParams
		rep.UnknownTypesRemoved += fc.unknownTypes
		mu.Unlock()
		if err != nil {
			coll.Add(st.Path, err)
			return
		}
		for _, s := range samples {
			select {
			case ch <- s:
			case <-done:
				return
			}
		}
	})
	close(ch)
	wg.Wait()

	if writeErr != nil {
		out.Close()
		return nil, writeErr
	}
	rep.BytesWritten, err = out.Flush()
	if err != nil {
		out.Close()
		return nil, err
	}
	if err := out.Close(); err != nil {
		return nil, err
	}

	rep.TypeDistribution = topTypes(typeDist, cfg.StatsMax)
	rep.Errors = coll.Sorted()
	for _, fe := range rep.Errors {
		log.Warn("file failed", zap.String("file", fe.File), zap.Error(fe.Err))
	}

	if cfg.NameStatsPath != "" {
		if err := dumpNameStats(names, cfg.NameStatsPath); err != nil {
			return nil, err
		}
		log.Info("wrote name statistics",
			zap.String("path", cfg.NameStatsPath),
			zap.Int("names", names.Len()))
	}

	log.Info("extraction finished",
		zap.Int("params", rep.ParamsWritten),
		zap.Int("returns", rep.ReturnsWritten),
		zap.Int64("bytes", rep.BytesWritten))
	return rep, nil
}

// The queue scales with worker count so producers rarely stall before
// the writer's first read.
func chanCapacity(workers int) int {
	if workers < 1 {
		return 1
	}
	return workers
}

type fileCounts struct {
	unusedParams int
	unknownTypes int
}

// extractFile turns one unique binary into finished samples: match,
// drop untouched params, lower types, record name stats, simplify,
// render. Any hard error fails the whole file.
func extractFile(path string, cfg Config, names *NameStats) ([]sample.Sample[string, sample.Type], fileCounts, error) {
	var fc fileCounts
	raws, err := sample.FromFile(path)
	if err != nil {
		return nil, fc, err
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	var out []sample.Sample[string, sample.Type]
	for _, rs := range raws {
		if cfg.FilterUnusedParams && !rs.Role.IsReturn {
			used, err := sample.UsesParam(rs.Body, rs.Role.ParamIdx)
			if err != nil {
				return nil, fc, err
			}
			if !used {
				fc.unusedParams++
				continue
			}
		}

		typ, err := sample.LowerType(rs.Type)
		if err != nil {
			return nil, fc, err
		}
		if cfg.FilterUnknownTypes && typ.IsUnknown() {
			fc.unknownTypes++
			continue
		}
		for _, tok := range typ {
			if tok.Kind == sample.TokenNominal || tok.Kind == sample.TokenTypedef {
				names.Add(tok.Name, path)
			}
		}

		body, err := cfg.Repr.Render(rs.Body, rs.Role, rs.WasmType, rng)
		if err != nil {
			return nil, fc, err
		}

		out = append(out, sample.Sample[string, sample.Type]{
			File:              rs.File,
			CompilationUnit:   rs.CompilationUnit,
			FunctionIdx:       rs.FunctionIdx,
			FunctionNameWasm:  rs.FunctionNameWasm,
			FunctionNameDwarf: rs.FunctionNameDwarf,
			Role:              rs.Role,
			WasmType:          rs.WasmType,
			Body:              body,
			Type:              sample.Simplify(typ, cfg.Simplify),
		})
	}
	return out, fc, nil
}

func topTypes(dist map[string]int, n int) []TypeCount {
	out := make([]TypeCount, 0, len(dist))
	for typ, count := range dist {
		out = append(out, TypeCount{Type: typ, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Type < out[j].Type
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func dumpNameStats(names *NameStats, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.PhaseWrite, errors.KindIOFailure, err, "create name stats file")
	}
	if err := names.WriteCSV(f); err != nil {
		f.Close()
		return errors.Wrap(errors.PhaseWrite, errors.KindIOFailure, err, "write name stats")
	}
	return f.Close()
}
