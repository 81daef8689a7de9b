package pipeline

import (
	"fmt"
	"io"
	"sort"
	"sync"
)

// NameStats counts, per type name, how often each file contributed it.
// Recorded before simplification so renamed or stripped tokens still
// show up in the dump.
type NameStats struct {
	mu    sync.Mutex
	names map[string]map[string]int
}

func NewNameStats() *NameStats {
	return &NameStats{names: make(map[string]map[string]int)}
}

func (s *NameStats) Add(name, file string) {
	s.mu.Lock()
	m := s.names[name]
	if m == nil {
		m = make(map[string]int)
		s.names[name] = m
	}
	m[file]++
	s.mu.Unlock()
}

func (s *NameStats) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.names)
}

// WriteCSV dumps the stats as `name,file,count` rows, sorted by name
// then file. Name and file are quoted since both can contain commas.
func (s *NameStats) WriteCSV(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := io.WriteString(w, "name,file,count\n"); err != nil {
		return err
	}
	names := make([]string, 0, len(s.names))
	for name := range s.names {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		byFile := s.names[name]
		files := make([]string, 0, len(byFile))
		for file := range byFile {
			files = append(files, file)
		}
		sort.Strings(files)
		for _, file := range files {
			if _, err := fmt.Fprintf(w, "%q,%q,%d\n", name, file, byFile[file]); err != nil {
				return err
			}
		}
	}
	return nil
}
