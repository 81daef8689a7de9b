package pipeline

import (
	"sort"
	"sync"
)

// FileError tags an error with the file it came from, so failures can be
// reported long after the worker that hit them moved on.
type FileError struct {
	File string
	Err  error
}

func (e FileError) Error() string {
	return e.File + ": " + e.Err.Error()
}

func (e FileError) Unwrap() error {
	return e.Err
}

// Collector accumulates file errors from concurrent workers.
type Collector struct {
	mu   sync.Mutex
	errs []FileError
}

func (c *Collector) Add(file string, err error) {
	c.mu.Lock()
	c.errs = append(c.errs, FileError{File: file, Err: err})
	c.mu.Unlock()
}

func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.errs)
}

// Sorted returns the collected errors ordered by message, for stable
// reporting regardless of worker scheduling.
func (c *Collector) Sorted() []FileError {
	c.mu.Lock()
	out := make([]FileError, len(c.errs))
	copy(out, c.errs)
	c.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		return out[i].Error() < out[j].Error()
	})
	return out
}
