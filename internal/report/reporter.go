// Package report writes match results to an output stream, one line per
// match, safely from any number of goroutines.
package report

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
)

// Match is a single positive evaluation result.
type Match struct {
	Path string
}

var spaceEscaper = strings.NewReplacer(" ", `\ `)

// Escape replaces every space in path with a backslash-escaped space.
// No other character is escaped.
func Escape(path string) string {
	return spaceEscaper.Replace(path)
}

// Reporter serializes matches onto w. Each line is written with a single
// Write call while holding the lock, so lines never interleave.
type Reporter struct {
	mu    sync.Mutex
	w     io.Writer
	buf   []byte
	count atomic.Int64
}

// New returns a Reporter writing to w.
func New(w io.Writer) *Reporter {
	return &Reporter{w: w}
}

// Report writes m as one escaped line.
func (r *Reporter) Report(m Match) error {
	line := Escape(m.Path)

	r.mu.Lock()
	r.buf = append(r.buf[:0], line...)
	r.buf = append(r.buf, '\n')
	_, err := r.w.Write(r.buf)
	r.mu.Unlock()

	if err != nil {
		return fmt.Errorf("report %q: %w", m.Path, err)
	}
	r.count.Add(1)
	return nil
}

// Count returns the number of lines written successfully.
func (r *Reporter) Count() int64 {
	return r.count.Load()
}
