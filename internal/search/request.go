package search

import (
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Request is the read-only context of one search run. It is built once and
// shared by pointer between all tasks; nothing mutates it afterwards.
type Request struct {
	query    string
	strategy Strategy
}

// NewRequest lower-cases query and binds it to strategy.
func NewRequest(query string, strategy Strategy) *Request {
	return &Request{
		query:    normalize(query),
		strategy: strategy,
	}
}

// Query returns the lower-cased query.
func (r *Request) Query() string { return r.query }

// Strategy returns the active strategy.
func (r *Request) Strategy() Strategy { return r.strategy }

// Evaluate applies the request to the final name component of path.
//
// It returns a *NameError when path has no final component and an
// *UnsupportedStrategyError for strategies without an algorithm. A false
// result with a nil error means the entry does not match.
func (r *Request) Evaluate(path string) (bool, error) {
	name, err := EntryName(path)
	if err != nil {
		return false, err
	}
	switch r.strategy {
	case Substring:
		return strings.Contains(normalize(name), r.query), nil
	case Exact:
		return normalize(name) == r.query, nil
	case Content, Fuzzy:
		return false, &UnsupportedStrategyError{Strategy: r.strategy, Path: path}
	default:
		return false, &UnsupportedStrategyError{Strategy: r.strategy, Path: path}
	}
}

// EntryName returns the last element of path. Paths that end in a root,
// current or parent directory reference have no name.
func EntryName(path string) (string, error) {
	if path == "" {
		return "", &NameError{Path: path}
	}
	name := filepath.Base(path)
	switch name {
	case ".", "..", string(filepath.Separator):
		return "", &NameError{Path: path}
	}
	return name, nil
}

// A cases.Caser may keep state between calls, so each goroutine borrows one.
var lowerPool = sync.Pool{
	New: func() any {
		c := cases.Lower(language.Und)
		return &c
	},
}

// normalize lower-cases s with the Unicode default mapping, including the
// final sigma rule. It does not change the normalization form, so composed
// and decomposed spellings stay distinct.
func normalize(s string) string {
	c := lowerPool.Get().(*cases.Caser)
	defer lowerPool.Put(c)
	return c.String(s)
}
