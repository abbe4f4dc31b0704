package search

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnsupportedStrategy is matched by every UnsupportedStrategyError.
	ErrUnsupportedStrategy = errors.New("search: strategy not implemented")

	// ErrNoName is matched by every NameError.
	ErrNoName = errors.New("search: entry has no name")

	// ErrInvalidStrategy is matched by every InvalidStrategyError.
	ErrInvalidStrategy = errors.New("search: invalid search type")
)

// InvalidStrategyError is returned by ParseStrategy for an unknown search type.
type InvalidStrategyError struct {
	Value string
}

func (e *InvalidStrategyError) Error() string {
	names := make([]string, 0, len(strategyNames))
	for _, s := range Strategies() {
		names = append(names, "'"+s.String()+"'")
	}
	return fmt.Sprintf("invalid search type %q: must be %s", e.Value, strings.Join(names, ", "))
}

func (e *InvalidStrategyError) Is(target error) bool { return target == ErrInvalidStrategy }

// UnsupportedStrategyError reports an evaluation under a strategy that has no
// matching algorithm.
type UnsupportedStrategyError struct {
	Strategy Strategy
	Path     string
}

func (e *UnsupportedStrategyError) Error() string {
	return fmt.Sprintf("search: strategy %q not implemented (path %q)", e.Strategy, e.Path)
}

func (e *UnsupportedStrategyError) Is(target error) bool { return target == ErrUnsupportedStrategy }

// NameError reports a path whose final component cannot be determined.
type NameError struct {
	Path string
}

func (e *NameError) Error() string {
	return fmt.Sprintf("search: cannot determine entry name of %q", e.Path)
}

func (e *NameError) Is(target error) bool { return target == ErrNoName }
