// Package search holds the immutable search request shared by every traversal
// task and the per-entry name evaluation for each matching strategy.
package search

// Strategy selects how an entry name is compared with the query.
type Strategy uint8

const (
	Substring Strategy = iota // Name contains the query
	Exact                     // Name equals the query
	Content                   // Accepted, no algorithm
	Fuzzy                     // Accepted, no algorithm
)

// DefaultStrategy is used when no search type is given.
const DefaultStrategy = Substring

var strategyNames = [...]string{
	Substring: "substring",
	Exact:     "exact",
	Content:   "content",
	Fuzzy:     "fuzzy",
}

// Strategies lists every accepted strategy in declaration order.
func Strategies() []Strategy {
	return []Strategy{Substring, Exact, Content, Fuzzy}
}

func (s Strategy) String() string {
	if int(s) < len(strategyNames) {
		return strategyNames[s]
	}
	return "unknown"
}

// Implemented reports whether the strategy has a matching algorithm.
func (s Strategy) Implemented() bool {
	return s == Substring || s == Exact
}

// ParseStrategy converts a command line search type into a Strategy.
// An empty value yields DefaultStrategy.
func ParseStrategy(value string) (Strategy, error) {
	if value == "" {
		return DefaultStrategy, nil
	}
	for i, name := range strategyNames {
		if name == value {
			return Strategy(i), nil
		}
	}
	return 0, &InvalidStrategyError{Value: value}
}
