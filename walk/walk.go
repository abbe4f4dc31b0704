package walk

import (
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/TFMV/sift/internal/report"
	"github.com/TFMV/sift/internal/search"
	internal "github.com/TFMV/sift/internal/walk"
)

// Re-export the types from the internal packages
type (
	// Request is the immutable lower-cased query and strategy shared by every task.
	Request = search.Request

	// Strategy selects how entry names are compared with the query.
	Strategy = search.Strategy

	// Match is a single reported result.
	Match = report.Match

	// Reporter writes matches as atomic, space-escaped lines.
	Reporter = report.Reporter

	// Options configures a search run.
	Options = internal.Options

	// Stats summarizes a finished run.
	Stats = internal.Stats

	// SymlinkHandling defines how symbolic links are processed.
	SymlinkHandling = internal.SymlinkHandling

	// LogLevel defines the verbosity of logging.
	LogLevel = internal.LogLevel

	// ReadDirError reports a subtree that could not be enumerated.
	ReadDirError = internal.ReadDirError

	// TaskError reports a failure confined to one entry.
	TaskError = internal.TaskError

	// UnsupportedStrategyError reports evaluation under content or fuzzy.
	UnsupportedStrategyError = search.UnsupportedStrategyError

	// InvalidStrategyError reports an unknown search type.
	InvalidStrategyError = search.InvalidStrategyError

	// NameError reports a path without a final name component.
	NameError = search.NameError
)

// Re-export the constants
const (
	// Strategies
	Substring = search.Substring
	Exact     = search.Exact
	Content   = search.Content
	Fuzzy     = search.Fuzzy

	// Symlink handling modes
	SymlinkIgnore = internal.SymlinkIgnore
	SymlinkFollow = internal.SymlinkFollow

	// Log levels
	LogLevelError = internal.LogLevelError
	LogLevelWarn  = internal.LogLevelWarn
	LogLevelInfo  = internal.LogLevelInfo
	LogLevelDebug = internal.LogLevelDebug

	// DefaultQueueSize is the pending-work queue capacity used when
	// Options.QueueSize is zero.
	DefaultQueueSize = internal.DefaultQueueSize
)

// Sentinel errors for errors.Is.
var (
	ErrUnsupportedStrategy = search.ErrUnsupportedStrategy
	ErrInvalidStrategy     = search.ErrInvalidStrategy
	ErrNoName              = search.ErrNoName
)

// NewRequest normalizes query and binds it to strategy.
func NewRequest(query string, strategy Strategy) *Request {
	return search.NewRequest(query, strategy)
}

// ParseStrategy converts a search type name into a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	return search.ParseStrategy(name)
}

// NewReporter returns a Reporter writing to w.
func NewReporter(w io.Writer) *Reporter {
	return report.New(w)
}

// Escape returns path with every space escaped as a backslash and a space.
func Escape(path string) string {
	return report.Escape(path)
}

// Run searches the tree below root and writes every match to rep.
func Run(ctx context.Context, root string, req *Request, rep *Reporter, opts Options) (Stats, error) {
	return internal.Run(ctx, root, req, rep, opts)
}

// Watch runs a search and keeps reporting new matches until ctx is done.
func Watch(ctx context.Context, root string, req *Request, rep *Reporter, opts Options) (Stats, error) {
	return internal.Watch(ctx, root, req, rep, opts)
}

// Search is a convenience wrapper that parses searchType, runs a search with
// default options and writes matches to w.
func Search(ctx context.Context, root, query, searchType string, w io.Writer) (Stats, error) {
	strategy, err := ParseStrategy(searchType)
	if err != nil {
		return Stats{}, err
	}
	return Run(ctx, root, NewRequest(query, strategy), NewReporter(w), Options{})
}

// NewLogger creates a zap logger writing diagnostics to stderr.
func NewLogger(level LogLevel) *zap.Logger {
	return internal.NewLogger(level)
}
