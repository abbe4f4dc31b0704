package walk

import (
	"fmt"
	"runtime"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultQueueSize is the capacity of the pending-work queue when none is
// configured.
const DefaultQueueSize = 1024

// SymlinkHandling defines how symbolic links are processed.
type SymlinkHandling int

const (
	SymlinkIgnore SymlinkHandling = iota // Evaluate links as entries, never descend
	SymlinkFollow                        // Descend into linked directories once per real path
)

func (s SymlinkHandling) String() string {
	switch s {
	case SymlinkIgnore:
		return "ignore"
	case SymlinkFollow:
		return "follow"
	default:
		return fmt.Sprintf("SymlinkHandling(%d)", int(s))
	}
}

// LogLevel defines the verbosity of logging.
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

// Options configures a search run. The zero value is usable.
type Options struct {
	Workers         int // Size of the worker pool, defaults to runtime.NumCPU()
	QueueSize       int // Capacity of the pending-work queue
	Parallelism     int // Chunking hint, defaults to Workers
	SymlinkHandling SymlinkHandling
	Logger          *zap.Logger
	LogLevel        LogLevel

	// OnDirectory is called for each directory just before it is
	// enumerated, including directories whose enumeration then fails. It
	// must be safe for concurrent use.
	OnDirectory func(path string)

	// OnError is called for every contained failure (*ReadDirError or
	// *TaskError). It must be safe for concurrent use.
	OnError func(err error)

	// visited is shared by every run started from the same defaulted
	// Options under SymlinkFollow.
	visited *visitedDirs
}

func (o Options) withDefaults() (Options, error) {
	if o.Workers < 0 {
		return o, fmt.Errorf("walk: workers must not be negative, got %d", o.Workers)
	}
	if o.QueueSize < 0 {
		return o, fmt.Errorf("walk: queue size must not be negative, got %d", o.QueueSize)
	}
	if o.Workers == 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.QueueSize == 0 {
		o.QueueSize = DefaultQueueSize
	}
	if o.Parallelism <= 0 {
		o.Parallelism = o.Workers
	}
	if o.Logger == nil {
		o.Logger = NewLogger(o.LogLevel)
	}
	if o.SymlinkHandling == SymlinkFollow && o.visited == nil {
		o.visited = &visitedDirs{}
	}
	return o, nil
}

// NewLogger creates a zap logger writing to stderr at the given level.
// Sampling is disabled so that every diagnostic reaches the stream.
func NewLogger(level LogLevel) *zap.Logger {
	var config zap.Config

	switch level {
	case LogLevelError:
		config = zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	case LogLevelWarn:
		config = zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case LogLevelDebug:
		config = zap.NewDevelopmentConfig()
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		config = zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	config.Sampling = nil
	config.DisableStacktrace = true
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}

	logger, err := config.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
