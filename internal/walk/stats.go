package walk

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
)

// Stats summarizes a finished run.
type Stats struct {
	DirsWalked      int64         // Directories enumerated successfully
	FilesEvaluated  int64         // Non-directory entries evaluated
	Matches         int64         // Lines reported
	Errors          int64         // Contained failures
	SymlinksSkipped int64         // Directories not descended because already walked
	Elapsed         time.Duration // Wall time of the run
}

// Add returns the field-wise sum of s and o.
func (s Stats) Add(o Stats) Stats {
	return Stats{
		DirsWalked:      s.DirsWalked + o.DirsWalked,
		FilesEvaluated:  s.FilesEvaluated + o.FilesEvaluated,
		Matches:         s.Matches + o.Matches,
		Errors:          s.Errors + o.Errors,
		SymlinksSkipped: s.SymlinksSkipped + o.SymlinksSkipped,
		Elapsed:         s.Elapsed + o.Elapsed,
	}
}

func (s Stats) String() string {
	return fmt.Sprintf("%s %s, %s files, %s directories, %s %s",
		humanize.Comma(s.Matches), plural(s.Matches, "match", "matches"),
		humanize.Comma(s.FilesEvaluated),
		humanize.Comma(s.DirsWalked),
		humanize.Comma(s.Errors), plural(s.Errors, "error", "errors"))
}

func plural(n int64, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// counters are updated by workers without locking.
type counters struct {
	dirs    atomic.Int64
	files   atomic.Int64
	matches atomic.Int64
	errors  atomic.Int64
	skipped atomic.Int64
}

func (c *counters) snapshot(elapsed time.Duration) Stats {
	return Stats{
		DirsWalked:      c.dirs.Load(),
		FilesEvaluated:  c.files.Load(),
		Matches:         c.matches.Load(),
		Errors:          c.errors.Load(),
		SymlinksSkipped: c.skipped.Load(),
		Elapsed:         elapsed,
	}
}
