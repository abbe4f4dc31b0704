// Package walk implements the concurrent directory search: a bounded queue of
// directory and chunk tasks drained by a fixed pool of workers, with a
// counting barrier that holds Run until every descendant task has finished.
package walk

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/karrick/godirwalk"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"

	"github.com/TFMV/sift/internal/report"
	"github.com/TFMV/sift/internal/search"
)

// scratchSize is the per-worker buffer handed to godirwalk.ReadDirents.
const scratchSize = 64 * 1024

// job is one scheduled unit on the queue.
type job interface {
	run(w *worker)
	target() string
}

// DirectoryTask enumerates one directory and fans out its entries.
type DirectoryTask struct {
	Path    string
	Request *search.Request
}

// FileTask evaluates one non-directory entry.
type FileTask struct {
	Path    string
	Request *search.Request
}

// chunkTask carries one batch of a directory listing.
type chunkTask struct {
	dir     string
	entries godirwalk.Dirents
	req     *search.Request
}

type engine struct {
	ctx      context.Context
	req      *search.Request
	opts     Options
	logger   *zap.Logger
	reporter *report.Reporter
	queue    chan job
	pending  sync.WaitGroup
	stats    counters
	visited  *visitedDirs
	readDir  func(path string, scratch []byte) (godirwalk.Dirents, error)
}

type worker struct {
	e       *engine
	scratch []byte
}

// Run searches the tree below root for entries matching req and writes each
// match to rep. It returns once every directory and file task spawned by the
// run has completed.
//
// Directories that cannot be read and entries that cannot be evaluated are
// logged, counted in Stats.Errors and passed to Options.OnError; they never
// stop the run. The returned error is non-nil only for invalid arguments or
// when ctx is cancelled.
func Run(ctx context.Context, root string, req *search.Request, rep *report.Reporter, opts Options) (Stats, error) {
	e, err := newEngine(ctx, req, rep, opts)
	if err != nil {
		return Stats{}, err
	}
	return e.run(root)
}

func newEngine(ctx context.Context, req *search.Request, rep *report.Reporter, opts Options) (*engine, error) {
	if req == nil {
		return nil, errors.New("walk: nil search request")
	}
	if rep == nil {
		return nil, errors.New("walk: nil reporter")
	}
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}

	e := &engine{
		ctx:      ctx,
		req:      req,
		opts:     opts,
		logger:   opts.Logger.With(zap.String("run_id", uuid.NewString())),
		reporter: rep,
		queue:    make(chan job, opts.QueueSize),
		readDir:  godirwalk.ReadDirents,
	}
	if opts.SymlinkHandling == SymlinkFollow {
		e.visited = opts.visited
	}
	return e, nil
}

func (e *engine) run(root string) (Stats, error) {
	start := time.Now()
	root = filepath.Clean(root)

	e.logger.Debug("starting search",
		zap.String("root", root),
		zap.String("query", e.req.Query()),
		zap.Stringer("strategy", e.req.Strategy()),
		zap.Int("workers", e.opts.Workers),
		zap.Int("queue_size", e.opts.QueueSize),
		zap.Int("parallelism", e.opts.Parallelism),
		zap.Stringer("symlinks", e.opts.SymlinkHandling),
	)

	var workers conc.WaitGroup
	for i := 0; i < e.opts.Workers; i++ {
		w := &worker{e: e, scratch: make([]byte, scratchSize)}
		workers.Go(func() {
			for j := range e.queue {
				e.execute(w, j)
			}
		})
	}

	e.pending.Add(1)
	e.queue <- DirectoryTask{Path: root, Request: e.req}

	e.pending.Wait()
	close(e.queue)
	workers.Wait()

	stats := e.stats.snapshot(time.Since(start))
	e.logger.Debug("search finished",
		zap.String("root", root),
		zap.Int64("dirs", stats.DirsWalked),
		zap.Int64("files", stats.FilesEvaluated),
		zap.Int64("matches", stats.Matches),
		zap.Int64("errors", stats.Errors),
		zap.Duration("elapsed", stats.Elapsed),
	)

	if err := e.ctx.Err(); err != nil {
		return stats, err
	}
	return stats, nil
}

// submit queues j. When the queue is full the submitting worker runs j
// itself, so workers never block on each other.
func (e *engine) submit(w *worker, j job) {
	if e.ctx.Err() != nil {
		return
	}
	e.pending.Add(1)
	select {
	case e.queue <- j:
	default:
		e.execute(w, j)
	}
}

// execute runs j and releases its barrier slot. A panic inside j is
// contained to j and reported as a TaskError.
func (e *engine) execute(w *worker, j job) {
	defer e.pending.Done()
	if e.ctx.Err() != nil {
		return
	}

	var pc panics.Catcher
	pc.Try(func() { j.run(w) })
	if r := pc.Recovered(); r != nil {
		e.fail(&TaskError{Path: j.target(), Err: fmt.Errorf("panic: %v", r.Value)})
	}
}

// fail records a contained failure.
func (e *engine) fail(err error) {
	e.stats.errors.Add(1)

	var rde *ReadDirError
	var te *TaskError
	switch {
	case errors.As(err, &rde):
		e.logger.Error("cannot read directory", zap.String("path", rde.Path), zap.Error(rde.Err))
	case errors.As(err, &te):
		e.logger.Error("task failed", zap.String("path", te.Path), zap.Error(te.Err))
	default:
		e.logger.Error("task failed", zap.Error(err))
	}

	if e.opts.OnError != nil {
		e.opts.OnError(err)
	}
}

func (t DirectoryTask) target() string { return t.Path }

func (t DirectoryTask) run(w *worker) {
	e := w.e

	if e.visited != nil {
		canonical, err := filepath.EvalSymlinks(t.Path)
		if err != nil {
			e.fail(&ReadDirError{Path: t.Path, Err: err})
			return
		}
		if !e.visited.first(canonical) {
			e.stats.skipped.Add(1)
			e.logger.Debug("directory already walked", zap.String("path", t.Path), zap.String("real_path", canonical))
			return
		}
	}

	if e.opts.OnDirectory != nil {
		e.opts.OnDirectory(t.Path)
	}
	entries, err := e.readDir(t.Path, w.scratch)
	if err != nil {
		e.fail(&ReadDirError{Path: t.Path, Err: err})
		return
	}
	e.stats.dirs.Add(1)

	for _, batch := range Chunks(entries, e.opts.Parallelism) {
		e.submit(w, chunkTask{dir: t.Path, entries: batch, req: t.Request})
	}
}

func (c chunkTask) target() string { return c.dir }

func (c chunkTask) run(w *worker) {
	e := w.e
	for _, de := range c.entries {
		if e.ctx.Err() != nil {
			return
		}
		path := filepath.Join(c.dir, de.Name())
		if e.descend(path, de) {
			e.submit(w, DirectoryTask{Path: path, Request: c.req})
			continue
		}
		FileTask{Path: path, Request: c.req}.run(w)
	}
}

// descend reports whether the entry at path is walked as a directory.
func (e *engine) descend(path string, de *godirwalk.Dirent) bool {
	if de.IsDir() {
		return true
	}
	if !de.IsSymlink() || e.opts.SymlinkHandling != SymlinkFollow {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		// Dangling links are evaluated by name like any other entry.
		return false
	}
	return info.IsDir()
}

func (t FileTask) target() string { return t.Path }

func (t FileTask) run(w *worker) {
	e := w.e
	e.stats.files.Add(1)

	matched, err := Evaluate(t.Request, e.reporter, t.Path)
	if err != nil {
		e.fail(&TaskError{Path: t.Path, Err: err})
		return
	}
	if matched {
		e.stats.matches.Add(1)
	}
}

// Evaluate applies req to path and reports a match to rep.
func Evaluate(req *search.Request, rep *report.Reporter, path string) (bool, error) {
	matched, err := req.Evaluate(path)
	if err != nil || !matched {
		return false, err
	}
	if err := rep.Report(report.Match{Path: path}); err != nil {
		return false, err
	}
	return true, nil
}
