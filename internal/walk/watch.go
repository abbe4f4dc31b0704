package walk

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/TFMV/sift/internal/report"
	"github.com/TFMV/sift/internal/search"
)

// Watch runs a full search below root and then keeps reporting entries that
// are created or moved into the tree until ctx is done. Every directory the
// search enumerates is watched, and directories that appear later are
// searched and watched in turn.
//
// The returned Stats accumulate the initial run, every later subtree run and
// every event evaluation. Under SymlinkFollow all of those runs share one
// record of walked directories, so a link created later to a directory
// already searched is not searched again.
func Watch(ctx context.Context, root string, req *search.Request, rep *report.Reporter, opts Options) (Stats, error) {
	if req == nil {
		return Stats{}, errors.New("walk: nil search request")
	}
	if rep == nil {
		return Stats{}, errors.New("walk: nil reporter")
	}
	opts, err := opts.withDefaults()
	if err != nil {
		return Stats{}, err
	}
	logger := opts.Logger

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return Stats{}, fmt.Errorf("error creating watcher: %w", err)
	}
	defer watcher.Close()

	// Directories are added before they are listed so that no entry created
	// in between is missed.
	onDirectory := opts.OnDirectory
	opts.OnDirectory = func(path string) {
		if err := watcher.Add(path); err != nil {
			watchFailed(logger, path, err)
		}
		if onDirectory != nil {
			onDirectory(path)
		}
	}

	total, err := Run(ctx, root, req, rep, opts)
	if err != nil {
		if ctx.Err() != nil {
			return total, nil
		}
		return total, err
	}
	logger.Debug("watching for changes", zap.String("root", root), zap.Int64("dirs", total.DirsWalked))

	for {
		select {
		case <-ctx.Done():
			return total, nil

		case event, ok := <-watcher.Events:
			if !ok {
				return total, nil
			}
			// A rename reports the old name; the new name arrives as Create.
			if !event.Has(fsnotify.Create) {
				continue
			}
			total = total.Add(handleCreate(ctx, event.Name, req, rep, opts))

		case err, ok := <-watcher.Errors:
			if !ok {
				return total, nil
			}
			logger.Warn("watcher error", zap.Error(err))
		}
	}
}

// watchFailed logs a directory that could not be watched. Missing and
// unreadable directories are reported by the walk that follows.
func watchFailed(logger *zap.Logger, path string, err error) {
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		logger.Debug("cannot watch directory", zap.String("path", path), zap.Error(err))
		return
	}
	logger.Warn("cannot watch directory", zap.String("path", path), zap.Error(err))
}

// handleCreate searches a new directory or evaluates a new entry.
func handleCreate(ctx context.Context, path string, req *search.Request, rep *report.Reporter, opts Options) Stats {
	info, err := os.Lstat(path)
	if err != nil {
		// Already gone again.
		opts.Logger.Debug("created entry vanished", zap.String("path", path), zap.Error(err))
		return Stats{}
	}

	isDir := info.IsDir()
	if !isDir && info.Mode()&os.ModeSymlink != 0 && opts.SymlinkHandling == SymlinkFollow {
		if target, err := os.Stat(path); err == nil {
			isDir = target.IsDir()
		}
	}
	if isDir {
		stats, err := Run(ctx, path, req, rep, opts)
		if err != nil && !errors.Is(err, context.Canceled) {
			opts.Logger.Warn("cannot search new directory", zap.String("path", path), zap.Error(err))
		}
		return stats
	}

	stats := Stats{FilesEvaluated: 1}
	matched, err := Evaluate(req, rep, path)
	if err != nil {
		stats.Errors = 1
		terr := &TaskError{Path: path, Err: err}
		opts.Logger.Error("task failed", zap.String("path", path), zap.Error(err))
		if opts.OnError != nil {
			opts.OnError(terr)
		}
		return stats
	}
	if matched {
		stats.Matches = 1
	}
	return stats
}
