// Package walk is the public API of sift: a concurrent, recursive search of a
// directory tree for entries whose name matches a query.
//
// Basic usage:
//
//	req := walk.NewRequest("report", walk.Substring)
//	stats, err := walk.Run(context.Background(), "/srv/data", req, walk.NewReporter(os.Stdout), walk.Options{})
//
// Exact names:
//
//	strategy, err := walk.ParseStrategy("exact")
//	req := walk.NewRequest("report.txt", strategy)
//
// Following symlinked directories, each real directory at most once:
//
//	opts := walk.Options{SymlinkHandling: walk.SymlinkFollow, Workers: 16}
//
// Reporting new matches after the initial search until ctx is done:
//
//	stats, err := walk.Watch(ctx, "/var/log", req, walk.NewReporter(os.Stdout), opts)
//
// Directories that cannot be read and entries that cannot be evaluated never
// abort a run. They are logged through Options.Logger, counted in
// Stats.Errors and passed to Options.OnError as *ReadDirError or *TaskError.
package walk
