package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/TFMV/sift/internal/report"
	"github.com/TFMV/sift/internal/search"
	"github.com/TFMV/sift/internal/walk"
)

var version = "0.1.0"

// NewRootCommand builds the sift command tree. Each call gets its own viper
// instance so commands can be constructed more than once.
func NewRootCommand() *cobra.Command {
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:   "sift <directory> <query> [search_type]",
		Short: "Search a directory tree for file names matching a query",
		Long: `sift recursively searches a directory tree for entries whose name matches
a query. Directories are enumerated concurrently by a pool of workers and every
match is printed on its own line, with spaces escaped as "\ ".

Search types:
  substring  name contains the query (default)
  exact      name equals the query
  content    accepted, not implemented
  fuzzy      accepted, not implemented

Matching is case-insensitive and only considers the final name component.

Examples:
  sift /path/to/search report
  sift /path/to/search report.txt exact
  sift --workers=16 --follow-symlinks /srv notes`,
		Version:       version,
		Args:          cobra.RangeArgs(2, 3),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()

			req, err := parseRequest(args)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			logger := newLogger(v)
			defer logger.Sync()

			opts := searchOptions(v, logger)
			stats, err := walk.Run(context.Background(), args[0], req, report.New(cmd.OutOrStdout()), opts)
			if err != nil {
				return err
			}

			if !v.GetBool("quiet") {
				printSummary(cmd, time.Since(start), stats)
			}
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.IntP("workers", "w", 0, "Number of concurrent workers (default: number of CPUs)")
	flags.Int("queue-size", walk.DefaultQueueSize, "Capacity of the pending work queue")
	flags.Bool("follow-symlinks", false, "Descend into symlinked directories (each real directory once)")
	flags.BoolP("verbose", "v", false, "Enable debug logging")
	flags.BoolP("quiet", "q", false, "Do not print the summary line")

	v.BindPFlag("workers", flags.Lookup("workers"))
	v.BindPFlag("queue-size", flags.Lookup("queue-size"))
	v.BindPFlag("follow-symlinks", flags.Lookup("follow-symlinks"))
	v.BindPFlag("verbose", flags.Lookup("verbose"))
	v.BindPFlag("quiet", flags.Lookup("quiet"))

	rootCmd.AddCommand(newWatchCommand(v))
	return rootCmd
}

// Execute runs the root command against os.Args.
func Execute() error {
	return NewRootCommand().Execute()
}

// parseRequest validates the positional arguments and builds the shared
// search request. The query is normalized here, before any traversal.
func parseRequest(args []string) (*search.Request, error) {
	var searchType string
	if len(args) == 3 {
		searchType = args[2]
	}
	strategy, err := search.ParseStrategy(searchType)
	if err != nil {
		return nil, err
	}
	return search.NewRequest(args[1], strategy), nil
}

func newLogger(v *viper.Viper) *zap.Logger {
	if v.GetBool("verbose") {
		return walk.NewLogger(walk.LogLevelDebug)
	}
	return walk.NewLogger(walk.LogLevelInfo)
}

func searchOptions(v *viper.Viper, logger *zap.Logger) walk.Options {
	opts := walk.Options{
		Workers:         v.GetInt("workers"),
		QueueSize:       v.GetInt("queue-size"),
		SymlinkHandling: walk.SymlinkIgnore,
		Logger:          logger,
	}
	if v.GetBool("follow-symlinks") {
		opts.SymlinkHandling = walk.SymlinkFollow
	}
	return opts
}

func printSummary(cmd *cobra.Command, elapsed time.Duration, stats walk.Stats) {
	bold := color.New(color.Bold)
	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	bold.Fprintf(out, "Finished: %v", elapsed)
	fmt.Fprintf(out, " (%s)\n", stats)
}
