package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/TFMV/sift/internal/report"
	"github.com/TFMV/sift/internal/walk"
)

func newWatchCommand(v *viper.Viper) *cobra.Command {
	watchCmd := &cobra.Command{
		Use:   "watch <directory> <query> [search_type]",
		Short: "Search, then keep reporting new matches as files appear",
		Long: `Search the tree like the root command, then watch every directory and report
entries that are created or moved into the tree until interrupted.

Examples:
  sift watch /path/to/watch report
  sift watch --timeout=30m /var/log error exact`,
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

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if timeout := v.GetDuration("watch.timeout"); timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s for changes... Press Ctrl+C to exit.\n", args[0])

			stats, err := walk.Watch(ctx, args[0], req, report.New(cmd.OutOrStdout()), searchOptions(v, logger))
			if err != nil {
				return err
			}

			if !v.GetBool("quiet") {
				printSummary(cmd, time.Since(start), stats)
			}
			return nil
		},
	}

	watchCmd.Flags().Duration("timeout", 0, "Duration to watch before exiting (e.g. 1h, 30m)")
	v.BindPFlag("watch.timeout", watchCmd.Flags().Lookup("timeout"))

	return watchCmd
}
