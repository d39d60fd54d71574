package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/feichai0017/idrouter/internal/agent/scanner"
	"github.com/feichai0017/idrouter/internal/app"
	"github.com/feichai0017/idrouter/internal/models"
	"github.com/feichai0017/idrouter/pkg/converters"
)

func newScanCommand(c *cli) *cobra.Command {
	var (
		watch bool
		idle  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "scan <pages-dir> <output>",
		Short: "Route scanned page images, one page per document, into <output>",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("idle") {
				idle = c.cfg.Scanner.IdleTimeout
			}

			var (
				feeder scanner.Feeder
				err    error
			)
			if watch {
				feeder, err = scanner.NewWatchFeeder(args[0], scanner.WatchOptions{IdleTimeout: idle}, c.log)
			} else {
				feeder, err = scanner.NewDirFeeder(args[0])
			}
			if err != nil {
				return err
			}
			defer feeder.Close()

			ctx := cmd.Context()
			a, err := app.New(ctx, c.cfg, c.log)
			if err != nil {
				return err
			}
			defer a.Close()

			report := converters.NewJSONConverter("scan", args[0], args[1])
			err = c.stream(ctx, cmd.OutOrStdout(), report, func(ctx context.Context, events chan<- models.Event) error {
				_, err := a.Batch.RunScan(ctx, feeder, args[1], events)
				return err
			})
			return c.finish(report, err)
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "watch the folder for new pages instead of reading it once")
	cmd.Flags().DurationVar(&idle, "idle", 30*time.Second, "with --watch, stop after this long without a new page")
	return cmd
}
