package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/feichai0017/idrouter/internal/app"
	"github.com/feichai0017/idrouter/internal/models"
	"github.com/feichai0017/idrouter/pkg/converters"
	"github.com/feichai0017/idrouter/pkg/logger"
)

func newCopyCommand(c *cli) *cobra.Command {
	var ocr bool
	cmd := &cobra.Command{
		Use:   "copy <source> <destination>",
		Short: "Copy documents into <destination>/<id>/<id>-<n>.pdf, leaving the source untouched",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBatch(cmd, models.BatchRequest{
				Source:      args[0],
				Destination: args[1],
				EnableOCR:   ocr,
			})
		},
	}
	cmd.Flags().BoolVar(&ocr, "ocr", false, "fall back to OCR when a document has no text layer")
	return cmd
}

func newRenameCommand(c *cli) *cobra.Command {
	var noOCR bool
	cmd := &cobra.Command{
		Use:   "rename <root>",
		Short: "Move documents into <root>/<id>/<id>-<n>.pdf",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBatch(cmd, models.BatchRequest{
				Source:    args[0],
				EnableOCR: !noOCR,
			})
		},
	}
	cmd.Flags().BoolVar(&noOCR, "no-ocr", false, "use the text layer only")
	return cmd
}

func (c *cli) runBatch(cmd *cobra.Command, req models.BatchRequest) error {
	ctx := cmd.Context()

	a, err := app.New(ctx, c.cfg, c.log)
	if err != nil {
		return err
	}
	defer a.Close()

	report := converters.NewJSONConverter(string(req.Mode()), req.Source, req.Root())
	err = c.stream(ctx, cmd.OutOrStdout(), report, func(ctx context.Context, events chan<- models.Event) error {
		_, err := a.Batch.RunBatch(ctx, req, events)
		return err
	})
	return c.finish(report, err)
}

// stream runs fn while a second goroutine prints and records its events.
func (c *cli) stream(ctx context.Context, out io.Writer, report *converters.JSONConverter, fn func(context.Context, chan<- models.Event) error) error {
	events := make(chan models.Event, 16)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(events)
		return fn(gctx, events)
	})
	g.Go(func() error {
		for ev := range events {
			report.Observe(ev)
			fmt.Fprintln(out, ev.String())
		}
		return nil
	})
	return g.Wait()
}

func (c *cli) finish(report *converters.JSONConverter, runErr error) error {
	if c.reportPath != "" {
		if err := converters.WriteFile(c.reportPath, report.Convert(runErr)); err != nil {
			c.log.Error("Failed to write report", logger.String("path", c.reportPath), logger.Error(err))
			if runErr == nil {
				return err
			}
		} else {
			c.log.Info("Report written", logger.String("path", c.reportPath))
		}
	}
	return runErr
}
