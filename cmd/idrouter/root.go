package main

import (
	"github.com/spf13/cobra"

	"github.com/feichai0017/idrouter/config"
	"github.com/feichai0017/idrouter/pkg/logger"
)

type cli struct {
	configPath string
	pattern    string
	reportPath string
	logLevel   string

	cfg *config.Config
	log logger.Logger
}

func newRootCommand() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "idrouter",
		Short:         "Route PDF documents into folders keyed by the national ID they contain",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.log != nil {
				_ = c.log.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "config.yaml", "configuration file")
	flags.StringVar(&c.pattern, "pattern", "", "identifier pattern, overrides the configuration")
	flags.StringVar(&c.reportPath, "report", "", "write a JSON report of the run to this file")
	flags.StringVar(&c.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		newCopyCommand(c),
		newRenameCommand(c),
		newScanCommand(c),
		newValidateCommand(c),
	)
	return root
}

func (c *cli) init() error {
	config.LoadDotEnv()

	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.pattern != "" {
		cfg.Pipeline.Pattern = c.pattern
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}

	log, err := logger.NewLogger(
		logger.WithLevel(cfg.Log.Level),
		logger.WithEncoding(cfg.Log.Encoding),
		logger.WithOutputPaths(cfg.Log.Outputs),
	)
	if err != nil {
		return err
	}

	c.cfg = cfg
	c.log = log
	return nil
}
