package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/feichai0017/idrouter/config"
	"github.com/feichai0017/idrouter/internal/app"
	"github.com/feichai0017/idrouter/pkg/logger"
	"github.com/feichai0017/idrouter/pkg/queue"
	"github.com/feichai0017/idrouter/pkg/worker"
)

type options struct {
	configPath      string
	logLevel        string
	shutdownTimeout time.Duration
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "idrouter-worker",
		Short:         "Run queued routing batches one at a time",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.configPath, "config", "config.yaml", "configuration file")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.Flags().DurationVar(&opts.shutdownTimeout, "shutdown-timeout", 30*time.Second, "how long a running batch may take to stop")
	return cmd
}

func run(ctx context.Context, opts *options) error {
	config.LoadDotEnv()
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}

	// 初始化日志
	log, err := logger.NewLogger(
		logger.WithLevel(cfg.Log.Level),
		logger.WithEncoding("json"),
		logger.WithOutputPaths([]string{"stdout", "logs/worker.log"}),
		logger.WithInitialFields(map[string]interface{}{"service": "worker"}),
	)
	if err != nil {
		return err
	}
	defer log.Sync()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create batch service: %w", err)
	}
	defer a.Close()

	status := queue.NewAsynqQueue(&queue.Config{
		RedisAddr:     cfg.Queue.RedisAddr,
		RedisPassword: cfg.Queue.RedisPassword,
		RedisDB:       cfg.Queue.RedisDB,
		StatusTTL:     cfg.Queue.StatusTTL,
	})
	defer status.Close()

	batchWorker := worker.NewBatchWorker(&worker.Config{
		RedisAddr:       cfg.Queue.RedisAddr,
		RedisPassword:   cfg.Queue.RedisPassword,
		RedisDB:         cfg.Queue.RedisDB,
		ShutdownTimeout: opts.shutdownTimeout,
	}, a.Batch, status, log)

	if err := batchWorker.Start(ctx); err != nil {
		return fmt.Errorf("failed to start worker: %w", err)
	}
	log.Info("Worker started", logger.String("redis", cfg.Queue.RedisAddr))

	// 等待中断信号
	<-ctx.Done()

	log.Info("Shutting down worker...")
	batchWorker.Stop()
	log.Info("Worker stopped")
	return nil
}
