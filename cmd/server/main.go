package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/feichai0017/idrouter/api/handlers"
	"github.com/feichai0017/idrouter/api/routes"
	"github.com/feichai0017/idrouter/config"
	"github.com/feichai0017/idrouter/internal/utils/validator"
	"github.com/feichai0017/idrouter/pkg/logger"
	"github.com/feichai0017/idrouter/pkg/queue"
)

type options struct {
	configPath string
	addr       string
	logLevel   string
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
		Use:           "idrouter-server",
		Short:         "HTTP control surface for queued routing batches",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.configPath, "config", "config.yaml", "configuration file")
	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address, overrides the configuration")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	return cmd
}

func run(ctx context.Context, opts *options) error {
	config.LoadDotEnv()
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.addr != "" {
		cfg.Server.Addr = opts.addr
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// init logger
	log, err := logger.NewLogger(
		logger.WithLevel(cfg.Log.Level),
		logger.WithEncoding("json"),
		logger.WithOutputPaths([]string{"stdout", "logs/server.log"}),
		logger.WithInitialFields(map[string]interface{}{"service": "server"}),
	)
	if err != nil {
		return err
	}
	defer log.Sync()

	q := queue.NewAsynqQueue(&queue.Config{
		RedisAddr:     cfg.Queue.RedisAddr,
		RedisPassword: cfg.Queue.RedisPassword,
		RedisDB:       cfg.Queue.RedisDB,
		StatusTTL:     cfg.Queue.StatusTTL,
	})
	defer q.Close()

	docValidator := validator.NewDocumentValidator(log, &validator.ValidatorConfig{
		MaxFileSize:  cfg.Server.MaxUploadSize,
		AllowedTypes: validator.DefaultValidatorConfig().AllowedTypes,
	})

	// init handlers
	h, err := handlers.NewHandlers(q, docValidator, cfg.Server.InboxDir, cfg.Server.Roots, log)
	if err != nil {
		return err
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.MaxMultipartMemory = 8 << 20
	routes.SetupRoutes(r, h, cfg.Server.AllowOrigins)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server starting", logger.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("Server error", logger.Error(err))
		}
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", logger.Error(err))
		return err
	}
	return nil
}
