package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hibiken/asynq"

	"github.com/feichai0017/idrouter/pkg/logger"
)

type Worker interface {
	Start(ctx context.Context) error
	Stop() error
}

type Config struct {
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	ShutdownTimeout time.Duration
}

func (c *Config) redisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: c.RedisAddr, Password: c.RedisPassword, DB: c.RedisDB}
}

type BaseWorker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	logger   logger.Logger
	stopOnce sync.Once
}

// Start runs the server in the background until ctx is done or Stop is called.
func (w *BaseWorker) Start(ctx context.Context) error {
	if err := w.server.Start(w.mux); err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		w.Stop()
	}()
	return nil
}

// Stop waits for the running task up to the shutdown timeout. Safe to call
// more than once.
func (w *BaseWorker) Stop() error {
	w.stopOnce.Do(func() {
		w.logger.Info("Stopping worker")
		w.server.Shutdown()
	})
	return nil
}

// zapAdapter routes asynq's own logging through our logger.
type zapAdapter struct {
	logger logger.Logger
}

func (a zapAdapter) Debug(args ...interface{}) { a.logger.Debug(sprint(args)) }
func (a zapAdapter) Info(args ...interface{})  { a.logger.Info(sprint(args)) }
func (a zapAdapter) Warn(args ...interface{})  { a.logger.Warn(sprint(args)) }
func (a zapAdapter) Error(args ...interface{}) { a.logger.Error(sprint(args)) }
func (a zapAdapter) Fatal(args ...interface{}) { a.logger.Fatal(sprint(args)) }

func sprint(args []interface{}) string {
	return fmt.Sprint(args...)
}
