package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Field type
type Field = zapcore.Field

// Logger interface
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)
	With(fields ...Field) Logger
	Named(name string) Logger
	Sync() error
}

// File outputs rotate at 100 MB and keep a week of compressed backups.
const (
	fileMaxSizeMB  = 100
	fileMaxBackups = 3
	fileMaxAgeDays = 7
)

type options struct {
	level   string
	json    bool
	outputs []string
	fields  map[string]interface{}
}

type logger struct {
	zap *zap.Logger
}

// Option defines logger option function
type Option func(*options)

// WithLevel sets the minimum level; empty keeps "info".
func WithLevel(level string) Option {
	return func(o *options) {
		if level != "" {
			o.level = level
		}
	}
}

// WithEncoding selects "json" or "console"; empty keeps console.
func WithEncoding(encoding string) Option {
	return func(o *options) {
		if encoding != "" {
			o.json = encoding == "json"
		}
	}
}

// WithOutputPaths sets where entries go. "stdout" and "stderr" are the
// process streams; anything else is a rotating file.
func WithOutputPaths(paths []string) Option {
	return func(o *options) {
		if len(paths) > 0 {
			o.outputs = paths
		}
	}
}

// WithInitialFields attaches fields to every entry
func WithInitialFields(fields map[string]interface{}) Option {
	return func(o *options) {
		for k, v := range fields {
			o.fields[k] = v
		}
	}
}

// NewLogger creates a new logger instance
func NewLogger(opts ...Option) (Logger, error) {
	o := &options{
		level:   "info",
		outputs: []string{"stderr"},
		fields:  make(map[string]interface{}),
	}
	for _, opt := range opts {
		opt(o)
	}

	level, err := zapcore.ParseLevel(o.level)
	if err != nil {
		return nil, fmt.Errorf("can't parse log level: %w", err)
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	encoder := zapcore.NewConsoleEncoder(encoderConfig)
	if o.json {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	cores := make([]zapcore.Core, 0, len(o.outputs))
	for _, path := range o.outputs {
		writer, err := openOutput(path)
		if err != nil {
			return nil, err
		}
		cores = append(cores, zapcore.NewCore(encoder, writer, level))
	}

	zapOpts := []zap.Option{zap.AddCaller(), zap.AddCallerSkip(1)}
	if len(o.fields) > 0 {
		fields := make([]zap.Field, 0, len(o.fields))
		for k, v := range o.fields {
			fields = append(fields, zap.Any(k, v))
		}
		zapOpts = append(zapOpts, zap.Fields(fields...))
	}

	return &logger{zap: zap.New(zapcore.NewTee(cores...), zapOpts...)}, nil
}

func openOutput(path string) (zapcore.WriteSyncer, error) {
	switch path {
	case "stdout":
		return zapcore.AddSync(os.Stdout), nil
	case "stderr":
		return zapcore.AddSync(os.Stderr), nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("can't create log directory: %w", err)
	}
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    fileMaxSizeMB,
		MaxBackups: fileMaxBackups,
		MaxAge:     fileMaxAgeDays,
		Compress:   true,
	}), nil
}

// NewNop returns a logger that discards everything. Library constructors fall
// back to it when the caller passes nil.
func NewNop() Logger {
	return &logger{zap: zap.NewNop()}
}

func String(key string, val string) Field          { return zap.String(key, val) }
func Strings(key string, val []string) Field       { return zap.Strings(key, val) }
func Int(key string, val int) Field                { return zap.Int(key, val) }
func Bool(key string, val bool) Field              { return zap.Bool(key, val) }
func Error(err error) Field                        { return zap.Error(err) }
func Duration(key string, val time.Duration) Field { return zap.Duration(key, val) }

func (l *logger) Debug(msg string, fields ...Field) { l.zap.Debug(msg, fields...) }
func (l *logger) Info(msg string, fields ...Field)  { l.zap.Info(msg, fields...) }
func (l *logger) Warn(msg string, fields ...Field)  { l.zap.Warn(msg, fields...) }
func (l *logger) Error(msg string, fields ...Field) { l.zap.Error(msg, fields...) }
func (l *logger) Fatal(msg string, fields ...Field) { l.zap.Fatal(msg, fields...) }

func (l *logger) With(fields ...Field) Logger {
	return &logger{zap: l.zap.With(fields...)}
}

func (l *logger) Named(name string) Logger {
	return &logger{zap: l.zap.Named(name)}
}

func (l *logger) Sync() error {
	return l.zap.Sync()
}
