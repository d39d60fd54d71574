package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/feichai0017/idrouter/internal/agent/candidate"
)

// Config is the full application configuration.
type Config struct {
	Pipeline PipelineConfig `yaml:"pipeline"`
	OCR      OCRConfig      `yaml:"ocr"`
	Textract TextractConfig `yaml:"textract"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Queue    QueueConfig    `yaml:"queue"`
	Server   ServerConfig   `yaml:"server"`
	Scanner  ScannerConfig  `yaml:"scanner"`
	Log      LogConfig      `yaml:"log"`
}

// PipelineConfig 识别流水线配置
type PipelineConfig struct {
	Pattern        string `yaml:"pattern"`
	MinTextLength  int    `yaml:"minTextLength"`
	EnableRotation bool   `yaml:"enableRotation"`
}

// OCRConfig selects and tunes the OCR engine.
type OCRConfig struct {
	Engine            string   `yaml:"engine"`
	Languages         []string `yaml:"languages"`
	FallbackLanguages []string `yaml:"fallbackLanguages"`
	TessdataPrefix    string   `yaml:"tessdataPrefix"`
	PageSegMode       int      `yaml:"pageSegMode"`
	DPI               int      `yaml:"dpi"`
	Contrast          float64  `yaml:"contrast"`
	Sharpen           float64  `yaml:"sharpen"`
}

// QueueConfig 任务队列配置
type QueueConfig struct {
	RedisAddr     string        `yaml:"redisAddr"`
	RedisPassword string        `yaml:"redisPassword"`
	RedisDB       int           `yaml:"redisDB"`
	StatusTTL     time.Duration `yaml:"statusTTL"`
}

// ServerConfig configures the HTTP control surface. Batches submitted over
// HTTP may only read from and write to folders under Roots or InboxDir.
// AllowOrigins is empty by default, which disables cross-origin requests.
type ServerConfig struct {
	Addr          string   `yaml:"addr"`
	InboxDir      string   `yaml:"inboxDir"`
	Roots         []string `yaml:"roots"`
	MaxUploadSize int64    `yaml:"maxUploadSize"`
	AllowOrigins  []string `yaml:"allowOrigins"`
}

// ScannerConfig configures page feeders.
type ScannerConfig struct {
	IdleTimeout time.Duration `yaml:"idleTimeout"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level    string   `yaml:"level"`
	Encoding string   `yaml:"encoding"`
	Outputs  []string `yaml:"outputs"`
}

const (
	EngineTesseract = "tesseract"
	EngineTextract  = "textract"
	EngineNone      = "none"
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			Pattern:        candidate.DefaultPattern,
			MinTextLength:  5,
			EnableRotation: true,
		},
		OCR: OCRConfig{
			Engine:            EngineTesseract,
			Languages:         []string{"heb", "eng"},
			FallbackLanguages: []string{"eng"},
			PageSegMode:       6,
			DPI:               300,
		},
		Textract: TextractConfig{
			MinConfidence: 80,
		},
		Archive: ArchiveConfig{
			Type: ArchiveNone,
		},
		Queue: QueueConfig{
			RedisAddr: "localhost:6379",
			StatusTTL: 24 * time.Hour,
		},
		Server: ServerConfig{
			Addr:          ":8080",
			InboxDir:      "./inbox",
			Roots:         []string{"./routed"},
			MaxUploadSize: 50 << 20,
		},
		Scanner: ScannerConfig{
			IdleTimeout: 30 * time.Second,
		},
		Log: LogConfig{
			Level:    "info",
			Encoding: "console",
			Outputs:  []string{"stderr"},
		},
	}
}

// Load reads path over the defaults, then applies the environment. A missing
// file is not an error; an empty path skips the file entirely.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// Validate checks the settings that would otherwise fail late.
func (c *Config) Validate() error {
	if _, err := candidate.Compile(c.Pipeline.Pattern); err != nil {
		return fmt.Errorf("pipeline.pattern: %w", err)
	}
	if c.Pipeline.MinTextLength < 0 {
		return fmt.Errorf("pipeline.minTextLength must not be negative")
	}

	switch c.OCR.Engine {
	case EngineTesseract, EngineNone:
	case EngineTextract:
		if c.Textract.Region == "" {
			return fmt.Errorf("textract.region is required for the textract engine")
		}
	default:
		return fmt.Errorf("ocr.engine: unknown engine %q", c.OCR.Engine)
	}
	if c.OCR.PageSegMode < 0 || c.OCR.PageSegMode > 13 {
		return fmt.Errorf("ocr.pageSegMode: %d out of range", c.OCR.PageSegMode)
	}

	for _, root := range c.Server.Roots {
		if strings.TrimSpace(root) == "" {
			return fmt.Errorf("server.roots: empty entry")
		}
	}

	return c.Archive.Validate()
}
