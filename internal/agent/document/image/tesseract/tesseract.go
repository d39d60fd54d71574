package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"strconv"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"

	ocrimage "github.com/feichai0017/idrouter/internal/agent/document/image"
	"github.com/feichai0017/idrouter/pkg/logger"
)

// Config 识别器配置
type Config struct {
	TessdataPrefix    string
	Languages         []string
	FallbackLanguages []string
	PageSegMode       gosseract.PageSegMode
	DPI               int
}

// DefaultConfig mirrors a scanned A4 page: a single uniform block at 300 DPI.
func DefaultConfig() Config {
	return Config{
		Languages:         ocrimage.DefaultLanguages,
		FallbackLanguages: ocrimage.DefaultFallbackLanguages,
		PageSegMode:       gosseract.PSM_SINGLE_BLOCK,
		DPI:               300,
	}
}

// Recognizer runs Tesseract through gosseract. A new client is created per
// page, so a Recognizer is safe for concurrent use.
type Recognizer struct {
	config Config
	logger logger.Logger

	once      sync.Once
	available []string
}

func NewRecognizer(cfg Config, log logger.Logger) *Recognizer {
	if log == nil {
		log = logger.NewNop()
	}
	if len(cfg.FallbackLanguages) == 0 {
		cfg.FallbackLanguages = ocrimage.DefaultFallbackLanguages
	}
	if cfg.PageSegMode == 0 {
		cfg.PageSegMode = gosseract.PSM_SINGLE_BLOCK
	}
	return &Recognizer{
		config: cfg,
		logger: log.Named("tesseract"),
	}
}

// AvailableLanguages lists installed language models. It returns nil when
// they cannot be determined.
func (r *Recognizer) AvailableLanguages() []string {
	r.once.Do(func() {
		langs, err := gosseract.GetAvailableLanguages()
		if err != nil {
			r.logger.Warn("Failed to list tesseract languages", logger.Error(err))
			return
		}
		r.available = langs
	})
	return r.available
}

// Check reports which of the preferred languages are missing. The caller
// decides whether that is worth a warning.
func (r *Recognizer) Check() (version string, missing []string) {
	client := gosseract.NewClient()
	defer client.Close()

	if available := r.AvailableLanguages(); available != nil {
		missing = ocrimage.MissingLanguages(r.config.Languages, available)
	}
	return client.Version(), missing
}

func (r *Recognizer) Recognize(ctx context.Context, img image.Image, languages []string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(languages) == 0 {
		languages = r.config.Languages
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}

	langs := ocrimage.NarrowLanguages(languages, r.config.FallbackLanguages, r.AvailableLanguages())
	text, err := r.recognize(buf.Bytes(), langs)
	if err == nil || ocrimage.SameLanguages(langs, r.config.FallbackLanguages) {
		return text, err
	}

	r.logger.Warn("OCR failed, retrying with fallback languages",
		logger.String("languages", strings.Join(langs, "+")),
		logger.Strings("fallback", r.config.FallbackLanguages),
		logger.Error(err),
	)
	return r.recognize(buf.Bytes(), r.config.FallbackLanguages)
}

func (r *Recognizer) recognize(data []byte, langs []string) (string, error) {
	// 为每个任务创建新的 Tesseract 客户端
	client := gosseract.NewClient()
	defer client.Close()

	if r.config.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(r.config.TessdataPrefix); err != nil {
			return "", fmt.Errorf("failed to set tessdata prefix: %w", err)
		}
	}
	if err := client.SetLanguage(langs...); err != nil {
		return "", fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetPageSegMode(r.config.PageSegMode); err != nil {
		return "", fmt.Errorf("failed to set page segmentation mode: %w", err)
	}
	if r.config.DPI > 0 {
		if err := client.SetVariable(gosseract.SettableVariable("user_defined_dpi"), strconv.Itoa(r.config.DPI)); err != nil {
			return "", fmt.Errorf("failed to set dpi: %w", err)
		}
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("failed to get text: %w", err)
	}
	return strings.TrimSpace(text), nil
}

func (r *Recognizer) Close() error {
	return nil
}
