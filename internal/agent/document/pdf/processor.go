package pdf

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/feichai0017/idrouter/pkg/logger"
)

// Processor reads the text layer of PDF files.
type Processor struct {
	logger logger.Logger
}

func NewProcessor(log logger.Logger) *Processor {
	if log == nil {
		log = logger.NewNop()
	}
	return &Processor{
		logger: log.Named("pdf"),
	}
}

// ExtractText returns the plain text of each page joined with newlines.
// A page that cannot be decoded is logged and skipped.
func (p *Processor) ExtractText(ctx context.Context, path string) (text string, pages int, err error) {
	// the pdf library reports malformed input by panicking
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("failed to read %s: %v", path, r)
			text = ""
			if pages == 0 {
				pages = p.PageCount(path)
			}
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", p.PageCount(path), fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	pages = reader.NumPage()
	parts := make([]string, 0, pages)
	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return strings.Join(parts, "\n"), pages, err
		}

		pageText, err := p.pageText(reader, i)
		if err != nil {
			p.logger.Warn("Failed to get text from page",
				logger.String("path", path),
				logger.Int("page", i),
				logger.Error(err),
			)
			continue
		}
		parts = append(parts, pageText)
	}

	return strings.Join(parts, "\n"), pages, nil
}

func (p *Processor) pageText(reader *pdf.Reader, n int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("page %d: %v", n, r)
		}
	}()

	page := reader.Page(n)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}

// PageCount asks pdfcpu for the page count, which tolerates files the text
// reader rejects. It returns 0 when the file cannot be parsed at all.
func (p *Processor) PageCount(path string) int {
	n, err := api.PageCountFile(path)
	if err != nil {
		p.logger.Debug("Failed to count pages",
			logger.String("path", path),
			logger.Error(err),
		)
		return 0
	}
	return n
}

// Close 实现资源清理, PDF 处理器没有需要释放的资源
func (p *Processor) Close() error {
	return nil
}
