package document

import (
	"context"
	"image"
)

// TextExtractor 读取 PDF 文本层
type TextExtractor interface {
	// ExtractText returns the text layer of every page joined in page order,
	// together with the page count.
	ExtractText(ctx context.Context, path string) (string, int, error)
}

// PageRenderer turns the pages of a PDF into images. A document that cannot
// be rendered yields an empty slice, never an error.
type PageRenderer interface {
	RenderPages(ctx context.Context, path string) []image.Image
}

// Recognizer 图像文字识别接口
type Recognizer interface {
	// Recognize runs OCR with the preferred languages. Implementations narrow
	// the language set to what is installed instead of failing.
	Recognize(ctx context.Context, img image.Image, languages []string) (string, error)

	// Close 清理资源
	Close() error
}

// PageWriter writes page images as a PDF, replacing path if it exists.
type PageWriter interface {
	WritePages(ctx context.Context, pages []image.Image, path string) error
}

// PageRotator turns every page of an existing PDF in place without
// re-encoding its content.
type PageRotator interface {
	RotatePages(ctx context.Context, path string, degrees int) error
}

// PageEditor writes new documents and rotates existing ones.
type PageEditor interface {
	PageWriter
	PageRotator
}

// Preprocessor transforms a page image before recognition.
type Preprocessor interface {
	Process(img image.Image) (image.Image, error)
}
