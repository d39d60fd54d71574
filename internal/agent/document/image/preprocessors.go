package image

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// 灰度处理器
type GrayscaleProcessor struct{}

func NewGrayscaleProcessor() *GrayscaleProcessor {
	return &GrayscaleProcessor{}
}

func (p *GrayscaleProcessor) Process(img image.Image) (image.Image, error) {
	if img == nil {
		return nil, fmt.Errorf("input image is nil")
	}
	return imaging.Grayscale(img), nil
}

// Rotate180Processor turns a page upside down.
type Rotate180Processor struct{}

func NewRotate180Processor() *Rotate180Processor {
	return &Rotate180Processor{}
}

func (p *Rotate180Processor) Process(img image.Image) (image.Image, error) {
	if img == nil {
		return nil, fmt.Errorf("input image is nil")
	}
	return imaging.Rotate180(img), nil
}

// 对比度处理器
type ContrastProcessor struct {
	percentage float64
}

func NewContrastProcessor(percentage float64) *ContrastProcessor {
	return &ContrastProcessor{percentage: percentage}
}

func (p *ContrastProcessor) Process(img image.Image) (image.Image, error) {
	if p.percentage == 0 {
		return img, nil
	}
	return imaging.AdjustContrast(img, p.percentage), nil
}

// 锐化处理器
type SharpenProcessor struct {
	sigma float64
}

func NewSharpenProcessor(sigma float64) *SharpenProcessor {
	return &SharpenProcessor{sigma: sigma}
}

func (p *SharpenProcessor) Process(img image.Image) (image.Image, error) {
	if p.sigma <= 0 {
		return img, nil
	}
	return imaging.Sharpen(img, p.sigma), nil
}
