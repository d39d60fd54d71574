package image

import (
	"fmt"
	"image"
)

// 图像预处理接口
type ImagePreprocessor interface {
	Process(img image.Image) (image.Image, error)
}

// PreprocessConfig selects the optional enhancement steps applied before OCR.
type PreprocessConfig struct {
	Contrast float64 `yaml:"contrast"`
	Sharpen  float64 `yaml:"sharpen"`
}

// Pipeline applies preprocessors in order.
type Pipeline struct {
	steps []ImagePreprocessor
}

// NewPipeline returns the OCR preprocessing chain: grayscale first, then the
// enhancement steps enabled in cfg.
func NewPipeline(cfg PreprocessConfig) *Pipeline {
	steps := []ImagePreprocessor{NewGrayscaleProcessor()}
	if cfg.Contrast != 0 {
		steps = append(steps, NewContrastProcessor(cfg.Contrast))
	}
	if cfg.Sharpen > 0 {
		steps = append(steps, NewSharpenProcessor(cfg.Sharpen))
	}
	return &Pipeline{steps: steps}
}

// Process 应用预处理管道
func (p *Pipeline) Process(img image.Image) (image.Image, error) {
	if img == nil {
		return nil, fmt.Errorf("input image is nil")
	}

	var err error
	result := img
	for _, step := range p.steps {
		result, err = step.Process(result)
		if err != nil {
			return nil, fmt.Errorf("preprocessing failed: %w", err)
		}
		if result == nil {
			return nil, fmt.Errorf("preprocessor returned nil image")
		}
	}
	return result, nil
}

// Len returns the number of steps.
func (p *Pipeline) Len() int {
	return len(p.steps)
}

// RotateAll returns every page turned by 180 degrees.
func RotateAll(pages []image.Image) ([]image.Image, error) {
	rotator := NewRotate180Processor()
	out := make([]image.Image, 0, len(pages))
	for i, page := range pages {
		rotated, err := rotator.Process(page)
		if err != nil {
			return nil, fmt.Errorf("failed to rotate page %d: %w", i+1, err)
		}
		out = append(out, rotated)
	}
	return out, nil
}
