package models

import (
	"errors"
	"path/filepath"
)

// Mode 批处理模式
type Mode string

const (
	ModeCopy   Mode = "copy"
	ModeRename Mode = "rename"
)

// BatchRequest describes one batch run.
type BatchRequest struct {
	ID          string `json:"id"`
	Source      string `json:"source"`
	Destination string `json:"destination,omitempty"`
	EnableOCR   bool   `json:"enableOcr"`
}

// Mode is copy when a distinct destination is given, rename otherwise.
func (r BatchRequest) Mode() Mode {
	if r.Destination == "" || filepath.Clean(r.Destination) == filepath.Clean(r.Source) {
		return ModeRename
	}
	return ModeCopy
}

// Root is the directory routed documents end up under.
func (r BatchRequest) Root() string {
	if r.Mode() == ModeCopy {
		return r.Destination
	}
	return r.Source
}

// Validate checks the request is runnable.
func (r BatchRequest) Validate() error {
	if r.Source == "" {
		return errors.New("source directory is required")
	}
	return nil
}
