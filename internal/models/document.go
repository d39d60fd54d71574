package models

import (
	"fmt"
	"image"
	"time"
)

// Document 一次处理过程中独占的 PDF 文档
type Document struct {
	Path      string        `json:"path"`
	Name      string        `json:"name"`
	PageCount int           `json:"pageCount"`
	Text      *string       `json:"text,omitempty"`
	Pages     []image.Image `json:"-"`
	Rotated   bool          `json:"rotated"`
}

// NewDocument returns a document whose text has not been acquired yet.
func NewDocument(path, name string) *Document {
	return &Document{Path: path, Name: name}
}

// TextOrEmpty returns the acquired text, or "" before acquisition.
func (d *Document) TextOrEmpty() string {
	if d.Text == nil {
		return ""
	}
	return *d.Text
}

// SetText records acquired text.
func (d *Document) SetText(text string) {
	d.Text = &text
}

// HasPages reports whether OCR fallback produced page images.
func (d *Document) HasPages() bool {
	return len(d.Pages) > 0
}

// Candidate 模式匹配得到的候选标识
type Candidate struct {
	Value  string `json:"value"`
	Offset int    `json:"offset"`
	Valid  bool   `json:"valid"`
}

// IdentifyState 识别状态机的状态
type IdentifyState string

const (
	StateAcquired          IdentifyState = "acquired"
	StateMatched           IdentifyState = "matched"
	StateRotationAttempted IdentifyState = "rotation_attempted"
	StateFailed            IdentifyState = "failed"
)

// Identification is the terminal result of running the identification state machine.
type Identification struct {
	State      IdentifyState `json:"state"`
	Identifier string        `json:"identifier,omitempty"`
	Rotated    bool          `json:"rotated"`
	NoText     bool          `json:"noText"`
}

// Matched reports whether a valid identifier was found.
func (i Identification) Matched() bool {
	return i.State == StateMatched && i.Identifier != ""
}

type ProcessingStatus string

const (
	StatusPending   ProcessingStatus = "pending"
	StatusRunning   ProcessingStatus = "running"
	StatusCompleted ProcessingStatus = "completed"
	StatusFailed    ProcessingStatus = "failed"
	StatusCancelled ProcessingStatus = "cancelled"
)

// FormatTime renders timestamps the way status records store them.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func (s ProcessingStatus) String() string {
	return string(s)
}

func (i Identification) String() string {
	if i.Matched() {
		return fmt.Sprintf("%s(%s)", i.State, i.Identifier)
	}
	return string(i.State)
}
