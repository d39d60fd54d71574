package models

import "fmt"

// Outcome 单个文档的处理结果
type Outcome string

const (
	OutcomeSucceeded    Outcome = "succeeded"
	OutcomeFailed       Outcome = "failed"
	OutcomeUnidentified Outcome = "unidentified"
)

// DocumentResult is the immutable record produced for one document.
type DocumentResult struct {
	Document    string  `json:"document"`
	Outcome     Outcome `json:"outcome"`
	Identifier  string  `json:"identifier,omitempty"`
	Destination string  `json:"destination,omitempty"`
	Rotated     bool    `json:"rotated,omitempty"`
	Err         string  `json:"error,omitempty"`
}

// Succeeded builds a routed result.
func Succeeded(doc, id, dest string, rotated bool) DocumentResult {
	return DocumentResult{Document: doc, Outcome: OutcomeSucceeded, Identifier: id, Destination: dest, Rotated: rotated}
}

// Unidentified builds a result for a document routed to the fallback bucket.
func Unidentified(doc, dest string) DocumentResult {
	return DocumentResult{Document: doc, Outcome: OutcomeUnidentified, Destination: dest}
}

// Failed builds a result carrying the error that stopped the document.
func Failed(doc string, err error) DocumentResult {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return DocumentResult{Document: doc, Outcome: OutcomeFailed, Err: msg}
}

// ProcessingStats 批处理统计
type ProcessingStats struct {
	Succeeded    int      `json:"success_count"`
	Failed       int      `json:"failed_count"`
	Unidentified int      `json:"unidentified_count"`
	Errors       []string `json:"errors"`
}

// Fold returns a copy of s with r accounted for. s itself is not modified.
func (s ProcessingStats) Fold(r DocumentResult) ProcessingStats {
	next := s
	next.Errors = append([]string(nil), s.Errors...)

	switch r.Outcome {
	case OutcomeSucceeded:
		next.Succeeded++
	case OutcomeUnidentified:
		next.Unidentified++
	default:
		next.Failed++
		next.Errors = append(next.Errors, fmt.Sprintf("%s: %s", r.Document, r.Err))
	}
	return next
}

// Total is the number of documents accounted for.
func (s ProcessingStats) Total() int {
	return s.Succeeded + s.Failed + s.Unidentified
}

func (s ProcessingStats) String() string {
	return fmt.Sprintf("succeeded=%d failed=%d unidentified=%d errors=%d",
		s.Succeeded, s.Failed, s.Unidentified, len(s.Errors))
}
