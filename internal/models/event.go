package models

import "fmt"

// EventKind 事件类型
type EventKind string

const (
	EventStart    EventKind = "start"
	EventDocument EventKind = "document"
	EventWarning  EventKind = "warning"
	EventSummary  EventKind = "summary"
)

// Event is one entry of a batch's progress stream.
type Event struct {
	Kind    EventKind        `json:"kind"`
	BatchID string           `json:"batchId,omitempty"`
	Total   int              `json:"total,omitempty"`
	Index   int              `json:"index,omitempty"`
	Result  *DocumentResult  `json:"result,omitempty"`
	Stats   *ProcessingStats `json:"stats,omitempty"`
	Message string           `json:"message,omitempty"`
}

func (e Event) String() string {
	switch e.Kind {
	case EventStart:
		if e.Total > 0 {
			return fmt.Sprintf("[%s] start: %d documents", e.BatchID, e.Total)
		}
		return fmt.Sprintf("[%s] start", e.BatchID)
	case EventDocument:
		if e.Result == nil {
			return fmt.Sprintf("[%s] document #%d", e.BatchID, e.Index)
		}
		r := e.Result
		switch r.Outcome {
		case OutcomeSucceeded:
			suffix := ""
			if r.Rotated {
				suffix = " (rotated)"
			}
			return fmt.Sprintf("[%s] #%d %s -> %s%s", e.BatchID, e.Index, r.Document, r.Destination, suffix)
		case OutcomeUnidentified:
			return fmt.Sprintf("[%s] #%d %s -> unidentified (%s)", e.BatchID, e.Index, r.Document, r.Destination)
		default:
			return fmt.Sprintf("[%s] #%d %s failed: %s", e.BatchID, e.Index, r.Document, r.Err)
		}
	case EventSummary:
		if e.Stats == nil {
			return fmt.Sprintf("[%s] summary", e.BatchID)
		}
		return fmt.Sprintf("[%s] summary: %s", e.BatchID, e.Stats)
	default:
		return fmt.Sprintf("[%s] %s: %s", e.BatchID, e.Kind, e.Message)
	}
}
