package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessingStatsFold(t *testing.T) {
	var stats ProcessingStats

	results := []DocumentResult{
		Succeeded("a.pdf", "123456782", "/dst/123456782/123456782-1.pdf", false),
		Unidentified("b.pdf", "/dst/unidentified/b.pdf"),
		Failed("c.pdf", errors.New("permission denied")),
		Succeeded("d.pdf", "000000018", "/dst/000000018/000000018-1.pdf", true),
	}

	for _, r := range results {
		before := stats
		stats = stats.Fold(r)
		assert.Equal(t, before.Total()+1, stats.Total())
	}

	assert.Equal(t, 2, stats.Succeeded)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.Unidentified)
	require.Len(t, stats.Errors, 1)
	assert.Equal(t, "c.pdf: permission denied", stats.Errors[0])
}

func TestProcessingStatsFoldDoesNotAlias(t *testing.T) {
	base := ProcessingStats{}.Fold(Failed("x.pdf", errors.New("boom")))
	left := base.Fold(Failed("y.pdf", errors.New("left")))
	right := base.Fold(Failed("z.pdf", errors.New("right")))

	assert.Len(t, base.Errors, 1)
	assert.Equal(t, "y.pdf: left", left.Errors[1])
	assert.Equal(t, "z.pdf: right", right.Errors[1])
}

func TestBatchRequestMode(t *testing.T) {
	t.Run("distinct destination is copy", func(t *testing.T) {
		r := BatchRequest{Source: "/in", Destination: "/out"}
		assert.Equal(t, ModeCopy, r.Mode())
		assert.Equal(t, "/out", r.Root())
	})

	t.Run("missing destination is rename", func(t *testing.T) {
		r := BatchRequest{Source: "/in"}
		assert.Equal(t, ModeRename, r.Mode())
		assert.Equal(t, "/in", r.Root())
	})

	t.Run("same directory is rename", func(t *testing.T) {
		r := BatchRequest{Source: "/in", Destination: "/in/"}
		assert.Equal(t, ModeRename, r.Mode())
	})

	t.Run("source required", func(t *testing.T) {
		assert.Error(t, BatchRequest{}.Validate())
	})
}

func TestEventString(t *testing.T) {
	r := Succeeded("a.pdf", "123456782", "/dst/123456782/123456782-1.pdf", true)
	e := Event{Kind: EventDocument, BatchID: "b1", Index: 1, Result: &r}
	assert.Equal(t, "[b1] #1 a.pdf -> /dst/123456782/123456782-1.pdf (rotated)", e.String())

	stats := ProcessingStats{}.Fold(r)
	summary := Event{Kind: EventSummary, BatchID: "b1", Stats: &stats}
	assert.Contains(t, summary.String(), "succeeded=1")
}

func TestDocumentText(t *testing.T) {
	doc := NewDocument("/in/a.pdf", "a.pdf")
	assert.Nil(t, doc.Text)
	assert.Equal(t, "", doc.TextOrEmpty())

	doc.SetText("hello")
	assert.Equal(t, "hello", doc.TextOrEmpty())
	assert.False(t, doc.HasPages())
}
