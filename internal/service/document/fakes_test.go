package document

import (
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/feichai0017/idrouter/internal/agent/candidate"
	agentdoc "github.com/feichai0017/idrouter/internal/agent/document"
	"github.com/feichai0017/idrouter/internal/agent/scanner"
	"github.com/feichai0017/idrouter/internal/models"
	"github.com/feichai0017/idrouter/pkg/logger"
	"github.com/stretchr/testify/require"
)

// textByName serves a text layer per file name.
type textByName map[string]string

func (t textByName) ExtractText(ctx context.Context, path string) (string, int, error) {
	text, ok := t[filepath.Base(path)]
	if !ok {
		return "", 0, errors.New("unreadable")
	}
	return text, 1, nil
}

// pagesByName serves rendered pages per file name.
type pagesByName map[string][]image.Image

func (p pagesByName) RenderPages(ctx context.Context, path string) []image.Image {
	return p[filepath.Base(path)]
}

// markerRecognizer reads upright when the top-left pixel is white.
type markerRecognizer struct {
	upright string
	flipped string
}

func (m *markerRecognizer) Recognize(ctx context.Context, img image.Image, languages []string) (string, error) {
	b := img.Bounds()
	if color.GrayModel.Convert(img.At(b.Min.X, b.Min.Y)).(color.Gray).Y == 255 {
		return m.upright, nil
	}
	return m.flipped, nil
}

func (m *markerRecognizer) Close() error { return nil }

// widthRecognizer returns text keyed by image width.
type widthRecognizer map[int]string

func (w widthRecognizer) Recognize(ctx context.Context, img image.Image, languages []string) (string, error) {
	return w[img.Bounds().Dx()], nil
}

func (w widthRecognizer) Close() error { return nil }

// recordingWriter writes a placeholder file and remembers each call. Rotating
// appends a marker to the file so tests can tell content was kept.
type recordingWriter struct {
	mu        sync.Mutex
	calls     []writeCall
	rotations []rotateCall
	err       error
	rotateErr error
}

type writeCall struct {
	path  string
	pages []image.Image
}

type rotateCall struct {
	path    string
	degrees int
}

func (w *recordingWriter) WritePages(ctx context.Context, pages []image.Image, path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.calls = append(w.calls, writeCall{path: path, pages: pages})
	return os.WriteFile(path, []byte("%PDF-rewritten"), 0644)
}

func (w *recordingWriter) RotatePages(ctx context.Context, path string, degrees int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.rotateErr != nil {
		return w.rotateErr
	}
	w.rotations = append(w.rotations, rotateCall{path: path, degrees: degrees})
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(rotatedMarker)
	return err
}

const rotatedMarker = "\n%rotated"

type memStore struct {
	keys []string
}

func (m *memStore) Store(ctx context.Context, reader io.Reader, size int64, key string) (string, error) {
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return "", err
	}
	m.keys = append(m.keys, key)
	return key, nil
}

func (m *memStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}

func (m *memStore) Delete(ctx context.Context, key string) error { return nil }

type sliceFeeder struct {
	results []scanner.Result
}

func (f *sliceFeeder) Next(ctx context.Context) scanner.Result {
	if len(f.results) == 0 {
		return scanner.Exhausted()
	}
	r := f.results[0]
	f.results = f.results[1:]
	return r
}

func (f *sliceFeeder) Close() error { return nil }

// markedPage is a 4x2 black page with a white top-left pixel.
func markedPage() image.Image {
	img := image.NewGray(image.Rect(0, 0, 4, 2))
	img.SetGray(0, 0, color.Gray{Y: 255})
	return img
}

func blankPage(width int) image.Image {
	return image.NewGray(image.Rect(0, 0, width, 2))
}

type fixture struct {
	service *BatchService
	writer  *recordingWriter
	log     *logger.TestLogger
}

type fixtureOptions struct {
	text       textByName
	pages      pagesByName
	recognizer agentdoc.Recognizer
	pattern    string
	store      *memStore
	noRotation bool
}

func newFixture(t *testing.T, opts fixtureOptions) *fixture {
	t.Helper()
	if opts.pattern == "" {
		opts.pattern = candidate.DefaultPattern
	}
	if opts.pages == nil {
		opts.pages = pagesByName{}
	}
	log := logger.NewTestLogger()
	writer := &recordingWriter{}

	var renderer agentdoc.PageRenderer
	if opts.recognizer != nil {
		renderer = opts.pages
	}
	acquirer := agentdoc.NewAcquirer(opts.text, renderer, opts.recognizer, nil, agentdoc.AcquireOptions{}, log)
	identifier := NewIdentifier(acquirer, candidate.NewMatcher(opts.pattern, log), writer, !opts.noRotation, log)

	var svc *BatchService
	if opts.store != nil {
		svc = NewService(identifier, writer, opts.store, log, &ServiceConfig{ArchivePrefix: "routed"})
	} else {
		svc = NewService(identifier, writer, nil, log, nil)
	}
	return &fixture{service: svc, writer: writer, log: log}
}

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("%PDF-"+name), 0644))
	}
}

func collect(events <-chan models.Event) []models.Event {
	var out []models.Event
	for {
		select {
		case ev := <-events:
			out = append(out, ev)
		default:
			return out
		}
	}
}
