package candidate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/feichai0017/idrouter/internal/models"
	"github.com/feichai0017/idrouter/internal/utils/validator"
	"github.com/feichai0017/idrouter/pkg/logger"
)

// DefaultPattern matches a standalone run of nine digits.
const DefaultPattern = `\b\d{9}\b`

// ErrEmptyPattern is returned by Compile for a blank pattern.
var ErrEmptyPattern = errors.New("empty identifier pattern")

// Compile parses pattern in multi-line mode.
func Compile(pattern string) (*regexp.Regexp, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, ErrEmptyPattern
	}
	re, err := regexp.Compile("(?m)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid identifier pattern %q: %w", pattern, err)
	}
	return re, nil
}

// Matcher finds the first checksum-valid identifier in a text.
//
// A pattern that does not compile is reported once through the logger and the
// matcher then finds nothing, so every document falls through to the
// unidentified bucket instead of aborting the batch.
type Matcher struct {
	pattern string
	re      *regexp.Regexp
	err     error
	logger  logger.Logger
	once    sync.Once
}

// NewMatcher never fails; check Err to learn whether the pattern compiled.
func NewMatcher(pattern string, log logger.Logger) *Matcher {
	if log == nil {
		log = logger.NewNop()
	}
	re, err := Compile(pattern)
	return &Matcher{
		pattern: pattern,
		re:      re,
		err:     err,
		logger:  log.Named("matcher"),
	}
}

// Err returns the pattern compilation error, if any.
func (m *Matcher) Err() error {
	return m.err
}

// Pattern returns the source pattern.
func (m *Matcher) Pattern() string {
	return m.pattern
}

// Candidates returns every non-overlapping match in document order with its
// validity flag. Values are trimmed but otherwise as found in the text.
func (m *Matcher) Candidates(text string) []models.Candidate {
	if m.err != nil {
		m.once.Do(func() {
			m.logger.Error("identifier pattern is unusable, no document will match",
				logger.String("pattern", m.pattern),
				logger.Error(m.err),
			)
		})
		return nil
	}

	locs := m.re.FindAllStringIndex(text, -1)
	out := make([]models.Candidate, 0, len(locs))
	for _, loc := range locs {
		value := strings.TrimSpace(text[loc[0]:loc[1]])
		out = append(out, models.Candidate{
			Value:  value,
			Offset: loc[0],
			Valid:  validator.Validate(value),
		})
	}
	return out
}

// Find returns the normalized form of the first valid candidate. Invalid
// candidates before it are logged and skipped.
func (m *Matcher) Find(text string) (string, bool) {
	for _, c := range m.Candidates(text) {
		if !c.Valid {
			m.logger.Debug("skipping candidate with bad check digit",
				logger.String("candidate", c.Value),
				logger.Int("offset", c.Offset),
			)
			continue
		}
		id, _ := validator.Normalize(c.Value)
		return id, true
	}
	return "", false
}
