package storage

import (
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MaxSlugLength caps the human-readable part of a generated identifier
const MaxSlugLength = 50

var (
	nonWordChars = regexp.MustCompile(`[^\w\s-]`)
	whitespace   = regexp.MustCompile(`\s+`)
	hyphenRuns   = regexp.MustCompile(`-+`)
)

// Slugify lowercases text, strips non-word characters, collapses whitespace
// into single hyphens, trims leading and trailing hyphens and caps the
// length at MaxSlugLength.
func Slugify(text string) string {
	s := strings.ToLower(text)
	s = nonWordChars.ReplaceAllString(s, "")
	s = whitespace.ReplaceAllString(s, "-")
	s = hyphenRuns.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > MaxSlugLength {
		s = strings.TrimRight(s[:MaxSlugLength], "-")
	}
	return s
}

// IDGenerator derives identifiers from a name plus a base-36 millisecond
// timestamp. The timestamp is strictly increasing per generator, so names
// repeated within one millisecond still get distinct identifiers.
type IDGenerator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewIDGenerator creates a generator driven by the wall clock
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{now: time.Now}
}

// Generate returns slug(name) + "-" + base36 salt. A name with no word
// characters yields just the salt.
func (g *IDGenerator) Generate(name string) string {
	g.mu.Lock()
	ts := g.now().UnixMilli()
	if ts <= g.last {
		ts = g.last + 1
	}
	g.last = ts
	g.mu.Unlock()

	salt := strconv.FormatInt(ts, 36)
	slug := Slugify(name)
	if slug == "" {
		return salt
	}
	return slug + "-" + salt
}
