package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"golang.org/x/net/html/atom"
)

// timestampGroups are the named groups every matcher must capture.
var timestampGroups = []string{"day", "month", "year", "hour", "minute"}

// TimestampMatcher is one named pattern for the page's "as of" line.
type TimestampMatcher struct {
	Name    string
	Pattern *regexp.Regexp
	index   map[string]int
}

// NewTimestampMatcher compiles expr and checks it captures all timestamp groups.
func NewTimestampMatcher(name, expr string) (TimestampMatcher, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return TimestampMatcher{}, fmt.Errorf("invalid timestamp pattern %s: %w", name, err)
	}
	index := make(map[string]int, len(timestampGroups))
	for _, g := range timestampGroups {
		i := re.SubexpIndex(g)
		if i < 0 {
			return TimestampMatcher{}, fmt.Errorf("timestamp pattern %s is missing group %q", name, g)
		}
		index[g] = i
	}
	return TimestampMatcher{Name: name, Pattern: re, index: index}, nil
}

// mustTimestampMatcher is NewTimestampMatcher for built-in patterns.
func mustTimestampMatcher(name, expr string) TimestampMatcher {
	m, err := NewTimestampMatcher(name, expr)
	if err != nil {
		panic(err)
	}
	return m
}

// defaultMatchers are tried in order: the parenthesized form first.
var defaultMatchers = []TimestampMatcher{
	mustTimestampMatcher("datenstand",
		`\(Datenstand: (?P<day>\d+)\.(?P<month>\d+)\.(?P<year>\d{4}), (?P<hour>\d{2}):(?P<minute>\d{2}) Uhr\)`),
	mustTimestampMatcher("stand",
		`Stand: (?P<day>\d+)\.(?P<month>\d+)\.(?P<year>\d{4}), (?P<hour>\d+):(?P<minute>\d{2}) Uhr`),
}

// DefaultTimestampMatchers returns the built-in matcher list.
func DefaultTimestampMatchers() []TimestampMatcher {
	out := make([]TimestampMatcher, len(defaultMatchers))
	copy(out, defaultMatchers)
	return out
}

// Match tries the matcher on text. ok is false when the pattern does not
// match; err is set when it matches but the fields are not a valid time.
func (m TimestampMatcher) Match(text string) (ts time.Time, ok bool, err error) {
	sub := m.Pattern.FindStringSubmatch(text)
	if sub == nil {
		return time.Time{}, false, nil
	}
	field := func(g string) int {
		n, _ := strconv.Atoi(sub[m.index[g]])
		return n
	}
	year, month, day := field("year"), field("month"), field("day")
	hour, minute := field("hour"), field("minute")

	ts = time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.UTC)
	// time.Date normalizes overflow (31.2. becomes 2.3.), so compare back.
	if ts.Year() != year || int(ts.Month()) != month || ts.Day() != day || ts.Hour() != hour || ts.Minute() != minute {
		return time.Time{}, true, &InvalidTimestampError{
			Matcher: m.Name,
			Text:    sub[0],
			Err:     fmt.Errorf("%02d.%02d.%04d %02d:%02d is out of range", day, month, year, hour, minute),
		}
	}
	return ts, true, nil
}

// ExtractTimestamp scans paragraphs in document order. For each paragraph the
// matchers are tried in order and the first match wins; no other paragraph
// is looked at after that.
func ExtractTimestamp(doc *Document, matchers []TimestampMatcher) (time.Time, error) {
	if len(matchers) == 0 {
		matchers = defaultMatchers
	}
	scanned := 0
	for p := range doc.Elements(atom.P) {
		scanned++
		text := NodeText(p)
		for _, m := range matchers {
			ts, ok, err := m.Match(text)
			if err != nil {
				return time.Time{}, err
			}
			if ok {
				return ts, nil
			}
		}
	}
	names := make([]string, len(matchers))
	for i, m := range matchers {
		names[i] = m.Name
	}
	return time.Time{}, &DateNotFoundError{Paragraphs: scanned, Matchers: names}
}
