package extract

import (
	"errors"
	"fmt"
)

// ErrNoRegions is returned when a table decodes without a single region row.
var ErrNoRegions = errors.New("no regions decoded from table")

// MalformedNumberError reports a count cell that does not hold a base-10 integer.
type MalformedNumberError struct {
	Token string
	Err   error
}

func (e *MalformedNumberError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed count %q: %v", e.Token, e.Err)
	}
	return fmt.Sprintf("malformed count %q", e.Token)
}

func (e *MalformedNumberError) Unwrap() error { return e.Err }

// DateNotFoundError reports that no paragraph matched any timestamp matcher.
type DateNotFoundError struct {
	Paragraphs int      // Paragraphs scanned
	Matchers   []string // Matcher names tried on each paragraph
}

func (e *DateNotFoundError) Error() string {
	return fmt.Sprintf("no data timestamp found in %d paragraphs (tried %v)", e.Paragraphs, e.Matchers)
}

// InvalidTimestampError reports a matched timestamp that is not a real date-time.
type InvalidTimestampError struct {
	Matcher string
	Text    string
	Err     error
}

func (e *InvalidTimestampError) Error() string {
	return fmt.Sprintf("matcher %s matched %q but it is not a valid timestamp: %v", e.Matcher, e.Text, e.Err)
}

func (e *InvalidTimestampError) Unwrap() error { return e.Err }

// TableNotFoundError reports that no table contains the layout's marker.
type TableNotFoundError struct {
	Marker string
	Tables int // Tables inspected
}

func (e *TableNotFoundError) Error() string {
	return fmt.Sprintf("no table containing %q among %d tables", e.Marker, e.Tables)
}

// LayoutDriftError reports a table whose shape disagrees with the chosen layout.
type LayoutDriftError struct {
	Layout string
	Cell   int // Index of the first cell of the offending row, -1 when not row specific
	Reason string
	Err    error
}

func (e *LayoutDriftError) Error() string {
	msg := fmt.Sprintf("layout %s drift", e.Layout)
	if e.Cell >= 0 {
		msg += fmt.Sprintf(" at cell %d", e.Cell)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *LayoutDriftError) Unwrap() error { return e.Err }
