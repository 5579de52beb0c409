package extract

import (
	"errors"
	"strconv"
	"strings"
)

var errNegativeCount = errors.New("count is negative")

// ParseCount turns a raw count cell into an integer. Only the first
// whitespace separated piece is used and dots are thousands separators,
// so "1.234 Fälle" is 1234.
func ParseCount(token string) (int, error) {
	fields := strings.Fields(token)
	if len(fields) == 0 {
		return 0, &MalformedNumberError{Token: token}
	}
	digits := strings.ReplaceAll(fields[0], ".", "")
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, &MalformedNumberError{Token: token, Err: err}
	}
	if n < 0 {
		return 0, &MalformedNumberError{Token: token, Err: errNegativeCount}
	}
	return n, nil
}
