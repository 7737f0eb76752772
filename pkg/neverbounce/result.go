package neverbounce

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Result is the verification outcome of a single address.
type Result int

const (
	ResultValid Result = iota
	ResultInvalid
	ResultDisposable
	ResultCatchall
	ResultUnknown
)

var resultNames = [...]string{"valid", "invalid", "disposable", "catchall", "unknown"}

func (r Result) String() string {
	if r < 0 || int(r) >= len(resultNames) {
		return "result(" + strconv.Itoa(int(r)) + ")"
	}
	return resultNames[r]
}

// ParseResult accepts either the numeric code or the name.
func ParseResult(s string) (Result, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	for i, name := range resultNames {
		if s == name {
			return Result(i), nil
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n >= len(resultNames) {
		return 0, fmt.Errorf("unknown result %q", s)
	}
	return Result(n), nil
}

// MarshalText renders the result by name.
func (r Result) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalJSON accepts the API's numeric codes as well as names.
func (r *Result) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	var s string
	switch v := raw.(type) {
	case string:
		s = v
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Errorf("unexpected result value %s", b)
	}
	parsed, err := ParseResult(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Count is a non-negative counter that the API reports either as a JSON
// number or as a numeric string.
type Count int64

func (c *Count) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*c = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid count %s: %w", b, err)
	}
	*c = Count(n)
	return nil
}
