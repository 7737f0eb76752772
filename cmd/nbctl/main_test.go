package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jmerrifield20/neverbounce-go/pkg/client"
)

func TestParseFields(t *testing.T) {
	p, err := parseFields([]string{"job_id=12", "filename=a=b.csv", "empty="})
	if err != nil {
		t.Fatalf("parseFields: %v", err)
	}
	if got := p.Encode(); got != "job_id=12&filename=a%3Db.csv&empty=" {
		t.Errorf("Encode: got %q", got)
	}

	for _, bad := range []string{"novalue", "=x"} {
		if _, err := parseFields([]string{bad}); err == nil {
			t.Errorf("parseFields(%q): expected error", bad)
		}
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errors.New("plain"), 1},
		{fmt.Errorf("wrapped: %w", &client.Error{Kind: client.KindAuth}), 3},
		{&client.Error{Kind: client.KindRequest}, 4},
		{&client.Error{Kind: client.KindTransport}, 5},
		{&client.Error{Kind: client.KindResponseParse}, 5},
	}
	for _, tc := range tests {
		if got := exitCode(tc.err); got != tc.want {
			t.Errorf("exitCode(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestOneLine(t *testing.T) {
	if got := oneLine("a\n\n(Request error)"); got != "a (Request error)" {
		t.Errorf("oneLine: got %q", got)
	}
}
