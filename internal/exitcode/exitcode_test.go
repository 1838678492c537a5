package exitcode_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/mhingston/DriveTime/internal/exitcode"
)

func TestFromMapsWrappedCodes(t *testing.T) {
	base := errors.New("boom")
	cases := []struct {
		name string
		err  error
		want exitcode.Code
	}{
		{"nil", nil, exitcode.Normal},
		{"sql", exitcode.New(exitcode.SQLError, base), exitcode.SQLError},
		{"wrapped", fmt.Errorf("run worker: %w", exitcode.New(exitcode.NoDBConnection, base)), exitcode.NoDBConnection},
		{"plain", base, exitcode.Failure},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := exitcode.From(tc.err); got != tc.want {
				t.Fatalf("From(%v) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	base := errors.New("query failed")
	err := exitcode.New(exitcode.SQLError, base)
	if !errors.Is(err, base) {
		t.Fatal("expected exit error to unwrap to the cause")
	}
	if err.Error() != "sql_error: query failed" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestCodeValues(t *testing.T) {
	if exitcode.Normal != 0 || exitcode.NoDBConnection != 1 || exitcode.SQLError != 2 || exitcode.RequestError != 3 {
		t.Fatal("exit code taxonomy changed")
	}
	if exitcode.Failure == exitcode.NoDBConnection || exitcode.Failure <= exitcode.RequestError {
		t.Fatal("unclassified failures must not share a worker exit code")
	}
}
