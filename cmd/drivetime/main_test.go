package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/mhingston/DriveTime/internal/exitcode"
)

func TestExitStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want exitcode.Code
	}{
		{"nil", nil, exitcode.Normal},
		{"cancelled", context.Canceled, exitcode.Normal},
		{"generic", errors.New("boom"), exitcode.Failure},
		{"sql", exitcode.New(exitcode.SQLError, errors.New("select")), exitcode.SQLError},
		{"wrapped sql", fmt.Errorf("run: %w", exitcode.New(exitcode.SQLError, errors.New("select"))), exitcode.SQLError},
		{"no connection", exitcode.New(exitcode.NoDBConnection, errors.New("ping")), exitcode.NoDBConnection},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := exitStatus(tc.err); got != tc.want {
				t.Fatalf("exitStatus(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestRootHelp(t *testing.T) {
	out, _, err := runCLI(t, []string{"--help"}, "")
	if err != nil {
		t.Fatalf("help: %v", err)
	}
	requireContains(t, out, "queue")
	requireContains(t, out, "lookup")
}
