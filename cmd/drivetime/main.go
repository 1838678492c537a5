package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mhingston/DriveTime/internal/exitcode"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(int(exitStatus(err)))
	}
}

// exitStatus maps a command error to the process exit code.
func exitStatus(err error) exitcode.Code {
	if err == nil || errors.Is(err, context.Canceled) {
		return exitcode.Normal
	}
	return exitcode.From(err)
}
