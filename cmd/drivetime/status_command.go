package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/mhingston/DriveTime/internal/api"
	"github.com/mhingston/DriveTime/internal/config"
	"github.com/mhingston/DriveTime/internal/textutil"
)

const (
	ansiGreen = "\033[32m"
	ansiRed   = "\033[31m"
	ansiReset = "\033[0m"
)

var errAPIDisabled = errors.New("status api disabled")

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the running worker's state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			status, err := fetchDaemonStatus(cmd.Context(), cfg)
			if err != nil {
				if !errors.Is(err, errAPIDisabled) {
					return err
				}
				pid, running := readPID(filepath.Join(cfg.Paths.DataDir, "drivetime.pid"))
				if ctx.JSONMode() {
					return writeJSON(cmd, api.DaemonStatus{Running: running, PID: pid, QueueDBPath: cfg.Queue.Database})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Worker: %s\n", runningLabel(running, shouldColorize(out)))
				fmt.Fprintln(out, "Set api.bind to see live worker state")
				return nil
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, status)
			}
			renderDaemonStatus(cmd.OutOrStdout(), status)
			return nil
		},
	}
}

func fetchDaemonStatus(ctx context.Context, cfg *config.Config) (*api.DaemonStatus, error) {
	bind := strings.TrimSpace(cfg.API.Bind)
	if bind == "" {
		return nil, errAPIDisabled
	}
	host, port, err := net.SplitHostPort(bind)
	if err != nil {
		return nil, fmt.Errorf("parse api.bind: %w", err)
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}

	reqCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, "http://"+net.JoinHostPort(host, port)+"/api/status", nil)
	if err != nil {
		return nil, err
	}
	if token := strings.TrimSpace(cfg.API.Token); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query worker status: %w; verify the worker is running with `drivetime run`", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("query worker status: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	var status api.DaemonStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decode worker status: %w", err)
	}
	return &status, nil
}

func renderDaemonStatus(out io.Writer, status *api.DaemonStatus) {
	colorize := shouldColorize(out)
	w := status.Worker
	fmt.Fprintf(out, "Worker: %s (pid %d)\n", runningLabel(status.Running, colorize), status.PID)
	fmt.Fprintf(out, "State: %s\n", w.State)
	fmt.Fprintf(out, "Database: %s (%s)\n", status.QueueDBPath, status.Connection)
	if w.BatchID != "" {
		fmt.Fprintf(out, "Batch: %s (%d/%d)\n", w.BatchID, w.BatchPosition, w.BatchSize)
	}
	if w.NextWake != "" {
		fmt.Fprintf(out, "Next wake: %s\n", w.NextWake)
	}
	if w.LastStatus != "" {
		fmt.Fprintf(out, "Last status: %s\n", w.LastStatus)
	}
	if w.LastError != "" {
		fmt.Fprintf(out, "Last error: %s\n", w.LastError)
	}

	rows := [][]string{
		{"Lookups", strconv.FormatInt(w.Lookups, 10)},
		{"Found", strconv.FormatInt(w.Found, 10)},
		{"Not found", strconv.FormatInt(w.NotFound, 10)},
		{"Failed", strconv.FormatInt(w.Failed, 10)},
		{"Insert failures", strconv.FormatInt(w.InsertFailures, 10)},
		{"Suspensions", strconv.FormatInt(w.Suspensions, 10)},
	}
	if q := status.Queue; q != nil {
		rows = append(rows,
			[]string{"Pending", strconv.Itoa(q.Pending)},
			[]string{"Locked", strconv.Itoa(q.Locked)},
			[]string{"Complete", strconv.Itoa(q.Complete)},
		)
	}
	fmt.Fprint(out, renderTable([]string{"Counter", "Value"}, rows, []columnAlignment{alignLeft, alignRight}))
	if status.QueueError != "" {
		fmt.Fprintf(out, "Queue error: %s\n", status.QueueError)
	}
}

func runningLabel(running, colorize bool) string {
	label := textutil.Ternary(running, "running", "stopped")
	if !colorize {
		return label
	}
	return textutil.Ternary(running, ansiGreen, ansiRed) + label + ansiReset
}

func readPID(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	// Signal 0 probes for the process without delivering anything.
	return pid, unix.Kill(pid, 0) == nil
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
