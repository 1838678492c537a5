package daemonrun

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mhingston/DriveTime/internal/queue"
	"github.com/mhingston/DriveTime/internal/testsupport"
)

func TestRunProcessesQueueUntilCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"OK","rows":[{"elements":[{"status":"OK","duration":{"value":1500}}]}]}`))
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t,
		testsupport.WithLookupURL(server.URL+"/json?origins={{origin}}&destinations={{destination}}&key={{api_key}}"),
	)
	cfg.API.Bind = ""
	cfg.Logging.Format = "json"

	seed := testsupport.MustOpenStore(t, cfg)
	item := testsupport.Enqueue(t, seed, "Bath", "Bristol")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() {
		errCh <- Run(ctx, cfg, Options{})
	}()

	deadline := time.Now().Add(5 * time.Second)
	for {
		got, err := seed.GetByID(context.Background(), item.ID)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if got != nil && got.Status == queue.StatusComplete {
			if got.Minutes == nil || *got.Minutes != 25 {
				t.Fatalf("expected 25 minutes, got %v", got.Minutes)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("request not completed in time, status %v", got.Status)
		}
		time.Sleep(20 * time.Millisecond)
	}

	if _, err := os.Stat(filepath.Join(cfg.Paths.DataDir, "drivetime.pid")); err != nil {
		t.Fatalf("expected pid file while running: %v", err)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.DataDir, "drivetime.pid")); !os.IsNotExist(err) {
		t.Fatalf("expected pid file removed, got %v", err)
	}
}

func TestRunFailsRequiredPreflight(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.API.Bind = ""
	logFile := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(logFile, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg.Paths.LogDir = logFile

	if err := Run(context.Background(), cfg, Options{}); err == nil {
		t.Fatal("expected error when log directory is a file")
	}
}

func TestEnsureCurrentLogPointer(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "drivetime-1.log")
	if err := os.WriteFile(target, []byte("line\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ensureCurrentLogPointer(dir, target); err != nil {
		t.Fatalf("ensureCurrentLogPointer failed: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "drivetime.log"))
	if err != nil {
		t.Fatalf("read pointer failed: %v", err)
	}
	if string(data) != "line\n" {
		t.Fatalf("unexpected pointer contents: %q", data)
	}
}
