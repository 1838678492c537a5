package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/mhingston/DriveTime/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckEndpoint_Reachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	result := CheckEndpoint(context.Background(), "api", server.URL+"/matrix")
	if !result.Passed {
		t.Fatalf("expected reachable endpoint, got: %s", result.Detail)
	}
}

func TestCheckEndpoint_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := server.URL
	server.Close()

	result := CheckEndpoint(context.Background(), "api", addr)
	if result.Passed {
		t.Fatal("expected failure for closed listener")
	}
}

func TestCheckEndpoint_InvalidURL(t *testing.T) {
	if result := CheckEndpoint(context.Background(), "api", "not a url"); result.Passed {
		t.Fatal("expected failure for url without host")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil); results != nil {
		t.Fatalf("expected nil results, got %v", results)
	}
}

func TestRunAll_ReportsRequiredFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = base
	cfg.Paths.LogDir = filepath.Join(base, "missing-logs")
	cfg.Queue.Database = filepath.Join(base, "drivetime.db")
	cfg.Lookup.URLTemplate = server.URL + "/json?origins={{origin}}&destinations={{destination}}"

	results := RunAll(context.Background(), &cfg)
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d: %+v", len(results), results)
	}
	failed, ok := FirstRequiredFailure(results)
	if !ok || failed.Name != "Log directory" {
		t.Fatalf("expected log directory failure, got %+v (found=%v)", failed, ok)
	}
	if !results[3].Passed || results[3].Required {
		t.Fatalf("expected optional passing endpoint check, got %+v", results[3])
	}
}
