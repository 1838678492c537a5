package preflight

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/mhingston/DriveTime/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Required bool
	Detail   string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		required(CheckDirectoryAccess("Data directory", cfg.Paths.DataDir)),
		required(CheckDirectoryAccess("Log directory", cfg.Paths.LogDir)),
	}
	if db := strings.TrimSpace(cfg.Queue.Database); db != "" {
		results = append(results, required(CheckDirectoryAccess("Queue database directory", filepath.Dir(db))))
	}

	results = append(results, CheckEndpoint(ctx, "Distance API", renderProbeURL(cfg.Lookup.URLTemplate)))

	if topic := strings.TrimSpace(cfg.Notifications.NtfyTopic); topic != "" {
		results = append(results, CheckEndpoint(ctx, "ntfy", topic))
	}
	return results
}

// FirstRequiredFailure returns the first failed required check, if any.
func FirstRequiredFailure(results []Result) (Result, bool) {
	for _, result := range results {
		if result.Required && !result.Passed {
			return result, true
		}
	}
	return Result{}, false
}

func required(result Result) Result {
	result.Required = true
	return result
}
