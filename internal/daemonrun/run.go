package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mhingston/DriveTime/internal/config"
	"github.com/mhingston/DriveTime/internal/daemon"
	"github.com/mhingston/DriveTime/internal/distance"
	"github.com/mhingston/DriveTime/internal/exitcode"
	"github.com/mhingston/DriveTime/internal/logging"
	"github.com/mhingston/DriveTime/internal/metrics"
	"github.com/mhingston/DriveTime/internal/notifications"
	"github.com/mhingston/DriveTime/internal/preflight"
	"github.com/mhingston/DriveTime/internal/queue"
	"github.com/mhingston/DriveTime/internal/worker"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	// SkipPreflight disables the startup readiness checks.
	SkipPreflight bool
}

// Run starts the DriveTime worker and blocks until a signal arrives or the
// worker loop terminates. A fatal loop failure is returned as *exitcode.Error.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return exitcode.New(exitcode.NoDBConnection, err)
	}

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("drivetime-%s.log", runID))
	level := strings.TrimSpace(opts.LogLevel)
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
		Development:      opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update drivetime.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "drivetime-*.log", Exclude: []string{logPath}},
	)
	logConfigSnapshot(logger, cfg)

	pidPath := filepath.Join(cfg.Paths.DataDir, "drivetime.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	if !opts.SkipPreflight {
		if err := runPreflight(signalCtx, logger, cfg); err != nil {
			return err
		}
	}

	store, err := queue.Open(cfg, queue.WithLogger(logger))
	if err != nil {
		logging.ErrorWithContext(logger, "open queue store", "queue_open_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check queue.database and that the directory is writable"),
		)
		return exitcode.New(exitcode.NoDBConnection, err)
	}

	client, err := distance.New(cfg.Lookup.URLTemplate, cfg.Lookup.APIKey,
		distance.WithTimeout(cfg.LookupTimeout()),
		distance.WithRateLimit(cfg.Lookup.MaxRequestsPerSecond),
		distance.WithUserAgent(cfg.Lookup.UserAgent),
	)
	if err != nil {
		store.Close()
		return fmt.Errorf("create lookup client: %w", err)
	}

	notifier := notifications.NewService(cfg)
	m := metrics.New()
	watchQueue(m, store, logger)

	w, err := worker.New(store, client, worker.Options{
		EmptySleep:     cfg.EmptySleep(),
		RequestDelay:   cfg.RequestDelay(),
		ResumeSchedule: cfg.Worker.ResumeSchedule,
		Logger:         logger,
		Metrics:        m,
		Notifier:       notifier,
	})
	if err != nil {
		client.Close()
		store.Close()
		return fmt.Errorf("create worker: %w", err)
	}

	d, err := daemon.New(cfg, store, logger, w,
		daemon.WithLookupCloser(client.Close),
		daemon.WithMetrics(m),
		daemon.WithNotifier(notifier),
	)
	if err != nil {
		client.Close()
		store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check for another running worker and the api.bind address"),
		)
		return err
	}

	select {
	case <-signalCtx.Done():
		logger.Info("drivetime daemon shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
		d.Stop()
		return nil
	case <-d.Done():
	}

	loopErr := d.Err()
	if loopErr == nil {
		return nil
	}
	code := exitcode.From(loopErr)
	logging.ErrorWithContext(logger, "worker exiting", "worker_fatal",
		logging.Error(loopErr),
		logging.String("exit_code", code.String()),
		logging.Int("exit_status", int(code)),
		logging.String(logging.FieldImpact, "queue processing halted until the service restarts"),
	)
	notifyCtx, notifyCancel := context.WithTimeout(context.WithoutCancel(signalCtx), 15*time.Second)
	defer notifyCancel()
	if err := notifier.NotifyFatal(notifyCtx, loopErr, code.String()); err != nil {
		logging.WarnWithContext(logger, "fatal notification failed", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "operators are not alerted about the exit"),
		)
	}

	var coded *exitcode.Error
	if errors.As(loopErr, &coded) {
		return coded
	}
	return exitcode.New(code, loopErr)
}

func runPreflight(ctx context.Context, logger *slog.Logger, cfg *config.Config) error {
	results := preflight.RunAll(ctx, cfg)
	for _, result := range results {
		attrs := []logging.Attr{
			logging.String(logging.FieldEventType, "preflight_check"),
			logging.String("check", result.Name),
			logging.Bool("passed", result.Passed),
			logging.String("detail", result.Detail),
		}
		switch {
		case result.Passed:
			logger.Debug("preflight check passed", logging.Args(attrs...)...)
		case result.Required:
			logger.Error("preflight check failed", logging.Args(attrs...)...)
		default:
			logging.WarnWithContext(logger, "preflight check failed", "preflight_check",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail),
				logging.String(logging.FieldImpact, "the worker starts but lookups may fail"),
			)
		}
	}
	if failed, ok := preflight.FirstRequiredFailure(results); ok {
		return fmt.Errorf("preflight %s: %s", strings.ToLower(failed.Name), failed.Detail)
	}
	return nil
}

func watchQueue(m *metrics.Metrics, store *queue.Store, logger *slog.Logger) {
	sample := func(pick func(queue.Stats) int) func() float64 {
		return func() float64 {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			stats, err := store.Stats(ctx)
			if err != nil {
				logger.Debug("queue gauge sample failed", logging.Error(err))
				return 0
			}
			return float64(pick(stats))
		}
	}
	m.WatchQueue(
		sample(func(s queue.Stats) int { return s.Pending }),
		sample(func(s queue.Stats) int { return s.Locked }),
	)
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "drivetime.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logConfigSnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	logger.Info("configuration snapshot",
		logging.String(logging.FieldEventType, "config_snapshot"),
		logging.String("queue_db", cfg.Queue.Database),
		logging.Int("batch_size", cfg.Queue.BatchSize),
		logging.Duration("lock_timeout", cfg.LockTimeout()),
		logging.Duration("empty_sleep", cfg.EmptySleep()),
		logging.Duration("request_delay", cfg.RequestDelay()),
		logging.String("resume_schedule", cfg.Worker.ResumeSchedule),
		logging.Bool("api_key_present", strings.TrimSpace(cfg.Lookup.APIKey) != ""),
		logging.Bool("api_enabled", cfg.API.Bind != ""),
		logging.Bool("ntfy_enabled", strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""),
	)
}
