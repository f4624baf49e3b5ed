package mutex

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/mirkobrombin/go-redlock/v1/metrics"
)

// autoRelease is the scope-end safety net for a held Mutex. It rides on
// runtime.AddCleanup: when a held mutex becomes unreachable without Release
// or SuppressAutoRelease having been called, the release protocol runs on a
// detached goroutine.
//
// This path is deliberately weaker than a manual Release: it is best-effort,
// unordered with respect to later operations on the same key from this
// process, and its errors are only logged. Callers that need the strict
// guarantee release explicitly (usually via defer) and treat this as a net.
type autoRelease struct {
	armed   bool
	cleanup runtime.Cleanup
}

// releaseTask carries what the detached release needs. It must not reference
// the Mutex itself, or the cleanup would never fire.
type releaseTask struct {
	store   Store
	key     string
	token   string
	timeout time.Duration
}

func (a *autoRelease) arm(m *Mutex, timeout time.Duration) {
	task := &releaseTask{store: m.store, key: m.key, token: m.token, timeout: timeout}
	a.cleanup = runtime.AddCleanup(m, runDetached, task)
	a.armed = true
}

func (a *autoRelease) stop() {
	if a.armed {
		a.cleanup.Stop()
		a.armed = false
	}
}

// runDetached executes the compare-and-delete on its own goroutine; cleanups
// themselves must not block. Scope exit can never fail the caller, so the
// error is swallowed after logging.
func runDetached(task *releaseTask) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), task.timeout)
		defer cancel()
		if _, err := task.store.Eval(ctx, delScript, []string{task.key}, task.token); err != nil {
			metrics.AutoReleaseFailureCounter.Inc()
			slog.Error("redlock: auto release failed", "key", task.key, "error", err)
		}
	}()
}
