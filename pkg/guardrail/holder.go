package guardrail

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/aretw0/agentcore/internal/logging"
	"github.com/aretw0/agentcore/pkg/domain"
	"github.com/fsnotify/fsnotify"
)

// reloadDebounce absorbs the burst of events editors produce for one save.
const reloadDebounce = 100 * time.Millisecond

// LoadFunc reads and compiles a policy from a config file.
type LoadFunc func(path string) (*Policy, error)

// Holder publishes the current policy to concurrent readers.
// Sessions call Load once per evaluation, so a reload applies to the next decision.
type Holder struct {
	current atomic.Pointer[Policy]
	logger  *slog.Logger
}

// HolderOption configures a Holder.
type HolderOption func(*Holder)

// WithLogger configures the logger used for reload events.
func WithLogger(logger *slog.Logger) HolderOption {
	return func(h *Holder) {
		h.logger = logger
	}
}

// NewHolder creates a Holder serving p.
func NewHolder(p *Policy, opts ...HolderOption) *Holder {
	h := &Holder{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(h)
	}
	h.current.Store(p)
	return h
}

// Load returns the current policy.
func (h *Holder) Load() *Policy {
	return h.current.Load()
}

// Store replaces the current policy.
func (h *Holder) Store(p *Policy) {
	h.current.Store(p)
}

// Evaluate evaluates req against the current policy.
func (h *Holder) Evaluate(req domain.ActionRequest) domain.Decision {
	return Evaluate(req, h.Load())
}

// Watch reloads the policy whenever path changes, until ctx is done.
// The directory is watched rather than the file so editors that replace the
// file on save are followed. A policy that fails to load is logged and the
// previous one stays active.
func (h *Holder) Watch(ctx context.Context, path string, load LoadFunc) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("watch policy: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch policy: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch policy: %w", err)
	}

	go func() {
		defer watcher.Close()
		var timer *time.Timer
		var fire <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != abs {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(reloadDebounce)
				} else {
					timer.Reset(reloadDebounce)
				}
				fire = timer.C
			case <-fire:
				fire = nil
				p, err := load(abs)
				if err != nil {
					h.logger.Warn("policy reload failed, keeping previous policy", "path", abs, "err", err)
					continue
				}
				h.Store(p)
				h.logger.Info("policy reloaded", "path", abs)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				h.logger.Warn("policy watcher error", "err", err)
			}
		}
	}()
	return nil
}
