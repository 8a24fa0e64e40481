package scm

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/bolasblack/svnscm/internal/watch"
)

// RemotePollTimeout bounds a single periodic remote check.
const RemotePollTimeout = 2 * time.Minute

// HandleFileEvent reacts to a filesystem change below the working copy.
// Changes in .svn fire OnDidChangeRepository; with autorefresh on and no
// mutating operation running, a debounced status refresh is scheduled.
func (r *Repository) HandleFileEvent(path string) {
	if r.State() != StateIdle {
		return
	}
	rel, err := filepath.Rel(r.Root(), path)
	if err != nil {
		rel = path
	}
	if watch.IsIgnoredPath(rel) {
		return
	}
	if watch.IsMetadataPath(rel) {
		r.onDidChangeRepository.Emit(path)
	}

	if !r.Config().Autorefresh || !r.tracker.IsIdle() {
		return
	}
	r.debouncer.Trigger()
}

// Watch starts a filesystem watcher feeding HandleFileEvent. It is stopped
// by Close.
func (r *Repository) Watch(fs afero.Fs) error {
	w, err := watch.New(fs, r.Root(), func(ev watch.Event) {
		r.HandleFileEvent(ev.Path)
	}, r.logger)
	if err != nil {
		return err
	}
	r.disposables.Add(func() { _ = w.Close() })
	return nil
}

// updateWhenIdleAndWait waits for running operations, refreshes the status
// and then holds the throttle for the cooldown period.
func (r *Repository) updateWhenIdleAndWait() {
	ctx := r.bgCtx
	if err := r.whenIdle(ctx); err != nil {
		return
	}
	if err := r.Status(ctx); err != nil && !errors.Is(err, ErrNotInitialized) {
		r.logger.Warn("automatic status refresh failed", zap.Error(err))
	}
	_ = r.sleep(ctx, r.refreshCooldown)
}

// whenIdle blocks until no mutating operation is running.
func (r *Repository) whenIdle(ctx context.Context) error {
	for !r.tracker.IsIdle() {
		ch := make(chan struct{}, 1)
		unsub := r.onDidRunOperation.Subscribe(func(Operation) {
			select {
			case ch <- struct{}{}:
			default:
			}
		})
		if r.tracker.IsIdle() {
			unsub()
			return nil
		}
		select {
		case <-ch:
			unsub()
		case <-ctx.Done():
			unsub()
			return ctx.Err()
		}
	}
	return nil
}

func (r *Repository) restartPoller(interval time.Duration) {
	r.stopPoller()

	r.pollerMu.Lock()
	defer r.pollerMu.Unlock()
	r.pollerInterval = interval
	if interval <= 0 || r.bgCtx.Err() != nil {
		return
	}
	r.pollerStop = startRemotePoller(r.bgCtx, interval, r.pollRemote)
}

func (r *Repository) stopPoller() {
	r.pollerMu.Lock()
	stop := r.pollerStop
	r.pollerStop = nil
	r.pollerMu.Unlock()
	if stop != nil {
		stop()
	}
}

// pollRemote runs one remote check. Failures are logged; the poller keeps going.
func (r *Repository) pollRemote(ctx context.Context) {
	if r.State() != StateIdle {
		return
	}
	tickCtx, cancel := context.WithTimeout(ctx, RemotePollTimeout)
	defer cancel()
	if err := r.StatusRemote(tickCtx); err != nil {
		r.logger.Warn("remote changes check failed", zap.Error(err))
	}
}

// startRemotePoller calls poll every interval until stopped. The returned
// stop function waits for a poll in progress to return.
func startRemotePoller(ctx context.Context, interval time.Duration, poll func(context.Context)) (stop func()) {
	done := make(chan struct{})
	ticker := time.NewTicker(interval)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				poll(ctx)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			wg.Wait()
		})
	}
}
