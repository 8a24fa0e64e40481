// Package statuscache persists the last reconciled status of a working
// copy so that other processes (shell prompts, `svnscm status --cached`)
// can read it without running svn.
package statuscache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/bolasblack/svnscm/internal/scm"
	"github.com/bolasblack/svnscm/internal/util"
)

const (
	// PeriodicRefreshInterval is the default interval between refreshes.
	PeriodicRefreshInterval = 30 * time.Second
	// RefreshTimeout bounds a single refresh.
	RefreshTimeout = time.Minute
)

// Snapshot is the cached state of one working copy.
type Snapshot struct {
	UpdatedAt time.Time           `json:"updatedAt"`
	Root      string              `json:"root"`
	Branch    string              `json:"branch"`
	Count     int                 `json:"count"`
	Groups    []scm.ResourceGroup `json:"groups"`
}

// Source is what a snapshot is taken from.
type Source interface {
	Root() string
	Branch() string
	Count() int
	Groups() []scm.ResourceGroup
	Status(ctx context.Context) error
}

// FromRepository captures the current state of src.
func FromRepository(src Source, now time.Time) *Snapshot {
	return &Snapshot{
		UpdatedAt: now,
		Root:      src.Root(),
		Branch:    src.Branch(),
		Count:     src.Count(),
		Groups:    src.Groups(),
	}
}

// Path returns the cache file of root below home.
func Path(home, root string) string {
	return filepath.Join(home, util.StatusDir, util.WorkingCopyKey(root)+".json")
}

// Read reads the snapshot of root. Returns nil, nil if there is none.
func Read(fs afero.Fs, home, root string) (*Snapshot, error) {
	data, err := afero.ReadFile(fs, Path(home, root))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read status cache: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse status cache: %w", err)
	}
	return &snap, nil
}

// Write stores snap, creating the cache directory if needed.
func Write(fs afero.Fs, home string, snap *Snapshot) error {
	dir := filepath.Join(home, util.StatusDir)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create status cache dir: %w", err)
	}

	buf, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal status cache: %w", err)
	}

	if err := afero.WriteFile(fs, Path(home, snap.Root), buf, 0o644); err != nil {
		return fmt.Errorf("failed to write status cache: %w", err)
	}
	return nil
}

// Refresh runs a status scan on src and stores the result.
func Refresh(ctx context.Context, fs afero.Fs, home string, src Source) (*Snapshot, error) {
	if err := src.Status(ctx); err != nil {
		return nil, err
	}
	snap := FromRepository(src, time.Now())
	if err := Write(fs, home, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// StartPeriodicRefresh refreshes the cache of src in the background.
// Failed refreshes are logged and retried on the next tick. The returned
// stop function stops the ticker and returns the latest cached snapshot.
func StartPeriodicRefresh(ctx context.Context, fs afero.Fs, home string, src Source, logger *zap.Logger) (stop func() *Snapshot) {
	return startPeriodicRefresh(ctx, fs, home, src, logger, PeriodicRefreshInterval)
}

func startPeriodicRefresh(ctx context.Context, fs afero.Fs, home string, src Source, logger *zap.Logger, interval time.Duration) (stop func() *Snapshot) {
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
				tickCtx, cancel := context.WithTimeout(ctx, RefreshTimeout)
				if _, err := Refresh(tickCtx, fs, home, src); err != nil {
					logger.Warn("status cache refresh failed", zap.String("root", src.Root()), zap.Error(err))
				}
				cancel()
			}
		}
	}()

	return func() *Snapshot {
		close(done)
		wg.Wait()
		snap, err := Read(fs, home, src.Root())
		if err != nil {
			return nil
		}
		return snap
	}
}
