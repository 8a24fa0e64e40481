// Package scm keeps the observable state of svn working copies: it runs
// operations through a tracker with retries, reconciles `svn status` into
// resource groups and publishes change events.
package scm

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/bolasblack/svnscm/internal/config"
	"github.com/bolasblack/svnscm/internal/event"
	"github.com/bolasblack/svnscm/internal/svn"
	"github.com/bolasblack/svnscm/internal/timing"
)

// ErrNotInitialized is returned by every operation once the repository is disposed.
var ErrNotInitialized = errors.New("repository not initialized")

// State is the lifecycle state of a Repository.
type State int

const (
	StateIdle State = iota
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDisposed:
		return "disposed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Retry limits.
const (
	maxLockAttempts = 10
	maxAuthAttempts = 3
	lockBackoffUnit = 50 * time.Millisecond
)

// Credentials are what a PromptFunc returns.
type Credentials struct {
	Username string
	Password string
}

// PromptFunc asks the user for credentials. It returns nil, nil when the
// user cancels.
type PromptFunc func(ctx context.Context, previousUsername string) (*Credentials, error)

// ProgressReporter shows that a user-visible operation is running.
type ProgressReporter interface {
	Begin(op Operation) (done func())
}

// Options configures a Repository.
type Options struct {
	Base     *svn.BaseRepository
	Config   config.Config
	Logger   *zap.Logger
	Prompt   PromptFunc
	Progress ProgressReporter
	// Sleep waits between retries and after automatic refreshes.
	Sleep timing.SleepFunc
}

// Repository is the reconciled state of one working copy.
type Repository struct {
	base     *svn.BaseRepository
	logger   *zap.Logger
	prompt   PromptFunc
	progress ProgressReporter
	sleep    timing.SleepFunc

	tracker   *OperationsTracker
	authGroup singleflight.Group

	mu           sync.RWMutex
	cfg          config.Config
	exclude      *config.ExcludeMatcher
	state        State
	changes      []Resource
	conflicts    []Resource
	unversioned  []Resource
	changelists  map[string][]Resource
	remote       []Resource
	hasRemote    bool
	ignored      []string
	externals    []string
	count        int
	branch       string
	isIncomplete bool
	needCleanUp  bool

	onDidChangeRepository         *event.Emitter[string]
	onDidChangeState              *event.Emitter[State]
	onDidChangeStatus             *event.Emitter[struct{}]
	onDidChangeRemoteChangedFiles *event.Emitter[struct{}]
	onDidStartOperation           *event.Emitter[Operation]
	onDidRunOperation             *event.Emitter[Operation]

	bgCtx       context.Context
	bgCancel    context.CancelFunc
	disposables event.Bag
	closeOnce   sync.Once

	refreshDelay    time.Duration
	refreshCooldown time.Duration
	debouncer       *timing.Debouncer
	throttler       *timing.Throttler

	pollerMu       sync.Mutex
	pollerInterval time.Duration
	pollerStop     func()
}

// NewRepository creates the reconciler for opts.Base and starts the remote
// poller when the configuration enables it.
func NewRepository(opts Options) (*Repository, error) {
	if opts.Base == nil {
		return nil, errors.New("scm: base repository is required")
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = timing.Sleep
	}

	r := &Repository{
		base:                          opts.Base,
		logger:                        logger.With(zap.String("root", opts.Base.Root())),
		prompt:                        opts.Prompt,
		progress:                      opts.Progress,
		sleep:                         sleep,
		tracker:                       NewOperationsTracker(),
		cfg:                           opts.Config,
		exclude:                       opts.Config.ExcludeMatcher(),
		changelists:                   make(map[string][]Resource),
		onDidChangeRepository:         event.NewEmitter[string](),
		onDidChangeState:              event.NewEmitter[State](),
		onDidChangeStatus:             event.NewEmitter[struct{}](),
		onDidChangeRemoteChangedFiles: event.NewEmitter[struct{}](),
		onDidStartOperation:           event.NewEmitter[Operation](),
		onDidRunOperation:             event.NewEmitter[Operation](),
		refreshDelay:                  time.Second,
		refreshCooldown:               5 * time.Second,
	}
	r.bgCtx, r.bgCancel = context.WithCancel(context.Background())

	r.throttler = timing.NewThrottler(r.updateWhenIdleAndWait)
	r.debouncer = timing.NewDebouncer(r.refreshDelay, r.throttler.Trigger)
	// Disposed in reverse: cancel background work first, then stop timers.
	r.disposables.Add(r.stopPoller)
	r.disposables.Add(r.throttler.Stop)
	r.disposables.Add(func() { r.debouncer.Stop() })
	r.disposables.Add(r.bgCancel)

	r.restartPoller(opts.Config.RemoteCheckInterval())
	return r, nil
}

// Root returns the working-copy root.
func (r *Repository) Root() string { return r.base.Root() }

// Base returns the command layer.
func (r *Repository) Base() *svn.BaseRepository { return r.base }

// Operations returns the operation tracker.
func (r *Repository) Operations() *OperationsTracker { return r.tracker }

// State returns the lifecycle state.
func (r *Repository) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

func (r *Repository) setState(s State) {
	r.mu.Lock()
	changed := r.state != s
	r.state = s
	r.mu.Unlock()
	if changed {
		r.logger.Info("repository state changed", zap.Stringer("state", s))
		r.onDidChangeState.Emit(s)
	}
}

// Config returns the configuration in use.
func (r *Repository) Config() config.Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cfg
}

// UpdateConfig replaces the configuration. The remote poller is restarted
// when its interval changed.
func (r *Repository) UpdateConfig(cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	r.cfg = cfg
	r.exclude = cfg.ExcludeMatcher()
	r.mu.Unlock()

	r.pollerMu.Lock()
	changed := r.pollerInterval != cfg.RemoteCheckInterval()
	r.pollerMu.Unlock()
	if changed {
		r.restartPoller(cfg.RemoteCheckInterval())
	}
	return nil
}

// Close disposes the repository: the state becomes Disposed and every
// timer, watcher and subscription is released exactly once. It must not be
// called from an event listener of the same repository.
func (r *Repository) Close() {
	r.closeOnce.Do(func() {
		r.setState(StateDisposed)
		r.disposables.Dispose()
		r.onDidChangeRepository.Close()
		r.onDidChangeState.Close()
		r.onDidChangeStatus.Close()
		r.onDidChangeRemoteChangedFiles.Close()
		r.onDidStartOperation.Close()
		r.onDidRunOperation.Close()
	})
}

// OnDidChangeRepository fires with the changed path when .svn metadata changes.
func (r *Repository) OnDidChangeRepository(fn func(path string)) event.Unsubscribe {
	return r.onDidChangeRepository.Subscribe(fn)
}

// OnDidChangeState fires when the lifecycle state changes.
func (r *Repository) OnDidChangeState(fn func(State)) event.Unsubscribe {
	return r.onDidChangeState.Subscribe(fn)
}

// OnDidChangeStatus fires after every reconciliation.
func (r *Repository) OnDidChangeStatus(fn func()) event.Unsubscribe {
	return r.onDidChangeStatus.Subscribe(func(struct{}) { fn() })
}

// OnDidChangeRemoteChangedFiles fires when the number of remote changes changed.
func (r *Repository) OnDidChangeRemoteChangedFiles(fn func()) event.Unsubscribe {
	return r.onDidChangeRemoteChangedFiles.Subscribe(func(struct{}) { fn() })
}

// OnDidStartOperation fires when an operation starts.
func (r *Repository) OnDidStartOperation(fn func(Operation)) event.Unsubscribe {
	return r.onDidStartOperation.Subscribe(fn)
}

// OnDidRunOperation fires when an operation finished, successfully or not.
func (r *Repository) OnDidRunOperation(fn func(Operation)) event.Unsubscribe {
	return r.onDidRunOperation.Subscribe(fn)
}

// OnDidChangeOperations fires when an operation starts or finishes.
func (r *Repository) OnDidChangeOperations(fn func()) event.Unsubscribe {
	return event.Any(r.onDidStartOperation, r.onDidRunOperation, fn)
}

// run executes body as op: it tracks the operation, retries transient
// failures and reconciles the status afterwards unless op is read-only.
func run[T any](ctx context.Context, r *Repository, op Operation, body func(context.Context) (T, error)) (T, error) {
	var zero T
	if r.State() != StateIdle {
		return zero, ErrNotInitialized
	}

	if ShowsProgress(op) && r.progress != nil {
		done := r.progress.Begin(op)
		defer done()
	}

	logger := r.logger.With(zap.String("op", string(op)), zap.String("run_id", uuid.NewString()))
	start := time.Now()
	logger.Debug("operation started")

	r.tracker.Start(op)
	r.onDidStartOperation.Emit(op)
	defer func() {
		r.tracker.End(op)
		r.onDidRunOperation.Emit(op)
	}()

	result, err := retryRun(ctx, r, logger, body)
	if err == nil && !IsReadOnly(op) {
		err = r.updateModelState(ctx, op == OpStatusRemote)
	}
	if err != nil {
		if svn.IsNotWorkingCopy(err) {
			r.setState(StateDisposed)
		}
		logger.Debug("operation failed", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return zero, err
	}

	logger.Debug("operation finished", zap.Duration("elapsed", time.Since(start)))
	return result, nil
}

// do is run for bodies without a result.
func do(ctx context.Context, r *Repository, op Operation, body func(context.Context) error) error {
	_, err := run(ctx, r, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, body(ctx)
	})
	return err
}

// retryRun retries body on lock contention with quadratic backoff and on
// authorization failures after prompting for new credentials.
func retryRun[T any](ctx context.Context, r *Repository, logger *zap.Logger, body func(context.Context) (T, error)) (T, error) {
	var zero T
	for attempt := 1; ; attempt++ {
		result, err := body(ctx)
		if err == nil {
			return result, nil
		}

		switch {
		case svn.IsLocked(err) && attempt <= maxLockAttempts:
			wait := time.Duration(attempt*attempt) * lockBackoffUnit
			logger.Debug("working copy locked, retrying", zap.Int("attempt", attempt), zap.Duration("wait", wait))
			if serr := r.sleep(ctx, wait); serr != nil {
				return zero, err
			}
		case svn.IsAuthFailure(err) && attempt <= maxAuthAttempts:
			creds, perr := r.promptCredentials(ctx)
			if perr != nil {
				logger.Warn("credential prompt failed", zap.Error(perr))
				return zero, err
			}
			if creds == nil {
				return zero, err
			}
			r.base.SetCredentials(creds.Username, creds.Password)
			logger.Debug("retrying with new credentials", zap.Int("attempt", attempt), zap.String("username", creds.Username))
		default:
			var svnErr *svn.Error
			if errors.As(err, &svnErr) {
				logger.Debug("svn error", zap.String("code", string(svnErr.Code)), zap.String("stderr", svnErr.Stderr))
			}
			return zero, err
		}
	}
}

// promptCredentials asks for credentials once for all concurrent callers.
func (r *Repository) promptCredentials(ctx context.Context) (*Credentials, error) {
	if r.prompt == nil {
		return nil, nil
	}
	v, err, _ := r.authGroup.Do("auth", func() (any, error) {
		return r.prompt(ctx, r.base.Username())
	})
	if err != nil {
		return nil, err
	}
	creds, _ := v.(*Credentials)
	return creds, nil
}

// snapshot accessors

// Changes returns the Changes group.
func (r *Repository) Changes() ResourceGroup {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return ResourceGroup{ID: GroupChanges, Label: "Changes", Resources: cloneResources(r.changes)}
}

// Conflicts returns the Conflicts group.
func (r *Repository) Conflicts() ResourceGroup {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return ResourceGroup{ID: GroupConflicts, Label: "Conflicts", Resources: cloneResources(r.conflicts)}
}

// Unversioned returns the Unversioned group.
func (r *Repository) Unversioned() ResourceGroup {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return ResourceGroup{ID: GroupUnversioned, Label: "Unversioned", Resources: cloneResources(r.unversioned)}
}

// Changelists returns one group per changelist, sorted by name.
func (r *Repository) Changelists() []ResourceGroup {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.changelistGroupsLocked()
}

func (r *Repository) changelistGroupsLocked() []ResourceGroup {
	names := make([]string, 0, len(r.changelists))
	for name := range r.changelists {
		names = append(names, name)
	}
	sortStrings(names)
	groups := make([]ResourceGroup, 0, len(names))
	for _, name := range names {
		groups = append(groups, ResourceGroup{
			ID:        ChangelistGroupID(name),
			Label:     "Changelist: " + name,
			Resources: cloneResources(r.changelists[name]),
		})
	}
	return groups
}

// RemoteChanges returns the remote changes group; ok is false until a
// remote check ran.
func (r *Repository) RemoteChanges() (ResourceGroup, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return ResourceGroup{ID: GroupRemoteChanges, Label: "Remote Changes", Resources: cloneResources(r.remote)}, r.hasRemote
}

// Groups returns the visible groups in display order: changes, conflicts
// (when any), changelists, unversioned, remote changes last.
func (r *Repository) Groups() []ResourceGroup {
	groups := []ResourceGroup{r.Changes()}
	if c := r.Conflicts(); c.Len() > 0 {
		groups = append(groups, c)
	}
	groups = append(groups, r.Changelists()...)
	groups = append(groups, r.Unversioned())
	if remote, ok := r.RemoteChanges(); ok {
		groups = append(groups, remote)
	}
	return groups
}

// Count returns the aggregate change count.
func (r *Repository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}

// Ignored returns the absolute paths svn reported as ignored.
func (r *Repository) Ignored() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.ignored...)
}

// Externals returns the absolute paths of externals kept as separate
// working copies.
func (r *Repository) Externals() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.externals...)
}

// Branch returns the branch name cached by the last reconciliation.
func (r *Repository) Branch() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.branch
}

// IsIncomplete reports whether the last scan found an interrupted
// checkout or switch.
func (r *Repository) IsIncomplete() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.isIncomplete
}

// NeedCleanUp reports whether the working copy root is locked.
func (r *Repository) NeedCleanUp() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.needCleanUp
}

func (r *Repository) abs(rel string) string {
	if filepath.IsAbs(rel) {
		return filepath.Clean(rel)
	}
	return filepath.Join(r.base.Root(), filepath.FromSlash(rel))
}
