package scm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/bolasblack/svnscm/internal/config"
	"github.com/bolasblack/svnscm/internal/svn"
	"github.com/bolasblack/svnscm/internal/timing"
	"github.com/bolasblack/svnscm/internal/util"
	"github.com/bolasblack/svnscm/internal/watch"
)

// ErrNoWorkingCopy is returned when no svn working copy is found for a folder.
var ErrNoWorkingCopy = errors.New("no svn working copy found")

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	Env      *util.Env
	Logger   *zap.Logger
	Prompt   PromptFunc
	Progress ProgressReporter
	Sleep    timing.SleepFunc
	// LoadConfig returns the configuration for a working-copy root.
	// Defaults to config.LoadForWorkingCopy.
	LoadConfig func(root string) (config.Config, error)
	// Watch starts a filesystem watcher for every opened repository.
	Watch bool
}

// Manager owns the open repositories of a set of folders.
type Manager struct {
	opts   ManagerOptions
	logger *zap.Logger

	mu      sync.Mutex
	repos   map[string]*Repository // by root
	folders map[string][]string    // folder -> roots
	wg      sync.WaitGroup
}

// NewManager creates a manager.
func NewManager(opts ManagerOptions) *Manager {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.LoadConfig == nil {
		env := opts.Env
		opts.LoadConfig = func(root string) (config.Config, error) {
			return config.LoadForWorkingCopy(env, root)
		}
	}
	return &Manager{
		opts:    opts,
		logger:  opts.Logger,
		repos:   make(map[string]*Repository),
		folders: make(map[string][]string),
	}
}

// FindRoot returns dir or its nearest ancestor holding a .svn directory.
func FindRoot(fs afero.Fs, dir string) (string, bool) {
	dir = filepath.Clean(dir)
	root := ""
	for {
		if isDir(fs, filepath.Join(dir, watch.MetadataDir)) {
			root = dir
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return root, root != ""
}

// NestedRoots returns immediate subdirectories of dir that are working copies.
func NestedRoots(fs afero.Fs, dir string) ([]string, error) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}
	var roots []string
	for _, e := range entries {
		if !e.IsDir() || e.Name() == watch.MetadataDir {
			continue
		}
		sub := filepath.Join(dir, e.Name())
		if isDir(fs, filepath.Join(sub, watch.MetadataDir)) {
			roots = append(roots, sub)
		}
	}
	return roots, nil
}

func isDir(fs afero.Fs, path string) bool {
	info, err := fs.Stat(path)
	return err == nil && info.IsDir()
}

// Open discovers the working copies for folder, opens a Repository for
// each and runs an initial status. Externals kept as separate working
// copies are opened as repositories of their own.
func (m *Manager) Open(ctx context.Context, folder string) ([]*Repository, error) {
	folder = filepath.Clean(folder)
	fs := m.opts.Env.Fs

	var roots []string
	if root, ok := FindRoot(fs, folder); ok {
		roots = append(roots, root)
	} else {
		nested, err := NestedRoots(fs, folder)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		roots = nested
	}
	if len(roots) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoWorkingCopy, folder)
	}

	var opened []*Repository
	for i := 0; i < len(roots); i++ {
		root := roots[i]
		repo, err := m.open(ctx, folder, root)
		if err != nil {
			return opened, err
		}
		opened = append(opened, repo)
		for _, ext := range repo.Externals() {
			if isDir(fs, filepath.Join(ext, watch.MetadataDir)) && !contains(roots, ext) {
				roots = append(roots, ext)
			}
		}
	}
	return opened, nil
}

func (m *Manager) open(ctx context.Context, folder, root string) (*Repository, error) {
	m.mu.Lock()
	if repo, ok := m.repos[root]; ok {
		m.addFolderLocked(folder, root)
		m.mu.Unlock()
		return repo, nil
	}
	m.mu.Unlock()

	cfg, err := m.opts.LoadConfig(root)
	if err != nil {
		return nil, err
	}
	client := svn.New(m.opts.Env.Cmd,
		svn.WithPath(cfg.SvnPath),
		svn.WithEncoding(cfg.Encoding),
		svn.WithLogger(m.logger))
	base := svn.NewBaseRepository(client, root, svn.WithLayout(svn.BranchLayout{
		Trunk:    cfg.Layout.Trunk,
		Branches: cfg.Layout.Branches,
		Tags:     cfg.Layout.Tags,
	}))
	repo, err := NewRepository(Options{
		Base:     base,
		Config:   cfg,
		Logger:   m.logger,
		Prompt:   m.opts.Prompt,
		Progress: m.opts.Progress,
		Sleep:    m.opts.Sleep,
	})
	if err != nil {
		return nil, err
	}

	if err := repo.Status(ctx); err != nil {
		repo.Close()
		return nil, err
	}
	if m.opts.Watch {
		if err := repo.Watch(m.opts.Env.Fs); err != nil {
			m.logger.Warn("failed to watch working copy", zap.String("root", root), zap.Error(err))
		}
	}

	repo.OnDidChangeState(func(s State) {
		if s != StateDisposed {
			return
		}
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.remove(root, repo)
		}()
	})

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.repos[root]; ok {
		m.addFolderLocked(folder, root)
		repo.Close()
		return existing, nil
	}
	m.repos[root] = repo
	m.addFolderLocked(folder, root)
	m.logger.Info("opened working copy", zap.String("root", root))
	return repo, nil
}

func (m *Manager) addFolderLocked(folder, root string) {
	if !contains(m.folders[folder], root) {
		m.folders[folder] = append(m.folders[folder], root)
	}
}

func (m *Manager) remove(root string, repo *Repository) {
	m.mu.Lock()
	if m.repos[root] == repo {
		delete(m.repos, root)
		for folder, roots := range m.folders {
			m.folders[folder] = without(roots, root)
			if len(m.folders[folder]) == 0 {
				delete(m.folders, folder)
			}
		}
	}
	m.mu.Unlock()
	repo.Close()
	m.logger.Info("closed working copy", zap.String("root", root))
}

// Close closes every repository opened for folder that no other folder uses.
func (m *Manager) Close(folder string) {
	folder = filepath.Clean(folder)

	m.mu.Lock()
	roots := m.folders[folder]
	delete(m.folders, folder)
	var toClose []*Repository
	for _, root := range roots {
		if m.usedLocked(root) {
			continue
		}
		if repo, ok := m.repos[root]; ok {
			delete(m.repos, root)
			toClose = append(toClose, repo)
		}
	}
	m.mu.Unlock()

	for _, repo := range toClose {
		repo.Close()
	}
}

func (m *Manager) usedLocked(root string) bool {
	for _, roots := range m.folders {
		if contains(roots, root) {
			return true
		}
	}
	return false
}

// CloseAll closes every repository.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	repos := make([]*Repository, 0, len(m.repos))
	for _, repo := range m.repos {
		repos = append(repos, repo)
	}
	m.repos = make(map[string]*Repository)
	m.folders = make(map[string][]string)
	m.mu.Unlock()

	for _, repo := range repos {
		repo.Close()
	}
	m.wg.Wait()
}

// RepositoryFor returns the repository with the longest root containing path.
func (m *Manager) RepositoryFor(path string) (*Repository, bool) {
	path = filepath.Clean(path)
	m.mu.Lock()
	defer m.mu.Unlock()

	var best *Repository
	bestLen := -1
	for root, repo := range m.repos {
		if path != root && !strings.HasPrefix(path, root+string(filepath.Separator)) {
			continue
		}
		if len(root) > bestLen {
			best, bestLen = repo, len(root)
		}
	}
	return best, best != nil
}

// Repositories returns the open repositories sorted by root.
func (m *Manager) Repositories() []*Repository {
	m.mu.Lock()
	defer m.mu.Unlock()
	repos := make([]*Repository, 0, len(m.repos))
	for _, repo := range m.repos {
		repos = append(repos, repo)
	}
	sort.Slice(repos, func(i, j int) bool { return repos[i].Root() < repos[j].Root() })
	return repos
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func without(list []string, s string) []string {
	out := list[:0:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
