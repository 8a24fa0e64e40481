// Package watch reports filesystem changes below a working copy.
package watch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// MetadataDir is the name of svn's administrative directory.
const MetadataDir = ".svn"

// Event is a single relevant filesystem change.
type Event struct {
	Path string
	Op   fsnotify.Op
	// Metadata is set for changes inside the .svn directory.
	Metadata bool
}

// Handler receives watcher events.
type Handler func(Event)

// IsMetadataPath reports whether path is the .svn directory or lives in it.
func IsMetadataPath(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == MetadataDir {
			return true
		}
	}
	return false
}

// IsIgnoredPath reports changes nobody cares about: svn's scratch area.
func IsIgnoredPath(path string) bool {
	p := filepath.ToSlash(path)
	return strings.Contains(p, "/"+MetadataDir+"/tmp") || strings.HasPrefix(p, MetadataDir+"/tmp")
}

// Watcher watches a directory tree with fsnotify. Directories created later
// are added as they appear. Inside .svn only the top level is watched.
type Watcher struct {
	fs      afero.Fs
	root    string
	handler Handler
	logger  *zap.Logger
	fsw     *fsnotify.Watcher

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New starts watching root. handler runs on the watcher goroutine.
func New(fs afero.Fs, root string, handler Handler, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	w := &Watcher{
		fs:      fs,
		root:    root,
		handler: handler,
		logger:  logger,
		fsw:     fsw,
		done:    make(chan struct{}),
	}
	if err := w.addTree(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Dirs lists the directories that would be watched below root.
func Dirs(fs afero.Fs, root string) ([]string, error) {
	var dirs []string
	err := afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		dirs = append(dirs, path)
		if info.Name() == MetadataDir {
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	return dirs, nil
}

func (w *Watcher) addTree(root string) error {
	dirs, err := Dirs(w.fs, root)
	if err != nil {
		return err
	}
	for _, dir := range dirs {
		if err := w.fsw.Add(dir); err != nil {
			w.logger.Debug("watch add failed", zap.String("dir", dir), zap.Error(err))
		}
	}
	return nil
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", zap.String("root", w.root), zap.Error(err))
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil {
		rel = ev.Name
	}
	if IsIgnoredPath(rel) {
		return
	}
	metadata := IsMetadataPath(rel)

	if ev.Has(fsnotify.Create) && !metadata {
		if info, err := w.fs.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addTree(ev.Name); err != nil && !errors.Is(err, os.ErrNotExist) {
				w.logger.Debug("watch new dir failed", zap.String("dir", ev.Name), zap.Error(err))
			}
		}
	}

	w.handler(Event{Path: ev.Name, Op: ev.Op, Metadata: metadata})
}

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.fsw.Close()
		w.wg.Wait()
	})
	return err
}
