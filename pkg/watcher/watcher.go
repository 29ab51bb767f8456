// Package watcher reports changes inside workspaces, coalescing bursts of
// file events into one notification per workspace.
package watcher

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"

	"github.com/Gojibodev/keklauncher/internal/fsx"
	"github.com/Gojibodev/keklauncher/internal/logging"
)

const IgnoreFile = ".kekignore"

// Change names the workspace that changed and the last path touched in it.
type Change struct {
	Workspace string `json:"workspace"`
	Path      string `json:"path"`
	Op        string `json:"op"`
}

type Watcher struct {
	root           string
	ignorePatterns []glob.Glob
	notify         chan Change
	fsWatcher      *fsnotify.Watcher
	debounceTimers map[string]*time.Timer
	pending        map[string]Change
	debounceMutex  sync.Mutex
	debounceDelay  time.Duration
	closed         bool
}

func normalizePath(path string) string {
	return strings.ReplaceAll(path, "\\", "/")
}

func NewWatcher(root string, ignorePatterns []glob.Glob, debounceDelay time.Duration) (*Watcher, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		root:           root,
		ignorePatterns: ignorePatterns,
		notify:         make(chan Change, 64),
		fsWatcher:      fsWatcher,
		debounceTimers: make(map[string]*time.Timer),
		pending:        make(map[string]Change),
		debounceDelay:  debounceDelay,
	}, nil
}

func (w *Watcher) Changes() <-chan Change {
	return w.notify
}

func (w *Watcher) addTree(dir string) {
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		rel, _ := filepath.Rel(w.root, path)
		if rel != "." && IsIgnored(rel, w.ignorePatterns) {
			return filepath.SkipDir
		}
		if err := w.fsWatcher.Add(path); err != nil {
			logging.GlobalLogger.Warn("Could not watch " + path + ": " + err.Error())
		}
		return nil
	})
	if err != nil {
		logging.GlobalLogger.Error("Watching " + dir + " failed: " + err.Error())
	}
}

// Start watches until ctx is done. It closes the change channel on return.
func (w *Watcher) Start(ctx context.Context) {
	defer func() {
		_ = w.fsWatcher.Close()
		w.debounceMutex.Lock()
		for key, timer := range w.debounceTimers {
			timer.Stop()
			delete(w.debounceTimers, key)
		}
		close(w.notify)
		w.closed = true
		w.debounceMutex.Unlock()
	}()

	w.addTree(w.root)
	logging.GlobalLogger.Info("Watching workspaces in " + w.root)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			logging.GlobalLogger.Warn("Watcher error: " + err.Error())
		}
	}
}

func transient(name string) bool {
	base := filepath.Base(name)
	return base == fsx.LockFileName ||
		strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".part") ||
		strings.HasSuffix(base, ".tmp") ||
		strings.Contains(base, ".tmp-")
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&fsnotify.Chmod == fsnotify.Chmod || transient(event.Name) {
		return
	}
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil || rel == "." || rel == IgnoreFile || strings.HasPrefix(rel, "..") {
		return
	}
	rel = normalizePath(rel)
	if IsIgnored(rel, w.ignorePatterns) {
		return
	}
	if info, err := os.Lstat(event.Name); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return
	}
	if event.Op&fsnotify.Create == fsnotify.Create {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.addTree(event.Name)
		}
	}

	workspace, _, _ := strings.Cut(rel, "/")
	w.debounce(Change{Workspace: workspace, Path: rel, Op: event.Op.String()})
}

// debounce delays a change until its workspace has been quiet for the
// debounce delay; the latest path wins.
func (w *Watcher) debounce(c Change) {
	w.debounceMutex.Lock()
	defer w.debounceMutex.Unlock()
	if w.closed {
		return
	}
	w.pending[c.Workspace] = c
	if timer, exists := w.debounceTimers[c.Workspace]; exists {
		timer.Reset(w.debounceDelay)
		return
	}
	w.debounceTimers[c.Workspace] = time.AfterFunc(w.debounceDelay, func() {
		w.debounceMutex.Lock()
		defer w.debounceMutex.Unlock()
		change, ok := w.pending[c.Workspace]
		delete(w.pending, c.Workspace)
		delete(w.debounceTimers, c.Workspace)
		if !ok || w.closed {
			return
		}
		select {
		case w.notify <- change:
			logging.GlobalLogger.Debug("Workspace changed: " + change.Workspace + " (" + change.Path + ")")
		default:
			logging.GlobalLogger.Warn("Dropping change notification for " + change.Workspace)
		}
	})
}

// LoadIgnorePatterns reads glob patterns from the ignore file in dir, one per
// line. Blank lines and # comments are skipped.
func LoadIgnorePatterns(dir string) ([]glob.Glob, error) {
	var patterns []glob.Glob
	f, err := os.Open(filepath.Join(dir, IgnoreFile))
	if os.IsNotExist(err) {
		return patterns, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		g, err := glob.Compile(line, '/')
		if err != nil {
			logging.GlobalLogger.Warn("Invalid pattern in " + IgnoreFile + ": " + line)
			continue
		}
		patterns = append(patterns, g)
	}
	return patterns, scanner.Err()
}

func IsIgnored(path string, patterns []glob.Glob) bool {
	path = normalizePath(path)
	for _, p := range patterns {
		if p.Match(path) {
			return true
		}
	}
	return false
}
