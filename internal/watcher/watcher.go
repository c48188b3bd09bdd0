// Package watcher folds external workspace edits into the collection so the
// in-memory snapshot tracks files changed by editors or sync tools.
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/norholm/laguz/internal/noteservice"
)

// EventCallback is called after a watcher-driven collection change.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind string, path string)

// Watch starts an fsnotify watcher on the workspace root and processes file
// change events until ctx is cancelled. It calls cb (if non-nil) after each
// successful collection mutation.
//
// New directories created at runtime are automatically added to the watch
// list. Rename events trigger a debounced reconciliation pass that evicts
// notes whose files no longer exist on disk.
func Watch(ctx context.Context, svc *noteservice.Service, workspaceRoot string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, workspaceRoot); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", workspaceRoot))

	// reconcileTimer debounces rename reconciliation.
	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(200 * time.Millisecond)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			if err := svc.Reconcile(ctx); err != nil {
				logger.Warn("watcher: reconcile failed", slog.String("error", err.Error()))
			} else if cb != nil {
				cb("reconciled", "")
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name

			// New directories: start watching and absorb their contents.
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", absPath))
					}
					absorbDir(svc, workspaceRoot, absPath, logger, cb)
					continue
				}
			}

			// Only process committed .md files from here on.
			if !strings.HasSuffix(absPath, ".md") || strings.HasPrefix(filepath.Base(absPath), ".laguz-tmp-") {
				continue
			}

			rel, relErr := filepath.Rel(workspaceRoot, absPath)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				kind, absorbErr := svc.AbsorbFile(rel)
				if absorbErr != nil {
					logger.Warn("watcher: absorb failed", slog.String("path", rel), slog.String("error", absorbErr.Error()))
					continue
				}
				if kind == "" {
					continue
				}
				logger.Debug("watcher: absorbed", slog.String("path", rel), slog.String("op", kind))
				if cb != nil {
					cb(kind, rel)
				}

			case ev.Op&fsnotify.Remove != 0:
				if evictErr := svc.EvictPath(rel); evictErr != nil {
					logger.Warn("watcher: evict failed", slog.String("path", rel), slog.String("error", evictErr.Error()))
					continue
				}
				logger.Debug("watcher: evicted", slog.String("path", rel))
				if cb != nil {
					cb("deleted", rel)
				}

			case ev.Op&fsnotify.Rename != 0:
				// fsnotify fires Rename on the OLD path only. The new path
				// arrives as a separate Create event when it lands inside a
				// watched dir. Evict the old entry immediately and schedule
				// a reconciliation pass to catch stragglers.
				if evictErr := svc.EvictPath(rel); evictErr != nil {
					logger.Warn("watcher: rename evict failed", slog.String("path", rel), slog.String("error", evictErr.Error()))
				} else {
					logger.Debug("watcher: rename old evicted", slog.String("path", rel))
					if cb != nil {
						cb("deleted", rel)
					}
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// absorbDir folds any .md files found in a newly created directory into the
// collection.
func absorbDir(svc *noteservice.Service, workspaceRoot, dirPath string, logger *slog.Logger, cb EventCallback) {
	_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".md") {
			return nil
		}
		rel, relErr := filepath.Rel(workspaceRoot, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		kind, absorbErr := svc.AbsorbFile(rel)
		if absorbErr != nil || kind == "" {
			return nil
		}
		logger.Debug("watcher: absorbed from new dir", slog.String("path", rel))
		if cb != nil {
			cb(kind, rel)
		}
		return nil
	})
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
