package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/norholm/laguz/internal/collection"
	"github.com/norholm/laguz/internal/noteservice"
	"github.com/norholm/laguz/internal/testutil"
)

// watcherTestEnv sets up a workspace dir and a service for watcher tests.
func watcherTestEnv(t *testing.T) (string, *noteservice.Service) {
	t.Helper()
	dir, fs := testutil.TestWorkspace(t)
	db := testutil.TestDB(t)

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	svc := noteservice.NewService(fs, collection.NewStore(), db, logger)
	if err := svc.LoadWorkspace(context.Background()); err != nil {
		t.Fatal(err)
	}
	return dir, svc
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestWatcher_NewFileAbsorbed(t *testing.T) {
	dir, svc := watcherTestEnv(t)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []string

	go Watch(ctx, svc, dir, logger, func(kind, path string) {
		mu.Lock()
		events = append(events, kind+":"+path)
		mu.Unlock()
	})

	time.Sleep(100 * time.Millisecond)

	content := "---\nid: new\ntitle: New\ncreated: 1700000000000\n---\n\nBody.\n"
	_ = os.WriteFile(filepath.Join(dir, "new.md"), []byte(content), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return svc.Collection().Snapshot().ContainsNote("new")
	}, "new file not absorbed by watcher")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e == "created:new.md" {
				return true
			}
		}
		return false
	}, "expected created:new.md callback")
}

func TestWatcher_NewDirWatched(t *testing.T) {
	dir, svc := watcherTestEnv(t)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, svc, dir, logger, nil)

	time.Sleep(100 * time.Millisecond)

	subDir := filepath.Join(dir, "subdir")
	_ = os.MkdirAll(subDir, 0o755)

	time.Sleep(200 * time.Millisecond)

	content := "---\nid: deep\ntitle: Deep\ncreated: 1700000000000\n---\n"
	_ = os.WriteFile(filepath.Join(subDir, "deep.md"), []byte(content), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return svc.Collection().Snapshot().ContainsNote("deep")
	}, "file in new subdir not absorbed by watcher")
}

func TestWatcher_DeleteEvictsNote(t *testing.T) {
	dir, svc := watcherTestEnv(t)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	content := "---\nid: del\ntitle: Delete Me\ncreated: 1700000000000\n---\n"
	_ = os.WriteFile(filepath.Join(dir, "del.md"), []byte(content), 0o644)
	if _, err := svc.AbsorbFile("del.md"); err != nil {
		t.Fatal(err)
	}
	if !svc.Collection().Snapshot().ContainsNote("del") {
		t.Fatal("setup: note not absorbed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Watch(ctx, svc, dir, logger, nil)

	time.Sleep(100 * time.Millisecond)

	_ = os.Remove(filepath.Join(dir, "del.md"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return !svc.Collection().Snapshot().ContainsNote("del")
	}, "deleted file not evicted by watcher")
}

func TestWatcher_TempFilesIgnored(t *testing.T) {
	dir, svc := watcherTestEnv(t)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Watch(ctx, svc, dir, logger, nil)

	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(dir, ".laguz-tmp-123.md"), []byte("scratch"), 0o644)

	time.Sleep(300 * time.Millisecond)
	if n := len(svc.Collection().Snapshot().Notes); n != 0 {
		t.Errorf("temp file absorbed into collection: %d notes", n)
	}
}
