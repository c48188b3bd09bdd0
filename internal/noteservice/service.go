// Package noteservice coordinates the workspace files, the collection
// engine, and the activity record. All mutations flow through here so the
// on-disk workspace and the in-memory snapshot stay in step.
package noteservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/norholm/laguz/internal/activity"
	"github.com/norholm/laguz/internal/apperr"
	"github.com/norholm/laguz/internal/checksum"
	"github.com/norholm/laguz/internal/collection"
	"github.com/norholm/laguz/internal/models"
	"github.com/norholm/laguz/internal/parser"
	"github.com/norholm/laguz/internal/storage"
)

// Service coordinates storage, collection, and activity operations.
type Service struct {
	store    storage.Provider
	notes    *collection.Store
	activity activity.Recorder
	logger   *slog.Logger

	mu   sync.Mutex
	sums map[string]string // content digest per file path, last seen by this process
}

// NewService creates a new note service.
func NewService(store storage.Provider, notes *collection.Store, rec activity.Recorder, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		notes:    notes,
		activity: rec,
		logger:   logger,
		sums:     make(map[string]string),
	}
}

// Collection exposes the engine store for read-only consumers
// (handlers that issue view commands directly).
func (s *Service) Collection() *collection.Store {
	return s.notes
}

// LoadWorkspace scans the workspace and replaces the collection with the
// notes found on disk, then refreshes the contribution aggregate.
func (s *Service) LoadWorkspace(_ context.Context) error {
	s.notes.StartLoad()

	files, err := s.store.List("")
	if err != nil {
		return fmt.Errorf("noteservice: load workspace: %w", err)
	}

	s.resetSums()
	items := make([]models.NoteItem, 0, len(files))
	for _, f := range files {
		item, err := s.noteFromFile(f)
		if err != nil {
			s.logger.Warn("skipping unreadable note file", "path", f.Path, "error", err)
			continue
		}
		s.recordSum(f.Path, f.Checksum)
		items = append(items, item)
	}

	if _, err := s.notes.CompleteLoad(items); err != nil {
		return fmt.Errorf("noteservice: complete load: %w", err)
	}
	s.logger.Info("workspace loaded", "notes", len(items))
	return s.refreshContribution()
}

// CreateNote composes a new note file, writes it, and registers it with the
// collection and the activity record.
func (s *Service) CreateNote(_ context.Context, title, body string, stacks []string, label string) (models.NoteItem, error) {
	id := uuid.NewString()
	created := time.Now()

	content, err := parser.Compose(id, title, created.UnixMilli(), stacks, label, body)
	if err != nil {
		return models.NoteItem{}, err
	}

	filePath := id + ".md"
	if err := s.store.Write(filePath, content); err != nil {
		return models.NoteItem{}, err
	}
	s.recordSum(filePath, checksum.Sum(content))

	item := models.NoteItem{
		ID:              id,
		Title:           title,
		CreatedAt:       created.UnixMilli(),
		ContentFilePath: filePath,
		ContentFileName: path.Base(filePath),
		StackIDs:        stacks,
		Label:           label,
	}
	if _, err := s.notes.Add(item); err != nil {
		return models.NoteItem{}, err
	}

	if err := s.activity.Record(created); err != nil {
		s.logger.Error("recording activity failed", "error", err)
	} else if err := s.refreshContribution(); err != nil {
		s.logger.Error("refreshing contribution failed", "error", err)
	}
	return item, nil
}

// GetNote returns a note and its Markdown body.
func (s *Service) GetNote(_ context.Context, id string) (models.NoteItem, string, error) {
	item, ok := s.notes.Snapshot().NoteByID(id)
	if !ok {
		return models.NoteItem{}, "", apperr.ErrNotFound
	}
	data, err := s.store.Read(item.ContentFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.NoteItem{}, "", apperr.ErrNotFound
		}
		return models.NoteItem{}, "", err
	}
	res, err := parser.Parse(data)
	if err != nil {
		return models.NoteItem{}, "", err
	}
	return item, res.Body, nil
}

// RenameNote rewrites the note's frontmatter with the new title and patches
// the collection. The file keeps its id-derived name, so only the metadata
// changes on disk.
func (s *Service) RenameNote(_ context.Context, id, title string) (models.NoteItem, error) {
	item, ok := s.notes.Snapshot().NoteByID(id)
	if !ok {
		// Let the store decide between silent no-op and strict error.
		state, err := s.notes.Rename(id, title, "", "")
		if err != nil {
			return models.NoteItem{}, err
		}
		n, _ := state.NoteByID(id)
		return n, nil
	}

	if err := s.rewriteFile(item, func(r *parser.Result) ([]byte, error) {
		return parser.Compose(item.ID, title, item.CreatedAt, item.StackIDs, item.Label, r.Body)
	}); err != nil {
		return models.NoteItem{}, err
	}

	state, err := s.notes.Rename(id, title, item.ContentFilePath, item.ContentFileName)
	if err != nil {
		return models.NoteItem{}, err
	}
	n, _ := state.NoteByID(id)
	return n, nil
}

// SetStacks rewrites the note's stack ids on disk and in the collection.
func (s *Service) SetStacks(_ context.Context, id string, stacks []string) (models.NoteItem, error) {
	item, ok := s.notes.Snapshot().NoteByID(id)
	if !ok {
		state, err := s.notes.SetStacks(id, stacks)
		if err != nil {
			return models.NoteItem{}, err
		}
		n, _ := state.NoteByID(id)
		return n, nil
	}

	if err := s.rewriteFile(item, func(r *parser.Result) ([]byte, error) {
		return parser.Compose(item.ID, item.Title, item.CreatedAt, stacks, item.Label, r.Body)
	}); err != nil {
		return models.NoteItem{}, err
	}

	state, err := s.notes.SetStacks(id, stacks)
	if err != nil {
		return models.NoteItem{}, err
	}
	n, _ := state.NoteByID(id)
	return n, nil
}

// DeleteNote removes the note's file and evicts it from the collection.
func (s *Service) DeleteNote(_ context.Context, id string) error {
	item, ok := s.notes.Snapshot().NoteByID(id)
	if ok {
		if err := s.store.Delete(item.ContentFilePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		s.forgetSum(item.ContentFilePath)
	}
	_, err := s.notes.Delete(id)
	return err
}

// AbsorbFile folds an externally changed file into the collection. It
// returns "created", "updated", or "" when nothing relevant changed. The
// file's content digest is compared against the last one seen, so a
// body-only edit that touches no collection field still counts as an
// update.
func (s *Service) AbsorbFile(filePath string) (string, error) {
	if strings.HasPrefix(path.Base(filePath), ".laguz-tmp-") {
		return "", nil
	}
	data, err := s.store.Read(filePath)
	if err != nil {
		return "", err
	}
	sum := checksum.Sum(data)
	incoming, err := noteFromBytes(filePath, data, time.Now())
	if err != nil {
		return "", err
	}

	existing, ok := s.notes.Snapshot().NoteByID(incoming.ID)
	if !ok {
		if _, err := s.notes.Add(incoming); err != nil {
			return "", err
		}
		s.recordSum(filePath, sum)
		return "created", nil
	}

	changed := false
	if existing.Title != incoming.Title ||
		existing.ContentFilePath != incoming.ContentFilePath ||
		existing.ContentFileName != incoming.ContentFileName {
		if _, err := s.notes.Rename(incoming.ID, incoming.Title, incoming.ContentFilePath, incoming.ContentFileName); err != nil {
			return "", err
		}
		changed = true
	}
	if !equalStrings(existing.StackIDs, incoming.StackIDs) {
		if _, err := s.notes.SetStacks(incoming.ID, incoming.StackIDs); err != nil {
			return "", err
		}
		changed = true
	}
	if !changed && sum == s.sumFor(filePath) {
		return "", nil
	}
	s.recordSum(filePath, sum)
	return "updated", nil
}

// EvictPath removes the note backed by filePath from the collection after
// its file disappeared from the workspace.
func (s *Service) EvictPath(filePath string) error {
	s.forgetSum(filePath)
	snap := s.notes.Snapshot()
	for _, n := range snap.Notes {
		if n.ContentFilePath == filePath {
			_, err := s.notes.Delete(n.ID)
			return err
		}
	}
	return nil
}

// Reconcile diffs the workspace against the collection: absorbs every file
// whose listed digest differs from the last one seen and evicts notes whose
// file is gone.
func (s *Service) Reconcile(_ context.Context) error {
	files, err := s.store.List("")
	if err != nil {
		return fmt.Errorf("noteservice: reconcile: %w", err)
	}

	onDisk := make(map[string]struct{}, len(files))
	for _, f := range files {
		onDisk[f.Path] = struct{}{}
		if f.Checksum == s.sumFor(f.Path) {
			continue
		}
		kind, err := s.AbsorbFile(f.Path)
		if err != nil {
			s.logger.Warn("reconcile: absorbing file failed", "path", f.Path, "error", err)
			continue
		}
		if kind != "" {
			s.logger.Info("reconcile: absorbed file", "path", f.Path, "kind", kind)
		}
	}

	for _, n := range s.notes.Snapshot().Notes {
		if _, ok := onDisk[n.ContentFilePath]; !ok {
			if _, err := s.notes.Delete(n.ID); err != nil {
				return err
			}
			s.forgetSum(n.ContentFilePath)
			s.logger.Info("reconcile: evicted note", "id", n.ID, "path", n.ContentFilePath)
		}
	}
	return nil
}

// Contribution returns the current activity aggregate.
func (s *Service) Contribution(_ context.Context) (models.Contribution, error) {
	return s.activity.Contribution()
}

// refreshContribution reloads the aggregate into the snapshot.
func (s *Service) refreshContribution() error {
	c, err := s.activity.Contribution()
	if err != nil {
		return fmt.Errorf("noteservice: contribution: %w", err)
	}
	s.notes.SetContribution(c)
	return nil
}

// rewriteFile reads, re-composes, and atomically rewrites a note file.
func (s *Service) rewriteFile(item models.NoteItem, compose func(*parser.Result) ([]byte, error)) error {
	data, err := s.store.Read(item.ContentFilePath)
	if err != nil {
		return err
	}
	res, err := parser.Parse(data)
	if err != nil {
		return err
	}
	content, err := compose(res)
	if err != nil {
		return err
	}
	if err := s.store.Write(item.ContentFilePath, content); err != nil {
		return err
	}
	s.recordSum(item.ContentFilePath, checksum.Sum(content))
	return nil
}

func (s *Service) sumFor(filePath string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sums[filePath]
}

func (s *Service) recordSum(filePath, sum string) {
	s.mu.Lock()
	s.sums[filePath] = sum
	s.mu.Unlock()
}

func (s *Service) forgetSum(filePath string) {
	s.mu.Lock()
	delete(s.sums, filePath)
	s.mu.Unlock()
}

func (s *Service) resetSums() {
	s.mu.Lock()
	s.sums = make(map[string]string)
	s.mu.Unlock()
}

// noteFromFile builds a collection item from one workspace file.
func (s *Service) noteFromFile(f storage.FileInfo) (models.NoteItem, error) {
	data, err := s.store.Read(f.Path)
	if err != nil {
		return models.NoteItem{}, err
	}
	return noteFromBytes(f.Path, data, f.ModTime)
}

// noteFromBytes parses raw note bytes, falling back to path-derived identity
// for files written outside the app: the path stands in for a missing id,
// the filename stem for a missing title, and modTime for a missing created
// timestamp.
func noteFromBytes(filePath string, data []byte, modTime time.Time) (models.NoteItem, error) {
	res, err := parser.Parse(data)
	if err != nil {
		return models.NoteItem{}, err
	}

	id := res.ID
	if id == "" {
		id = filePath
	}
	title := res.Title
	if title == "" {
		title = strings.TrimSuffix(path.Base(filePath), ".md")
	}
	created := res.Created
	if created == 0 {
		created = modTime.UnixMilli()
	}

	return models.NoteItem{
		ID:              id,
		Title:           title,
		CreatedAt:       created,
		ContentFilePath: filePath,
		ContentFileName: path.Base(filePath),
		StackIDs:        res.Stacks,
		Label:           res.Label,
	}, nil
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
