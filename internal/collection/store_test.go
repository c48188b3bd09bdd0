package collection

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/norholm/laguz/internal/apperr"
	"github.com/norholm/laguz/internal/models"
)

func TestStoreAppliesAgainstLatestSnapshot(t *testing.T) {
	st := NewStore()
	if _, err := st.CompleteLoad(twoNotes()); err != nil {
		t.Fatalf("CompleteLoad: %v", err)
	}
	if _, err := st.Add(models.NoteItem{ID: "c", Title: "Celta", CreatedAt: t0}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	s := st.Snapshot()
	if len(s.Notes) != 3 {
		t.Errorf("notes = %d, want 3", len(s.Notes))
	}
}

func TestStoreSerializesConcurrentCommands(t *testing.T) {
	st := NewStore()
	if _, err := st.CompleteLoad(nil); err != nil {
		t.Fatalf("CompleteLoad: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = st.Add(models.NoteItem{ID: string(rune('a'+i%26)) + string(rune('0'+i/26)), CreatedAt: int64(i)})
		}(i)
	}
	wg.Wait()

	s := st.Snapshot()
	if len(s.Notes) != 50 {
		t.Errorf("notes = %d, want 50 (lost update)", len(s.Notes))
	}
	seen := map[string]bool{}
	for _, n := range s.Notes {
		if seen[n.ID] {
			t.Fatalf("duplicate id %q", n.ID)
		}
		seen[n.ID] = true
	}
}

func TestStoreStrictNotFound(t *testing.T) {
	st := NewStore(WithStrictNotFound())
	if _, err := st.CompleteLoad(twoNotes()); err != nil {
		t.Fatalf("CompleteLoad: %v", err)
	}

	if _, err := st.Rename("ghost", "x", "x.md", "x.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("rename: err = %v, want ErrNotFound", err)
	}
	if _, err := st.Delete("ghost"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("delete: err = %v, want ErrNotFound", err)
	}
	if _, err := st.SetStacks("ghost", nil); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("stacks: err = %v, want ErrNotFound", err)
	}
	// Known ids still work.
	if _, err := st.Rename("a", "Alpha2", "a.md", "a.md"); err != nil {
		t.Errorf("rename known id: %v", err)
	}
}

func TestStoreLenientNotFound(t *testing.T) {
	st := NewStore()
	if _, err := st.CompleteLoad(twoNotes()); err != nil {
		t.Fatalf("CompleteLoad: %v", err)
	}
	if _, err := st.Delete("ghost"); err != nil {
		t.Errorf("lenient delete should be a silent no-op, got %v", err)
	}
	if len(st.Snapshot().Notes) != 2 {
		t.Error("no-op delete changed the collection")
	}
}

func TestStoreNotifiesListeners(t *testing.T) {
	st := NewStore()

	var mu sync.Mutex
	var changes []Change
	st.Subscribe(func(c Change, _ State) {
		mu.Lock()
		changes = append(changes, c)
		mu.Unlock()
	})

	st.StartLoad()
	if _, err := st.CompleteLoad(twoNotes()); err != nil {
		t.Fatal(err)
	}
	if _, err := st.Delete("a"); err != nil {
		t.Fatal(err)
	}
	st.Deselect()

	want := []Change{ChangeLoadStarted, ChangeLoadCompleted, ChangeNoteDeleted, ChangeSelectionChanged}
	mu.Lock()
	defer mu.Unlock()
	if len(changes) != len(want) {
		t.Fatalf("changes = %v, want %v", changes, want)
	}
	for i := range want {
		if changes[i] != want[i] {
			t.Errorf("changes[%d] = %s, want %s", i, changes[i], want[i])
		}
	}
}

func TestStoreListenerSeesNewSnapshot(t *testing.T) {
	st := NewStore()
	var got State
	st.Subscribe(func(_ Change, s State) { got = s })

	if _, err := st.CompleteLoad(twoNotes()); err != nil {
		t.Fatal(err)
	}
	if len(got.Notes) != 2 || !got.Loaded {
		t.Errorf("listener snapshot = %+v", got)
	}
}

func TestStoreFailedCommandLeavesSnapshot(t *testing.T) {
	st := NewStore()
	if _, err := st.CompleteLoad(twoNotes()); err != nil {
		t.Fatal(err)
	}
	before := st.Snapshot()
	if _, err := st.ChangeSortBy("color"); err == nil {
		t.Fatal("expected error for unknown sort key")
	}
	after := st.Snapshot()
	if !equalIDs(after.View, ids(before.View)...) {
		t.Error("failed command changed the snapshot")
	}
}

func TestStoreDefaultSortOption(t *testing.T) {
	st := NewStore(WithDefaultSort(SortByTitle, Ascending))
	if _, err := st.CompleteLoad(twoNotes()); err != nil {
		t.Fatal(err)
	}
	s := st.Snapshot()
	if s.SortBy != SortByTitle || s.SortDirection != Ascending {
		t.Errorf("sort = %s/%s", s.SortBy, s.SortDirection)
	}
	if !equalIDs(s.View, "a", "b") {
		t.Errorf("view = %v", ids(s.View))
	}
}

func TestStoreFilterCommands(t *testing.T) {
	st := NewStore()
	feb := models.NoteItem{ID: "feb", CreatedAt: time.Date(2024, time.February, 10, 8, 0, 0, 0, time.Local).UnixMilli()}
	mar := models.NoteItem{ID: "mar", CreatedAt: time.Date(2024, time.March, 10, 8, 0, 0, 0, time.Local).UnixMilli()}
	if _, err := st.CompleteLoad([]models.NoteItem{feb, mar}); err != nil {
		t.Fatal(err)
	}

	s, err := st.SelectMonthFilter(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.Local))
	if err != nil {
		t.Fatalf("SelectMonthFilter: %v", err)
	}
	if !equalIDs(s.View, "mar") {
		t.Errorf("view = %v", ids(s.View))
	}

	s, err = st.SelectDayFilter(time.Date(2024, time.February, 10, 0, 0, 0, 0, time.Local))
	if err != nil {
		t.Fatalf("SelectDayFilter: %v", err)
	}
	if !equalIDs(s.View, "feb") {
		t.Errorf("view = %v", ids(s.View))
	}
}
