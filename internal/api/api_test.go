package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/norholm/laguz/internal/collection"
	"github.com/norholm/laguz/internal/models"
	"github.com/norholm/laguz/internal/noteservice"
	"github.com/norholm/laguz/internal/testutil"
)

// testEnv sets up a temp workspace, activity DB, service, and router.
// An empty authToken means auth is disabled.
func testEnv(t *testing.T, authToken string, opts ...collection.StoreOption) (*noteservice.Service, http.Handler) {
	t.Helper()

	_, store := testutil.TestWorkspace(t)
	db := testutil.TestDB(t)

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	svc := noteservice.NewService(store, collection.NewStore(opts...), db, logger)
	if err := svc.LoadWorkspace(context.Background()); err != nil {
		t.Fatal(err)
	}

	router := NewRouter(svc, authToken != "", authToken, nil)
	return svc, router
}

func do(t *testing.T, router http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createNote(t *testing.T, router http.Handler, title string) models.NoteItem {
	t.Helper()
	w := do(t, router, http.MethodPost, "/notes", CreateNoteRequest{Title: title, Body: "Body of " + title + "\n"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp NoteResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	return resp.Note
}

func TestCreateAndGetNote(t *testing.T) {
	_, router := testEnv(t, "")

	note := createNote(t, router, "Hello")

	w := do(t, router, http.MethodGet, "/notes/"+note.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var resp NoteResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Note.Title != "Hello" || resp.Body != "Body of Hello\n" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestGetNoteNotFound(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodGet, "/notes/ghost", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestCreateNoteRequiresTitle(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodPost, "/notes", CreateNoteRequest{Body: "no title"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestListNotesReturnsViewOrder(t *testing.T) {
	_, router := testEnv(t, "", collection.WithDefaultSort(collection.SortByTitle, collection.Ascending))

	createNote(t, router, "Beta")
	createNote(t, router, "Alpha")

	w := do(t, router, http.MethodGet, "/notes", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp NoteListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 2 || len(resp.Notes) != 2 {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Notes[0].Title != "Alpha" || resp.Notes[1].Title != "Beta" {
		t.Errorf("view order = %s, %s", resp.Notes[0].Title, resp.Notes[1].Title)
	}
}

func TestRenameNote(t *testing.T) {
	_, router := testEnv(t, "")
	note := createNote(t, router, "Old")

	w := do(t, router, http.MethodPatch, "/notes/"+note.ID+"/title", RenameNoteRequest{Title: "New"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp NoteResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Note.Title != "New" {
		t.Errorf("title = %q", resp.Note.Title)
	}
}

func TestRenameUnknownIDStrictIs404(t *testing.T) {
	_, router := testEnv(t, "", collection.WithStrictNotFound())
	w := do(t, router, http.MethodPatch, "/notes/ghost/title", RenameNoteRequest{Title: "New"})
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestRenameUnknownIDLenientIs404(t *testing.T) {
	// Even when the engine treats unknown ids as a no-op, the API reports
	// the miss instead of returning an empty note.
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodPatch, "/notes/ghost/title", RenameNoteRequest{Title: "New"})
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestSetStacksUnknownIDLenientIs404(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodPatch, "/notes/ghost/stacks", SetStacksRequest{Stacks: []string{"inbox"}})
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestSetStacks(t *testing.T) {
	_, router := testEnv(t, "")
	note := createNote(t, router, "Stacked")

	w := do(t, router, http.MethodPatch, "/notes/"+note.ID+"/stacks", SetStacksRequest{Stacks: []string{"inbox", "work"}})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp NoteResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Note.StackIDs) != 2 {
		t.Errorf("stacks = %v", resp.Note.StackIDs)
	}
}

func TestDeleteNote(t *testing.T) {
	svc, router := testEnv(t, "")
	note := createNote(t, router, "Doomed")

	w := do(t, router, http.MethodDelete, "/notes/"+note.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d", w.Code)
	}
	if svc.Collection().Snapshot().ContainsNote(note.ID) {
		t.Error("note still in collection")
	}
}

func TestSortEndpoint(t *testing.T) {
	_, router := testEnv(t, "")
	createNote(t, router, "B")
	createNote(t, router, "A")

	w := do(t, router, http.MethodPut, "/sort", SortRequest{By: "title", Direction: "asc"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var state collection.State
	if err := json.Unmarshal(w.Body.Bytes(), &state); err != nil {
		t.Fatal(err)
	}
	if state.SortBy != collection.SortByTitle || state.SortDirection != collection.Ascending {
		t.Errorf("sort = %s/%s", state.SortBy, state.SortDirection)
	}
	if len(state.View) != 2 || state.View[0].Title != "A" {
		t.Errorf("view = %+v", state.View)
	}
}

func TestSortEndpointRejectsUnknownKey(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodPut, "/sort", SortRequest{By: "color"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestViewModeEndpoint(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodPut, "/view-mode", ViewModeRequest{Mode: "calendar"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var state collection.State
	if err := json.Unmarshal(w.Body.Bytes(), &state); err != nil {
		t.Fatal(err)
	}
	if state.ViewMode != collection.ViewModeCalendar {
		t.Errorf("mode = %s", state.ViewMode)
	}
}

func TestFilterEndpoints(t *testing.T) {
	_, router := testEnv(t, "")
	createNote(t, router, "Today")

	w := do(t, router, http.MethodPut, "/filter/month", MonthFilterRequest{Year: 2000, Month: 1})
	if w.Code != http.StatusOK {
		t.Fatalf("month status = %d, body = %s", w.Code, w.Body.String())
	}
	var state collection.State
	if err := json.Unmarshal(w.Body.Bytes(), &state); err != nil {
		t.Fatal(err)
	}
	if state.FilterBy != collection.FilterByMonth || len(state.View) != 0 {
		t.Errorf("state = filter %s view %d", state.FilterBy, len(state.View))
	}

	w = do(t, router, http.MethodPut, "/filter/date", DateFilterRequest{Year: 2000, Month: 13, Date: 1})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad month status = %d, want 400", w.Code)
	}
}

func TestSelectionEndpoints(t *testing.T) {
	_, router := testEnv(t, "")
	note := createNote(t, router, "Chosen")

	w := do(t, router, http.MethodPut, "/selection", SelectRequest{ID: note.ID})
	if w.Code != http.StatusOK {
		t.Fatalf("select status = %d", w.Code)
	}
	var state collection.State
	if err := json.Unmarshal(w.Body.Bytes(), &state); err != nil {
		t.Fatal(err)
	}
	if state.Selected == nil || state.Selected.ID != note.ID {
		t.Errorf("selection = %+v", state.Selected)
	}

	w = do(t, router, http.MethodPut, "/selection", SelectRequest{ID: "ghost"})
	if w.Code != http.StatusNotFound {
		t.Errorf("select unknown status = %d, want 404", w.Code)
	}

	w = do(t, router, http.MethodDelete, "/selection", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("deselect status = %d", w.Code)
	}
	if err := json.Unmarshal(w.Body.Bytes(), &state); err != nil {
		t.Fatal(err)
	}
	if state.Selected != nil {
		t.Error("selection not cleared")
	}
}

func TestStateEndpoint(t *testing.T) {
	_, router := testEnv(t, "")
	createNote(t, router, "One")

	w := do(t, router, http.MethodGet, "/state", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var state collection.State
	if err := json.Unmarshal(w.Body.Bytes(), &state); err != nil {
		t.Fatal(err)
	}
	if !state.Loaded || len(state.Notes) != 1 {
		t.Errorf("state = loaded %v notes %d", state.Loaded, len(state.Notes))
	}
}

func TestContributionEndpoint(t *testing.T) {
	_, router := testEnv(t, "")
	createNote(t, router, "One")
	createNote(t, router, "Two")

	w := do(t, router, http.MethodGet, "/contribution", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var c models.Contribution
	if err := json.Unmarshal(w.Body.Bytes(), &c); err != nil {
		t.Fatal(err)
	}
	if c.Total != 2 {
		t.Errorf("total = %d, want 2", c.Total)
	}
}

func TestAuthMiddleware(t *testing.T) {
	_, router := testEnv(t, "secret")

	req := httptest.NewRequest(http.MethodGet, "/notes", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token status = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/notes", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token status = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/notes", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid token status = %d, want 200", w.Code)
	}
}
