package mcpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/norholm/laguz/internal/collection"
	"github.com/norholm/laguz/internal/models"
	"github.com/norholm/laguz/internal/noteservice"
	"github.com/norholm/laguz/internal/testutil"
)

func testServer(t *testing.T) (*Server, *noteservice.Service) {
	t.Helper()

	_, store := testutil.TestWorkspace(t)
	db := testutil.TestDB(t)

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	svc := noteservice.NewService(store, collection.NewStore(), db, logger)
	if err := svc.LoadWorkspace(context.Background()); err != nil {
		t.Fatal(err)
	}

	return New(svc), svc
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go doesn't expose a direct "call tool" test helper, so we test
	// through the tool handler functions directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_notes":
		result, err = srv.listNotes(ctx, req)
	case "read_note":
		result, err = srv.readNote(ctx, req)
	case "create_note":
		result, err = srv.createNote(ctx, req)
	case "rename_note":
		result, err = srv.renameNote(ctx, req)
	case "delete_note":
		result, err = srv.deleteNote(ctx, req)
	case "get_contribution":
		result, err = srv.getContribution(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestCreateAndReadNote(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "create_note", map[string]interface{}{
		"title": "Test",
		"body":  "Hello\n",
	})
	if r.IsError {
		t.Fatalf("create error: %s", resultText(r))
	}
	var note models.NoteItem
	if err := json.Unmarshal([]byte(resultText(r)), &note); err != nil {
		t.Fatal(err)
	}
	if note.Title != "Test" || note.ID == "" {
		t.Errorf("note = %+v", note)
	}

	r = callTool(t, srv, "read_note", map[string]interface{}{"id": note.ID})
	if r.IsError {
		t.Fatalf("read error: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), "Hello") {
		t.Errorf("read result = %q", resultText(r))
	}
}

func TestReadNoteNotFound(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "read_note", map[string]interface{}{"id": "ghost"})
	if !r.IsError {
		t.Error("expected error result for unknown id")
	}
}

func TestListNotesReturnsView(t *testing.T) {
	srv, _ := testServer(t)
	callTool(t, srv, "create_note", map[string]interface{}{"title": "One"})
	callTool(t, srv, "create_note", map[string]interface{}{"title": "Two"})

	r := callTool(t, srv, "list_notes", nil)
	var view []models.NoteItem
	if err := json.Unmarshal([]byte(resultText(r)), &view); err != nil {
		t.Fatal(err)
	}
	if len(view) != 2 {
		t.Errorf("view = %d notes, want 2", len(view))
	}
}

func TestRenameAndDeleteNote(t *testing.T) {
	srv, svc := testServer(t)

	r := callTool(t, srv, "create_note", map[string]interface{}{"title": "Old"})
	var note models.NoteItem
	if err := json.Unmarshal([]byte(resultText(r)), &note); err != nil {
		t.Fatal(err)
	}

	r = callTool(t, srv, "rename_note", map[string]interface{}{"id": note.ID, "title": "New"})
	if r.IsError {
		t.Fatalf("rename error: %s", resultText(r))
	}
	if n, _ := svc.Collection().Snapshot().NoteByID(note.ID); n.Title != "New" {
		t.Errorf("title = %q", n.Title)
	}

	r = callTool(t, srv, "delete_note", map[string]interface{}{"id": note.ID})
	if r.IsError {
		t.Fatalf("delete error: %s", resultText(r))
	}
	if svc.Collection().Snapshot().ContainsNote(note.ID) {
		t.Error("note still present after delete")
	}
}

func TestGetContribution(t *testing.T) {
	srv, _ := testServer(t)
	callTool(t, srv, "create_note", map[string]interface{}{"title": "One"})

	r := callTool(t, srv, "get_contribution", nil)
	var c models.Contribution
	if err := json.Unmarshal([]byte(resultText(r)), &c); err != nil {
		t.Fatal(err)
	}
	if c.Total != 1 {
		t.Errorf("total = %d, want 1", c.Total)
	}
}
