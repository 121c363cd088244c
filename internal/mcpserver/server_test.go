package mcpserver

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/raido/internal/runservice"
	"github.com/starford/raido/internal/testutil"
)

func testServer(t *testing.T) (*Server, string) {
	t.Helper()

	srcDir, src := testutil.TestDir(t)
	_, vault := testutil.TestDir(t)
	db := testutil.TestDB(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := runservice.New(src, vault, db, log)

	return New(svc, src, db), srcDir
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_exports":
		result, err = srv.listExports(ctx, req)
	case "check_duplicates":
		result, err = srv.checkDuplicates(ctx, req)
	case "preview_conversion":
		result, err = srv.previewConversion(ctx, req)
	case "convert_notes":
		result, err = srv.convertNotes(ctx, req)
	case "list_runs":
		result, err = srv.listRuns(ctx, req)
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

func TestListExports(t *testing.T) {
	srv, srcDir := testServer(t)

	r := callTool(t, srv, "list_exports", map[string]interface{}{})
	if resultText(r) != "no exports found" {
		t.Errorf("empty list = %q", resultText(r))
	}

	testutil.WriteKeepNote(t, srcDir, "a.html", "Jul 27 2024 10:00:00 AM", "A", "body")
	r = callTool(t, srv, "list_exports", map[string]interface{}{})
	if resultText(r) != "a.html" {
		t.Errorf("list = %q", resultText(r))
	}
}

func TestCheckDuplicates(t *testing.T) {
	srv, srcDir := testServer(t)
	testutil.WriteKeepNote(t, srcDir, "a.html", "Jul 27 2024 10:00:00 AM", "A", "body")

	r := callTool(t, srv, "check_duplicates", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, `"kind": "none-duplicate"`) {
		t.Errorf("check result = %q", text)
	}
}

func TestPreviewThenConvert(t *testing.T) {
	srv, srcDir := testServer(t)
	testutil.WriteKeepNote(t, srcDir, "a.html", "Jul 27 2024 10:00:00 AM", "Groceries", "Milk")

	r := callTool(t, srv, "preview_conversion", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, "a.html -> 2024-07-27 - Groceries.md") {
		t.Errorf("preview result = %q", text)
	}

	r = callTool(t, srv, "list_runs", map[string]interface{}{})
	if resultText(r) != "no recorded runs" {
		t.Errorf("preview recorded a run: %q", resultText(r))
	}

	r = callTool(t, srv, "convert_notes", map[string]interface{}{})
	text = resultText(r)
	if !strings.Contains(text, "converted 1 file(s), run 1:") {
		t.Errorf("convert result = %q", text)
	}

	r = callTool(t, srv, "list_runs", map[string]interface{}{})
	if !strings.Contains(resultText(r), `"file_count": 1`) {
		t.Errorf("runs = %q", resultText(r))
	}
}

func TestConvertWithOptions(t *testing.T) {
	srv, srcDir := testServer(t)
	testutil.WriteKeepNote(t, srcDir, "a.html", "Jul 27 2024 10:00:00 AM", "Plain", "body")

	r := callTool(t, srv, "preview_conversion", map[string]interface{}{
		"naming": `{"useDate":false}`,
	})
	if !strings.Contains(resultText(r), "a.html -> Plain.md") {
		t.Errorf("preview result = %q", resultText(r))
	}

	r = callTool(t, srv, "preview_conversion", map[string]interface{}{
		"naming": `not json`,
	})
	if !r.IsError {
		t.Error("expected error for malformed naming options")
	}
}

func TestConvertOnlyNew(t *testing.T) {
	srv, srcDir := testServer(t)
	testutil.WriteKeepNote(t, srcDir, "a.html", "Jul 27 2024 10:00:00 AM", "First", "body")

	_ = callTool(t, srv, "convert_notes", map[string]interface{}{})
	testutil.WriteKeepNote(t, srcDir, "b.html", "Jul 28 2024 10:00:00 AM", "Second", "body")

	r := callTool(t, srv, "convert_notes", map[string]interface{}{"only_new": true})
	text := resultText(r)
	if !strings.Contains(text, "converted 1 file(s)") || !strings.Contains(text, "Second") {
		t.Errorf("only_new convert = %q", text)
	}
}
