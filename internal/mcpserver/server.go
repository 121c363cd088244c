// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Raido conversion tools for LLM integration via stdio
// transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/raido/internal/history"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/runservice"
	"github.com/starford/raido/internal/storage"
)

// Server wraps the MCP server with Raido tools.
type Server struct {
	mcp   *server.MCPServer
	svc   *runservice.Service
	src   storage.Source
	store history.Store
}

// New creates a new MCP server with all Raido tools registered.
func New(svc *runservice.Service, src storage.Source, store history.Store) *Server {
	s := &Server{svc: svc, src: src, store: store}

	s.mcp = server.NewMCPServer(
		"Raido",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_exports",
		mcp.WithDescription("List the Keep HTML export files available under the source directory."),
	), s.listExports)

	s.mcp.AddTool(mcp.NewTool("check_duplicates",
		mcp.WithDescription("Classify exports against the recorded run history by content fingerprint. "+
			"Reports how many are new, how many were converted before, and whether the whole "+
			"selection matches a prior run exactly."),
		mcp.WithString("paths", mcp.Description("Optional comma-separated export paths (empty for all)")),
	), s.checkDuplicates)

	s.mcp.AddTool(mcp.NewTool("preview_conversion",
		mcp.WithDescription("Convert exports in memory and return the resulting filenames without "+
			"writing anything or recording a run."),
		mcp.WithString("paths", mcp.Description("Optional comma-separated export paths (empty for all)")),
		mcp.WithString("naming", mcp.Description("Optional JSON object of naming options; omitted fields keep defaults")),
		mcp.WithString("formatting", mcp.Description("Optional JSON object of formatting options; omitted fields keep defaults")),
	), s.previewConversion)

	s.mcp.AddTool(mcp.NewTool("convert_notes",
		mcp.WithDescription("Convert exports to Markdown, write them into the vault, and record the run."),
		mcp.WithString("paths", mcp.Description("Optional comma-separated export paths (empty for all)")),
		mcp.WithString("naming", mcp.Description("Optional JSON object of naming options; omitted fields keep defaults")),
		mcp.WithString("formatting", mcp.Description("Optional JSON object of formatting options; omitted fields keep defaults")),
		mcp.WithBoolean("only_new", mcp.Description("Skip notes already converted in a recorded run")),
	), s.convertNotes)

	s.mcp.AddTool(mcp.NewTool("list_runs",
		mcp.WithDescription("List recorded conversion runs, newest first."),
	), s.listRuns)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listExports(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	paths, err := s.src.List("")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(paths) == 0 {
		return mcp.NewToolResultText("no exports found"), nil
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) checkDuplicates(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	batch, _, err := s.svc.LoadBatch(ctx, splitPaths(req))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sum, err := s.svc.CheckDuplicates(batch)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(sum, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) previewConversion(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.run(ctx, req, true, false)
}

func (s *Server) convertNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.run(ctx, req, false, req.GetBool("only_new", false))
}

func (s *Server) run(ctx context.Context, req mcp.CallToolRequest, preview, onlyNew bool) (*mcp.CallToolResult, error) {
	naming, formatting, err := parseOptions(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := s.svc.Convert(ctx, runservice.Request{
		Paths:      splitPaths(req),
		Naming:     naming,
		Formatting: formatting,
		Preview:    preview,
		OnlyNew:    onlyNew,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	if preview {
		fmt.Fprintf(&b, "preview of %d file(s):\n", len(res.Outcome.Files))
	} else {
		fmt.Fprintf(&b, "converted %d file(s), run %d:\n", len(res.Outcome.Files), res.RunID)
	}
	for _, f := range res.Outcome.Files {
		fmt.Fprintf(&b, "  %s -> %s\n", f.OriginalPath, f.NewPath)
	}
	for _, skip := range res.Outcome.Skipped {
		fmt.Fprintf(&b, "  skipped %s: %v\n", skip.Path, skip.Err)
	}
	return mcp.NewToolResultText(strings.TrimRight(b.String(), "\n")), nil
}

func (s *Server) listRuns(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runs, err := s.store.ListRuns()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(runs) == 0 {
		return mcp.NewToolResultText("no recorded runs"), nil
	}
	out, _ := json.MarshalIndent(runs, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func splitPaths(req mcp.CallToolRequest) []string {
	raw, err := req.RequireString("paths")
	if err != nil || raw == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseOptions(req mcp.CallToolRequest) (models.NamingOptions, models.FormattingOptions, error) {
	naming := models.DefaultNamingOptions()
	if raw, err := req.RequireString("naming"); err == nil && raw != "" {
		if err := json.Unmarshal([]byte(raw), &naming); err != nil {
			return naming, models.FormattingOptions{}, fmt.Errorf("invalid naming options: %w", err)
		}
	}
	formatting := models.DefaultFormattingOptions()
	if raw, err := req.RequireString("formatting"); err == nil && raw != "" {
		if err := json.Unmarshal([]byte(raw), &formatting); err != nil {
			return naming, formatting, fmt.Errorf("invalid formatting options: %w", err)
		}
	}
	return naming, formatting, nil
}
