// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes a mirrored book to LLM clients via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/arving/kbmirror/internal/index"
	"github.com/arving/kbmirror/internal/progress"
	"github.com/arving/kbmirror/internal/storage"
)

// Server wraps the MCP server with the mirror tools. The surface is
// read-only: the mirror is owned by the sync run, not by MCP clients.
type Server struct {
	mcp     *server.MCPServer
	files   storage.Provider
	records *progress.Store
	db      *index.DB
}

// New creates a new MCP server with all mirror tools registered.
func New(files storage.Provider, records *progress.Store, db *index.DB) *Server {
	s := &Server{files: files, records: records, db: db}

	s.mcp = server.NewMCPServer(
		"kbmirror",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_articles",
		mcp.WithDescription("Full-text search through mirrored article titles and content."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchArticles)

	s.mcp.AddTool(mcp.NewTool("read_article",
		mcp.WithDescription("Read the full Markdown content of a mirrored article."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the article (e.g. Chapter/Article.md)")),
	), s.readArticle)

	s.mcp.AddTool(mcp.NewTool("table_of_contents",
		mcp.WithDescription("List the mirrored book's table of contents in reading order."),
	), s.tableOfContents)

	s.mcp.AddTool(mcp.NewTool("list_articles",
		mcp.WithDescription("List mirrored article files, optionally under a folder."),
		mcp.WithString("folder", mcp.Description("Optional folder to list (empty for all)")),
	), s.listArticles)

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

func (s *Server) searchArticles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.db.Search(query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readArticle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.files.Read(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) tableOfContents(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	recs, err := s.records.Load()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(recs) == 0 {
		return mcp.NewToolResultText("the mirror is empty"), nil
	}
	var b strings.Builder
	for _, rec := range recs {
		indent := strings.Repeat("  ", rec.Entry.Depth()-1)
		fmt.Fprintf(&b, "%s- %s\n", indent, rec.Entry.Path)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) listArticles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder := ""
	if f, err := req.RequireString("folder"); err == nil {
		folder = f
	}

	metas, err := s.files.List(folder)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(metas) == 0 {
		return mcp.NewToolResultText("no articles found"), nil
	}

	paths := make([]string, 0, len(metas))
	for _, m := range metas {
		paths = append(paths, m.Path)
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}
