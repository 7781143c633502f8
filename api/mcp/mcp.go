// Package mcp exposes the user profile to assistants over the Model Context
// Protocol. Every tool is read-only.
package mcp

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/memoir/pkg/memory"
	"github.com/papercomputeco/memoir/pkg/utils"
)

type Config struct {
	// Store is the record store the tools read from
	Store memory.Store

	// RecentEpisodes caps the episodes returned by get_user_context.
	// Zero means memory.DefaultRecentEpisodes.
	RecentEpisodes int

	// Noop for empty MCP server
	Noop bool

	Logger *slog.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the profile tools.
func NewServer(c Config) (*Server, error) {
	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "memoir",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	if !c.Noop {
		if c.Store == nil {
			return nil, errors.New("record store is required")
		}
		if c.Logger == nil {
			return nil, errors.New("logger is required")
		}
		s.registerTools(mcpServer)
	}

	s.mcpServer = mcpServer

	// Create a streamable HTTP net/http handler for stateless operations
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// MCPServer returns the underlying server, for in-process transports.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcpServer
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) registerTools(srv *mcp.Server) {
	mcp.AddTool(srv, &mcp.Tool{
		Name:        contextToolName,
		Description: contextDescription,
	}, s.handleContext)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        attributesToolName,
		Description: attributesDescription,
	}, s.handleAttributes)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        memoriesToolName,
		Description: memoriesDescription,
	}, s.handleMemories)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        goalsToolName,
		Description: goalsDescription,
	}, s.handleGoals)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        requestsToolName,
		Description: requestsDescription,
	}, s.handleRequests)
}
