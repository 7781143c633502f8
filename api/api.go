package api

import (
	"log/slog"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/memoir/pkg/logger"
	"github.com/papercomputeco/memoir/pkg/memory"
)

// Server is the API server for the memoir profile.
type Server struct {
	config Config
	store  memory.Store
	logger *slog.Logger
	app    *fiber.App
}

// ErrorResponse is the body of every non-2xx JSON reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewServer creates a new API server.
// The store is injected so the extraction pool and organizer share it.
func NewServer(config Config, store memory.Store, log *slog.Logger) (*Server, error) {
	if log == nil {
		log = logger.Nop()
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		store:  store,
		logger: log,
		app:    app,
	}

	app.Get("/ping", s.handlePing)

	v1 := app.Group("/v1")
	v1.Post("/turns", s.handleTurn)
	v1.Get("/status/processing", s.handleProcessingStatus)
	v1.Post("/organize", s.handleOrganize)
	v1.Get("/organize/log", s.handleOrganizeLog)
	v1.Get("/profile", s.handleProfile)
	v1.Get("/version", s.handleVersion)

	v1.Get("/:category", s.handleListRecords)
	v1.Post("/:category", s.handleCreateRecord)
	v1.Get("/:category/:id", s.handleGetRecord)
	v1.Patch("/:category/:id", s.handleUpdateRecord)
	v1.Delete("/:category/:id", s.handleDeleteRecord)
	v1.Put("/:category/:id/compression", s.handleOverrideCompression)

	if config.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(config.Metrics.Handler()))
	}
	if config.MCPHandler != nil {
		app.All("/mcp", adaptor.HTTPHandler(config.MCPHandler))
	}

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server", "listen", s.config.ListenAddr)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func errorJSON(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(ErrorResponse{Error: msg})
}
