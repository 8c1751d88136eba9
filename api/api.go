package api

import (
	"errors"
	"log/slog"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/ragline/api/mcp"
	"github.com/papercomputeco/ragline/pkg/query"
	"github.com/papercomputeco/ragline/pkg/vector"
)

// Server exposes a query.Engine over HTTP and MCP.
type Server struct {
	config Config
	engine *query.Engine
	logger *slog.Logger
	app    *fiber.App
}

// NewServer creates a new API server around engine.
func NewServer(config Config, engine *query.Engine, logger *slog.Logger) (*Server, error) {
	if engine == nil {
		return nil, errors.New("query engine is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	if config.Documents == nil {
		if lister, ok := engine.Retriever().(vector.Lister); ok {
			config.Documents = lister
		}
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		engine: engine,
		logger: logger,
		app:    app,
	}

	app.Get("/ping", s.handlePing)

	v1 := app.Group("/v1")
	v1.Post("/query", s.handleQuery)
	v1.Post("/query/stream", s.handleQueryStream)
	v1.Get("/history/:conversation_id", s.handleHistory)
	v1.Get("/documents", s.handleDocuments)

	if !config.DisableMCP {
		mcpServer, err := mcp.NewServer(mcp.Config{
			Engine: engine,
			Logger: logger,
		})
		if err != nil {
			return nil, err
		}
		app.All("/mcp", adaptor.HTTPHandler(mcpServer.Handler()))
	}

	return s, nil
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		"listen", s.config.ListenAddr,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
