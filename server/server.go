// Package server exposes the analysis pipeline over HTTP: blocking
// endpoints plus NDJSON streaming variants of both invocation shapes.
package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/valyala/fasthttp"

	"geoaval/geo"
	"geoaval/log"
)

// Analyzer is the pipeline surface the server drives. Satisfied by
// *geo.Runner.
type Analyzer interface {
	Start(ctx context.Context, req geo.StartRequest) (*geo.StartResult, error)
	Resume(ctx context.Context, req geo.ResumeRequest) (*geo.ResumeResult, error)
	StartStream(ctx context.Context, req geo.StartRequest) (<-chan geo.Event, error)
	ResumeStream(ctx context.Context, req geo.ResumeRequest) (<-chan geo.Event, error)
	Session(ctx context.Context, id string) (*geo.SessionState, error)
}

// Server wires the HTTP routes to an Analyzer.
type Server struct {
	app      *fiber.App
	analyzer Analyzer
	logger   log.Logger
}

type Option func(*Server)

// WithLogger sets the server's logger.
func WithLogger(logger log.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New creates the HTTP server around the given analyzer.
func New(analyzer Analyzer, opts ...Option) *Server {
	s := &Server{
		analyzer: analyzer,
		logger:   log.GetDefaultLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	app := fiber.New(fiber.Config{
		AppName:               "geoaval",
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(cors.New())

	app.Get("/", s.handleHealth)
	app.Get("/sessions/:id", s.handleSession)
	app.Post("/analyze/start", s.handleStart)
	app.Post("/analyze/refine", s.handleRefine)
	app.Post("/stream/analyze/start", s.handleStartStream)
	app.Post("/stream/analyze/refine", s.handleRefineStream)

	s.app = app
	return s
}

// App returns the underlying fiber app, used by tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves HTTP on the given address until the listener fails.
func (s *Server) Listen(addr string) error {
	s.logger.Info("listening on %s", addr)
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok", "service": "geoaval"})
}

func (s *Server) handleSession(c *fiber.Ctx) error {
	state, err := s.analyzer.Session(c.UserContext(), c.Params("id"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"session_id": c.Params("id"),
		"stage":      state.Stage,
		"keywords":   state.CandidateKeywords,
		"graph":      state.CitationResult,
	})
}

func (s *Server) handleStart(c *fiber.Ctx) error {
	var req geo.StartRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	res, err := s.analyzer.Start(c.UserContext(), req)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(res)
}

func (s *Server) handleRefine(c *fiber.Ctx) error {
	var req geo.ResumeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.SessionID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "session_id is required")
	}

	res, err := s.analyzer.Resume(c.UserContext(), req)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(res)
}

func (s *Server) handleStartStream(c *fiber.Ctx) error {
	var req geo.StartRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	// Boundary validation happens before the stream is opened, so a
	// bad request still gets a proper 4xx instead of an error event.
	events, err := s.analyzer.StartStream(context.Background(), req)
	if err != nil {
		return s.fail(c, err)
	}
	return s.streamEvents(c, events)
}

func (s *Server) handleRefineStream(c *fiber.Ctx) error {
	var req geo.ResumeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.SessionID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "session_id is required")
	}

	events, err := s.analyzer.ResumeStream(context.Background(), req)
	if err != nil {
		return s.fail(c, err)
	}
	return s.streamEvents(c, events)
}

// streamEvents writes the event channel as line-delimited JSON. The
// stream is append-only and ends with the pipeline's terminal
// completed or error event.
func (s *Server) streamEvents(c *fiber.Ctx, events <-chan geo.Event) error {
	c.Set(fiber.HeaderContentType, "application/x-ndjson")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set("Connection", "keep-alive")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		enc := json.NewEncoder(w)
		for ev := range events {
			if err := enc.Encode(ev); err != nil {
				s.logger.Warn("encode stream event: %v", err)
				return
			}
			if err := w.Flush(); err != nil {
				// Client went away; drain so the pipeline goroutine
				// can finish persisting.
				for range events {
				}
				return
			}
		}
	}))
	return nil
}

// fail maps pipeline errors onto HTTP statuses without leaking
// internals.
func (s *Server) fail(c *fiber.Ctx, err error) error {
	var vErr *geo.ValidationError
	switch {
	case errors.As(err, &vErr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": vErr.Error()})
	case errors.Is(err, geo.ErrSessionUnknown):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, geo.ErrInvalidSessionState):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	default:
		s.logger.Error("request failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "analysis failed"})
	}
}
