// Package stubserver is an in-memory implementation of the remote debts API.
// It honours list filters by exact match, supports summary_only mode and is
// used for local development and integration tests.
package stubserver

import (
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const summaryOnlyParam = "summary_only"

// Logger defines the logging surface the stub relies on.
type Logger interface {
	InfoObj(msg, key string, obj interface{})
}

type noopLogger struct{}

func (noopLogger) InfoObj(string, string, interface{}) {}

// Options configures a Server.
type Options struct {
	Registry *prometheus.Registry
	Log      Logger
	Now      func() time.Time
}

// Server serves /debts from memory.
type Server struct {
	app   *fiber.App
	store *store
	log   Logger
}

// New builds a server with its routes registered.
func New(opts Options) (*Server, error) {
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}
	if opts.Log == nil {
		opts.Log = noopLogger{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	metrics, err := newRequestMetrics(opts.Registry)
	if err != nil {
		return nil, fmt.Errorf("register stub metrics: %w", err)
	}

	s := &Server{
		app: fiber.New(fiber.Config{
			DisableStartupMessage: true,
			ErrorHandler:          errorHandler,
		}),
		store: newStore(opts.Now),
		log:   opts.Log,
	}

	s.app.Use(metrics.handler())
	s.app.Use(s.logRequests)
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{})))
	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	debts := s.app.Group("/debts")
	debts.Get("/", s.handleList)
	debts.Post("/", s.handleCreate)
	debts.Get("/:id", s.handleGet)
	debts.Put("/:id", s.handleUpdate)
	debts.Delete("/:id", s.handleRemove)

	return s, nil
}

// App exposes the fiber app, mainly for app.Test in unit tests.
func (s *Server) App() *fiber.App { return s.app }

// Seed loads records as-is; records without an id get the next free one.
func (s *Server) Seed(records ...map[string]any) error {
	recs := make([]record, 0, len(records))
	for _, r := range records {
		recs = append(recs, normalizeSeed(r))
	}
	return s.store.seed(recs...)
}

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error { return s.app.Listen(addr) }

// Serve serves on an existing listener until Shutdown.
func (s *Server) Serve(ln net.Listener) error { return s.app.Listener(ln) }

// Shutdown stops the server.
func (s *Server) Shutdown() error { return s.app.Shutdown() }

func (s *Server) handleList(c *fiber.Ctx) error {
	filters := make(map[string]string)
	for k, v := range c.Queries() {
		filters[strings.Clone(k)] = strings.Clone(v)
	}
	summaryOnly := strings.EqualFold(filters[summaryOnlyParam], "true")
	delete(filters, summaryOnlyParam)

	recs := s.store.list(filters)
	if summaryOnly {
		return c.JSON(fiber.Map{"summary": summarize(recs)})
	}
	return c.JSON(recs)
}

func (s *Server) handleGet(c *fiber.Ctx) error {
	rec, ok := s.store.get(c.Params("id"))
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "debt not found")
	}
	return c.JSON(rec)
}

func (s *Server) handleCreate(c *fiber.Ctx) error {
	fields, err := decodeRecord(c.Body())
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid debt payload")
	}
	return c.Status(fiber.StatusCreated).JSON(s.store.create(fields))
}

func (s *Server) handleUpdate(c *fiber.Ctx) error {
	fields, err := decodeRecord(c.Body())
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid debt payload")
	}
	rec, ok := s.store.update(c.Params("id"), fields)
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "debt not found")
	}
	return c.JSON(rec)
}

func (s *Server) handleRemove(c *fiber.Ctx) error {
	id := strings.Clone(c.Params("id"))
	if !s.store.remove(id) {
		return fiber.NewError(fiber.StatusNotFound, "debt not found")
	}
	return c.JSON(fiber.Map{"deleted": true, "id": id})
}

func (s *Server) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.log.InfoObj("stub request handled", "stub_request", map[string]any{
		"method":      c.Method(),
		"path":        c.Path(),
		"query_keys":  sortedKeys(c.Queries()),
		"status":      c.Response().StatusCode(),
		"elapsed_ms":  time.Since(start).Milliseconds(),
		"handler_err": err != nil,
	})
	return err
}

func errorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "internal server error"
	if e, ok := err.(*fiber.Error); ok {
		status = e.Code
		message = e.Message
	}
	return c.Status(status).JSON(fiber.Map{"message": message})
}

// normalizeSeed round-trips a seed record through JSON so values match what
// the HTTP handlers store (json.Number for numbers).
func normalizeSeed(in map[string]any) record {
	data, err := json.Marshal(in)
	if err != nil {
		return record(in)
	}
	rec, err := decodeRecord(data)
	if err != nil {
		return record(in)
	}
	return rec
}
