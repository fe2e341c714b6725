// Package web serves the inspection form to phone and desktop browsers and
// streams composed reports back as downloads.
package web

import (
	"context"
	"fmt"
	"time"

	"github.com/flosch/pongo2/v6"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/a3tai/inspection-report/internal/analysis"
	"github.com/a3tai/inspection-report/internal/config"
	"github.com/a3tai/inspection-report/internal/pdf"
	"github.com/a3tai/inspection-report/internal/report"
	"github.com/a3tai/inspection-report/internal/schema"
)

const (
	sessionIdle     = 12 * time.Hour
	shutdownTimeout = 10 * time.Second
)

// Server handles the form pages, photo uploads and report downloads.
type Server struct {
	app       *fiber.App
	config    *config.Config
	schema    *schema.Schema
	composer  *report.Composer
	inspector *pdf.Inspector
	analyzer  *analysis.Client
	limiter   *rate.Limiter
	sessions  *sessionStore
	templates *pongo2.TemplateSet
	logger    *zap.Logger
}

// Options carry the collaborators of a Server. Nil fields get defaults built
// from the configuration.
type Options struct {
	Composer  *report.Composer
	Inspector *pdf.Inspector
	Analyzer  *analysis.Client
}

// New creates the web server and registers its routes.
func New(cfg *config.Config, opts Options, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}
	sch := schema.Default()

	templates, err := newTemplateSet()
	if err != nil {
		return nil, err
	}

	if opts.Composer == nil {
		opts.Composer = report.NewComposer(report.Options{
			Schema:       sch,
			Prefix:       cfg.ReportPrefix,
			Author:       cfg.ServerName,
			MaxPhotoSize: cfg.MaxPhotoSize,
			Logger:       log.Named("report"),
		})
	}
	if opts.Inspector == nil {
		opts.Inspector = pdf.NewInspector(cfg.MaxReportSize)
	}
	if opts.Analyzer == nil && cfg.AnalysisEnabled() {
		opts.Analyzer = analysis.NewClient(analysis.Options{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.GeminiModel,
			BaseURL: cfg.GeminiURL,
			Logger:  log.Named("analysis"),
		})
	}

	// zero means no limit
	limit := rate.Inf
	if cfg.AnalyzeRPS > 0 {
		limit = rate.Limit(cfg.AnalyzeRPS)
	}

	app := fiber.New(fiber.Config{
		AppName:               cfg.ServerName,
		DisableStartupMessage: true,
		// params and cookies are stored in sessions beyond the request
		Immutable: true,
		ReadTimeout:           60 * time.Second,
		WriteTimeout:          120 * time.Second,
		IdleTimeout:           120 * time.Second,
		// one photo plus the multipart envelope
		BodyLimit: int(cfg.MaxPhotoSize) + 1<<20,
	})

	s := &Server{
		app:       app,
		config:    cfg,
		schema:    sch,
		composer:  opts.Composer,
		inspector: opts.Inspector,
		analyzer:  opts.Analyzer,
		limiter:   rate.NewLimiter(limit, 1),
		sessions:  newSessionStore(sch, sessionIdle),
		templates: templates,
		logger:    log,
	}

	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	// Middleware
	s.app.Use(s.requestLogger())
	s.app.Use(recover.New())

	s.app.Get("/healthz", s.handleHealth)

	// Form pages
	s.app.Get("/", s.handleForm)
	s.app.Post("/fields", s.handleFields)
	s.app.Post("/sections/:id/toggle", s.handleToggle)
	s.app.Post("/photos/:id", s.handlePhotoUpload)
	s.app.Get("/photos/:id", s.handlePhoto)
	s.app.Post("/generate", s.handleGenerate)
	s.app.Post("/reset", s.handleReset)

	// JSON API
	api := s.app.Group("/api")
	api.Get("/schema", s.handleSchema)
	api.Get("/state", s.handleState)
	api.Post("/analyze", s.handleAnalyze)
}

// App exposes the fiber application, mainly for tests.
func (s *Server) App() *fiber.App { return s.app }

// Start listens on the configured address until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("Starting web form server",
		zap.String("address", s.config.Address()),
		zap.Bool("analysis", s.analyzer != nil))
	if err := s.app.Listen(s.config.Address()); err != nil {
		return fmt.Errorf("web server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	return s.app.ShutdownWithContext(ctx)
}
