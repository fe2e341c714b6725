package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/a3tai/inspection-report/internal/analysis"
	"github.com/a3tai/inspection-report/internal/config"
	"github.com/a3tai/inspection-report/internal/pdf"
	"github.com/a3tai/inspection-report/internal/report"
	"github.com/a3tai/inspection-report/internal/schema"
	"github.com/a3tai/inspection-report/internal/security"
)

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	schema    *schema.Schema
	composer  *report.Composer
	inspector *pdf.Inspector
	analyzer  *analysis.Client
	paths     *security.PathValidator
	mcpServer *server.MCPServer
	logger    *zap.Logger
}

// NewServer creates a new MCP server instance. analyzer may be nil, in which
// case the photo analysis tool reports that it is not configured.
func NewServer(cfg *config.Config, composer *report.Composer, analyzer *analysis.Client, logger *zap.Logger) (*Server, error) {
	if composer == nil {
		return nil, fmt.Errorf("composer cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	paths, err := security.NewPathValidator(cfg.ReportDirectory)
	if err != nil {
		return nil, err
	}

	// Create MCP server
	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false), // the tool list is fixed
	)

	s := &Server{
		config:    cfg,
		schema:    schema.Default(),
		composer:  composer,
		inspector: pdf.NewInspector(cfg.MaxReportSize),
		analyzer:  analyzer,
		paths:     paths,
		mcpServer: mcpServer,
		logger:    logger,
	}

	// Register tools
	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	schemaTool := mcp.NewTool(
		"inspection_schema",
		mcp.WithDescription("Describe the inspection form: sections, fields, select options, "+
			"conditional fields and the sections that take a photo"),
	)
	s.mcpServer.AddTool(schemaTool, s.handleSchema)

	validateTool := mcp.NewTool(
		"inspection_validate",
		mcp.WithDescription("Check which required values are missing from an inspection form"),
		mcp.WithObject("values",
			mcp.Required(),
			mcp.Description(`Form values keyed "section.field", e.g. {"general.obra": "Torre Sur"}`),
			mcp.AdditionalProperties(map[string]any{"type": "string"}),
		),
	)
	s.mcpServer.AddTool(validateTool, s.handleValidate)

	generateTool := mcp.NewTool(
		"inspection_generate_report",
		mcp.WithDescription("Compose the PDF inspection report and write it to the report directory"),
		mcp.WithObject("values",
			mcp.Required(),
			mcp.Description(`Form values keyed "section.field"`),
			mcp.AdditionalProperties(map[string]any{"type": "string"}),
		),
		mcp.WithObject("photos",
			mcp.Description("Photo per section id: a file path inside the report directory or an http(s) URL"),
			mcp.AdditionalProperties(map[string]any{"type": "string"}),
		),
		mcp.WithBoolean("draft",
			mcp.Description("Generate an incomplete draft when required values are missing"),
		),
	)
	s.mcpServer.AddTool(generateTool, s.handleGenerateReport)

	analyzeTool := mcp.NewTool(
		"inspection_analyze_photos",
		mcp.WithDescription("Ask the vision model to read nameplate data and item states from site photos"),
		mcp.WithArray("paths",
			mcp.Required(),
			mcp.Description("Photo file paths inside the report directory"),
			mcp.Items(map[string]any{"type": "string"}),
		),
	)
	s.mcpServer.AddTool(analyzeTool, s.handleAnalyzePhotos)

	templateTool := mcp.NewTool(
		"inspection_template_fields",
		mcp.WithDescription("List the AcroForm fields of a PDF template"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the PDF template inside the report directory"),
		),
	)
	s.mcpServer.AddTool(templateTool, s.handleTemplateFields)
}

// Run serves the tools over stdio until stdin closes.
func (s *Server) Run(_ context.Context) error {
	s.logger.Debug("Starting inspection MCP server in stdio mode",
		zap.String("directory", s.paths.Directory()),
		zap.Bool("analysis", s.analyzer != nil))

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}
