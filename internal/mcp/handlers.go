package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/a3tai/inspection-report/internal/analysis"
	"github.com/a3tai/inspection-report/internal/form"
	"github.com/a3tai/inspection-report/internal/pdf"
	"github.com/a3tai/inspection-report/internal/schema"
)

const reportFilePerm = 0o644

// Handler functions
func (s *Server) handleSchema(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(s.schema, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleValidate(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	values, err := stringMap(request.GetArguments(), "values", true)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	snap, err := form.SnapshotFromFlat(values, nil)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := form.Validate(s.schema, snap)
	return mcp.NewToolResultText(s.formatValidation(result)), nil
}

func (s *Server) handleGenerateReport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	values, err := stringMap(args, "values", true)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	photos, err := stringMap(args, "photos", false)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	draft := request.GetBool("draft", false)

	session, err := s.fillSession(values, photos)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if session.RequestGenerate(draft) == form.DecisionConfirm {
		return mcp.NewToolResultError(s.formatValidation(session.Errors()) +
			"\nPass draft=true to generate an incomplete draft."), nil
	}

	snap, err := session.BeginGenerate()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	defer session.EndGenerate()

	rep, err := s.composer.Compose(ctx, snap)
	if err != nil {
		s.logger.Error("Report generation failed", zap.Error(err))
		return mcp.NewToolResultError(fmt.Sprintf("failed to generate report: %v", err)), nil
	}
	info, err := s.inspector.Inspect(rep.Data)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("generated report is unreadable: %v", err)), nil
	}

	out, err := s.paths.OutputPath(rep.Filename)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := os.WriteFile(out, rep.Data, reportFilePerm); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to write report: %v", err)), nil
	}

	s.logger.Info("Report written",
		zap.String("path", out),
		zap.Int("pages", info.Pages),
		zap.Bool("draft", rep.Draft))

	text := fmt.Sprintf("Report written: %s\n", out)
	text += fmt.Sprintf("Pages: %d\n", info.Pages)
	text += fmt.Sprintf("Size: %d bytes\n", info.Size)
	text += fmt.Sprintf("Draft: %t\n", rep.Draft)
	if len(rep.SkippedPhotos) > 0 {
		text += fmt.Sprintf("Skipped photos: %s\n", strings.Join(rep.SkippedPhotos, ", "))
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleAnalyzePhotos(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.analyzer == nil {
		return mcp.NewToolResultError("photo analysis is not configured: set --gemini-key or INSPECTION_GEMINI_KEY"), nil
	}
	paths, err := request.RequireStringSlice("paths")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	images := make([]analysis.Image, 0, len(paths))
	for _, p := range paths {
		photo, err := s.readPhoto(p)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		images = append(images, analysis.Image{MIMEType: photo.MIMEType, Data: photo.Data})
	}

	result, err := s.analyzer.Analyze(ctx, images)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("photo analysis failed: %v", err)), nil
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleTemplateFields(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	resolved, err := s.paths.Resolve(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	fields, err := pdf.TemplateFields(resolved)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatTemplateFields(resolved, fields)), nil
}

// fillSession loads tool arguments into a form session, so they get the same
// normalisation and checks as browser input. Photos of sections that take
// none are ignored.
func (s *Server) fillSession(values, photos map[string]string) (*form.Session, error) {
	session := form.NewSession(s.schema)

	for _, raw := range sortedKeys(values) {
		k, err := schema.ParseKey(raw)
		if err != nil {
			return nil, err
		}
		if err := session.SetField(k, values[raw]); err != nil {
			return nil, err
		}
	}

	for _, section := range sortedKeys(photos) {
		if sec, ok := s.schema.Section(section); !ok || !sec.PhotoRequired {
			s.logger.Debug("Ignoring photo of a section without photo", zap.String("section", section))
			continue
		}
		ref := photos[section]
		var photo form.Photo
		if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
			photo = form.Photo{URL: ref}
		} else {
			var err error
			if photo, err = s.readPhoto(ref); err != nil {
				return nil, err
			}
		}
		if err := session.SetPhoto(section, photo); err != nil {
			return nil, err
		}
	}
	return session, nil
}

// readPhoto loads an image file from inside the report directory.
func (s *Server) readPhoto(path string) (form.Photo, error) {
	resolved, err := s.paths.Resolve(path)
	if err != nil {
		return form.Photo{}, err
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return form.Photo{}, fmt.Errorf("cannot access photo: %w", err)
	}
	if info.Size() > s.config.MaxPhotoSize {
		return form.Photo{}, fmt.Errorf("photo too large: %d bytes (max: %d bytes)", info.Size(), s.config.MaxPhotoSize)
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return form.Photo{}, fmt.Errorf("failed to read photo: %w", err)
	}
	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		return form.Photo{}, fmt.Errorf("not an image: %s (%s)", path, mimeType)
	}
	return form.Photo{
		Filename: filepath.Base(resolved),
		MIMEType: mimeType,
		Data:     data,
	}, nil
}

func (s *Server) formatValidation(result form.ValidationResult) string {
	if result.OK() {
		return "All required values are present."
	}
	text := fmt.Sprintf("Missing required values (%d):\n", result.Len())
	for _, k := range result.Missing() {
		label := k.String()
		if f, ok := s.schema.Field(k); ok {
			label = fmt.Sprintf("%s (%s)", k, f.Label)
		}
		text += fmt.Sprintf("- %s\n", label)
	}
	return text
}

func formatTemplateFields(path string, fields []pdf.TemplateField) string {
	text := fmt.Sprintf("Template: %s\n", path)
	text += fmt.Sprintf("Fields: %d\n", len(fields))

	for i, f := range fields {
		text += fmt.Sprintf("%d. %s (%s)", i+1, f.Name, f.Kind)
		if f.Value != "" {
			text += fmt.Sprintf(" = %q", f.Value)
		}

		var flags []string
		if f.Required {
			flags = append(flags, "required")
		}
		if f.ReadOnly {
			flags = append(flags, "read-only")
		}
		if f.MaxLen > 0 {
			flags = append(flags, fmt.Sprintf("max %d", f.MaxLen))
		}
		if len(flags) > 0 {
			text += " [" + strings.Join(flags, ", ") + "]"
		}
		if len(f.Options) > 0 {
			text += " options: " + strings.Join(f.Options, ", ")
		}
		text += "\n"
	}
	return text
}

// stringMap reads an object argument whose values are scalars. Numbers and
// booleans are rendered as text; nulls are dropped.
func stringMap(args map[string]any, key string, required bool) (map[string]string, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		if required {
			return nil, fmt.Errorf("required argument %q not found", key)
		}
		return map[string]string{}, nil
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("argument %q must be an object", key)
	}

	out := make(map[string]string, len(obj))
	for k, v := range obj {
		switch v := v.(type) {
		case nil:
		case string:
			out[k] = v
		case float64:
			out[k] = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			out[k] = strconv.FormatBool(v)
		default:
			return nil, fmt.Errorf("argument %q: value of %s must be a string", key, k)
		}
	}
	return out, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
