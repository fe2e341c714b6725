package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/flosch/pongo2/v6"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/a3tai/inspection-report/internal/analysis"
	"github.com/a3tai/inspection-report/internal/form"
	"github.com/a3tai/inspection-report/internal/report"
	"github.com/a3tai/inspection-report/internal/schema"
)

// User-facing messages.
const (
	alertGenerate  = "Error al generar el PDF"
	alertBusy      = "Ya se está generando el informe"
	alertNoPhoto   = "Selecciona una foto"
	alertNotImage  = "El archivo no es una imagen"
	alertTooLarge  = "La foto es demasiado grande"
	alertBadUpload = "No se pudo leer la foto"
)

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":   "healthy",
		"version":  s.config.Version,
		"sessions": s.sessions.len(),
		"analysis": s.analyzer != nil,
	})
}

func (s *Server) handleForm(c *fiber.Ctx) error {
	return s.renderForm(c, s.sessions.get(c), fiber.StatusOK, "")
}

func (s *Server) renderForm(c *fiber.Ctx, e *formEntry, status int, alert string) error {
	e.mu.Lock()
	data := formContext(e.form, alert)
	e.mu.Unlock()
	return s.render(c, status, formTemplate, data)
}

// handleFields stores the posted "section.field" values.
func (s *Server) handleFields(c *fiber.Ctx) error {
	e := s.sessions.get(c)

	posted := make(map[string]string)
	c.Request().PostArgs().VisitAll(func(key, value []byte) {
		posted[string(key)] = string(value)
	})
	section := posted["section"]
	delete(posted, "section")

	keys := make([]string, 0, len(posted))
	for k := range posted {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	err := func() error {
		e.mu.Lock()
		defer e.mu.Unlock()
		for _, raw := range keys {
			k, err := schema.ParseKey(raw)
			if err != nil {
				return err
			}
			if err := e.form.SetField(k, posted[raw]); err != nil {
				return err
			}
		}
		return nil
	}()
	if err != nil {
		s.logger.Debug("Rejected field update", zap.Error(err))
		return s.renderForm(c, e, fiber.StatusBadRequest, err.Error())
	}

	return c.Redirect(sectionAnchor(section), fiber.StatusSeeOther)
}

func (s *Server) handleToggle(c *fiber.Ctx) error {
	e := s.sessions.get(c)
	id := c.Params("id")

	e.mu.Lock()
	e.form.ToggleSection(id)
	e.mu.Unlock()

	return c.Redirect(sectionAnchor(id), fiber.StatusSeeOther)
}

func (s *Server) handlePhotoUpload(c *fiber.Ctx) error {
	e := s.sessions.get(c)
	section := c.Params("id")

	if sec, ok := s.schema.Section(section); !ok || !sec.PhotoRequired {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "section takes no photo"})
	}

	fh, err := c.FormFile("photo")
	if err != nil {
		return s.renderForm(c, e, fiber.StatusBadRequest, alertNoPhoto)
	}
	if fh.Size > s.config.MaxPhotoSize {
		return s.renderForm(c, e, fiber.StatusRequestEntityTooLarge, alertTooLarge)
	}

	f, err := fh.Open()
	if err != nil {
		return s.renderForm(c, e, fiber.StatusBadRequest, alertBadUpload)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.config.MaxPhotoSize+1))
	if err != nil {
		return s.renderForm(c, e, fiber.StatusBadRequest, alertBadUpload)
	}
	if int64(len(data)) > s.config.MaxPhotoSize {
		return s.renderForm(c, e, fiber.StatusRequestEntityTooLarge, alertTooLarge)
	}

	// trust the content, not the declared type
	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		s.logger.Debug("Rejected upload",
			zap.String("section", section),
			zap.String("declared", fh.Header.Get("Content-Type")),
			zap.String("detected", mimeType))
		return s.renderForm(c, e, fiber.StatusUnsupportedMediaType, alertNotImage)
	}

	e.mu.Lock()
	err = e.form.SetPhoto(section, form.Photo{
		Filename: fh.Filename,
		MIMEType: mimeType,
		Data:     data,
	})
	e.mu.Unlock()
	if err != nil {
		return s.renderForm(c, e, fiber.StatusBadRequest, err.Error())
	}

	s.logger.Debug("Photo stored", zap.String("section", section), zap.Int("size", len(data)))
	return c.Redirect(sectionAnchor(section), fiber.StatusSeeOther)
}

func (s *Server) handlePhoto(c *fiber.Ctx) error {
	e := s.sessions.get(c)

	e.mu.Lock()
	p, ok := e.form.Photo(c.Params("id"))
	e.mu.Unlock()
	if !ok || len(p.Data) == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "photo not found"})
	}

	c.Set(fiber.HeaderContentType, p.MIMEType)
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Send(p.Data)
}

// handleGenerate validates the form and streams the composed report. Missing
// required values answer with a confirmation page unless confirm=draft.
func (s *Server) handleGenerate(c *fiber.Ctx) error {
	e := s.sessions.get(c)
	confirmDraft := c.FormValue("confirm") == "draft"

	e.mu.Lock()
	decision := e.form.RequestGenerate(confirmDraft)
	if decision == form.DecisionConfirm {
		missing := missingLabels(s.schema, e.form.Errors())
		e.mu.Unlock()
		return s.render(c, fiber.StatusConflict, confirmTemplate, pongo2.Context{"missing": missing})
	}
	snap, err := e.form.BeginGenerate()
	e.mu.Unlock()
	if err != nil {
		return s.renderForm(c, e, fiber.StatusConflict, alertBusy)
	}

	rep, err := s.generate(c.UserContext(), e, snap)
	if err != nil {
		s.logger.Error("Report generation failed",
			zap.String("decision", decision.String()),
			zap.Error(err))
		return s.renderForm(c, e, fiber.StatusInternalServerError, alertGenerate)
	}

	c.Set("X-Report-Pages", strconv.Itoa(rep.Pages))
	c.Set("X-Report-Draft", strconv.FormatBool(rep.Draft))
	if len(rep.SkippedPhotos) > 0 {
		c.Set("X-Report-Skipped-Photos", strings.Join(rep.SkippedPhotos, ","))
	}
	// Attachment would URL-encode the name; report names are plain ASCII
	c.Type("pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+rep.Filename+`"`)
	return c.Send(rep.Data)
}

// generate composes and checks a report. The running flag of the session is
// cleared whatever the outcome.
func (s *Server) generate(ctx context.Context, e *formEntry, snap form.Snapshot) (*report.Report, error) {
	defer func() {
		e.mu.Lock()
		e.form.EndGenerate()
		e.mu.Unlock()
	}()

	rep, err := s.composer.Compose(ctx, snap)
	if err != nil {
		return nil, err
	}
	info, err := s.inspector.Inspect(rep.Data)
	if err != nil {
		return nil, fmt.Errorf("composed report is unreadable: %w", err)
	}
	if info.Pages != rep.Pages {
		return nil, fmt.Errorf("composed report has %d pages, expected %d", info.Pages, rep.Pages)
	}
	return rep, nil
}

func (s *Server) handleReset(c *fiber.Ctx) error {
	e := s.sessions.get(c)

	e.mu.Lock()
	e.form.Reset()
	e.mu.Unlock()

	return c.Redirect("/", fiber.StatusSeeOther)
}

func (s *Server) handleSchema(c *fiber.Ctx) error {
	return c.JSON(s.schema)
}

type photoState struct {
	Filename string `json:"filename,omitempty"`
	MIMEType string `json:"mime_type,omitempty"`
	Size     int    `json:"size"`
	URL      string `json:"url,omitempty"`
}

type stateResponse struct {
	Values     map[string]string     `json:"values"`
	Photos     map[string]photoState `json:"photos"`
	Expanded   string                `json:"expanded"`
	Missing    []string              `json:"missing"`
	Progress   int                   `json:"progress"`
	Generating bool                  `json:"generating"`
}

func (s *Server) handleState(c *fiber.Ctx) error {
	e := s.sessions.get(c)

	e.mu.Lock()
	snap := e.form.Snapshot()
	resp := stateResponse{
		Values:     snap.Flatten(),
		Photos:     make(map[string]photoState, len(snap.Photos)),
		Expanded:   e.form.Expanded(),
		Missing:    e.form.Errors().Strings(),
		Progress:   e.form.Progress(),
		Generating: e.form.Generating(),
	}
	e.mu.Unlock()

	for id, p := range snap.Photos {
		resp.Photos[id] = photoState{
			Filename: p.Filename,
			MIMEType: p.MIMEType,
			Size:     len(p.Data),
			URL:      p.URL,
		}
	}
	return c.JSON(resp)
}

// handleAnalyze sends the session photos to the analysis model. With
// ?apply=true the summary is copied into the observations when empty.
func (s *Server) handleAnalyze(c *fiber.Ctx) error {
	if s.analyzer == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": analysis.ErrMissingAPIKey.Error()})
	}
	if !s.limiter.Allow() {
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "too many analysis requests"})
	}

	e := s.sessions.get(c)
	e.mu.Lock()
	snap := e.form.Snapshot()
	e.mu.Unlock()

	res, err := s.analyzer.Analyze(c.UserContext(), analysisImages(s.schema, snap))
	if err != nil {
		var apiErr *analysis.APIError
		switch {
		case errors.Is(err, analysis.ErrNoImages):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		case errors.As(err, &apiErr):
			s.logger.Warn("Photo analysis failed", zap.Error(err))
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
		default:
			s.logger.Error("Photo analysis failed", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "analysis failed"})
		}
	}

	applied := []string{}
	if c.Query("apply") == "true" {
		e.mu.Lock()
		keys, err := res.Apply(e.form)
		e.mu.Unlock()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		for _, k := range keys {
			applied = append(applied, k.String())
		}
	}

	return c.JSON(fiber.Map{
		"result":  res,
		"applied": applied,
	})
}

// analysisImages collects the uploaded photos in section order.
func analysisImages(sch *schema.Schema, snap form.Snapshot) []analysis.Image {
	var images []analysis.Image
	for _, sec := range sch.Sections {
		p, ok := snap.Photo(sec.ID)
		if !ok || len(p.Data) == 0 {
			continue
		}
		images = append(images, analysis.Image{MIMEType: p.MIMEType, Data: p.Data})
	}
	return images
}

func sectionAnchor(id string) string {
	if id == "" {
		return "/"
	}
	return "/#section-" + id
}
