package web

import (
	"embed"
	"fmt"
	"io/fs"

	"github.com/flosch/pongo2/v6"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/a3tai/inspection-report/internal/form"
	"github.com/a3tai/inspection-report/internal/schema"
)

//go:embed templates/*.html
var templateFiles embed.FS

const (
	formTemplate    = "form.html"
	confirmTemplate = "confirm.html"
)

type fieldView struct {
	Key         string
	Label       string
	Type        string
	Value       string
	Placeholder string
	Options     []string
	Missing     bool
}

type sectionView struct {
	ID            string
	Title         string
	Expanded      bool
	Fields        []fieldView
	PhotoRequired bool
	PhotoLabel    string
	PhotoName     string
	HasPhoto      bool
}

func newTemplateSet() (*pongo2.TemplateSet, error) {
	sub, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		return nil, err
	}
	set := pongo2.NewSet("web", pongo2.NewFSLoader(sub))

	// parse everything up front so a broken template fails at startup
	for _, name := range []string{formTemplate, confirmTemplate} {
		if _, err := set.FromCache(name); err != nil {
			return nil, fmt.Errorf("failed to load template %s: %w", name, err)
		}
	}
	return set, nil
}

// sectionViews renders the visible part of a session. Only the expanded
// section lists its fields.
func sectionViews(s *form.Session) []sectionView {
	sch := s.Schema()
	snap := s.Snapshot()
	errs := s.Errors()

	views := make([]sectionView, 0, len(sch.Sections))
	for _, sec := range sch.Sections {
		v := sectionView{
			ID:            sec.ID,
			Title:         sec.Title,
			Expanded:      s.Expanded() == sec.ID,
			PhotoRequired: sec.PhotoRequired,
			PhotoLabel:    sec.PhotoLabel,
		}
		if p, ok := snap.Photo(sec.ID); ok {
			v.HasPhoto = true
			v.PhotoName = p.Filename
		}
		if v.Expanded {
			for _, f := range sec.VisibleFields(snap) {
				k := sec.Key(f.ID)
				v.Fields = append(v.Fields, fieldView{
					Key:         k.String(),
					Label:       f.Label,
					Type:        string(f.Type),
					Value:       snap.Values[k],
					Placeholder: f.Placeholder,
					Options:     f.Options,
					Missing:     errs.Has(k),
				})
			}
		}
		views = append(views, v)
	}
	return views
}

// missingLabels names the missing keys by their field labels.
func missingLabels(sch *schema.Schema, res form.ValidationResult) []string {
	labels := make([]string, 0, res.Len())
	for _, k := range res.Missing() {
		if f, ok := sch.Field(k); ok {
			labels = append(labels, f.Label)
			continue
		}
		labels = append(labels, k.String())
	}
	return labels
}

// formContext must be called with the entry locked.
func formContext(s *form.Session, alert string) pongo2.Context {
	return pongo2.Context{
		"sections":   sectionViews(s),
		"progress":   s.Progress(),
		"generating": s.Generating(),
		"alert":      alert,
	}
}

func (s *Server) render(c *fiber.Ctx, status int, name string, data pongo2.Context) error {
	tpl, err := s.templates.FromCache(name)
	if err != nil {
		return err
	}
	out, err := tpl.ExecuteBytes(data)
	if err != nil {
		s.logger.Error("Failed to render template", zap.String("template", name), zap.Error(err))
		return err
	}
	c.Type("html", "utf-8")
	return c.Status(status).Send(out)
}
