package report

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/a3tai/inspection-report/internal/form"
	"github.com/a3tai/inspection-report/internal/schema"
)

// ErrCompose wraps every failure that aborts a composition. No bytes are
// returned with it.
var ErrCompose = errors.New("report composition failed")

// Options configure a Composer. Zero values select the defaults.
type Options struct {
	Schema       *schema.Schema
	Prefix       string
	Author       string
	MaxPhotoSize int64
	HTTPClient   *http.Client
	Logger       *zap.Logger
	Clock        func() time.Time
	Measurer     Measurer
}

// Composer turns form snapshots into PDF reports. It is safe for concurrent
// use.
type Composer struct {
	schema  *schema.Schema
	prefix  string
	author  string
	photos  *photoLoader
	logger  *zap.Logger
	clock   func() time.Time
	measure Measurer
}

// Report is a composed PDF ready for download.
type Report struct {
	Filename string
	Data     []byte
	Pages    int
	// Draft is set when required values were missing.
	Draft bool
	// SkippedPhotos lists sections whose photo could not be embedded.
	SkippedPhotos []string
}

// NewComposer creates a composer.
func NewComposer(opts Options) *Composer {
	c := &Composer{
		schema:  opts.Schema,
		prefix:  opts.Prefix,
		author:  opts.Author,
		photos:  &photoLoader{client: opts.HTTPClient, maxSize: opts.MaxPhotoSize},
		logger:  opts.Logger,
		clock:   opts.Clock,
		measure: opts.Measurer,
	}
	if c.schema == nil {
		c.schema = schema.Default()
	}
	if c.prefix == "" {
		c.prefix = DefaultPrefix
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.clock == nil {
		c.clock = time.Now
	}
	if c.measure == nil {
		c.measure = newCoreFontMeasurer()
	}
	return c
}

// Layout builds the finished document for a snapshot, footers included.
// Photos that fail to load are reported in skipped.
func (c *Composer) Layout(ctx context.Context, snap form.Snapshot) (doc *Document, skipped []string, err error) {
	l := newLayout(c.measure)

	l.header(snap.Get("general", "pedido"))
	l.table(generalRows(snap), tableStyle{
		FirstColumn: 60,
		LabelFont:   fontBodyBold,
		Head:        generalHeadText,
	})
	l.y += 10
	l.table(technicalRows(c.schema, snap), tableStyle{
		FirstColumn: 80,
		LabelFont:   fontBody,
	})
	l.closing(snap.Get("cierre", "observaciones_finales"), snap.Get("cierre", "firma"))

	skipped, err = l.annex(ctx, snap, c.loadPhoto, c.logger)
	if err != nil {
		return nil, nil, err
	}

	finish(l.doc)
	return l.doc, skipped, nil
}

// Compose lays out and renders the report of a snapshot.
func (c *Composer) Compose(ctx context.Context, snap form.Snapshot) (*Report, error) {
	began := time.Now()
	snap = validText(snap)

	doc, skipped, err := c.Layout(ctx, snap)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompose, err)
	}

	obra := snap.Get("general", "obra")
	title := "Ficha de Inspección Técnica"
	if obra != "" {
		title += " - " + obra
	}
	data, err := Render(doc, Metadata{
		Title:   title,
		Author:  c.author,
		Creator: "inspection-report",
		Created: c.clock(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompose, err)
	}

	report := &Report{
		Filename:      Filename(c.prefix, obra),
		Data:          data,
		Pages:         len(doc.Pages),
		Draft:         !form.Validate(c.schema, snap).OK(),
		SkippedPhotos: skipped,
	}

	c.logger.Info("Report composed",
		zap.String("filename", report.Filename),
		zap.Int("pages", report.Pages),
		zap.Int("bytes", len(data)),
		zap.Bool("draft", report.Draft),
		zap.Strings("skipped_photos", skipped),
		zap.Duration("elapsed", time.Since(began)))

	return report, nil
}

func (c *Composer) loadPhoto(ctx context.Context, section string, p form.Photo) (Image, error) {
	img, err := c.photos.load(ctx, p)
	if err != nil {
		return Image{}, &PhotoError{Section: section, Err: err}
	}
	return img, nil
}

// validText replaces invalid UTF-8 in the snapshot values; fpdf panics on it
// when encoding document metadata.
func validText(snap form.Snapshot) form.Snapshot {
	values := make(map[schema.Key]string, len(snap.Values))
	for k, v := range snap.Values {
		values[k] = strings.ToValidUTF8(v, string(utf8.RuneError))
	}
	snap.Values = values
	return snap
}
