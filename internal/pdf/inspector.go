package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrNotPDF is returned for data without a PDF header.
var ErrNotPDF = errors.New("data is not a PDF document")

// Inspection describes a PDF read back from its bytes.
type Inspection struct {
	Size       int64    `json:"size"`
	Version    string   `json:"version"`
	Pages      int      `json:"pages"`
	Encrypted  bool     `json:"encrypted"`
	PageText   []string `json:"page_text,omitempty"`
	ImageCount int      `json:"image_count"`
}

// Text joins the text of every page.
func (i *Inspection) Text() string {
	return strings.Join(i.PageText, "\n")
}

// Inspector checks produced PDFs before they are handed out: size, header,
// structure through pdfcpu and per-page text through ledongthuc/pdf.
type Inspector struct {
	maxSize     int64
	maxTextSize int
}

// NewInspector creates an inspector rejecting documents above maxSize bytes.
func NewInspector(maxSize int64) *Inspector {
	return &Inspector{
		maxSize:     maxSize,
		maxTextSize: 1024 * 1024,
	}
}

// Inspect validates data and reads its page count, images and text.
func (in *Inspector) Inspect(data []byte) (*Inspection, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("document is empty")
	}
	if in.maxSize > 0 && int64(len(data)) > in.maxSize {
		return nil, fmt.Errorf("document too large: %d bytes (max: %d bytes)", len(data), in.maxSize)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return nil, ErrNotPDF
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF context: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("failed to ensure page count: %w", err)
	}

	result := &Inspection{
		Size:      int64(len(data)),
		Version:   ctx.HeaderVersion.String(),
		Pages:     ctx.PageCount,
		Encrypted: ctx.Encrypt != nil,
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	if reader.NumPage() != result.Pages {
		return nil, fmt.Errorf("page count mismatch: %d pages in page tree, %d readable", result.Pages, reader.NumPage())
	}

	result.PageText = in.pageText(reader)
	for n := 1; n <= reader.NumPage(); n++ {
		result.ImageCount += countImagesOnPage(reader, n)
	}
	return result, nil
}

// pageText extracts the plain text of every page until the text budget is
// spent. Pages that fail to decode contribute an empty string.
func (in *Inspector) pageText(r *pdf.Reader) []string {
	texts := make([]string, 0, r.NumPage())
	total := 0
	for n := 1; n <= r.NumPage(); n++ {
		page := r.Page(n)
		if page.V.IsNull() {
			texts = append(texts, "")
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			texts = append(texts, "")
			continue
		}
		if total+len(content) > in.maxTextSize {
			content = content[:max(0, in.maxTextSize-total)]
		}
		total += len(content)
		texts = append(texts, content)
	}
	return texts
}

func countImagesOnPage(r *pdf.Reader, n int) (count int) {
	defer func() {
		if recover() != nil {
			count = 0
		}
	}()

	page := r.Page(n)
	if page.V.IsNull() {
		return 0
	}
	xObjects := page.V.Key("Resources").Key("XObject")
	if xObjects.IsNull() || xObjects.Kind() != pdf.Dict {
		return 0
	}
	for _, key := range xObjects.Keys() {
		if xObjects.Key(key).Key("Subtype").Name() == "Image" {
			count++
		}
	}
	return count
}
