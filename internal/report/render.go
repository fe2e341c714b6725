package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
)

// Metadata is written into the PDF information dictionary.
type Metadata struct {
	Title   string
	Author  string
	Creator string
	Created time.Time
}

// Render draws a finished document with fpdf. Identical documents and
// metadata give identical bytes.
func Render(doc *Document, meta Metadata) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(meta.Created)
	pdf.SetModificationDate(meta.Created)
	pdf.SetTitle(meta.Title, true)
	pdf.SetAuthor(meta.Author, true)
	pdf.SetCreator(meta.Creator, true)
	pdf.SetProducer(meta.Creator, true)

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	registered := make(map[string]bool)

	for _, page := range doc.Pages {
		pdf.AddPage()
		for _, op := range page.Ops {
			switch op.Kind {
			case OpRect:
				style := ""
				if op.Fill != nil {
					pdf.SetFillColor(op.Fill.R, op.Fill.G, op.Fill.B)
					style += "F"
				}
				if op.Stroke != nil {
					pdf.SetDrawColor(op.Stroke.R, op.Stroke.G, op.Stroke.B)
					style += "D"
				}
				if op.Tag == TagCell {
					pdf.SetLineWidth(0.1)
				} else {
					pdf.SetLineWidth(0.2)
				}
				pdf.Rect(op.X, op.Y, op.W, op.H, style)

			case OpLine:
				if op.Stroke != nil {
					pdf.SetDrawColor(op.Stroke.R, op.Stroke.G, op.Stroke.B)
				}
				pdf.SetLineWidth(0.2)
				pdf.Line(op.X, op.Y, op.X2, op.Y2)

			case OpText:
				pdf.SetFont(fontFamily, string(op.Font.Style), op.Font.Size)
				pdf.SetTextColor(op.Color.R, op.Color.G, op.Color.B)
				s := tr(op.Text)
				x := op.X
				if op.Align == AlignRight {
					x -= pdf.GetStringWidth(s)
				}
				pdf.Text(x, op.Y, s)

			case OpImage:
				img, ok := doc.Images[op.Image]
				if !ok {
					return nil, fmt.Errorf("image %q is not part of the document", op.Image)
				}
				if !registered[op.Image] {
					pdf.RegisterImageOptionsReader(op.Image, fpdf.ImageOptions{ImageType: "JPG"}, bytes.NewReader(img.Data))
					registered[op.Image] = true
				}
				pdf.ImageOptions(op.Image, op.X, op.Y, op.W, op.H, false, fpdf.ImageOptions{ImageType: "JPG"}, 0, "")
			}
			if pdf.Err() {
				return nil, fmt.Errorf("failed to draw %s operation: %w", op.Kind, pdf.Error())
			}
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write pdf: %w", err)
	}
	return buf.Bytes(), nil
}
