package report

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/a3tai/inspection-report/internal/form"
)

// A4 portrait, millimetres.
const (
	pageWidth  = 210.0
	pageHeight = 297.0

	marginLeft  = 14.0
	marginTop   = 14.0
	tableWidth  = 182.0
	bottomLimit = 283.0

	ptToMM          = 25.4 / 72
	lineHeightRatio = 1.15
	cellPadding     = 1.5
)

const (
	titleText       = "FICHA DE INSPECCIÓN TÉCNICA"
	generalHeadText = "DATOS GENERALES DEL PROYECTO"
	closingTitle    = "8. OBSERVACIONES Y FIRMA"
	signatureText   = "Fdo: Técnico Verificador"
	annexTitle      = "ANEXO FOTOGRÁFICO"
)

// Observations block.
const (
	obsBreakY    = 240.0
	obsNewPageY  = 20.0
	obsBoxHeight = 30.0
	obsWrapWidth = 175.0
)

// Photo annex grid.
const (
	annexStartY   = 25.0
	annexBreakY   = 250.0
	photoWidth    = 80.0
	photoHeight   = 60.0
	photoGutter   = 10.0
	captionOffset = 6.0
	rowAdvance    = photoHeight + 20
)

// annexSlot is one of the fixed photo keys of the annex, in print order.
type annexSlot struct {
	Section string
	Label   string
}

var annexSlots = []annexSlot{
	{Section: "maquinas", Label: "Cuarto de Máquinas / Vigas"},
	{Section: "superior", Label: "Parte Superior / Ventilación"},
	{Section: "recorrido", Label: "Recorrido y Alzado"},
	{Section: "puertas", Label: "Entradas y Puertas"},
	{Section: "foso", Label: "Foso (Pit)"},
	{Section: "electrica", Label: "Instalación Eléctrica"},
}

var (
	fontBody     = Font{Size: 9}
	fontBodyBold = Font{Style: StyleBold, Size: 9}
	fontHead     = Font{Size: 10}
)

func lineHeight(f Font) float64 { return f.Size * ptToMM * lineHeightRatio }

// baseline of the first text line inside a cell whose top is y.
func firstBaseline(y float64, f Font) float64 {
	return y + cellPadding + f.Size*ptToMM*0.85
}

// layout is the cursor state of one composition.
type layout struct {
	doc     *Document
	page    *Page
	y       float64
	measure Measurer
}

func newLayout(m Measurer) *layout {
	l := &layout{doc: NewDocument(), measure: m}
	l.newPage(marginTop)
	return l
}

func (l *layout) newPage(y float64) {
	l.page = l.doc.AddPage()
	l.y = y
}

func (l *layout) header(reference string) {
	if reference == "" {
		reference = notApplies
	}
	l.page.fillRect(0, 0, pageWidth, 20, colorPrimary)
	l.page.text(TagNone, 14, 13, titleText, Font{Size: 22}, colorWhite, AlignLeft)
	l.page.text(TagNone, 160, 13, "REF: "+reference, Font{Size: 10}, colorWhite, AlignLeft)
	l.y = 30
}

// tableStyle configures one grid table.
type tableStyle struct {
	FirstColumn float64
	LabelFont   Font
	Head        string
}

func (l *layout) table(rows []row, style tableStyle) {
	if style.Head != "" {
		l.tableRow([]string{style.Head}, []float64{tableWidth}, fontHead, &colorPrimary, colorWhite)
	}
	widths := []float64{style.FirstColumn, tableWidth - style.FirstColumn}
	for _, r := range rows {
		if r.Header {
			l.tableRow([]string{r.Label}, []float64{tableWidth}, fontBodyBold, &colorAccent, colorBlack)
			continue
		}
		l.tableRowFonts([]string{r.Label, r.Value}, widths, []Font{style.LabelFont, fontBody}, nil, colorBlack)
	}
}

func (l *layout) tableRow(cells []string, widths []float64, f Font, fill *Color, text Color) {
	fonts := make([]Font, len(cells))
	for i := range fonts {
		fonts[i] = f
	}
	l.tableRowFonts(cells, widths, fonts, fill, text)
}

// tableRowFonts draws one row; cells wrap inside their width and the row
// takes the height of its tallest cell. A row that would cross the bottom
// limit starts a new page.
func (l *layout) tableRowFonts(cells []string, widths []float64, fonts []Font, fill *Color, text Color) {
	wrapped := make([][]string, len(cells))
	height := 0.0
	for i, c := range cells {
		wrapped[i] = wrap(l.measure, c, fonts[i], widths[i]-2*cellPadding)
		h := float64(max(1, len(wrapped[i])))*lineHeight(fonts[i]) + 2*cellPadding
		height = math.Max(height, h)
	}

	if l.y+height > bottomLimit {
		l.newPage(marginTop)
	}

	x := marginLeft
	for i := range cells {
		l.page.cellRect(x, l.y, widths[i], height, fill, colorGrid)
		base := firstBaseline(l.y, fonts[i])
		for j, line := range wrapped[i] {
			l.page.text(TagCell, x+cellPadding, base+float64(j)*lineHeight(fonts[i]), line, fonts[i], text, AlignLeft)
		}
		x += widths[i]
	}
	l.y += height
}

// closing draws the observations box and the signature block.
func (l *layout) closing(observations, signature string) {
	l.y += 10
	if l.y > obsBreakY {
		l.newPage(obsNewPageY)
	}
	y := l.y

	l.page.text(TagNone, marginLeft, y, closingTitle, Font{Style: StyleBold, Size: 11}, colorBlack, AlignLeft)
	l.page.strokeRect(TagNone, marginLeft, y+2, tableWidth, obsBoxHeight, colorBlack)

	lines := wrap(l.measure, observations, fontBody, obsWrapWidth)
	lh := lineHeight(fontBody)
	limit := y + 2 + obsBoxHeight - cellPadding
	fit := 0
	for fit < len(lines) && y+7+float64(fit)*lh <= limit {
		fit++
	}
	if fit < len(lines) && fit > 0 {
		lines = append(lines[:fit-1:fit-1], ellipsize(l.measure, lines[fit-1], fontBody, obsWrapWidth))
	}
	for i, line := range lines {
		l.page.text(TagNone, marginLeft+2, y+7+float64(i)*lh, line, fontBody, colorBlack, AlignLeft)
	}

	y += 40
	if y+20 > bottomLimit {
		l.newPage(obsNewPageY)
		y = l.y
	}
	l.page.line(14, y+15, 80, y+15, colorBlack)
	l.page.text(TagNone, 14, y+20, signatureText, fontBody, colorBlack, AlignLeft)
	if signature != "" {
		l.page.text(TagNone, 14, y+13, signature, Font{Style: StyleItalic, Size: 9}, colorBlack, AlignLeft)
	}
	l.y = y + 20
}

// annex starts the photo pages and places every available photo in the
// two-column grid. Sections without a photo take no cell.
func (l *layout) annex(ctx context.Context, snap form.Snapshot, load func(context.Context, string, form.Photo) (Image, error), log *zap.Logger) ([]string, error) {
	l.annexPage()

	var skipped []string
	y := annexStartY
	col := 0
	for _, slot := range annexSlots {
		photo, ok := snap.Photo(slot.Section)
		if !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return skipped, err
		}
		if y > annexBreakY {
			l.annexPage()
			y = annexStartY
			col = 0
		}

		x := marginLeft
		if col == 1 {
			x = marginLeft + photoWidth + photoGutter
		}
		l.page.strokeRect(TagPhotoFrame, x, y, photoWidth, photoHeight+10, colorGrid)
		l.page.text(TagPhotoCaption, x+2, y+photoHeight+captionOffset, slot.Label, fontBodyBold, colorBlack, AlignLeft)

		img, err := load(ctx, slot.Section, photo)
		if err != nil {
			if ctx.Err() != nil {
				return skipped, ctx.Err()
			}
			log.Warn("Skipping photo", zap.String("section", slot.Section), zap.Error(err))
			skipped = append(skipped, slot.Section)
		} else {
			name := "photo-" + slot.Section
			l.doc.Images[name] = img
			w, h, dx, dy := fitBox(img.Width, img.Height, photoWidth, photoHeight)
			l.page.image(name, x+dx, y+dy, w, h)
		}

		col++
		if col > 1 {
			col = 0
			y += rowAdvance
		}
	}
	return skipped, nil
}

func (l *layout) annexPage() {
	l.newPage(annexStartY)
	l.page.fillRect(0, 0, pageWidth, 15, colorPrimary)
	l.page.text(TagNone, 14, 10, annexTitle, Font{Size: 14}, colorWhite, AlignLeft)
}
