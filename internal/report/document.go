// Package report composes the inspection PDF. Layout builds an addressable
// document of drawing operations; a finishing pass stamps the page footers
// once the page count is known; the renderer turns the finished document into
// PDF bytes.
package report

// Color is an RGB fill, stroke or text colour.
type Color struct {
	R, G, B int
}

// Gray returns the grey level v.
func Gray(v int) Color { return Color{R: v, G: v, B: v} }

var (
	colorPrimary = Color{R: 0, G: 51, B: 153}
	colorAccent  = Gray(220)
	colorGrid    = Gray(200)
	colorFooter  = Gray(150)
	colorWhite   = Gray(255)
	colorBlack   = Gray(0)
)

// FontStyle is a core-font style: "" (regular), "B" or "I".
type FontStyle string

const (
	StyleRegular FontStyle = ""
	StyleBold    FontStyle = "B"
	StyleItalic  FontStyle = "I"
)

// Font selects the style and point size of text. The family is always
// Helvetica.
type Font struct {
	Style FontStyle
	Size  float64
}

// Align is the horizontal anchoring of a text operation.
type Align int

const (
	AlignLeft Align = iota
	AlignRight
)

// OpKind identifies a drawing operation.
type OpKind string

const (
	OpRect  OpKind = "rect"
	OpText  OpKind = "text"
	OpLine  OpKind = "line"
	OpImage OpKind = "image"
)

// Tag marks operations that tests and callers look up.
type Tag string

const (
	TagNone         Tag = ""
	TagCell         Tag = "cell"
	TagPhotoFrame   Tag = "photo-frame"
	TagPhotoCaption Tag = "photo-caption"
	TagFooter       Tag = "footer"
)

// Op is one drawing operation. Coordinates are millimetres from the top-left
// corner of the page; text Y is the baseline.
type Op struct {
	Kind OpKind
	Tag  Tag

	X, Y, W, H float64
	X2, Y2     float64

	// rect: Fill and/or Stroke
	Fill   *Color
	Stroke *Color

	Text  string
	Font  Font
	Color Color
	Align Align

	Image string
}

// Page is the ordered list of operations drawn on one page.
type Page struct {
	Ops []Op
}

// Image is a JPEG embedded in the document.
type Image struct {
	Data          []byte
	Width, Height int
}

// Document is the laid-out report. Pages are addressable so later passes can
// draw on pages laid out earlier.
type Document struct {
	Pages  []*Page
	Images map[string]Image
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{Images: make(map[string]Image)}
}

// AddPage appends a blank page and returns it.
func (d *Document) AddPage() *Page {
	p := &Page{}
	d.Pages = append(d.Pages, p)
	return p
}

// Ops returns the operations of every page carrying tag, in drawing order.
func (d *Document) Ops(tag Tag) []Op {
	var ops []Op
	for _, p := range d.Pages {
		for _, op := range p.Ops {
			if op.Tag == tag {
				ops = append(ops, op)
			}
		}
	}
	return ops
}

// Texts returns every text drawn on page i (zero-based).
func (d *Document) Texts(i int) []string {
	if i < 0 || i >= len(d.Pages) {
		return nil
	}
	var out []string
	for _, op := range d.Pages[i].Ops {
		if op.Kind == OpText {
			out = append(out, op.Text)
		}
	}
	return out
}

func (p *Page) fillRect(x, y, w, h float64, fill Color) {
	p.Ops = append(p.Ops, Op{Kind: OpRect, X: x, Y: y, W: w, H: h, Fill: &fill})
}

func (p *Page) strokeRect(tag Tag, x, y, w, h float64, stroke Color) {
	p.Ops = append(p.Ops, Op{Kind: OpRect, Tag: tag, X: x, Y: y, W: w, H: h, Stroke: &stroke})
}

func (p *Page) cellRect(x, y, w, h float64, fill *Color, stroke Color) {
	p.Ops = append(p.Ops, Op{Kind: OpRect, Tag: TagCell, X: x, Y: y, W: w, H: h, Fill: fill, Stroke: &stroke})
}

func (p *Page) text(tag Tag, x, y float64, s string, font Font, c Color, align Align) {
	p.Ops = append(p.Ops, Op{Kind: OpText, Tag: tag, X: x, Y: y, Text: s, Font: font, Color: c, Align: align})
}

func (p *Page) line(x1, y1, x2, y2 float64, c Color) {
	p.Ops = append(p.Ops, Op{Kind: OpLine, X: x1, Y: y1, X2: x2, Y2: y2, Stroke: &c})
}

func (p *Page) image(name string, x, y, w, h float64) {
	p.Ops = append(p.Ops, Op{Kind: OpImage, X: x, Y: y, W: w, H: h, Image: name})
}
