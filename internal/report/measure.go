package report

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-pdf/fpdf"
)

const fontFamily = "Helvetica"

// Measurer returns the printed width of a string in millimetres.
type Measurer interface {
	Width(s string, font Font) float64
}

// coreFontMeasurer measures with the Helvetica metrics embedded in fpdf, the
// same metrics the renderer prints with.
type coreFontMeasurer struct {
	mu  sync.Mutex
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func newCoreFontMeasurer() *coreFontMeasurer {
	pdf := fpdf.New("P", "mm", "A4", "")
	return &coreFontMeasurer{
		pdf: pdf,
		tr:  pdf.UnicodeTranslatorFromDescriptor(""),
	}
}

func (m *coreFontMeasurer) Width(s string, font Font) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pdf.SetFont(fontFamily, string(font.Style), font.Size)
	return m.pdf.GetStringWidth(m.tr(s))
}

// wrap splits text into lines no wider than width. Explicit newlines are
// kept; words wider than a line are broken between characters.
func wrap(m Measurer, text string, font Font, width float64) []string {
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return nil
	}

	var lines []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}

		current := ""
		for _, w := range words {
			candidate := w
			if current != "" {
				candidate = current + " " + w
			}
			if m.Width(candidate, font) <= width {
				current = candidate
				continue
			}
			if current != "" {
				lines = append(lines, current)
			}
			// break words that do not fit on a line of their own
			for m.Width(w, font) > width {
				head := fitPrefix(m, w, font, width)
				lines = append(lines, head)
				w = w[len(head):]
			}
			current = w
		}
		lines = append(lines, current)
	}
	return lines
}

// fitPrefix returns the longest non-empty rune prefix of s no wider than width.
func fitPrefix(m Measurer, s string, font Font, width float64) string {
	end := 0
	for i := range s {
		_, size := utf8.DecodeRuneInString(s[i:])
		next := i + size
		if end > 0 && m.Width(s[:next], font) > width {
			break
		}
		end = next
	}
	return s[:end]
}

// ellipsize appends "..." to s, dropping trailing characters until it fits.
func ellipsize(m Measurer, s string, font Font, width float64) string {
	const dots = "..."
	s = strings.TrimRight(s, " ")
	for s != "" && m.Width(s+dots, font) > width {
		_, size := utf8.DecodeLastRuneInString(s)
		s = strings.TrimRight(s[:len(s)-size], " ")
	}
	return s + dots
}
