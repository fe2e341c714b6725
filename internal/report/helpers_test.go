package report

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"github.com/a3tai/inspection-report/internal/form"
	"github.com/a3tai/inspection-report/internal/schema"
)

var fixedTime = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

// runeMeasurer gives every rune a width of one millimetre.
type runeMeasurer struct{}

func (runeMeasurer) Width(s string, _ Font) float64 {
	return float64(utf8.RuneCountInString(s))
}

func pngPhoto(t *testing.T, w, h int) form.Photo {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return form.Photo{Filename: "photo.png", MIMEType: "image/png", Data: buf.Bytes()}
}

func snapshot(values map[string]string, photos map[string]form.Photo) form.Snapshot {
	snap := form.Snapshot{
		Values: make(map[schema.Key]string, len(values)),
		Photos: photos,
	}
	for raw, v := range values {
		k, err := schema.ParseKey(raw)
		if err != nil {
			panic(err)
		}
		snap.Values[k] = v
	}
	return snap
}

func newTestComposer() *Composer {
	return NewComposer(Options{Clock: func() time.Time { return fixedTime }})
}
