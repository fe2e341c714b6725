package report

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"net/http"
	"strings"

	// registered decoders for uploaded photos
	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"golang.org/x/image/draw"

	"github.com/a3tai/inspection-report/internal/form"
)

// PhotoError reports a photo that could not be fetched or decoded. The
// composer logs it and carries on without the image.
type PhotoError struct {
	Section string
	Err     error
}

func (e *PhotoError) Error() string {
	return fmt.Sprintf("photo %s: %v", e.Section, e.Err)
}

func (e *PhotoError) Unwrap() error { return e.Err }

var (
	errPhotoTooLarge      = errors.New("photo exceeds size limit")
	errPhotoTooManyPixels = errors.New("photo exceeds pixel limit")
)

const (
	jpegQuality = 85
	// longest edge of an embedded photo; a 60mm cell needs far less
	maxPhotoEdge = 1600
	// decoded size is checked before decoding; 40 MP covers phone cameras
	maxPhotoPixels = 40_000_000
)

// photoLoader fetches photo bytes one at a time and re-encodes them as JPEG.
type photoLoader struct {
	client  *http.Client
	maxSize int64
}

func (l *photoLoader) load(ctx context.Context, p form.Photo) (Image, error) {
	raw, err := l.fetch(ctx, p)
	if err != nil {
		return Image{}, err
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return Image{}, fmt.Errorf("failed to decode image: %w", err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > maxPhotoPixels {
		return Image{}, fmt.Errorf("%w: %dx%d", errPhotoTooManyPixels, cfg.Width, cfg.Height)
	}

	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return Image{}, fmt.Errorf("failed to decode image: %w", err)
	}

	dst := flatten(src, maxPhotoEdge)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return Image{}, fmt.Errorf("failed to encode image: %w", err)
	}

	b := dst.Bounds()
	return Image{Data: buf.Bytes(), Width: b.Dx(), Height: b.Dy()}, nil
}

func (l *photoLoader) fetch(ctx context.Context, p form.Photo) ([]byte, error) {
	switch {
	case len(p.Data) > 0:
		if l.maxSize > 0 && int64(len(p.Data)) > l.maxSize {
			return nil, errPhotoTooLarge
		}
		return p.Data, nil
	case strings.HasPrefix(p.URL, "data:"):
		return decodeDataURL(p.URL)
	case p.URL != "":
		return l.get(ctx, p.URL)
	default:
		return nil, errors.New("photo references nothing")
	}
}

func (l *photoLoader) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid photo url: %w", err)
	}

	client := l.client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch photo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch photo: status %d", resp.StatusCode)
	}

	body := io.Reader(resp.Body)
	if l.maxSize > 0 {
		body = io.LimitReader(resp.Body, l.maxSize+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read photo: %w", err)
	}
	if l.maxSize > 0 && int64(len(data)) > l.maxSize {
		return nil, errPhotoTooLarge
	}
	return data, nil
}

// decodeDataURL reads a base64 "data:image/...;base64," URL.
func decodeDataURL(u string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(u, "data:"), ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return nil, errors.New("unsupported data url")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("invalid data url: %w", err)
	}
	return data, nil
}

// flatten draws src over white so transparent PNG and GIF areas do not turn
// black in the JPEG, scaling it down when its longest edge exceeds maxEdge.
func flatten(src image.Image, maxEdge int) *image.RGBA {
	sb := src.Bounds()
	w, h := scaledSize(sb.Dx(), sb.Dy(), maxEdge)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	if w == sb.Dx() && h == sb.Dy() {
		draw.Draw(dst, dst.Bounds(), src, sb.Min, draw.Over)
		return dst
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, sb, draw.Over, nil)
	return dst
}

func scaledSize(w, h, maxEdge int) (int, int) {
	if maxEdge <= 0 || (w <= maxEdge && h <= maxEdge) {
		return w, h
	}
	if w >= h {
		return maxEdge, max(1, h*maxEdge/w)
	}
	return max(1, w*maxEdge/h), maxEdge
}

// fitBox scales an image of w×h into a box of bw×bh keeping its aspect
// ratio, and returns the size and the offsets that centre it.
func fitBox(w, h int, bw, bh float64) (iw, ih, dx, dy float64) {
	if w <= 0 || h <= 0 {
		return 0, 0, 0, 0
	}
	ratio := float64(w) / float64(h)
	iw = bw
	ih = iw / ratio
	if ih > bh {
		ih = bh
		iw = ih * ratio
	}
	return iw, ih, (bw - iw) / 2, (bh - ih) / 2
}
