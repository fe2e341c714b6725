package report

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/a3tai/inspection-report/internal/form"
)

func completeSnapshot(t *testing.T) form.Snapshot {
	return snapshot(map[string]string{
		"general.obra":                 "Residencial Norte",
		"general.pedido":               "P-2231",
		"general.fecha":                "2026-03-14",
		"general.tecnico":              "Ana Ruiz",
		"superior.ventilacion":         "Sí",
		"superior.vent_ancho":          "400",
		"superior.vent_alto":           "300",
		"cierre.observaciones_finales": "Hueco limpio. Falta retirar andamio del foso.",
		"cierre.firma":                 "Ana Ruiz",
	}, map[string]form.Photo{
		"maquinas": pngPhoto(t, 64, 48),
		"foso":     pngPhoto(t, 48, 64),
	})
}

func TestCompose_Complete(t *testing.T) {
	rep, err := newTestComposer().Compose(context.Background(), completeSnapshot(t))
	require.NoError(t, err)

	assert.Equal(t, "TKE_Inspeccion_Residencial Norte.pdf", rep.Filename)
	assert.Equal(t, 3, rep.Pages)
	assert.False(t, rep.Draft)
	assert.Empty(t, rep.SkippedPhotos)
	assert.True(t, bytes.HasPrefix(rep.Data, []byte("%PDF-")))
}

func TestCompose_Draft(t *testing.T) {
	rep, err := newTestComposer().Compose(context.Background(), snapshot(nil, nil))
	require.NoError(t, err)

	assert.True(t, rep.Draft)
	assert.Equal(t, "TKE_Inspeccion_Borrador.pdf", rep.Filename)
}

func TestCompose_InvalidUTF8(t *testing.T) {
	snap := snapshot(map[string]string{
		"general.obra":                 strings.Repeat("W", 60) + "\xff",
		"cierre.observaciones_finales": strings.Repeat("\xfe", 300),
	}, nil)

	rep, err := newTestComposer().Compose(context.Background(), snap)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(rep.Data, []byte("%PDF-")))
	assert.Equal(t, "TKE_Inspeccion_"+strings.Repeat("W", 60)+".pdf", rep.Filename)
}

func TestCompose_Deterministic(t *testing.T) {
	c := newTestComposer()
	snap := completeSnapshot(t)

	first, _, err := c.Layout(context.Background(), snap)
	require.NoError(t, err)
	second, _, err := c.Layout(context.Background(), snap)
	require.NoError(t, err)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("layout differs between runs (-first +second):\n%s", diff)
	}

	a, err := c.Compose(context.Background(), snap)
	require.NoError(t, err)
	b, err := c.Compose(context.Background(), snap)
	require.NoError(t, err)
	assert.Equal(t, a.Data, b.Data)
}

func TestCompose_PhotoFromURL(t *testing.T) {
	photo := pngPhoto(t, 16, 16)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/foso.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(photo.Data)
	}))
	defer srv.Close()

	core, logs := observer.New(zap.WarnLevel)
	c := NewComposer(Options{
		HTTPClient: srv.Client(),
		Logger:     zap.New(core),
		Clock:      func() time.Time { return fixedTime },
	})

	rep, err := c.Compose(context.Background(), snapshot(nil, map[string]form.Photo{
		"foso":      {URL: srv.URL + "/foso.png"},
		"electrica": {URL: srv.URL + "/missing.png"},
		"puertas":   {URL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(photo.Data)},
	}))
	require.NoError(t, err)

	assert.Equal(t, []string{"electrica"}, rep.SkippedPhotos)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "electrica", logs.All()[0].ContextMap()["section"])
}

func TestCompose_PhotoSizeLimit(t *testing.T) {
	c := NewComposer(Options{MaxPhotoSize: 10, Clock: func() time.Time { return fixedTime }})

	rep, err := c.Compose(context.Background(), snapshot(nil, map[string]form.Photo{
		"foso": pngPhoto(t, 32, 32),
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"foso"}, rep.SkippedPhotos)
}

func TestCompose_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep, err := newTestComposer().Compose(ctx, snapshot(nil, map[string]form.Photo{"foso": pngPhoto(t, 4, 4)}))
	assert.Nil(t, rep)
	assert.True(t, errors.Is(err, ErrCompose))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRender_UnknownImage(t *testing.T) {
	doc := NewDocument()
	doc.AddPage().image("ghost", 0, 0, 10, 10)

	_, err := Render(doc, Metadata{Created: fixedTime})
	assert.Error(t, err)
}

func TestPhotoError(t *testing.T) {
	err := error(&PhotoError{Section: "foso", Err: errPhotoTooLarge})
	assert.EqualError(t, err, "photo foso: photo exceeds size limit")
	assert.ErrorIs(t, err, errPhotoTooLarge)
}
