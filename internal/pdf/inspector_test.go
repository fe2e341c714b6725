package pdf

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/inspection-report/internal/form"
	"github.com/a3tai/inspection-report/internal/report"
	"github.com/a3tai/inspection-report/internal/schema"
)

func TestInspect_Rejects(t *testing.T) {
	in := NewInspector(1024)

	_, err := in.Inspect(nil)
	assert.Error(t, err)

	_, err = in.Inspect([]byte("GIF89a"))
	assert.ErrorIs(t, err, ErrNotPDF)

	_, err = in.Inspect(append([]byte("%PDF-1.4\n"), make([]byte, 2048)...))
	assert.ErrorContains(t, err, "too large")
}

func TestInspect_Plain(t *testing.T) {
	res, err := NewInspector(0).Inspect(plainPDF(t))
	require.NoError(t, err)

	assert.Equal(t, 1, res.Pages)
	assert.Equal(t, "1.4", res.Version)
	assert.False(t, res.Encrypted)
	assert.Zero(t, res.ImageCount)
}

func TestInspect_ComposedReport(t *testing.T) {
	snap, err := form.SnapshotFromFlat(map[string]string{
		"general.obra":    "Torre Sur",
		"general.fecha":   "2026-04-02",
		"general.tecnico": "Luis Gil",
	}, nil)
	require.NoError(t, err)

	composer := report.NewComposer(report.Options{
		Schema: schema.Default(),
		Clock:  func() time.Time { return time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC) },
	})
	rep, err := composer.Compose(context.Background(), snap)
	require.NoError(t, err)

	res, err := NewInspector(10 << 20).Inspect(rep.Data)
	require.NoError(t, err)

	assert.Equal(t, rep.Pages, res.Pages)
	require.Len(t, res.PageText, res.Pages)
	for _, text := range res.PageText {
		assert.True(t, strings.Contains(text, "de 3"), text)
	}
	assert.Contains(t, res.Text(), "Torre Sur")
}
