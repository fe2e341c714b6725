package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	Path  string
	Key   string
	Parts []part
}

func modelServer(t *testing.T, status int, body any) (*httptest.Server, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.Path = r.URL.Path
		captured.Key = r.URL.Query().Get("key")
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil && len(req.Contents) > 0 {
			captured.Parts = req.Contents[0].Parts
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

func textResponse(text string) map[string]any {
	return map[string]any{
		"candidates": []any{
			map[string]any{"content": map[string]any{"parts": []any{map[string]any{"text": text}}}},
		},
	}
}

func TestAnalyze_Success(t *testing.T) {
	srv, captured := modelServer(t, http.StatusOK, textResponse(conformingText))
	c := NewClient(Options{APIKey: "secret", BaseURL: srv.URL, HTTPClient: srv.Client()})

	r, err := c.Analyze(context.Background(), []Image{
		{MIMEType: "image/jpeg", Data: []byte{0xff, 0xd8}},
		{MIMEType: "image/png", Data: []byte{0x89, 'P'}},
	})
	require.NoError(t, err)

	assert.True(t, r.Conforms)
	assert.Equal(t, "/models/gemini-1.5-flash:generateContent", captured.Path)
	assert.Equal(t, "secret", captured.Key)
	require.Len(t, captured.Parts, 3)
	assert.Equal(t, instructionPrompt, captured.Parts[0].Text)
	require.NotNil(t, captured.Parts[1].InlineData)
	assert.Equal(t, "image/jpeg", captured.Parts[1].InlineData.MimeType)
	assert.Equal(t, "/9g=", captured.Parts[1].InlineData.Data)
}

func TestAnalyze_FallbackIsNotAnError(t *testing.T) {
	srv, _ := modelServer(t, http.StatusOK, textResponse("Las fotos están borrosas."))
	c := NewClient(Options{APIKey: "k", BaseURL: srv.URL, HTTPClient: srv.Client()})

	r, err := c.Analyze(context.Background(), []Image{{MIMEType: "image/jpeg", Data: []byte{1}}})
	require.NoError(t, err)
	assert.Equal(t, MarkerNoJSON, r.Marker)
	assert.Equal(t, "Las fotos están borrosas.", r.RawText)
}

func TestAnalyze_Failures(t *testing.T) {
	images := []Image{{MIMEType: "image/jpeg", Data: []byte{1}}}

	t.Run("missing key", func(t *testing.T) {
		_, err := NewClient(Options{}).Analyze(context.Background(), images)
		assert.ErrorIs(t, err, ErrMissingAPIKey)
	})

	t.Run("no images", func(t *testing.T) {
		_, err := NewClient(Options{APIKey: "k"}).Analyze(context.Background(), nil)
		assert.ErrorIs(t, err, ErrNoImages)
	})

	t.Run("quota", func(t *testing.T) {
		srv, _ := modelServer(t, http.StatusTooManyRequests, map[string]any{
			"error": map[string]any{"code": 429, "message": "Resource has been exhausted"},
		})
		c := NewClient(Options{APIKey: "k", BaseURL: srv.URL, HTTPClient: srv.Client()})

		_, err := c.Analyze(context.Background(), images)
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
		assert.Equal(t, "Resource has been exhausted", apiErr.Message)
	})

	t.Run("no candidates", func(t *testing.T) {
		srv, _ := modelServer(t, http.StatusOK, map[string]any{"candidates": []any{}})
		c := NewClient(Options{APIKey: "k", BaseURL: srv.URL, HTTPClient: srv.Client()})

		_, err := c.Analyze(context.Background(), images)
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Contains(t, apiErr.Error(), "no candidates")
	})

	t.Run("transport", func(t *testing.T) {
		srv, _ := modelServer(t, http.StatusOK, textResponse("{}"))
		url := srv.URL
		srv.Close()
		c := NewClient(Options{APIKey: "k", BaseURL: url})

		_, err := c.Analyze(context.Background(), images)
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.NotNil(t, apiErr.Unwrap())
	})
}
