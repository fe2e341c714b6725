// Package analysis asks a hosted vision model to read inspection photos. The
// answer is best effort: callers must check Result.Conforms before relying on
// its shape.
package analysis

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultModel   = "gemini-1.5-flash"
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	maxResponseSize = 4 << 20
)

// ErrMissingAPIKey is returned when no credential is configured.
var ErrMissingAPIKey = errors.New("analysis API key not configured")

// ErrNoImages is returned when Analyze is called without images.
var ErrNoImages = errors.New("no images to analyze")

// APIError is the single terminal failure of one Analyze call: transport
// errors, non-200 statuses and responses without candidates.
type APIError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("analysis API error (status %d): %s", e.StatusCode, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("analysis request failed: %v", e.Err)
	default:
		return "analysis failed: " + e.Message
	}
}

func (e *APIError) Unwrap() error { return e.Err }

// Image is one photo sent for analysis.
type Image struct {
	MIMEType string
	Data     []byte
}

// Options configure a Client.
type Options struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client calls the generateContent endpoint. One call, no retry.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a client. A missing key is reported by Analyze.
func NewClient(opts Options) *Client {
	c := &Client{
		apiKey:  opts.APIKey,
		model:   opts.Model,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    opts.HTTPClient,
		logger:  opts.Logger,
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 120 * time.Second}
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Analyze sends the instruction prompt and the images, and parses the text of
// the first candidate.
func (c *Client) Analyze(ctx context.Context, images []Image) (*Result, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if len(images) == 0 {
		return nil, ErrNoImages
	}

	parts := []part{{Text: instructionPrompt}}
	for _, img := range images {
		parts = append(parts, part{InlineData: &inlineData{
			MimeType: img.MIMEType,
			Data:     base64.StdEncoding.EncodeToString(img.Data),
		}})
	}
	body, err := json.Marshal(generateRequest{Contents: []content{{Parts: parts}}})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &APIError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &APIError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &APIError{Err: fmt.Errorf("failed to read response: %w", err)}
	}

	var parsed generateResponse
	decodeErr := json.Unmarshal(raw, &parsed)

	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(raw))
		if decodeErr == nil && parsed.Error != nil && parsed.Error.Message != "" {
			msg = parsed.Error.Message
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, &APIError{Err: fmt.Errorf("failed to parse response: %w", decodeErr)}
	}
	if len(parsed.Candidates) == 0 {
		return nil, &APIError{Message: "no candidates in response"}
	}

	var text strings.Builder
	for _, p := range parsed.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}

	result := ParseText(text.String())
	c.logger.Info("Photo analysis completed",
		zap.Int("images", len(images)),
		zap.String("model", c.model),
		zap.Bool("fallback", result.Fallback()),
		zap.Bool("conforms", result.Conforms),
		zap.Duration("elapsed", time.Since(start)))
	if result.Fallback() {
		c.logger.Warn("Model response holds no parsable object", zap.String("marker", result.Marker))
	}
	return result, nil
}
