// Package ollama is a minimal client for the Ollama HTTP API.
//
// It covers the three endpoints the parser needs: /api/generate for a
// single non-streaming multimodal completion, and /api/version and /api/tags
// for the preflight check. Each call is a single attempt; failures are
// classified as *TransportError or *RequestError and never retried.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sagarsiwach/invoice-parser/internal/logger"
)

// DefaultTimeout bounds a generate call, which includes model loading and
// image decoding on the server.
const DefaultTimeout = 120 * time.Second

// Config holds the connection settings of a Client.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// GenerateRequest is the body of POST /api/generate.
type GenerateRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Images []string `json:"images,omitempty"`
	Stream bool     `json:"stream"`
}

// GenerateResponse is the decoded 2xx reply of /api/generate. Only the
// fields the parser uses are declared.
type GenerateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`

	// StatusCode and Body describe the raw HTTP reply.
	StatusCode int    `json:"-"`
	Body       []byte `json:"-"`
}

// VersionResponse is the reply of GET /api/version.
type VersionResponse struct {
	Version string `json:"version"`
}

// ModelInfo is one entry of GET /api/tags.
type ModelInfo struct {
	Name       string    `json:"name"`
	Model      string    `json:"model"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
}

// TagsResponse is the reply of GET /api/tags.
type TagsResponse struct {
	Models []ModelInfo `json:"models"`
}

// Client talks to one Ollama server with one default model. It keeps no
// per-call state and is safe for concurrent use.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a client for cfg. A zero Timeout means DefaultTimeout.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return NewClientWithHTTPClient(cfg, &http.Client{Timeout: timeout})
}

// NewClientWithHTTPClient creates a client with an explicit HTTP client (for testing).
func NewClientWithHTTPClient(cfg Config, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		httpClient: httpClient,
		log:        logger.WithComponent("ollama"),
	}
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// BaseURL returns the server URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Generate sends one non-streaming completion request. An empty req.Model
// falls back to the configured model; Stream is always sent as false.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	const op = "Generate"

	if req.Model == "" {
		req.Model = c.model
	}
	req.Stream = false

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("ollama: encode generate request: %w", err)
	}

	c.log.Debug().
		Str("url", c.baseURL+"/api/generate").
		Str("model", req.Model).
		Int("images", len(req.Images)).
		Int("payload_bytes", len(payload)).
		Msg("Sending generate request")

	status, body, err := c.do(ctx, op, http.MethodPost, "/api/generate", payload)
	if err != nil {
		return nil, err
	}

	out := &GenerateResponse{StatusCode: status, Body: body}
	if err := json.Unmarshal(body, out); err != nil {
		return nil, &RequestError{Op: op, StatusCode: status, Body: string(body), Err: fmt.Errorf("decode response: %w", err)}
	}

	c.log.Debug().
		Int("status", status).
		Int("response_chars", len(out.Response)).
		Str("preview", preview(out.Response, 100)).
		Msg("Generate response received")

	return out, nil
}

// Version calls GET /api/version.
func (c *Client) Version(ctx context.Context) (*VersionResponse, error) {
	const op = "Version"

	status, body, err := c.do(ctx, op, http.MethodGet, "/api/version", nil)
	if err != nil {
		return nil, err
	}
	var out VersionResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &RequestError{Op: op, StatusCode: status, Body: string(body), Err: fmt.Errorf("decode response: %w", err)}
	}
	return &out, nil
}

// Tags calls GET /api/tags and lists the locally installed models.
func (c *Client) Tags(ctx context.Context) (*TagsResponse, error) {
	const op = "Tags"

	status, body, err := c.do(ctx, op, http.MethodGet, "/api/tags", nil)
	if err != nil {
		return nil, err
	}
	var out TagsResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &RequestError{Op: op, StatusCode: status, Body: string(body), Err: fmt.Errorf("decode response: %w", err)}
	}
	return &out, nil
}

// HasModel reports whether name appears in the tags list.
func (t *TagsResponse) HasModel(name string) bool {
	for _, m := range t.Models {
		if m.Name == name || m.Model == name {
			return true
		}
	}
	return false
}

// Names returns the installed model names.
func (t *TagsResponse) Names() []string {
	names := make([]string, 0, len(t.Models))
	for _, m := range t.Models {
		names = append(names, m.Name)
	}
	return names
}

// do performs a single request and returns the status and body of a 2xx
// reply. Non-2xx replies become *RequestError, everything that prevented a
// reply becomes *TransportError.
func (c *Client) do(ctx context.Context, op, method, path string, payload []byte) (int, []byte, error) {
	url := c.baseURL + path

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("ollama: build %s request: %w", op, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error().Err(err).Str("url", url).Dur("duration", time.Since(start)).Msg("API request failed")
		return 0, nil, &TransportError{Op: op, URL: url, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, &TransportError{Op: op, URL: url, Err: fmt.Errorf("read response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Error().
			Int("status", resp.StatusCode).
			Str("url", url).
			Str("body", preview(string(body), 512)).
			Msg("API error")
		return 0, nil, &RequestError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
	}

	return resp.StatusCode, body, nil
}

func preview(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
