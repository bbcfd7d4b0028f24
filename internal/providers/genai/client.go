// Package genai wraps the external generation API the queue worker calls.
// Requests are never issued directly by handlers: the queue enforces the
// provider's rate limits.
package genai

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"framd/server/internal/domain"
	"framd/server/internal/infra"
)

// Options controls how the generation client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client provides a lightweight facade over the generation API. Without an
// API key it produces deterministic synthetic clips so the queue, storage
// and status plumbing stay fully exercised in local and CI environments.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *infra.Logger
}

// ClipRequest describes one generation call.
type ClipRequest struct {
	Prompt      string
	AspectRatio string
	Seconds     int
	RequestID   string
}

// Clip is the normalized generation result.
type Clip struct {
	Format string
	Data   []byte
}

type generateContentRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts,omitempty"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

type apiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"error"`
}

// NewClient constructs a generation client with sane defaults.
func NewClient(opts Options) (*Client, error) {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}

	model := opts.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}

	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}

	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		model:      model,
		httpClient: client,
		logger:     logger,
	}, nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// GenerateClip performs one generation call. A rate-limit response is
// reported as an error wrapping domain.ErrRateLimited so the queue can
// back off instead of failing the job.
func (c *Client) GenerateClip(ctx context.Context, req ClipRequest) (*Clip, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.apiKey == "" {
		return c.syntheticClip(req), nil
	}
	return c.remoteGenerate(ctx, req)
}

func (c *Client) remoteGenerate(ctx context.Context, req ClipRequest) (*Clip, error) {
	payload := generateContentRequest{
		Contents: []content{{Parts: []part{{Text: clipPrompt(req)}}}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("genai: encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("genai: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("genai: generate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("genai: generate: %w", domain.ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr apiErrorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("genai: generate: status %d: %s: %w", resp.StatusCode, apiErr.Error.Message, domain.ErrProviderFailure)
		}
		return nil, fmt.Errorf("genai: generate: status %d: %w", resp.StatusCode, domain.ErrProviderFailure)
	}

	var decoded generateContentResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("genai: decode response: %w", err)
	}
	for _, candidate := range decoded.Candidates {
		for _, p := range candidate.Content.Parts {
			if p.InlineData == nil || p.InlineData.Data == "" {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("genai: decode inline data: %w", err)
			}
			return &Clip{Format: p.InlineData.MimeType, Data: data}, nil
		}
	}
	return nil, fmt.Errorf("genai: response carried no inline media: %w", domain.ErrProviderFailure)
}

// syntheticClip renders a deterministic placeholder derived from the
// request, so repeated runs produce identical artifacts.
func (c *Client) syntheticClip(req ClipRequest) *Clip {
	sum := sha256.Sum256([]byte(strings.Join([]string{req.RequestID, req.Prompt, req.AspectRatio, c.model}, "|")))
	data := make([]byte, 4096)
	for i := range data {
		data[i] = sum[i%len(sum)]
	}
	c.logger.Debug().
		Str("request_id", req.RequestID).
		Str("model", c.model).
		Msg("genai: produced synthetic clip (no api key configured)")
	return &Clip{Format: "video/mp4", Data: data}
}

func clipPrompt(req ClipRequest) string {
	var b strings.Builder
	b.WriteString("Generate a short-form video clip. ")
	b.WriteString(req.Prompt)
	if req.AspectRatio != "" {
		fmt.Fprintf(&b, " Aspect ratio %s.", req.AspectRatio)
	}
	if req.Seconds > 0 {
		fmt.Fprintf(&b, " Duration %d seconds.", req.Seconds)
	}
	return b.String()
}
