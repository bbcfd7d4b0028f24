package stock

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"framd/server/internal/domain"
)

const defaultPexelsBaseURL = "https://api.pexels.com/v1"

// PexelsOptions configures the Pexels search client.
type PexelsOptions struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// PexelsClient queries the Pexels photo search API. Pexels is the primary
// source: every photo it serves carries the site-wide "Pexels License".
type PexelsClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewPexelsClient constructs a Pexels client with sane defaults.
func NewPexelsClient(opts PexelsOptions) *PexelsClient {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultPexelsBaseURL
	}
	return &PexelsClient{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		httpClient: client,
	}
}

// Name identifies the provider in logs and rejection entries.
func (c *PexelsClient) Name() string { return "pexels" }

type pexelsSearchResponse struct {
	Photos []pexelsPhoto `json:"photos"`
}

type pexelsPhoto struct {
	URL          string `json:"url"`
	Photographer string `json:"photographer"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	Src          struct {
		Original string `json:"original"`
	} `json:"src"`
}

// Search returns up to limit candidates for the keyword.
func (c *PexelsClient) Search(ctx context.Context, keyword string, limit int) ([]Candidate, error) {
	if limit <= 0 {
		limit = 10
	}

	endpoint := fmt.Sprintf("%s/search?query=%s&per_page=%s",
		c.baseURL, url.QueryEscape(keyword), strconv.Itoa(limit))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("pexels: build request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pexels: search %q: %w", keyword, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("pexels: search %q: %w", keyword, domain.ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pexels: search %q: unexpected status %d: %w", keyword, resp.StatusCode, domain.ErrProviderFailure)
	}

	var payload pexelsSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("pexels: decode response: %w", err)
	}

	candidates := make([]Candidate, 0, len(payload.Photos))
	for _, photo := range payload.Photos {
		if photo.Src.Original == "" {
			continue
		}
		candidates = append(candidates, Candidate{
			SourcePage:    photo.URL,
			DownloadURL:   photo.Src.Original,
			License:       "Pexels License",
			LicenseURL:    "https://www.pexels.com/license/",
			Creator:       photo.Photographer,
			CommercialUse: true,
			// Pexels moderates its library: no sexual content, no
			// editorial-only brand or celebrity imagery.
			Safety: domain.SafetyFlags{NoSexual: true, NoBrands: true, NoCeleb: true},
			Width:  photo.Width,
			Height: photo.Height,
			Provider: c.Name(),
		})
	}
	return candidates, nil
}
