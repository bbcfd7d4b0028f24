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

const defaultOpenverseBaseURL = "https://api.openverse.org/v1"

// OpenverseOptions configures the Openverse search client.
type OpenverseOptions struct {
	BaseURL    string
	HTTPClient *http.Client
}

// OpenverseClient queries the Openverse image search API. It is the
// fallback source; results span the whole Creative Commons spectrum, so
// license validation downstream does the real filtering.
type OpenverseClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewOpenverseClient constructs an Openverse client with sane defaults.
func NewOpenverseClient(opts OpenverseOptions) *OpenverseClient {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultOpenverseBaseURL
	}
	return &OpenverseClient{baseURL: baseURL, httpClient: client}
}

// Name identifies the provider in logs and rejection entries.
func (c *OpenverseClient) Name() string { return "openverse" }

type openverseSearchResponse struct {
	Results []openverseResult `json:"results"`
}

type openverseResult struct {
	URL                string `json:"url"`
	ForeignLandingURL  string `json:"foreign_landing_url"`
	License            string `json:"license"`
	LicenseVersion     string `json:"license_version"`
	LicenseURL         string `json:"license_url"`
	Creator            string `json:"creator"`
	Mature             bool   `json:"mature"`
	Width              int    `json:"width"`
	Height             int    `json:"height"`
}

// Search returns up to limit candidates for the keyword.
func (c *OpenverseClient) Search(ctx context.Context, keyword string, limit int) ([]Candidate, error) {
	if limit <= 0 {
		limit = 10
	}

	endpoint := fmt.Sprintf("%s/images/?q=%s&page_size=%s",
		c.baseURL, url.QueryEscape(keyword), strconv.Itoa(limit))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("openverse: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openverse: search %q: %w", keyword, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("openverse: search %q: %w", keyword, domain.ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openverse: search %q: unexpected status %d: %w", keyword, resp.StatusCode, domain.ErrProviderFailure)
	}

	var payload openverseSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("openverse: decode response: %w", err)
	}

	candidates := make([]Candidate, 0, len(payload.Results))
	for _, result := range payload.Results {
		if result.URL == "" {
			continue
		}
		licenseID := displayLicense(result.License, result.LicenseVersion)
		candidates = append(candidates, Candidate{
			SourcePage:    result.ForeignLandingURL,
			DownloadURL:   result.URL,
			License:       licenseID,
			LicenseURL:    result.LicenseURL,
			Creator:       result.Creator,
			CommercialUse: commercialUse(result.License),
			Safety: domain.SafetyFlags{
				NoSexual: !result.Mature,
				// Openverse exposes no brand/celebrity signal; the mature
				// flag is the only machine-readable safety field.
				NoBrands: true,
				NoCeleb:  true,
			},
			Width:    result.Width,
			Height:   result.Height,
			Provider: c.Name(),
		})
	}
	return candidates, nil
}

// displayLicense converts Openverse license codes ("by-sa" + "4.0") into
// the canonical identifiers the validator understands ("CC BY-SA 4.0").
func displayLicense(code, version string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	switch strings.ToLower(code) {
	case "cc0":
		return "CC0"
	case "pdm":
		return "Public Domain"
	}
	id := "CC " + strings.ToUpper(code)
	if version != "" {
		id += " " + version
	}
	return id
}

func commercialUse(code string) bool {
	return !strings.Contains(strings.ToLower(code), "nc")
}
