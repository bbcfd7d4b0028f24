package curation

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"framd/server/internal/domain"
	"framd/server/internal/providers/stock"
)

type fakeSearcher struct {
	name       string
	candidates []stock.Candidate
	err        error
	calls      int
}

func (f *fakeSearcher) Name() string { return f.name }

func (f *fakeSearcher) Search(context.Context, string, int) ([]stock.Candidate, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.candidates, nil
}

type fakeRejectionLog struct {
	mu      sync.Mutex
	entries []domain.RejectionLogEntry
}

func (f *fakeRejectionLog) Append(_ context.Context, entry domain.RejectionLogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeRejectionLog) ListRecent(context.Context, string, int) ([]domain.RejectionLogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.RejectionLogEntry(nil), f.entries...), nil
}

func safeCandidate(url, licenseID string) stock.Candidate {
	return stock.Candidate{
		SourcePage:    url + "/page",
		DownloadURL:   url,
		License:       licenseID,
		Creator:       "Test Creator",
		CommercialUse: true,
		Safety:        domain.SafetyFlags{NoSexual: true, NoBrands: true, NoCeleb: true},
		Provider:      "pexels",
	}
}

func TestIngestSunsetScenario(t *testing.T) {
	// Primary returns 6 candidates: 2 hard-excluded (CC BY-NC), 4 CC0.
	primary := &fakeSearcher{name: "pexels", candidates: []stock.Candidate{
		safeCandidate("https://example.org/1.jpg", "CC BY-NC"),
		safeCandidate("https://example.org/2.jpg", "CC0"),
		safeCandidate("https://example.org/3.jpg", "CC0"),
		safeCandidate("https://example.org/4.jpg", "CC BY-NC"),
		safeCandidate("https://example.org/5.jpg", "CC0"),
		safeCandidate("https://example.org/6.jpg", "CC0"),
	}}
	rejections := &fakeRejectionLog{}
	cache := NewCache(nil, testLogger())
	svc := NewService(cache, rejections, []stock.Searcher{primary}, testLogger())

	records, err := svc.Ingest(context.Background(), "sunset", 4)
	require.NoError(t, err)
	require.Len(t, records, 4)
	for _, rec := range records {
		assert.Equal(t, "CC0", rec.License)
	}

	require.Len(t, rejections.entries, 2)
	for _, entry := range rejections.entries {
		assert.Equal(t, "hard_excluded", entry.Reason)
		assert.Equal(t, "sunset", entry.Keyword)
		assert.False(t, entry.At.IsZero())
	}
}

func TestIngestIsCacheFirst(t *testing.T) {
	primary := &fakeSearcher{name: "pexels"}
	cache := NewCache(nil, testLogger())
	ctx := context.Background()
	cache.Insert(ctx, "sunset", record("https://example.org/a.jpg"))
	cache.Insert(ctx, "sunset", record("https://example.org/b.jpg"))

	svc := NewService(cache, &fakeRejectionLog{}, []stock.Searcher{primary}, testLogger())
	records, err := svc.Ingest(ctx, "sunset", 2)
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Zero(t, primary.calls, "cache hit must not query providers")
}

func TestIngestFallsBackWhenPrimaryFails(t *testing.T) {
	primary := &fakeSearcher{name: "pexels", err: fmt.Errorf("upstream down")}
	fallback := &fakeSearcher{name: "openverse", candidates: []stock.Candidate{
		safeCandidate("https://example.org/f.jpg", "CC BY 4.0"),
	}}
	svc := NewService(NewCache(nil, testLogger()), &fakeRejectionLog{},
		[]stock.Searcher{primary, fallback}, testLogger())

	records, err := svc.Ingest(context.Background(), "beach", 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "https://example.org/f.jpg", records[0].DownloadURL)
	assert.Equal(t, 1, primary.calls)
}

func TestIngestDegradedResultWhenSourcesExhausted(t *testing.T) {
	primary := &fakeSearcher{name: "pexels", candidates: []stock.Candidate{
		safeCandidate("https://example.org/only.jpg", "CC0"),
	}}
	svc := NewService(NewCache(nil, testLogger()), &fakeRejectionLog{},
		[]stock.Searcher{primary}, testLogger())

	records, err := svc.Ingest(context.Background(), "rare keyword", 5)
	require.NoError(t, err)
	assert.Len(t, records, 1, "fewer results than requested is not an error")
}

func TestIngestNeverCachesUnsafeOrUnlicensed(t *testing.T) {
	unsafe := safeCandidate("https://example.org/unsafe.jpg", "CC0")
	unsafe.Safety.NoSexual = false
	primary := &fakeSearcher{name: "pexels", candidates: []stock.Candidate{
		unsafe,
		safeCandidate("https://example.org/unlisted.jpg", "All Rights Reserved"),
		safeCandidate("https://example.org/good.jpg", "CC BY-SA 4.0"),
	}}
	rejections := &fakeRejectionLog{}
	cache := NewCache(nil, testLogger())
	svc := NewService(cache, rejections, []stock.Searcher{primary}, testLogger())

	records, err := svc.Ingest(context.Background(), "city", 3)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "https://example.org/good.jpg", records[0].DownloadURL)

	cached := cache.Lookup(context.Background(), "city")
	require.Len(t, cached, 1)
	assert.True(t, cached[0].Safety.AllClear())

	require.Len(t, rejections.entries, 2)
	assert.Equal(t, "unsafe_content", rejections.entries[0].Reason)
	assert.Equal(t, "not_whitelisted", rejections.entries[1].Reason)
}

func TestIngestAttributionAndKeywords(t *testing.T) {
	primary := &fakeSearcher{name: "pexels", candidates: []stock.Candidate{
		safeCandidate("https://example.org/a.jpg", "Pexels License"),
	}}
	svc := NewService(NewCache(nil, testLogger()), &fakeRejectionLog{},
		[]stock.Searcher{primary}, testLogger())

	records, err := svc.Ingest(context.Background(), "  Golden Hour ", 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, []string{"golden hour"}, records[0].Keywords)
	assert.Equal(t, "Test Creator / Pexels (Pexels License)", records[0].Attribution)
}
