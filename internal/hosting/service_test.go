package hosting

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"mediacore/internal/domain"
)

type memStore struct {
	mu   sync.Mutex
	puts map[string][]byte
}

func newMemStore() *memStore { return &memStore{puts: map[string][]byte{}} }

func (m *memStore) Put(ctx context.Context, key string, data []byte, contentType, cacheControl string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts[key] = data
	return m.PublicURL(key), nil
}

func (m *memStore) PublicURL(key string) string {
	return "https://cdn.test/" + key
}

type memRecords struct {
	records map[string]*domain.HostedAssetRecord
	fail    bool
}

func newMemRecords() *memRecords { return &memRecords{records: map[string]*domain.HostedAssetRecord{}} }

func (m *memRecords) GetBySource(ctx context.Context, ownerID, sourceURL string) (*domain.HostedAssetRecord, error) {
	if rec, ok := m.records[ownerID+"|"+sourceURL]; ok {
		copied := *rec
		return &copied, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memRecords) Upsert(ctx context.Context, record *domain.HostedAssetRecord) error {
	if m.fail {
		return fmt.Errorf("records unavailable")
	}
	copied := *record
	m.records[record.OwnerID+"|"+record.SourceURL] = &copied
	return nil
}

type countingTransport struct {
	mu       sync.Mutex
	requests map[string]int
	status   map[string]int
}

func newCountingTransport() *countingTransport {
	return &countingTransport{requests: map[string]int{}, status: map[string]int{}}
}

func (c *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c.mu.Lock()
	c.requests[req.URL.String()]++
	status := c.status[req.URL.String()]
	c.mu.Unlock()
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"image/png"}},
		Body:       io.NopCloser(strings.NewReader("pngbytes")),
	}, nil
}

func (c *countingTransport) count(url string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requests[url]
}

func newTestService(store *memStore, records *memRecords, transport http.RoundTripper) *Service {
	return New(Options{
		Store:   store,
		Records: records,
		Client:  &http.Client{Transport: transport},
		Logger:  zerolog.New(io.Discard),
	})
}

func TestHostRehostsAndDedups(t *testing.T) {
	store := newMemStore()
	records := newMemRecords()
	transport := newCountingTransport()
	svc := newTestService(store, records, transport)

	src := "https://vendor.example/out/1.png"
	assets := []domain.TaskAsset{{Type: domain.AssetTypeImage, URL: src}}

	first, err := svc.Host(context.Background(), "owner-1", assets, Meta{Vendor: "kling", Prompt: "a red fox"})
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	if !strings.HasPrefix(first[0].URL, "https://cdn.test/owner-1/") {
		t.Fatalf("url = %q, want rehosted", first[0].URL)
	}
	if !strings.HasSuffix(first[0].URL, ".png") {
		t.Fatalf("url = %q, want png extension from content type", first[0].URL)
	}

	second, err := svc.Host(context.Background(), "owner-1", assets, Meta{Vendor: "kling"})
	if err != nil {
		t.Fatalf("host again: %v", err)
	}
	if second[0].URL != first[0].URL {
		t.Fatalf("second host url %q != first %q", second[0].URL, first[0].URL)
	}
	if got := transport.count(src); got != 1 {
		t.Fatalf("downloads = %d, want 1 (dedup must skip re-download)", got)
	}
}

func TestHostFailureKeepsOriginalURLAndSiblings(t *testing.T) {
	store := newMemStore()
	records := newMemRecords()
	transport := newCountingTransport()
	transport.status["https://vendor.example/bad.png"] = http.StatusForbidden
	svc := newTestService(store, records, transport)

	assets := []domain.TaskAsset{
		{Type: domain.AssetTypeImage, URL: "https://vendor.example/bad.png"},
		{Type: domain.AssetTypeImage, URL: "https://vendor.example/good.png"},
	}
	out, err := svc.Host(context.Background(), "owner-1", assets, Meta{})
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	if out[0].URL != "https://vendor.example/bad.png" {
		t.Fatalf("failed asset url = %q, want original", out[0].URL)
	}
	if !strings.HasPrefix(out[1].URL, "https://cdn.test/") {
		t.Fatalf("sibling url = %q, want rehosted despite failure", out[1].URL)
	}
}

func TestHostThumbnailIndependently(t *testing.T) {
	store := newMemStore()
	records := newMemRecords()
	transport := newCountingTransport()
	svc := newTestService(store, records, transport)

	assets := []domain.TaskAsset{{
		Type:         domain.AssetTypeVideo,
		URL:          "https://vendor.example/v.mp4",
		ThumbnailURL: "https://vendor.example/v_thumb.jpg",
	}}
	out, err := svc.Host(context.Background(), "owner-1", assets, Meta{})
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	if !strings.HasPrefix(out[0].URL, "https://cdn.test/") || !strings.HasPrefix(out[0].ThumbnailURL, "https://cdn.test/") {
		t.Fatalf("expected both urls rehosted: %+v", out[0])
	}
	if out[0].URL == out[0].ThumbnailURL {
		t.Fatalf("thumbnail must be stored separately")
	}
}

func TestHostRecordFailureNonFatal(t *testing.T) {
	store := newMemStore()
	records := newMemRecords()
	records.fail = true
	transport := newCountingTransport()
	svc := newTestService(store, records, transport)

	out, err := svc.Host(context.Background(), "owner-1", []domain.TaskAsset{{Type: domain.AssetTypeImage, URL: "https://vendor.example/a.png"}}, Meta{})
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	if !strings.HasPrefix(out[0].URL, "https://cdn.test/") {
		t.Fatalf("upload succeeded, result must carry hosted url: %q", out[0].URL)
	}
}

func TestHostStorageNotConfigured(t *testing.T) {
	svc := New(Options{Records: newMemRecords(), Logger: zerolog.New(io.Discard)})
	_, err := svc.Host(context.Background(), "owner-1", []domain.TaskAsset{{URL: "https://v/a.png"}}, Meta{})
	if err != domain.ErrStorageNotConfigured {
		t.Fatalf("err = %v, want ErrStorageNotConfigured", err)
	}
}

func TestHostDataURL(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, newMemRecords(), newCountingTransport())
	out, err := svc.Host(context.Background(), "owner-1", []domain.TaskAsset{{
		Type: domain.AssetTypeImage,
		URL:  "data:image/png;base64,aGVsbG8=",
	}}, Meta{})
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	if !strings.HasPrefix(out[0].URL, "https://cdn.test/") {
		t.Fatalf("data url should be uploaded, got %q", out[0].URL)
	}
}
