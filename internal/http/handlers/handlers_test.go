package handlers_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"mediacore/internal/domain"
	"mediacore/internal/hosting"
	"mediacore/internal/http/handlers"
	"mediacore/internal/http/httpapi"
	"mediacore/internal/orchestrator"
	"mediacore/internal/progress"
	"mediacore/internal/resolver"
	"mediacore/internal/vendors"
)

type credRepo struct {
	owned map[string][]domain.Credential
}

func (f *credRepo) ListProxies(ctx context.Context, callerID string) ([]domain.ProxyConfig, error) {
	return nil, nil
}

func (f *credRepo) ListOwned(ctx context.Context, callerID, vendor string) ([]domain.Credential, error) {
	return f.owned[vendor], nil
}

func (f *credRepo) ListShared(ctx context.Context, vendor string) ([]domain.Credential, error) {
	return nil, nil
}

func (f *credRepo) ProviderBaseURL(ctx context.Context, callerID, vendor string) (string, error) {
	return "", domain.ErrNotFound
}

func (f *credRepo) SharedBaseURL(ctx context.Context, vendor string) (string, error) {
	return "", domain.ErrNotFound
}

func (f *credRepo) DisableShared(ctx context.Context, credentialID string, until time.Time) error {
	return nil
}

type memKV struct {
	mu   sync.Mutex
	refs map[string]*domain.VendorTaskRef
	logs map[string]*domain.VendorCallLogEntry
	recs map[string]*domain.HostedAssetRecord
}

func newMemKV() *memKV {
	return &memKV{
		refs: map[string]*domain.VendorTaskRef{},
		logs: map[string]*domain.VendorCallLogEntry{},
		recs: map[string]*domain.HostedAssetRecord{},
	}
}

func (m *memKV) Upsert(ctx context.Context, ref *domain.VendorTaskRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refs[ref.CallerID+"|"+string(ref.Kind)+"|"+ref.TaskID] = ref
	return nil
}

func (m *memKV) Get(ctx context.Context, callerID string, kind domain.RefKind, taskID string) (*domain.VendorTaskRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ref, ok := m.refs[callerID+"|"+string(kind)+"|"+taskID]; ok {
		return ref, nil
	}
	return nil, domain.ErrNotFound
}

type memLog memKV

func (m *memLog) Upsert(ctx context.Context, entry *domain.VendorCallLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs[entry.CallerID+"|"+entry.Vendor+"|"+entry.TaskID] = entry
	return nil
}

func (m *memLog) Get(ctx context.Context, callerID, vendor, taskID string) (*domain.VendorCallLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.logs[callerID+"|"+vendor+"|"+taskID]; ok {
		return e, nil
	}
	return nil, domain.ErrNotFound
}

type memRecords memKV

func (m *memRecords) GetBySource(ctx context.Context, ownerID, sourceURL string) (*domain.HostedAssetRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.recs[ownerID+"|"+sourceURL]; ok {
		return r, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memRecords) Upsert(ctx context.Context, record *domain.HostedAssetRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs[record.OwnerID+"|"+record.SourceURL] = record
	return nil
}

type memStore struct{}

func (memStore) Put(ctx context.Context, key string, data []byte, contentType, cacheControl string) (string, error) {
	return "https://assets.test/" + key, nil
}

func (memStore) PublicURL(key string) string { return "https://assets.test/" + key }

type scripted map[string]string

func (s scripted) RoundTrip(r *http.Request) (*http.Response, error) {
	body, ok := s[r.URL.Path]
	if !ok {
		body = `{}`
	}
	contentType := "application/json"
	if strings.Contains(r.URL.Path, ".mp4") {
		contentType = "video/mp4"
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{contentType}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}, nil
}

func newTestServer(t *testing.T, responses scripted, creds *credRepo) (*httptest.Server, *progress.Bus) {
	t.Helper()
	logger := zerolog.Nop()
	client := &http.Client{Transport: responses}
	bus := progress.NewBus()
	kv := newMemKV()
	orch := orchestrator.New(orchestrator.Options{
		Resolver: resolver.New(creds, resolver.EnvCredentials{}, logger),
		Registry: vendors.BuildRegistry(client, logger),
		Hosting: hosting.New(hosting.Options{
			Store:   memStore{},
			Records: (*memRecords)(kv),
			Client:  client,
			Logger:  logger,
		}),
		Bus:    bus,
		Refs:   kv,
		Audit:  (*memLog)(kv),
		Logger: logger,
	})
	app := handlers.NewApp(orch, bus, logger, time.Minute)
	router := httpapi.NewRouter(app, httpapi.Options{Logger: logger})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, bus
}

func klingCreds() *credRepo {
	return &credRepo{owned: map[string][]domain.Credential{
		vendors.VendorKling: {{ID: "c1", Vendor: vendors.VendorKling, APIKey: "sk", Enabled: true}},
	}}
}

func post(t *testing.T, url, callerID, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if callerID != "" {
		req.Header.Set("X-Caller-ID", callerID)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestLaunchTaskEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, scripted{
		"/v1/videos/text2video": `{"data":{"task_id":"t1","task_status":"submitted"}}`,
	}, klingCreds())

	resp := post(t, srv.URL+"/v1/tasks", "caller-1",
		`{"vendor":"kling","kind":"text_to_video","prompt":"a fox"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `"t1"`) {
		t.Fatalf("body = %s", body)
	}
}

func TestLaunchTaskRequiresCallerIdentity(t *testing.T) {
	srv, _ := newTestServer(t, scripted{}, klingCreds())

	resp := post(t, srv.URL+"/v1/tasks", "",
		`{"vendor":"kling","kind":"text_to_video","prompt":"x"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestLaunchTaskUnconfiguredVendor(t *testing.T) {
	srv, _ := newTestServer(t, scripted{}, &credRepo{})

	resp := post(t, srv.URL+"/v1/tasks", "caller-1",
		`{"vendor":"vidu","kind":"text_to_video","prompt":"x"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "api_key_missing") {
		t.Fatalf("body = %s", body)
	}
}

func TestLaunchTaskRejectsBlobReference(t *testing.T) {
	srv, _ := newTestServer(t, scripted{}, klingCreds())

	resp := post(t, srv.URL+"/v1/tasks", "caller-1",
		`{"vendor":"kling","kind":"text_to_video","prompt":"x","referenceImages":["blob:https://app/x"]}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestPollTaskEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, scripted{
		"/v1/videos/text2video":    `{"data":{"task_id":"t1","task_status":"submitted"}}`,
		"/v1/videos/text2video/t1": `{"data":{"task_status":"succeed","task_result":{"videos":[{"url":"https://cdn.test/out.mp4"}]}}}`,
		"/out.mp4":                 `bytes`,
	}, klingCreds())

	resp := post(t, srv.URL+"/v1/tasks", "caller-1",
		`{"vendor":"kling","kind":"text_to_video","prompt":"a fox"}`)
	resp.Body.Close()

	resp = post(t, srv.URL+"/v1/tasks/t1/poll", "caller-1", `{"kind":"text_to_video"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "succeeded") || !strings.Contains(string(body), "https://assets.test/") {
		t.Fatalf("body = %s", body)
	}
}

func TestPendingEventsEndpoint(t *testing.T) {
	srv, bus := newTestServer(t, scripted{}, klingCreds())

	bus.Publish("caller-1", progress.Snapshot{Vendor: "kling", Status: domain.TaskStatusRunning, TaskID: "t9"})
	bus.Publish("caller-2", progress.Snapshot{Vendor: "vidu", Status: domain.TaskStatusRunning, TaskID: "zz"})

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/v1/events/pending?vendor=kling", nil)
	req.Header.Set("X-Caller-ID", "caller-1")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `"t9"`) {
		t.Fatalf("body = %s", body)
	}
	if strings.Contains(string(body), `"zz"`) {
		t.Fatalf("leaked another caller's event: %s", body)
	}
}
