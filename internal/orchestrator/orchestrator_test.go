package orchestrator

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"mediacore/internal/domain"
	"mediacore/internal/hosting"
	"mediacore/internal/progress"
	"mediacore/internal/resolver"
	"mediacore/internal/vendors"
)

type fakeCredRepo struct {
	proxies      []domain.ProxyConfig
	owned        map[string][]domain.Credential
	shared       map[string][]domain.Credential
	providerBase map[string]string
	sharedBase   map[string]string

	mu       sync.Mutex
	disabled map[string]time.Time
}

func (f *fakeCredRepo) ListProxies(ctx context.Context, callerID string) ([]domain.ProxyConfig, error) {
	return f.proxies, nil
}

func (f *fakeCredRepo) ListOwned(ctx context.Context, callerID, vendor string) ([]domain.Credential, error) {
	return f.owned[vendor], nil
}

func (f *fakeCredRepo) ListShared(ctx context.Context, vendor string) ([]domain.Credential, error) {
	return f.shared[vendor], nil
}

func (f *fakeCredRepo) ProviderBaseURL(ctx context.Context, callerID, vendor string) (string, error) {
	if u, ok := f.providerBase[vendor]; ok {
		return u, nil
	}
	return "", domain.ErrNotFound
}

func (f *fakeCredRepo) SharedBaseURL(ctx context.Context, vendor string) (string, error) {
	if u, ok := f.sharedBase[vendor]; ok {
		return u, nil
	}
	return "", domain.ErrNotFound
}

func (f *fakeCredRepo) DisableShared(ctx context.Context, credentialID string, until time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.disabled == nil {
		f.disabled = make(map[string]time.Time)
	}
	f.disabled[credentialID] = until
	return nil
}

type memRefs struct {
	mu   sync.Mutex
	refs map[string]*domain.VendorTaskRef
}

func newMemRefs() *memRefs { return &memRefs{refs: make(map[string]*domain.VendorTaskRef)} }

func refsKey(callerID string, kind domain.RefKind, taskID string) string {
	return callerID + "|" + string(kind) + "|" + taskID
}

func (m *memRefs) Upsert(ctx context.Context, ref *domain.VendorTaskRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refs[refsKey(ref.CallerID, ref.Kind, ref.TaskID)] = ref
	return nil
}

func (m *memRefs) Get(ctx context.Context, callerID string, kind domain.RefKind, taskID string) (*domain.VendorTaskRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ref, ok := m.refs[refsKey(callerID, kind, taskID)]; ok {
		return ref, nil
	}
	return nil, domain.ErrNotFound
}

type memAudit struct {
	mu      sync.Mutex
	entries map[string]*domain.VendorCallLogEntry
}

func newMemAudit() *memAudit { return &memAudit{entries: make(map[string]*domain.VendorCallLogEntry)} }

func (m *memAudit) Upsert(ctx context.Context, entry *domain.VendorCallLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.CallerID+"|"+entry.Vendor+"|"+entry.TaskID] = entry
	return nil
}

func (m *memAudit) Get(ctx context.Context, callerID, vendor, taskID string) (*domain.VendorCallLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[callerID+"|"+vendor+"|"+taskID]; ok {
		return e, nil
	}
	return nil, domain.ErrNotFound
}

type memAssetRecords struct {
	mu      sync.Mutex
	records map[string]*domain.HostedAssetRecord
}

func newMemAssetRecords() *memAssetRecords {
	return &memAssetRecords{records: make(map[string]*domain.HostedAssetRecord)}
}

func (m *memAssetRecords) GetBySource(ctx context.Context, ownerID, sourceURL string) (*domain.HostedAssetRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.records[ownerID+"|"+sourceURL]; ok {
		return r, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memAssetRecords) Upsert(ctx context.Context, record *domain.HostedAssetRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[record.OwnerID+"|"+record.SourceURL] = record
	return nil
}

type memStore struct{}

func (memStore) Put(ctx context.Context, key string, data []byte, contentType, cacheControl string) (string, error) {
	return "https://assets.test/" + key, nil
}

func (memStore) PublicURL(key string) string { return "https://assets.test/" + key }

type scriptedTransport struct {
	mu        sync.Mutex
	responses map[string]string
	calls     []string
}

func (t *scriptedTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	t.mu.Lock()
	t.calls = append(t.calls, r.URL.Path)
	body, ok := t.responses[r.URL.Path]
	t.mu.Unlock()
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

func newHarness(t *testing.T, creds *fakeCredRepo, transport http.RoundTripper) (*Orchestrator, *progress.Bus, *memRefs, *memAudit) {
	t.Helper()
	logger := zerolog.Nop()
	client := &http.Client{Transport: transport}
	bus := progress.NewBus()
	refs := newMemRefs()
	audit := newMemAudit()
	res := resolver.New(creds, resolver.EnvCredentials{}, logger)
	host := hosting.New(hosting.Options{
		Store:   memStore{},
		Records: newMemAssetRecords(),
		Client:  client,
		Logger:  logger,
	})
	orch := New(Options{
		Resolver: res,
		Registry: vendors.BuildRegistry(client, logger),
		Hosting:  host,
		Bus:      bus,
		Refs:     refs,
		Audit:    audit,
		Logger:   logger,
	})
	return orch, bus, refs, audit
}

func ownedCredRepo(vendor string) *fakeCredRepo {
	return &fakeCredRepo{
		owned: map[string][]domain.Credential{
			vendor: {{ID: "cred-1", Vendor: vendor, APIKey: "sk-own", Enabled: true}},
		},
	}
}

func TestLaunchThenPollVideoTask(t *testing.T) {
	transport := &scriptedTransport{responses: map[string]string{
		"/v1/videos/text2video":    `{"data":{"task_id":"t1","task_status":"submitted"}}`,
		"/v1/videos/text2video/t1": `{"data":{"task_status":"succeed","task_result":{"videos":[{"url":"https://cdn.kling.test/out.mp4"}]}}}`,
		"/out.mp4":                 `fakevideobytes`,
	}}
	creds := ownedCredRepo(vendors.VendorKling)
	orch, _, refs, audit := newHarness(t, creds, transport)
	ctx := context.Background()

	launched, err := orch.Launch(ctx, LaunchInput{
		CallerID: "caller-1",
		Vendor:   "keling",
		Request:  domain.TaskRequest{Kind: domain.TaskKindTextToVideo, Prompt: "a fox at dawn"},
	})
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if launched.ID != "t1" || launched.Status != domain.TaskStatusRunning {
		t.Fatalf("launched = %+v", launched)
	}

	ref, err := refs.Get(ctx, "caller-1", domain.RefKindVideo, "t1")
	if err != nil {
		t.Fatalf("ref not stored: %v", err)
	}
	if ref.Vendor != vendors.VendorKling {
		t.Fatalf("ref vendor = %q", ref.Vendor)
	}

	// Vendor omitted on poll; the ref store supplies it.
	polled, err := orch.Poll(ctx, PollInput{
		CallerID: "caller-1",
		TaskID:   "t1",
		Kind:     domain.TaskKindTextToVideo,
	})
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if polled.Status != domain.TaskStatusSucceeded {
		t.Fatalf("status = %q", polled.Status)
	}
	if len(polled.Assets) != 1 || !strings.HasPrefix(polled.Assets[0].URL, "https://assets.test/caller-1/") {
		t.Fatalf("assets = %+v", polled.Assets)
	}

	entry, err := audit.Get(ctx, "caller-1", vendors.VendorKling, "t1")
	if err != nil {
		t.Fatalf("audit entry missing: %v", err)
	}
	if entry.Status != domain.CallStatusSucceeded || entry.FinishedAt == nil {
		t.Fatalf("audit entry = %+v", entry)
	}
}

func TestLaunchPublishesProgressInOrder(t *testing.T) {
	transport := &scriptedTransport{responses: map[string]string{
		"/v1/videos/text2video": `{"data":{"task_id":"t2","task_status":"submitted"}}`,
	}}
	orch, bus, _, _ := newHarness(t, ownedCredRepo(vendors.VendorKling), transport)

	sub := bus.Subscribe("caller-1")
	defer bus.Unsubscribe(sub)

	_, err := orch.Launch(context.Background(), LaunchInput{
		CallerID: "caller-1",
		Vendor:   vendors.VendorKling,
		NodeID:   "node-7",
		Request:  domain.TaskRequest{Kind: domain.TaskKindTextToVideo, Prompt: "x"},
	})
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}

	want := []domain.TaskStatus{domain.TaskStatusQueued, domain.TaskStatusRunning, domain.TaskStatusRunning}
	for i, wantStatus := range want {
		select {
		case snap := <-sub.C:
			if snap.Status != wantStatus {
				t.Fatalf("event %d status = %q, want %q", i, snap.Status, wantStatus)
			}
			if snap.NodeID != "node-7" {
				t.Fatalf("event %d node = %q", i, snap.NodeID)
			}
		default:
			t.Fatalf("missing event %d", i)
		}
	}
}

func TestLaunchGatewayFallbackOnUnconfiguredVendor(t *testing.T) {
	transport := &scriptedTransport{responses: map[string]string{
		"/chat/completions": `{"choices":[{"message":{"content":"![img](https://cdn.gw.test/i.png)"}}]}`,
		"/i.png":            `fakepngbytes`,
	}}
	// Jimeng has neither provider config nor a default endpoint; the gateway
	// is fully configured.
	creds := &fakeCredRepo{
		owned: map[string][]domain.Credential{
			vendors.VendorGateway: {{ID: "cred-gw", Vendor: vendors.VendorGateway, APIKey: "sk-gw", Enabled: true}},
		},
		sharedBase: map[string]string{vendors.VendorGateway: "https://gw.test/v1"},
	}
	orch, _, _, _ := newHarness(t, creds, transport)

	result, err := orch.Launch(context.Background(), LaunchInput{
		CallerID: "caller-1",
		Vendor:   vendors.VendorJimeng,
		Request:  domain.TaskRequest{Kind: domain.TaskKindTextToVideo, Prompt: "x"},
	})
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if result.Status != domain.TaskStatusSucceeded && result.Status != domain.TaskStatusFailed {
		t.Fatalf("status = %q", result.Status)
	}
	if len(transport.calls) == 0 || transport.calls[0] != "/chat/completions" {
		t.Fatalf("calls = %v, want gateway chat completion first", transport.calls)
	}
}

func TestLaunchConfigurationErrorWithoutFallback(t *testing.T) {
	transport := &scriptedTransport{responses: map[string]string{}}
	orch, _, _, _ := newHarness(t, &fakeCredRepo{}, transport)

	_, err := orch.Launch(context.Background(), LaunchInput{
		CallerID: "caller-1",
		Vendor:   vendors.VendorVidu,
		Request:  domain.TaskRequest{Kind: domain.TaskKindTextToVideo, Prompt: "x"},
	})
	if !domain.IsConfigReason(err, domain.ReasonAPIKeyMissing) {
		t.Fatalf("err = %v, want api_key_missing", err)
	}
	if len(transport.calls) != 0 {
		t.Fatalf("made %d HTTP calls, want 0", len(transport.calls))
	}
}

func TestLaunchRejectsBlobReferenceBeforeVendorCall(t *testing.T) {
	transport := &scriptedTransport{responses: map[string]string{}}
	orch, _, _, _ := newHarness(t, ownedCredRepo(vendors.VendorKling), transport)

	_, err := orch.Launch(context.Background(), LaunchInput{
		CallerID: "caller-1",
		Vendor:   vendors.VendorKling,
		Request: domain.TaskRequest{
			Kind:            domain.TaskKindTextToVideo,
			Prompt:          "x",
			ReferenceImages: []string{"blob:https://app.test/ref"},
		},
	})
	var inputErr *domain.InvalidInputError
	if !errors.As(err, &inputErr) {
		t.Fatalf("err = %v, want InvalidInputError", err)
	}
	if len(transport.calls) != 0 {
		t.Fatalf("made %d HTTP calls, want 0", len(transport.calls))
	}
}

func TestPollSuccessWithoutAssetsStaysRunning(t *testing.T) {
	transport := &scriptedTransport{responses: map[string]string{
		"/v1/videos/text2video/t3": `{"data":{"task_status":"succeed"}}`,
	}}
	orch, _, _, _ := newHarness(t, ownedCredRepo(vendors.VendorKling), transport)

	result, err := orch.Poll(context.Background(), PollInput{
		CallerID: "caller-1",
		Vendor:   vendors.VendorKling,
		TaskID:   "t3",
		Kind:     domain.TaskKindTextToVideo,
	})
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if result.Status != domain.TaskStatusRunning {
		t.Fatalf("status = %q, want running", result.Status)
	}
}

func TestSharedCredentialPenalizedOnUpstreamFailure(t *testing.T) {
	transport := failingTransport{}
	creds := &fakeCredRepo{
		shared: map[string][]domain.Credential{
			vendors.VendorKling: {{ID: "pool-1", Vendor: vendors.VendorKling, APIKey: "sk-pool", Enabled: true, Shared: true}},
		},
	}
	orch, _, _, _ := newHarness(t, creds, transport)

	_, err := orch.Launch(context.Background(), LaunchInput{
		CallerID: "caller-1",
		Vendor:   vendors.VendorKling,
		Request:  domain.TaskRequest{Kind: domain.TaskKindTextToVideo, Prompt: "x"},
	})
	if err == nil {
		t.Fatal("expected launch error")
	}
	creds.mu.Lock()
	_, penalized := creds.disabled["pool-1"]
	creds.mu.Unlock()
	if !penalized {
		t.Fatal("shared credential was not placed in cooldown")
	}
}

type failingTransport struct{}

func (failingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	return nil, errors.New("connection reset")
}
