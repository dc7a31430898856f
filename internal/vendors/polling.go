package vendors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"mediacore/internal/domain"
	"mediacore/internal/extract"
	"mediacore/internal/infra"
)

// PollingProfile describes one create-then-poll vendor: where to launch,
// where to poll, how to authenticate, and how its status vocabulary maps
// onto the canonical one.
type PollingProfile struct {
	VendorKey    string
	LaunchPath   func(req domain.TaskRequest) string
	BuildPayload func(ctx context.Context, client *http.Client, req domain.TaskRequest) (map[string]any, error)
	Auth         func(vc domain.VendorContext, header http.Header)

	// Extra headers sent on launch only (e.g. async-mode switches).
	LaunchHeaders map[string]string

	PollPath   func(taskID string) string
	PollMethod string
	PollBody   func(taskID string) map[string]any

	TaskIDPaths []string
	StatusPaths []string
	ErrorPaths  []string
	CoverPaths  []string
	Statuses    StatusTable
}

// PollingVendor is the create-then-poll adapter strategy, parameterized by
// a profile.
type PollingVendor struct {
	profile PollingProfile
	client  *http.Client
	logger  infra.Logger
}

// NewPollingVendor builds the adapter for one polling profile.
func NewPollingVendor(profile PollingProfile, client *http.Client, logger infra.Logger) *PollingVendor {
	if profile.PollMethod == "" {
		profile.PollMethod = http.MethodGet
	}
	return &PollingVendor{profile: profile, client: client, logger: logger}
}

func (a *PollingVendor) Vendor() string { return a.profile.VendorKey }

// Launch creates the vendor task and returns a running result carrying the
// vendor task id. Failures here surface as errors: no task identity exists
// yet for the caller to poll.
func (a *PollingVendor) Launch(ctx context.Context, vc domain.VendorContext, req domain.TaskRequest) (*domain.TaskResult, error) {
	refs, err := NormalizeReferences(req.ReferenceImages)
	if err != nil {
		return nil, err
	}
	req.ReferenceImages = refs

	payload, err := a.profile.BuildPayload(ctx, a.client, req)
	if err != nil {
		return nil, err
	}
	decoded, err := a.call(ctx, vc, http.MethodPost, a.profile.LaunchPath(req), payload, a.profile.LaunchHeaders)
	if err != nil {
		return nil, err
	}

	taskID := lookupString(decoded, a.profile.TaskIDPaths...)
	if taskID == "" {
		detail := lookupString(decoded, a.profile.ErrorPaths...)
		if detail == "" {
			detail = "response carried no task id"
		}
		return nil, &domain.UpstreamProtocolError{Vendor: a.profile.VendorKey, Detail: detail}
	}
	a.logger.Debug().Str("vendor", a.profile.VendorKey).Str("task_id", taskID).Msg("task launched")
	return &domain.TaskResult{
		ID:     taskID,
		Kind:   req.Kind,
		Status: domain.TaskStatusRunning,
		Raw:    decoded,
	}, nil
}

// Poll maps the vendor's status vocabulary onto the canonical enum and, on
// success, locates output URLs. A "success" status with no extractable URL
// stays running: some vendors publish the URL on a later poll.
func (a *PollingVendor) Poll(ctx context.Context, vc domain.VendorContext, taskID string, kind domain.TaskKind) (*domain.TaskResult, error) {
	var body map[string]any
	if a.profile.PollBody != nil {
		body = a.profile.PollBody(taskID)
	}
	decoded, err := a.call(ctx, vc, a.profile.PollMethod, a.profile.PollPath(taskID), body, nil)
	if err != nil {
		return nil, err
	}

	result := &domain.TaskResult{ID: taskID, Kind: kind, Raw: decoded}
	switch a.profile.Statuses.Map(lookupField(decoded, a.profile.StatusPaths...)) {
	case domain.TaskStatusFailed:
		result.Status = domain.TaskStatusFailed
		if msg := lookupString(decoded, a.profile.ErrorPaths...); msg != "" {
			result.Raw["error"] = msg
		}
	case domain.TaskStatusSucceeded:
		assets := a.locateAssets(decoded, kind)
		if len(assets) == 0 {
			result.Status = domain.TaskStatusRunning
			break
		}
		result.Status = domain.TaskStatusSucceeded
		result.Assets = assets
	default:
		result.Status = domain.TaskStatusRunning
	}
	return result, nil
}

func (a *PollingVendor) locateAssets(decoded map[string]any, kind domain.TaskKind) []domain.TaskAsset {
	urls := extract.URLs(decoded)
	assetType := domain.AssetTypeImage
	if kind.IsVideo() {
		assetType = domain.AssetTypeVideo
		if filtered := filterVideoURLs(urls); len(filtered) > 0 {
			urls = filtered
		}
	}
	cover := lookupString(decoded, a.profile.CoverPaths...)
	assets := make([]domain.TaskAsset, 0, len(urls))
	for _, u := range urls {
		if u == cover {
			continue
		}
		assets = append(assets, domain.TaskAsset{Type: assetType, URL: u})
	}
	if cover != "" && len(assets) > 0 {
		assets[0].ThumbnailURL = cover
	}
	return assets
}

func filterVideoURLs(urls []string) []string {
	var out []string
	for _, u := range urls {
		if extract.LooksLikeVideoURL(u) {
			out = append(out, u)
		}
	}
	return out
}

func (a *PollingVendor) call(ctx context.Context, vc domain.VendorContext, method, path string, payload map[string]any, headers map[string]string) (map[string]any, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%s: encode request: %w", a.profile.VendorKey, err)
		}
		body = bytes.NewReader(raw)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, vc.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", a.profile.VendorKey, err)
	}
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if a.profile.Auth != nil {
		a.profile.Auth(vc, httpReq.Header)
	} else if vc.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+vc.APIKey)
	}
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, &domain.UpstreamRequestError{Vendor: a.profile.VendorKey, Err: err}
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.UpstreamRequestError{Vendor: a.profile.VendorKey, Err: err}
	}
	if resp.StatusCode >= 300 {
		return nil, &domain.UpstreamRequestError{
			Vendor:     a.profile.VendorKey,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s", strings.TrimSpace(string(raw))),
		}
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, &domain.UpstreamProtocolError{Vendor: a.profile.VendorKey, Detail: "undecodable response body"}
	}
	return decoded, nil
}

var (
	_ Adapter = (*PollingVendor)(nil)
	_ Poller  = (*PollingVendor)(nil)
)
