package vendors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"mediacore/internal/domain"
	"mediacore/internal/extract"
	"mediacore/internal/infra"
)

// ChatStreamProfile describes an OpenAI-compatible chat-completions gateway
// that embeds generated media links in its message content.
type ChatStreamProfile struct {
	VendorKey string
	Path      string
	Model     func(req domain.TaskRequest) string
}

// ChatStreamVendor is the streaming chat-completion adapter strategy. It
// requests stream=true but buffers the entire response body before parsing;
// the last SSE frame is the authoritative payload. A single call is
// definitive, so there is no poll step: success means at least one asset
// was extracted.
type ChatStreamVendor struct {
	profile ChatStreamProfile
	client  *http.Client
	logger  infra.Logger
}

// NewChatStreamVendor builds the adapter for one gateway profile.
func NewChatStreamVendor(profile ChatStreamProfile, client *http.Client, logger infra.Logger) *ChatStreamVendor {
	if profile.Path == "" {
		profile.Path = "/chat/completions"
	}
	return &ChatStreamVendor{profile: profile, client: client, logger: logger}
}

func (a *ChatStreamVendor) Vendor() string { return a.profile.VendorKey }

func (a *ChatStreamVendor) Launch(ctx context.Context, vc domain.VendorContext, req domain.TaskRequest) (*domain.TaskResult, error) {
	refs, err := NormalizeReferences(req.ReferenceImages)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"model":    a.profile.Model(req),
		"stream":   true,
		"messages": chatMessages(req.Prompt, refs),
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%s: encode request: %w", a.profile.VendorKey, err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, vc.BaseURL+a.profile.Path, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", a.profile.VendorKey, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if vc.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+vc.APIKey)
	}

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, &domain.UpstreamRequestError{Vendor: a.profile.VendorKey, Err: err}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.UpstreamRequestError{Vendor: a.profile.VendorKey, Err: err}
	}
	if resp.StatusCode >= 300 {
		return nil, &domain.UpstreamRequestError{
			Vendor:     a.profile.VendorKey,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s", strings.TrimSpace(string(body))),
		}
	}

	frame := parseChatBody(string(body))
	if frame == nil {
		return nil, &domain.UpstreamProtocolError{Vendor: a.profile.VendorKey, Detail: "no parseable frame in response"}
	}

	assets := extractChatAssets(frame, req.Kind)
	result := &domain.TaskResult{
		ID:   uuid.NewString(),
		Kind: req.Kind,
		Raw:  frame,
	}
	if len(assets) == 0 {
		result.Status = domain.TaskStatusFailed
		result.Raw["error"] = "no media link in gateway response"
		return result, nil
	}
	result.Status = domain.TaskStatusSucceeded
	result.Assets = assets
	return result, nil
}

// parseChatBody handles both shapes gateways produce: a single JSON object
// or a concatenation of data: frames. The last decodable frame wins.
func parseChatBody(body string) map[string]any {
	trimmed := strings.TrimSpace(body)
	if strings.HasPrefix(trimmed, "{") {
		var single map[string]any
		if err := json.Unmarshal([]byte(trimmed), &single); err == nil {
			return single
		}
	}
	return extract.LastSSEFrame(body)
}

// extractChatAssets pulls media out of the frame's message content: image
// tasks look for markdown image links, video tasks for video links and
// embedded HTML tags, with structured fields as a fallback for both.
func extractChatAssets(frame map[string]any, kind domain.TaskKind) []domain.TaskAsset {
	content := chatContent(frame)
	var urls []string
	if kind.IsVideo() {
		urls = extract.HTMLMediaSrcs(content)
		for _, u := range extract.MarkdownLinks(content) {
			if extract.LooksLikeVideoURL(u) {
				urls = append(urls, u)
			}
		}
		urls = dedup(urls)
	} else {
		urls = extract.MarkdownImageLinks(content)
	}
	if len(urls) == 0 {
		urls = extract.URLs(frame)
	}

	assetType := domain.AssetTypeImage
	if kind.IsVideo() {
		assetType = domain.AssetTypeVideo
	}
	assets := make([]domain.TaskAsset, 0, len(urls))
	for _, u := range urls {
		assets = append(assets, domain.TaskAsset{Type: assetType, URL: u})
	}
	return assets
}

// chatContent digs the message text out of a chat-completion frame,
// accepting both message.content and streaming delta.content shapes.
func chatContent(frame map[string]any) string {
	choices, ok := frame["choices"].([]any)
	if !ok || len(choices) == 0 {
		return ""
	}
	choice, ok := choices[0].(map[string]any)
	if !ok {
		return ""
	}
	for _, field := range []string{"message", "delta"} {
		if msg, ok := choice[field].(map[string]any); ok {
			if content, ok := msg["content"].(string); ok {
				return content
			}
		}
	}
	return ""
}

func chatMessages(prompt string, refs []string) []map[string]any {
	if len(refs) == 0 {
		return []map[string]any{{"role": "user", "content": prompt}}
	}
	parts := []map[string]any{{"type": "text", "text": prompt}}
	for _, ref := range refs {
		parts = append(parts, map[string]any{
			"type":      "image_url",
			"image_url": map[string]any{"url": ref},
		})
	}
	return []map[string]any{{"role": "user", "content": parts}}
}

func dedup(urls []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, u := range urls {
		if !seen[u] {
			seen[u] = true
			out = append(out, u)
		}
	}
	return out
}

var _ Adapter = (*ChatStreamVendor)(nil)
