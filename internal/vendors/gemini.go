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
	"mediacore/internal/infra"
)

const defaultGeminiImageModel = "gemini-2.0-flash-exp-image-generation"

// GeminiVendor is a synchronous request/response adapter for the Gemini
// generateContent API: one POST, the image comes back inline as base64.
type GeminiVendor struct {
	client *http.Client
	logger infra.Logger
}

func NewGeminiVendor(client *http.Client, logger infra.Logger) *GeminiVendor {
	return &GeminiVendor{client: client, logger: logger}
}

func (a *GeminiVendor) Vendor() string { return VendorGemini }

func (a *GeminiVendor) Launch(ctx context.Context, vc domain.VendorContext, req domain.TaskRequest) (*domain.TaskResult, error) {
	refs, err := NormalizeReferences(req.ReferenceImages)
	if err != nil {
		return nil, err
	}

	parts := []map[string]any{{"text": req.Prompt}}
	for _, ref := range refs {
		inlined, err := InlineReference(ctx, a.client, ref)
		if err != nil {
			return nil, err
		}
		mime, data := splitDataURL(inlined)
		parts = append(parts, map[string]any{
			"inline_data": map[string]any{"mime_type": mime, "data": data},
		})
	}

	model := req.Extra("model")
	if model == "" {
		model = defaultGeminiImageModel
	}
	payload := map[string]any{
		"contents":         []map[string]any{{"parts": parts}},
		"generationConfig": map[string]any{"responseModalities": []string{"TEXT", "IMAGE"}},
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("gemini: encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", vc.BaseURL, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("gemini: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", vc.APIKey)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, &domain.UpstreamRequestError{Vendor: VendorGemini, Err: err}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.UpstreamRequestError{Vendor: VendorGemini, Err: err}
	}
	if resp.StatusCode >= 300 {
		return nil, &domain.UpstreamRequestError{
			Vendor:     VendorGemini,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s", strings.TrimSpace(string(body))),
		}
	}

	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, &domain.UpstreamProtocolError{Vendor: VendorGemini, Detail: "undecodable response body"}
	}

	assets := geminiAssets(decoded)
	if len(assets) == 0 {
		return nil, &domain.UpstreamProtocolError{Vendor: VendorGemini, Detail: "no image in response"}
	}
	return &domain.TaskResult{
		ID:     uuid.NewString(),
		Kind:   req.Kind,
		Status: domain.TaskStatusSucceeded,
		Assets: assets,
		Raw:    map[string]any{"model": model},
	}, nil
}

// geminiAssets walks candidates[].content.parts[].inlineData and converts
// each inline image into a data URL asset.
func geminiAssets(decoded map[string]any) []domain.TaskAsset {
	candidates, _ := decoded["candidates"].([]any)
	var assets []domain.TaskAsset
	for _, c := range candidates {
		candidate, ok := c.(map[string]any)
		if !ok {
			continue
		}
		content, ok := candidate["content"].(map[string]any)
		if !ok {
			continue
		}
		parts, _ := content["parts"].([]any)
		for _, p := range parts {
			part, ok := p.(map[string]any)
			if !ok {
				continue
			}
			inline, ok := part["inlineData"].(map[string]any)
			if !ok {
				if inline, ok = part["inline_data"].(map[string]any); !ok {
					continue
				}
			}
			data, _ := inline["data"].(string)
			if data == "" {
				continue
			}
			mime, _ := inline["mimeType"].(string)
			if mime == "" {
				mime, _ = inline["mime_type"].(string)
			}
			if mime == "" {
				mime = "image/png"
			}
			assets = append(assets, domain.TaskAsset{
				Type: domain.AssetTypeImage,
				URL:  "data:" + mime + ";base64," + data,
			})
		}
	}
	return assets
}

func splitDataURL(u string) (mime, data string) {
	rest := strings.TrimPrefix(u, "data:")
	comma := strings.Index(rest, ",")
	if comma < 0 {
		return "image/png", rest
	}
	header := rest[:comma]
	mime = header
	if i := strings.Index(header, ";"); i >= 0 {
		mime = header[:i]
	}
	if mime == "" {
		mime = "image/png"
	}
	return mime, rest[comma+1:]
}

var _ Adapter = (*GeminiVendor)(nil)
