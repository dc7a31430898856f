package vendors

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"

	"mediacore/internal/domain"
	"mediacore/internal/infra"
)

// SyncChatVendor is the synchronous request/response strategy for text
// kinds (chat, prompt refinement, image-to-prompt). One call, no polling,
// no streaming; success is determined by HTTP status plus the vendor error
// envelope, which the SDK surfaces as an error.
type SyncChatVendor struct {
	vendorKey    string
	defaultModel string
	client       *http.Client
	logger       infra.Logger
}

// NewSyncChatVendor builds the adapter for one OpenAI-compatible vendor.
func NewSyncChatVendor(vendorKey, defaultModel string, client *http.Client, logger infra.Logger) *SyncChatVendor {
	return &SyncChatVendor{vendorKey: vendorKey, defaultModel: defaultModel, client: client, logger: logger}
}

func (a *SyncChatVendor) Vendor() string { return a.vendorKey }

func (a *SyncChatVendor) Launch(ctx context.Context, vc domain.VendorContext, req domain.TaskRequest) (*domain.TaskResult, error) {
	refs, err := NormalizeReferences(req.ReferenceImages)
	if err != nil {
		return nil, err
	}

	cfg := openai.DefaultConfig(vc.APIKey)
	cfg.BaseURL = vc.BaseURL
	cfg.HTTPClient = a.client
	client := openai.NewClientWithConfig(cfg)

	model := req.Extra("model")
	if model == "" {
		model = a.defaultModel
	}

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    model,
		Messages: a.buildMessages(req, refs),
	})
	if err != nil {
		return nil, &domain.UpstreamRequestError{Vendor: a.vendorKey, Err: err}
	}
	if len(resp.Choices) == 0 {
		return nil, &domain.UpstreamProtocolError{Vendor: a.vendorKey, Detail: "empty choices"}
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return nil, &domain.UpstreamProtocolError{Vendor: a.vendorKey, Detail: "empty completion"}
	}

	return &domain.TaskResult{
		ID:     uuid.NewString(),
		Kind:   req.Kind,
		Status: domain.TaskStatusSucceeded,
		Raw:    map[string]any{"text": text, "model": resp.Model, "id": resp.ID},
	}, nil
}

func (a *SyncChatVendor) buildMessages(req domain.TaskRequest, refs []string) []openai.ChatCompletionMessage {
	var system string
	switch req.Kind {
	case domain.TaskKindPromptRefine:
		system = "Rewrite the user's prompt into a detailed, production-quality generation prompt. Reply with the prompt only."
	case domain.TaskKindImageToPrompt:
		system = "Describe the attached image as a generation prompt that would reproduce it. Reply with the prompt only."
	}

	var messages []openai.ChatCompletionMessage
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	if len(refs) == 0 {
		return append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})
	}
	parts := []openai.ChatMessagePart{{Type: openai.ChatMessagePartTypeText, Text: req.Prompt}}
	for _, ref := range refs {
		parts = append(parts, openai.ChatMessagePart{
			Type:     openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{URL: ref},
		})
	}
	return append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, MultiContent: parts})
}

var _ Adapter = (*SyncChatVendor)(nil)
