package vendors

import "mediacore/internal/domain"

// GatewayProfile is the chat-stream profile for OpenAI-compatible media
// gateways that return generated links inside chat-completion content. It
// also backs the one-shot fallback for vendor families whose direct API is
// unconfigured.
func GatewayProfile() ChatStreamProfile {
	return ChatStreamProfile{
		VendorKey: VendorGateway,
		Model: func(req domain.TaskRequest) string {
			if model := req.Extra("model"); model != "" {
				return model
			}
			if req.Kind.IsVideo() {
				return "jimeng-video-3.0"
			}
			return "jimeng-4.0"
		},
	}
}
