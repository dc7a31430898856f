package vendors

import (
	"context"
	"net/http"

	"mediacore/internal/domain"
)

// WanVideoProfile is the create-then-poll profile for Wan video models on
// the DashScope aggregation endpoint. Launch must opt into async mode via a
// header; polling is a shared tasks endpoint.
func WanVideoProfile() PollingProfile {
	return PollingProfile{
		VendorKey: VendorWan,
		LaunchPath: func(req domain.TaskRequest) string {
			return "/services/aigc/video-generation/video-synthesis"
		},
		BuildPayload: func(ctx context.Context, client *http.Client, req domain.TaskRequest) (map[string]any, error) {
			input := map[string]any{"prompt": req.Prompt}
			model := modelOrDefault(req, wanVideoModels, "wan2.2-t2v-plus")
			if len(req.ReferenceImages) > 0 {
				input["img_url"] = req.ReferenceImages[0]
				if req.Extra("model") == "" {
					model = "wan2.2-i2v-plus"
				}
			}
			parameters := map[string]any{"size": sizeString(req.Width, req.Height, 1280)}
			if req.DurationSeconds > 0 {
				parameters["duration"] = req.DurationSeconds
			}
			return map[string]any{
				"model":      model,
				"input":      input,
				"parameters": parameters,
			}, nil
		},
		LaunchHeaders: map[string]string{"X-DashScope-Async": "enable"},
		PollPath: func(taskID string) string {
			return "/tasks/" + taskID
		},
		TaskIDPaths: []string{"output.task_id"},
		StatusPaths: []string{"output.task_status"},
		ErrorPaths:  []string{"output.message", "message"},
		Statuses:    wanStatuses,
	}
}

// WanImageProfile reuses the DashScope envelope for text-to-image.
func WanImageProfile() PollingProfile {
	profile := WanVideoProfile()
	profile.LaunchPath = func(req domain.TaskRequest) string {
		return "/services/aigc/text2image/image-synthesis"
	}
	profile.BuildPayload = func(ctx context.Context, client *http.Client, req domain.TaskRequest) (map[string]any, error) {
		return map[string]any{
			"model": modelOrDefault(req, wanImageModels, "wan2.2-t2i-flash"),
			"input": map[string]any{"prompt": req.Prompt},
			"parameters": map[string]any{
				"size": sizeString(req.Width, req.Height, 1024),
				"n":    1,
			},
		}, nil
	}
	return profile
}

var wanStatuses = StatusTable{
	"pending":   domain.TaskStatusQueued,
	"running":   domain.TaskStatusRunning,
	"suspended": domain.TaskStatusRunning,
	"succeeded": domain.TaskStatusSucceeded,
	"failed":    domain.TaskStatusFailed,
	"canceled":  domain.TaskStatusFailed,
}
