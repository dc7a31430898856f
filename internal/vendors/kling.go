package vendors

import (
	"context"
	"net/http"
	"strconv"

	"mediacore/internal/domain"
)

// KlingVideoProfile is the create-then-poll profile for Kling's video API.
// Text-to-video and image-to-video share the status vocabulary but launch
// at different paths.
func KlingVideoProfile() PollingProfile {
	return PollingProfile{
		VendorKey: VendorKling,
		LaunchPath: func(req domain.TaskRequest) string {
			if len(req.ReferenceImages) > 0 {
				return "/v1/videos/image2video"
			}
			return "/v1/videos/text2video"
		},
		BuildPayload: func(ctx context.Context, client *http.Client, req domain.TaskRequest) (map[string]any, error) {
			payload := map[string]any{
				"model_name":   modelOrDefault(req, klingVideoModels, "kling-v1-6"),
				"prompt":       req.Prompt,
				"duration":     strconv.Itoa(snapDuration(req.DurationSeconds, klingDurations)),
				"aspect_ratio": aspectRatio(req.Width, req.Height),
			}
			if len(req.ReferenceImages) > 0 {
				payload["image"] = req.ReferenceImages[0]
			}
			if negative := req.Extra("negative_prompt"); negative != "" {
				payload["negative_prompt"] = negative
			}
			return payload, nil
		},
		PollPath: func(taskID string) string {
			return "/v1/videos/text2video/" + taskID
		},
		TaskIDPaths: []string{"data.task_id", "task_id"},
		StatusPaths: []string{"data.task_status", "task_status"},
		ErrorPaths:  []string{"data.task_status_msg", "message"},
		CoverPaths:  []string{"data.task_result.videos.0.cover_image_url"},
		Statuses: StatusTable{
			"submitted":  domain.TaskStatusQueued,
			"processing": domain.TaskStatusRunning,
			"succeed":    domain.TaskStatusSucceeded,
			"succeeded":  domain.TaskStatusSucceeded,
			"failed":     domain.TaskStatusFailed,
		},
	}
}

// KlingImageProfile covers Kling's image generation endpoint (historically
// branded Kolors); same envelope, different paths.
func KlingImageProfile() PollingProfile {
	profile := KlingVideoProfile()
	profile.LaunchPath = func(req domain.TaskRequest) string {
		return "/v1/images/generations"
	}
	profile.BuildPayload = func(ctx context.Context, client *http.Client, req domain.TaskRequest) (map[string]any, error) {
		payload := map[string]any{
			"model_name":   modelOrDefault(req, klingImageModels, "kling-v1-5"),
			"prompt":       req.Prompt,
			"aspect_ratio": aspectRatio(req.Width, req.Height),
		}
		if len(req.ReferenceImages) > 0 {
			payload["image"] = req.ReferenceImages[0]
		}
		return payload, nil
	}
	profile.PollPath = func(taskID string) string {
		return "/v1/images/generations/" + taskID
	}
	profile.CoverPaths = nil
	return profile
}
