package vendors

import (
	"context"
	"net/http"

	"mediacore/internal/domain"
)

// ViduProfile is the create-then-poll profile for Vidu's video API. Vidu
// keys launch paths by input modality and reports results under a separate
// creations endpoint.
func ViduProfile() PollingProfile {
	return PollingProfile{
		VendorKey: VendorVidu,
		LaunchPath: func(req domain.TaskRequest) string {
			if len(req.ReferenceImages) > 0 {
				return "/ent/v2/img2video"
			}
			return "/ent/v2/text2video"
		},
		BuildPayload: func(ctx context.Context, client *http.Client, req domain.TaskRequest) (map[string]any, error) {
			payload := map[string]any{
				"model":  modelOrDefault(req, viduModels, "viduq1"),
				"prompt": req.Prompt,
			}
			if req.DurationSeconds > 0 {
				payload["duration"] = req.DurationSeconds
			}
			if len(req.ReferenceImages) > 0 {
				payload["images"] = req.ReferenceImages
			} else {
				payload["aspect_ratio"] = aspectRatio(req.Width, req.Height)
			}
			return payload, nil
		},
		Auth: func(vc domain.VendorContext, header http.Header) {
			header.Set("Authorization", "Token "+vc.APIKey)
		},
		PollPath: func(taskID string) string {
			return "/ent/v2/tasks/" + taskID + "/creations"
		},
		TaskIDPaths: []string{"task_id", "id"},
		StatusPaths: []string{"state", "status"},
		ErrorPaths:  []string{"err_code", "message"},
		CoverPaths:  []string{"creations.0.cover_url"},
		Statuses: StatusTable{
			"created":    domain.TaskStatusQueued,
			"queueing":   domain.TaskStatusQueued,
			"scheduling": domain.TaskStatusQueued,
			"processing": domain.TaskStatusRunning,
			"success":    domain.TaskStatusSucceeded,
			"failed":     domain.TaskStatusFailed,
		},
	}
}
