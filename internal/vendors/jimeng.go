package vendors

import (
	"context"
	"net/http"
	"strconv"

	"mediacore/internal/domain"
)

// JimengProfile is the create-then-poll profile for Jimeng video generation.
// Jimeng has no public default endpoint; the caller's provider record must
// supply the base URL, which the resolver enforces.
func JimengProfile() PollingProfile {
	return PollingProfile{
		VendorKey: VendorJimeng,
		LaunchPath: func(req domain.TaskRequest) string {
			return "/v1/video/submit"
		},
		BuildPayload: func(ctx context.Context, client *http.Client, req domain.TaskRequest) (map[string]any, error) {
			payload := map[string]any{
				"req_key":      modelOrDefault(req, jimengModels, "jimeng_vgfm_t2v_l20"),
				"prompt":       req.Prompt,
				"seed":         -1,
				"aspect_ratio": aspectRatio(req.Width, req.Height),
			}
			if req.DurationSeconds > 0 {
				payload["duration"] = strconv.Itoa(req.DurationSeconds)
			}
			if len(req.ReferenceImages) > 0 {
				urls := make([]string, 0, len(req.ReferenceImages))
				for _, ref := range req.ReferenceImages {
					inlined, err := InlineReference(ctx, client, ref)
					if err != nil {
						return nil, err
					}
					urls = append(urls, inlined)
				}
				payload["binary_data_base64"] = urls
			}
			return payload, nil
		},
		PollPath: func(taskID string) string {
			return "/v1/video/result"
		},
		PollMethod: http.MethodPost,
		PollBody: func(taskID string) map[string]any {
			return map[string]any{"task_id": taskID, "req_key": "jimeng_vgfm_t2v_l20"}
		},
		TaskIDPaths: []string{"data.task_id", "task_id"},
		StatusPaths: []string{"data.status", "status"},
		ErrorPaths:  []string{"data.message", "message"},
		Statuses: StatusTable{
			"in_queue":   domain.TaskStatusQueued,
			"generating": domain.TaskStatusRunning,
			"done":       domain.TaskStatusSucceeded,
			"not_found":  domain.TaskStatusFailed,
			"expired":    domain.TaskStatusFailed,
			"failed":     domain.TaskStatusFailed,
		},
	}
}
