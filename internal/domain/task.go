package domain

// TaskKind enumerates supported generation task categories.
type TaskKind string

const (
	TaskKindChat          TaskKind = "chat"
	TaskKindPromptRefine  TaskKind = "prompt_refine"
	TaskKindTextToImage   TaskKind = "text_to_image"
	TaskKindImageEdit     TaskKind = "image_edit"
	TaskKindTextToVideo   TaskKind = "text_to_video"
	TaskKindImageToPrompt TaskKind = "image_to_prompt"
)

// IsVideo reports whether the task produces video output.
func (k TaskKind) IsVideo() bool {
	return k == TaskKindTextToVideo
}

// TaskStatus enumerates the canonical task lifecycle states.
type TaskStatus string

const (
	TaskStatusQueued    TaskStatus = "queued"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusSucceeded TaskStatus = "succeeded"
	TaskStatusFailed    TaskStatus = "failed"
)

// Terminal reports whether the status is final.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusSucceeded || s == TaskStatusFailed
}

// TaskRequest is the normalized generation request submitted by a caller.
// It is immutable once submitted; adapters translate it into vendor wire
// payloads without mutating it.
type TaskRequest struct {
	Kind            TaskKind          `json:"kind"`
	Prompt          string            `json:"prompt"`
	Width           int               `json:"width,omitempty"`
	Height          int               `json:"height,omitempty"`
	DurationSeconds int               `json:"durationSeconds,omitempty"`
	ReferenceImages []string          `json:"referenceImages,omitempty"`
	Extras          map[string]string `json:"extras,omitempty"`
}

// Extra returns a value from the open extras map, or empty string.
func (r TaskRequest) Extra(key string) string {
	if r.Extras == nil {
		return ""
	}
	return r.Extras[key]
}

// AssetType enumerates produced media types.
type AssetType string

const (
	AssetTypeImage AssetType = "image"
	AssetTypeVideo AssetType = "video"
)

// TaskAsset is one produced media artifact. URL is always resolvable
// (http(s) or a rehosted canonical URL) by the time it reaches a caller.
type TaskAsset struct {
	Type         AssetType `json:"type"`
	URL          string    `json:"url"`
	ThumbnailURL string    `json:"thumbnailUrl,omitempty"`
}

// TaskResult is the normalized outcome of an adapter call. ID is the
// vendor-assigned task identifier for async protocols, otherwise a locally
// generated correlation id. Results are produced fresh on every call and
// never mutated in place.
type TaskResult struct {
	ID     string         `json:"id"`
	Kind   TaskKind       `json:"kind"`
	Status TaskStatus     `json:"status"`
	Assets []TaskAsset    `json:"assets,omitempty"`
	Raw    map[string]any `json:"raw,omitempty"`
}
