package extract

import (
	"encoding/json"
	"strings"
)

// SSEFrames splits a fully buffered Server-Sent-Events body into its JSON
// data frames. Blank-line-delimited frames are scanned for data: lines,
// [DONE] sentinels are ignored and frames that fail to decode are skipped.
// Callers pick the last (or merged) frame per their protocol.
func SSEFrames(raw string) []map[string]any {
	var frames []map[string]any
	normalized := strings.ReplaceAll(raw, "\r\n", "\n")
	for _, block := range strings.Split(normalized, "\n\n") {
		var dataLines []string
		for _, line := range strings.Split(block, "\n") {
			trimmed := strings.TrimSpace(line)
			if !strings.HasPrefix(trimmed, "data:") {
				continue
			}
			payload := strings.TrimSpace(strings.TrimPrefix(trimmed, "data:"))
			if payload == "" || payload == "[DONE]" {
				continue
			}
			dataLines = append(dataLines, payload)
		}
		if len(dataLines) == 0 {
			continue
		}
		var frame map[string]any
		if err := json.Unmarshal([]byte(strings.Join(dataLines, "\n")), &frame); err != nil {
			continue
		}
		frames = append(frames, frame)
	}
	return frames
}

// LastSSEFrame returns the final decodable frame of a buffered SSE body, or
// nil when none decodes. For streaming chat protocols the last frame is the
// authoritative payload.
func LastSSEFrame(raw string) map[string]any {
	frames := SSEFrames(raw)
	if len(frames) == 0 {
		return nil
	}
	return frames[len(frames)-1]
}
