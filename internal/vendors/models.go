package vendors

import (
	"fmt"
	"strings"

	"mediacore/internal/domain"
)

// klingDurations are the only clip lengths the Kling video API accepts.
var klingDurations = []int{5, 10}

// snapDuration rounds a requested duration down to the nearest supported
// value; requests below the minimum get the minimum.
func snapDuration(seconds int, supported []int) int {
	if len(supported) == 0 {
		return seconds
	}
	best := supported[0]
	for _, s := range supported {
		if s <= seconds && s > best {
			best = s
		}
	}
	return best
}

// aspectRatio renders width/height as the coarse ratio string video vendors
// expect. Unknown or missing dimensions default to square.
func aspectRatio(width, height int) string {
	if width <= 0 || height <= 0 {
		return "1:1"
	}
	switch {
	case width == height:
		return "1:1"
	case width*9 == height*16:
		return "16:9"
	case width*16 == height*9:
		return "9:16"
	case width*3 == height*4:
		return "4:3"
	case width*4 == height*3:
		return "3:4"
	case width > height:
		return "16:9"
	default:
		return "9:16"
	}
}

// sizeString renders explicit pixel dimensions, falling back to a sensible
// square for vendors that require the field.
func sizeString(width, height, fallback int) string {
	if width <= 0 || height <= 0 {
		return fmt.Sprintf("%dx%d", fallback, fallback)
	}
	return fmt.Sprintf("%dx%d", width, height)
}

// modelOrDefault reads the caller's model override from the request extras,
// folding known shorthand spellings onto the vendor's wire names.
func modelOrDefault(req domain.TaskRequest, aliases map[string]string, fallback string) string {
	model := strings.ToLower(strings.TrimSpace(req.Extra("model")))
	if model == "" {
		return fallback
	}
	if wire, ok := aliases[model]; ok {
		return wire
	}
	return model
}

// Wire model names per vendor. Callers pass shorthand; the profiles map it.
var (
	klingVideoModels = map[string]string{
		"kling":      "kling-v1-6",
		"kling-v1":   "kling-v1",
		"kling-v1.6": "kling-v1-6",
		"kling-v2":   "kling-v2-master",
	}
	klingImageModels = map[string]string{
		"kolors":    "kling-v1-5",
		"kling":     "kling-v1-5",
		"kling-v2":  "kling-v2",
		"kolors-v1": "kling-v1",
	}
	viduModels = map[string]string{
		"vidu":    "viduq1",
		"vidu-q1": "viduq1",
		"vidu2":   "vidu2.0",
	}
	wanVideoModels = map[string]string{
		"wan":     "wan2.2-t2v-plus",
		"wanx":    "wanx2.1-t2v-turbo",
		"wan-i2v": "wan2.2-i2v-plus",
	}
	wanImageModels = map[string]string{
		"wan":  "wan2.2-t2i-flash",
		"wanx": "wanx2.1-t2i-turbo",
	}
	jimengModels = map[string]string{
		"jimeng":   "jimeng_vgfm_t2v_l20",
		"dreamina": "jimeng_vgfm_t2v_l20",
	}
)
