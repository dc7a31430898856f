package vendors

import "strings"

// Canonical vendor keys. Adapters, the resolver and persisted rows all use
// these; legacy spellings are folded in via Canonical.
const (
	VendorOpenAI  = "openai"
	VendorGemini  = "gemini"
	VendorKling   = "kling"
	VendorJimeng  = "jimeng"
	VendorVidu    = "vidu"
	VendorWan     = "wan"
	VendorGateway = "gateway"
)

var vendorAliases = map[string]string{
	"keling":     VendorKling,
	"kolors":     VendorKling,
	"dashscope":  VendorWan,
	"wanx":       VendorWan,
	"gpt":        VendorOpenAI,
	"dreamina":   VendorJimeng,
	"openai-sse": VendorGateway,
}

var knownVendors = map[string]bool{
	VendorOpenAI:  true,
	VendorGemini:  true,
	VendorKling:   true,
	VendorJimeng:  true,
	VendorVidu:    true,
	VendorWan:     true,
	VendorGateway: true,
}

// Canonical folds legacy vendor spellings onto their canonical key. Unknown
// names are returned lowercased and trimmed so callers can still look up
// caller-configured providers under custom keys.
func Canonical(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := vendorAliases[key]; ok {
		return alias
	}
	return key
}

// Known reports whether the vendor key (after aliasing) is part of the
// built-in catalog.
func Known(name string) bool {
	return knownVendors[Canonical(name)]
}

var defaultBaseURLs = map[string]string{
	VendorOpenAI: "https://api.openai.com/v1",
	VendorGemini: "https://generativelanguage.googleapis.com/v1beta",
	VendorKling:  "https://api.klingai.com",
	VendorVidu:   "https://api.vidu.cn",
	VendorWan:    "https://dashscope.aliyuncs.com/api/v1",
}

// DefaultBaseURL returns the hardcoded endpoint for vendors that have one.
func DefaultBaseURL(vendor string) string {
	return defaultBaseURLs[Canonical(vendor)]
}

// Vendors that may run with an empty key, e.g. behind keyless gateways.
var keyOptional = map[string]bool{}

// RequiresKey reports whether the vendor cannot be called without a
// credential.
func RequiresKey(vendor string) bool {
	return !keyOptional[Canonical(vendor)]
}

// Vendors eligible for a deployment-wide environment default credential.
var envFallback = map[string]bool{
	VendorOpenAI:  true,
	VendorGemini:  true,
	VendorGateway: true,
}

// SupportsEnvFallback reports whether the vendor may fall back to an
// environment-configured key when the caller configured nothing.
func SupportsEnvFallback(vendor string) bool {
	return envFallback[Canonical(vendor)]
}

// Vendor families where a direct API being unconfigured may be retried once
// through an OpenAI-compatible gateway speaking the same model family.
var gatewayFallback = map[string]string{
	VendorJimeng: VendorGateway,
	VendorKling:  VendorGateway,
}

// GatewayFallback returns the fallback vendor for a family, or empty when
// no fallback protocol exists.
func GatewayFallback(vendor string) string {
	return gatewayFallback[Canonical(vendor)]
}
