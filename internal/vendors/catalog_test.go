package vendors

import (
	"testing"

	"mediacore/internal/domain"
)

func TestCanonicalFoldsAliases(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"keling", VendorKling},
		{"Kolors", VendorKling},
		{"dashscope", VendorWan},
		{"wanx", VendorWan},
		{"dreamina", VendorJimeng},
		{"gpt", VendorOpenAI},
		{"openai-sse", VendorGateway},
		{" KLING ", VendorKling},
		{"custom-provider", "custom-provider"},
	}
	for _, tt := range tests {
		if got := Canonical(tt.in); got != tt.want {
			t.Errorf("Canonical(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestKnown(t *testing.T) {
	if !Known("keling") {
		t.Error("keling should canonicalize to a known vendor")
	}
	if Known("custom-provider") {
		t.Error("custom-provider should not be known")
	}
}

func TestDefaultBaseURL(t *testing.T) {
	if got := DefaultBaseURL("keling"); got != "https://api.klingai.com" {
		t.Fatalf("kling default = %q", got)
	}
	if got := DefaultBaseURL(VendorJimeng); got != "" {
		t.Fatalf("jimeng should have no default base url, got %q", got)
	}
}

func TestEnvFallbackEligibility(t *testing.T) {
	if !SupportsEnvFallback("gpt") || !SupportsEnvFallback(VendorGemini) {
		t.Error("openai and gemini support env fallback")
	}
	if SupportsEnvFallback(VendorKling) || SupportsEnvFallback(VendorJimeng) {
		t.Error("video vendors must not fall back to env keys")
	}
}

func TestGatewayFallback(t *testing.T) {
	if got := GatewayFallback("dreamina"); got != VendorGateway {
		t.Fatalf("jimeng fallback = %q", got)
	}
	if got := GatewayFallback(VendorOpenAI); got != "" {
		t.Fatalf("openai should have no gateway fallback, got %q", got)
	}
}

func TestBuildRegistryCoversCatalog(t *testing.T) {
	r := BuildRegistry(nil, testLogger())

	checks := []struct {
		vendor string
		kind   domain.TaskKind
	}{
		{VendorOpenAI, domain.TaskKindChat},
		{VendorOpenAI, domain.TaskKindPromptRefine},
		{VendorGemini, domain.TaskKindTextToImage},
		{VendorKling, domain.TaskKindTextToVideo},
		{"keling", domain.TaskKindTextToImage},
		{VendorJimeng, domain.TaskKindTextToVideo},
		{VendorVidu, domain.TaskKindTextToVideo},
		{VendorWan, domain.TaskKindTextToVideo},
		{VendorWan, domain.TaskKindTextToImage},
		{VendorGateway, domain.TaskKindTextToVideo},
	}
	for _, c := range checks {
		if _, ok := r.Lookup(c.vendor, c.kind); !ok {
			t.Errorf("no adapter for %s/%s", c.vendor, c.kind)
		}
	}
	if _, ok := r.Lookup(VendorVidu, domain.TaskKindChat); ok {
		t.Error("vidu must not serve chat")
	}
}
