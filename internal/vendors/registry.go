package vendors

import (
	"net/http"

	"mediacore/internal/domain"
	"mediacore/internal/infra"
)

// BuildRegistry wires every built-in vendor adapter for the task kinds it
// serves. The HTTP client is shared so transport-level logging and timeouts
// apply uniformly.
func BuildRegistry(client *http.Client, logger infra.Logger) *Registry {
	r := NewRegistry()

	r.Register(
		NewSyncChatVendor(VendorOpenAI, "gpt-4o-mini", client, logger),
		domain.TaskKindChat, domain.TaskKindPromptRefine, domain.TaskKindImageToPrompt,
	)
	r.Register(
		NewGeminiVendor(client, logger),
		domain.TaskKindTextToImage, domain.TaskKindImageEdit,
	)

	r.Register(
		NewPollingVendor(KlingVideoProfile(), client, logger),
		domain.TaskKindTextToVideo,
	)
	r.Register(
		NewPollingVendor(KlingImageProfile(), client, logger),
		domain.TaskKindTextToImage, domain.TaskKindImageEdit,
	)
	r.Register(
		NewPollingVendor(JimengProfile(), client, logger),
		domain.TaskKindTextToVideo,
	)
	r.Register(
		NewPollingVendor(ViduProfile(), client, logger),
		domain.TaskKindTextToVideo,
	)
	r.Register(
		NewPollingVendor(WanVideoProfile(), client, logger),
		domain.TaskKindTextToVideo,
	)
	r.Register(
		NewPollingVendor(WanImageProfile(), client, logger),
		domain.TaskKindTextToImage,
	)

	r.Register(
		NewChatStreamVendor(GatewayProfile(), client, logger),
		domain.TaskKindTextToVideo, domain.TaskKindTextToImage, domain.TaskKindImageEdit,
	)

	return r
}
