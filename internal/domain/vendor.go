package domain

import "time"

// VendorContext carries the concrete endpoint and credential resolved for a
// single vendor call. It is assembled per call and never persisted as a
// unit; its parts come from several persisted sources.
type VendorContext struct {
	BaseURL     string
	APIKey      string
	RoutingHint string
}

// RefKind partitions vendor task refs by the product surface that issued
// them, so a video task and an image task may reuse the same local task id.
type RefKind string

const (
	RefKindVideo     RefKind = "video"
	RefKindCharacter RefKind = "character"
	RefKindImage     RefKind = "image"
)

// VendorTaskRef maps a local task back to the vendor that issued it, plus
// any secondary identifier the vendor reveals on later polls. Refs are
// monotonic history and are never deleted by the core.
type VendorTaskRef struct {
	CallerID    string
	Kind        RefKind
	TaskID      string
	Vendor      string
	ExternalPID string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CallStatus enumerates audit log states for one vendor call attempt.
type CallStatus string

const (
	CallStatusStarted   CallStatus = "started"
	CallStatusSucceeded CallStatus = "succeeded"
	CallStatusFailed    CallStatus = "failed"
)

// VendorCallLogEntry is one row of the call audit log, upserted by
// (callerId, vendor, taskId); a row transitions started -> succeeded|failed.
type VendorCallLogEntry struct {
	CallerID     string
	Vendor       string
	TaskID       string
	TaskKind     TaskKind
	Status       CallStatus
	ErrorMessage string
	StartedAt    time.Time
	FinishedAt   *time.Time
}

// HostedAssetRecord maps a vendor-produced source URL to its durable
// rehosted copy, keyed for dedup by (ownerId, sourceUrl).
type HostedAssetRecord struct {
	ID           string
	OwnerID      string
	Name         string
	SourceURL    string
	HostedURL    string
	ThumbnailURL string
	Kind         AssetType
	Vendor       string
	Prompt       string
	ModelKey     string
	TaskID       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ProxyConfig routes a caller's generation calls for one or more vendors
// through an intermediary endpoint and credential.
type ProxyConfig struct {
	ID        string
	CallerID  string
	Vendor    string
	Vendors   []string
	BaseURL   string
	APIKey    string
	Enabled   bool
	UpdatedAt time.Time
}

// ProviderRecord is a caller-scoped (or shared) provider configuration row
// carrying an optional base URL override for a vendor.
type ProviderRecord struct {
	ID            string
	CallerID      string
	Vendor        string
	BaseURL       string
	SharedBaseURL bool
	UpdatedAt     time.Time
}

// Credential is an API key attached to a provider record. Shared
// credentials form a global fallback pool with a failure cooldown window.
type Credential struct {
	ID                  string
	ProviderID          string
	CallerID            string
	Vendor              string
	APIKey              string
	Enabled             bool
	Shared              bool
	SharedDisabledUntil *time.Time
	UpdatedAt           time.Time
}

// CoolingDown reports whether the shared credential is inside its cooldown
// window at the given instant.
func (c Credential) CoolingDown(now time.Time) bool {
	return c.SharedDisabledUntil != nil && now.Before(*c.SharedDisabledUntil)
}
