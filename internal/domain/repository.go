package domain

import (
	"context"
	"time"
)

// TaskRefRepository persists vendor task refs keyed by (caller, kind, task).
type TaskRefRepository interface {
	Upsert(ctx context.Context, ref *VendorTaskRef) error
	Get(ctx context.Context, callerID string, kind RefKind, taskID string) (*VendorTaskRef, error)
}

// CallLogRepository upserts call audit rows keyed by (caller, vendor, task).
type CallLogRepository interface {
	Upsert(ctx context.Context, entry *VendorCallLogEntry) error
	Get(ctx context.Context, callerID, vendor, taskID string) (*VendorCallLogEntry, error)
}

// HostedAssetRepository handles dedup lookups and persistence for rehosted
// media records.
type HostedAssetRepository interface {
	GetBySource(ctx context.Context, ownerID, sourceURL string) (*HostedAssetRecord, error)
	Upsert(ctx context.Context, record *HostedAssetRecord) error
}

// CredentialRepository exposes the persisted configuration the resolver
// walks: proxy rows, provider records, owned and shared credentials.
type CredentialRepository interface {
	ListProxies(ctx context.Context, callerID string) ([]ProxyConfig, error)
	ListOwned(ctx context.Context, callerID, vendor string) ([]Credential, error)
	ListShared(ctx context.Context, vendor string) ([]Credential, error)
	ProviderBaseURL(ctx context.Context, callerID, vendor string) (string, error)
	SharedBaseURL(ctx context.Context, vendor string) (string, error)
	DisableShared(ctx context.Context, credentialID string, until time.Time) error
}
