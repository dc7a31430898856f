package repo

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"mediacore/internal/domain"
	"mediacore/internal/infra"
)

// CredentialRepositoryPG reads the persisted resolution configuration:
// proxy rows, provider records and credentials.
type CredentialRepositoryPG struct {
	db infra.SQLExecutor
}

// NewCredentialRepository constructs a credential repository.
func NewCredentialRepository(db infra.SQLExecutor) *CredentialRepositoryPG {
	return &CredentialRepositoryPG{db: db}
}

// ListProxies returns all proxy rows for a caller, enabled or not; the
// resolver applies the selection rules.
func (r *CredentialRepositoryPG) ListProxies(ctx context.Context, callerID string) ([]domain.ProxyConfig, error) {
	rows, err := r.db.Query(ctx, `
SELECT id, caller_id, vendor, COALESCE(vendors, '{}'), base_url, api_key, enabled, updated_at
FROM proxy_configs
WHERE caller_id = $1
ORDER BY updated_at DESC;
`, callerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var proxies []domain.ProxyConfig
	for rows.Next() {
		var p domain.ProxyConfig
		if err := rows.Scan(&p.ID, &p.CallerID, &p.Vendor, &p.Vendors, &p.BaseURL, &p.APIKey, &p.Enabled, &p.UpdatedAt); err != nil {
			return nil, err
		}
		proxies = append(proxies, p)
	}
	return proxies, rows.Err()
}

// ListOwned returns the caller's own credentials for a vendor.
func (r *CredentialRepositoryPG) ListOwned(ctx context.Context, callerID, vendor string) ([]domain.Credential, error) {
	rows, err := r.db.Query(ctx, `
SELECT c.id, c.provider_id, p.caller_id, p.vendor, c.api_key, c.enabled, c.shared, c.shared_disabled_until, c.updated_at
FROM credentials c
JOIN provider_records p ON p.id = c.provider_id
WHERE p.caller_id = $1 AND p.vendor = $2
ORDER BY c.updated_at DESC;
`, callerID, vendor)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCredentials(rows)
}

// ListShared returns the global shared credential pool for a vendor.
func (r *CredentialRepositoryPG) ListShared(ctx context.Context, vendor string) ([]domain.Credential, error) {
	rows, err := r.db.Query(ctx, `
SELECT c.id, c.provider_id, p.caller_id, p.vendor, c.api_key, c.enabled, c.shared, c.shared_disabled_until, c.updated_at
FROM credentials c
JOIN provider_records p ON p.id = c.provider_id
WHERE p.vendor = $1 AND c.shared = TRUE
ORDER BY c.updated_at ASC;
`, vendor)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCredentials(rows)
}

func scanCredentials(rows pgx.Rows) ([]domain.Credential, error) {
	var creds []domain.Credential
	for rows.Next() {
		var c domain.Credential
		if err := rows.Scan(&c.ID, &c.ProviderID, &c.CallerID, &c.Vendor, &c.APIKey, &c.Enabled, &c.Shared, &c.SharedDisabledUntil, &c.UpdatedAt); err != nil {
			return nil, err
		}
		creds = append(creds, c)
	}
	return creds, rows.Err()
}

// ProviderBaseURL returns the caller's own base URL override for a vendor.
func (r *CredentialRepositoryPG) ProviderBaseURL(ctx context.Context, callerID, vendor string) (string, error) {
	var baseURL string
	err := r.db.QueryRow(ctx, `
SELECT base_url
FROM provider_records
WHERE caller_id = $1 AND vendor = $2 AND shared_base_url = FALSE AND base_url <> ''
ORDER BY updated_at DESC
LIMIT 1;
`, callerID, vendor).Scan(&baseURL)
	if infra.IsNoRows(err) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return baseURL, nil
}

// SharedBaseURL returns the deployment-shared base URL for a vendor.
func (r *CredentialRepositoryPG) SharedBaseURL(ctx context.Context, vendor string) (string, error) {
	var baseURL string
	err := r.db.QueryRow(ctx, `
SELECT base_url
FROM provider_records
WHERE vendor = $1 AND shared_base_url = TRUE AND base_url <> ''
ORDER BY updated_at DESC
LIMIT 1;
`, vendor).Scan(&baseURL)
	if infra.IsNoRows(err) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return baseURL, nil
}

// DisableShared stamps a cooldown window on a shared credential after a
// failed call attributed to it.
func (r *CredentialRepositoryPG) DisableShared(ctx context.Context, credentialID string, until time.Time) error {
	_, err := r.db.Exec(ctx, `
UPDATE credentials
SET shared_disabled_until = $2, updated_at = now()
WHERE id = $1 AND shared = TRUE;
`, credentialID, until)
	return err
}

var _ domain.CredentialRepository = (*CredentialRepositoryPG)(nil)
