// Package resolver turns (caller, vendor) pairs into concrete endpoint and
// credential contexts by walking proxy configuration, owned credentials,
// the shared credential pool and environment defaults, in that order.
package resolver

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"mediacore/internal/domain"
	"mediacore/internal/infra"
	"mediacore/internal/vendors"
)

// EnvCredentials carries deployment-wide default keys and base URL
// overrides sourced from the environment.
type EnvCredentials struct {
	Keys     map[string]string
	BaseURLs map[string]string
}

// RoutingHintShared prefixes the credential id of a selected shared-pool
// credential so callers can stamp a cooldown on failure.
const RoutingHintShared = "shared:"

// Resolver resolves vendor contexts against persisted configuration.
type Resolver struct {
	repo   domain.CredentialRepository
	env    EnvCredentials
	logger infra.Logger
	now    func() time.Time
}

// New constructs a Resolver.
func New(repo domain.CredentialRepository, env EnvCredentials, logger infra.Logger) *Resolver {
	return &Resolver{repo: repo, env: env, logger: logger, now: time.Now}
}

// Resolve produces the endpoint and credential for one vendor call.
// Credentials and base URL resolve independently; first match wins within
// each chain.
func (r *Resolver) Resolve(ctx context.Context, callerID, vendorKey string) (*domain.VendorContext, error) {
	vendor := vendors.Canonical(vendorKey)
	if vendor == "" {
		return nil, domain.NewConfigurationError(vendorKey, domain.ReasonProviderNotConfigured)
	}

	if proxy, err := r.matchProxy(ctx, callerID, vendor); err != nil {
		return nil, err
	} else if proxy != nil {
		if strings.TrimSpace(proxy.BaseURL) == "" || strings.TrimSpace(proxy.APIKey) == "" {
			return nil, domain.NewConfigurationError(vendor, domain.ReasonProxyMisconfigured)
		}
		return &domain.VendorContext{
			BaseURL:     strings.TrimRight(proxy.BaseURL, "/"),
			APIKey:      proxy.APIKey,
			RoutingHint: "proxy:" + proxy.ID,
		}, nil
	}

	apiKey, hint, err := r.resolveKey(ctx, callerID, vendor)
	if err != nil {
		return nil, err
	}
	if apiKey == "" && vendors.RequiresKey(vendor) {
		return nil, domain.NewConfigurationError(vendor, domain.ReasonAPIKeyMissing)
	}

	baseURL, err := r.resolveBaseURL(ctx, callerID, vendor)
	if err != nil {
		return nil, err
	}

	return &domain.VendorContext{BaseURL: baseURL, APIKey: apiKey, RoutingHint: hint}, nil
}

// matchProxy returns the caller's most-recently-updated enabled proxy whose
// vendor (or declared vendor aliases) matches, or nil.
func (r *Resolver) matchProxy(ctx context.Context, callerID, vendor string) (*domain.ProxyConfig, error) {
	proxies, err := r.repo.ListProxies(ctx, callerID)
	if err != nil {
		return nil, err
	}
	var best *domain.ProxyConfig
	for i := range proxies {
		p := proxies[i]
		if !p.Enabled || !proxyCoversVendor(p, vendor) {
			continue
		}
		if best == nil || p.UpdatedAt.After(best.UpdatedAt) {
			best = &proxies[i]
		}
	}
	return best, nil
}

func proxyCoversVendor(p domain.ProxyConfig, vendor string) bool {
	if vendors.Canonical(p.Vendor) == vendor {
		return true
	}
	for _, v := range p.Vendors {
		if vendors.Canonical(v) == vendor {
			return true
		}
	}
	return false
}

func (r *Resolver) resolveKey(ctx context.Context, callerID, vendor string) (string, string, error) {
	owned, err := r.repo.ListOwned(ctx, callerID, vendor)
	if err != nil {
		return "", "", err
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].UpdatedAt.After(owned[j].UpdatedAt) })
	for _, cred := range owned {
		if cred.Enabled && strings.TrimSpace(cred.APIKey) != "" {
			return cred.APIKey, "owned:" + cred.ID, nil
		}
	}

	shared, err := r.repo.ListShared(ctx, vendor)
	if err != nil {
		return "", "", err
	}
	// Oldest-updated first so pool members rotate under load.
	sort.Slice(shared, func(i, j int) bool { return shared[i].UpdatedAt.Before(shared[j].UpdatedAt) })
	now := r.now()
	for _, cred := range shared {
		if !cred.Enabled || !cred.Shared || cred.CoolingDown(now) {
			continue
		}
		if strings.TrimSpace(cred.APIKey) == "" {
			continue
		}
		r.logger.Debug().Str("vendor", vendor).Str("credential_id", cred.ID).Msg("resolver: using shared credential")
		return cred.APIKey, RoutingHintShared + cred.ID, nil
	}

	if vendors.SupportsEnvFallback(vendor) {
		if key := strings.TrimSpace(r.env.Keys[vendor]); key != "" {
			return key, "env", nil
		}
	}
	return "", "", nil
}

func (r *Resolver) resolveBaseURL(ctx context.Context, callerID, vendor string) (string, error) {
	if u, err := r.repo.ProviderBaseURL(ctx, callerID, vendor); err == nil && strings.TrimSpace(u) != "" {
		return strings.TrimRight(u, "/"), nil
	} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return "", err
	}
	if u, err := r.repo.SharedBaseURL(ctx, vendor); err == nil && strings.TrimSpace(u) != "" {
		return strings.TrimRight(u, "/"), nil
	} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return "", err
	}
	if u := vendors.DefaultBaseURL(vendor); u != "" {
		return u, nil
	}
	if u := strings.TrimSpace(r.env.BaseURLs[vendor]); u != "" {
		return strings.TrimRight(u, "/"), nil
	}
	return "", domain.NewConfigurationError(vendor, domain.ReasonBaseURLMissing)
}

// PenalizeShared stamps a cooldown window on the shared credential named by
// a routing hint. Hints from other sources are ignored.
func (r *Resolver) PenalizeShared(ctx context.Context, routingHint string, cooldown time.Duration) {
	if !strings.HasPrefix(routingHint, RoutingHintShared) {
		return
	}
	credentialID := strings.TrimPrefix(routingHint, RoutingHintShared)
	until := r.now().Add(cooldown)
	if err := r.repo.DisableShared(ctx, credentialID, until); err != nil {
		r.logger.Warn().Err(err).Str("credential_id", credentialID).Msg("resolver: cooldown write failed")
	}
}
