// Package hosting rehosts vendor-produced media into durable object
// storage so links survive the vendor's own expiry. Hosting is best-effort
// bookkeeping around the task result: any per-asset failure degrades to the
// original URL instead of failing the task.
package hosting

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"mediacore/internal/domain"
	"mediacore/internal/infra"
	"mediacore/internal/storage"
)

const cacheControl = "public, max-age=31536000, immutable"

// Meta carries generation metadata persisted with each hosted asset record.
type Meta struct {
	Vendor   string
	Prompt   string
	ModelKey string
	TaskID   string
}

// Service downloads produced media and re-uploads it into object storage,
// deduplicating by (owner, source URL).
type Service struct {
	store    storage.ObjectStore
	records  domain.HostedAssetRepository
	client   *http.Client
	logger   infra.Logger
	disabled bool
	now      func() time.Time
}

// Options configures the hosting service.
type Options struct {
	Store    storage.ObjectStore
	Records  domain.HostedAssetRepository
	Client   *http.Client
	Logger   infra.Logger
	Disabled bool
}

// New constructs a hosting Service.
func New(opts Options) *Service {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &Service{
		store:    opts.Store,
		records:  opts.Records,
		client:   client,
		logger:   opts.Logger,
		disabled: opts.Disabled,
		now:      time.Now,
	}
}

// Host rehosts each asset and returns the batch with durable URLs swapped
// in. A fetch or upload failure for one asset leaves that asset's original
// URL in place and does not abort its siblings. The only error returned is
// domain.ErrStorageNotConfigured when no object store is wired at all.
func (s *Service) Host(ctx context.Context, ownerID string, assets []domain.TaskAsset, meta Meta) ([]domain.TaskAsset, error) {
	if len(assets) == 0 {
		return assets, nil
	}
	if s.store == nil && !s.disabled {
		return assets, domain.ErrStorageNotConfigured
	}
	out := make([]domain.TaskAsset, len(assets))
	for i, asset := range assets {
		out[i] = s.hostOne(ctx, ownerID, asset, meta)
	}
	return out, nil
}

func (s *Service) hostOne(ctx context.Context, ownerID string, asset domain.TaskAsset, meta Meta) domain.TaskAsset {
	sourceURL := strings.TrimSpace(asset.URL)
	if sourceURL == "" {
		return asset
	}

	record, err := s.records.GetBySource(ctx, ownerID, sourceURL)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.logger.Warn().Err(err).Str("source", sourceURL).Msg("hosting: dedup lookup failed")
	}
	if record != nil && s.durable(record.HostedURL) {
		asset.URL = record.HostedURL
		if asset.ThumbnailURL != "" && record.ThumbnailURL != "" {
			asset.ThumbnailURL = record.ThumbnailURL
		}
		return asset
	}

	if s.disabled {
		return asset
	}

	hostedURL, err := s.rehost(ctx, ownerID, sourceURL)
	if err != nil {
		s.logger.Warn().Err(err).Str("source", sourceURL).Msg("hosting: rehost failed, keeping original url")
		return asset
	}
	asset.URL = hostedURL

	if thumb := strings.TrimSpace(asset.ThumbnailURL); thumb != "" && thumb != sourceURL && !s.durable(thumb) {
		if hostedThumb, err := s.rehost(ctx, ownerID, thumb); err != nil {
			s.logger.Warn().Err(err).Str("source", thumb).Msg("hosting: thumbnail rehost failed")
		} else {
			asset.ThumbnailURL = hostedThumb
		}
	}

	s.persistRecord(ctx, ownerID, record, sourceURL, asset, meta)
	return asset
}

// rehost fetches the source bytes and streams them into object storage
// under an owner/date namespaced collision-resistant key.
func (s *Service) rehost(ctx context.Context, ownerID, sourceURL string) (string, error) {
	data, contentType, err := s.fetch(ctx, sourceURL)
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("%s/%s/%s%s", ownerID, s.now().UTC().Format("2006/01/02"), uuid.NewString(), extensionFor(contentType, sourceURL))
	hostedURL, err := s.store.Put(ctx, key, data, contentType, cacheControl)
	if err != nil {
		return "", fmt.Errorf("hosting: store %s: %w", key, err)
	}
	return hostedURL, nil
}

func (s *Service) fetch(ctx context.Context, sourceURL string) ([]byte, string, error) {
	if strings.HasPrefix(sourceURL, "data:") {
		return decodeDataURL(sourceURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, "", &domain.UpstreamFetchError{URL: sourceURL, Err: err}
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", &domain.UpstreamFetchError{URL: sourceURL, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, "", &domain.UpstreamFetchError{URL: sourceURL, StatusCode: resp.StatusCode}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", &domain.UpstreamFetchError{URL: sourceURL, Err: err}
	}
	contentType := resp.Header.Get("Content-Type")
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	contentType = strings.TrimSpace(contentType)
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = sniffByExtension(sourceURL)
	}
	return data, contentType, nil
}

func (s *Service) persistRecord(ctx context.Context, ownerID string, existing *domain.HostedAssetRecord, sourceURL string, asset domain.TaskAsset, meta Meta) {
	record := existing
	if record == nil {
		record = &domain.HostedAssetRecord{
			ID:        uuid.NewString(),
			OwnerID:   ownerID,
			SourceURL: sourceURL,
			CreatedAt: s.now(),
		}
	}
	record.HostedURL = asset.URL
	record.ThumbnailURL = asset.ThumbnailURL
	record.Kind = asset.Type
	record.Vendor = meta.Vendor
	record.Prompt = meta.Prompt
	record.ModelKey = meta.ModelKey
	record.TaskID = meta.TaskID
	record.Name = displayName(meta, asset.Type)
	record.UpdatedAt = s.now()
	if err := s.records.Upsert(ctx, record); err != nil {
		s.logger.Warn().Err(err).Str("source", sourceURL).Msg("hosting: record upsert failed")
	}
}

// durable reports whether the URL already points into our own store.
func (s *Service) durable(u string) bool {
	if s.store == nil || u == "" {
		return false
	}
	base := strings.TrimSuffix(s.store.PublicURL(""), "/")
	return base != "" && strings.HasPrefix(u, base+"/")
}

var titleCaser = cases.Title(language.English)

// displayName derives a human-readable record name from the prompt, falling
// back to vendor and media kind.
func displayName(meta Meta, kind domain.AssetType) string {
	words := strings.Fields(meta.Prompt)
	if len(words) > 6 {
		words = words[:6]
	}
	if len(words) > 0 {
		return titleCaser.String(strings.Join(words, " "))
	}
	return titleCaser.String(strings.TrimSpace(meta.Vendor + " " + string(kind)))
}

var extensionByType = map[string]string{
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
	"image/webp":      ".webp",
	"image/gif":       ".gif",
	"video/mp4":       ".mp4",
	"video/webm":      ".webm",
	"video/quicktime": ".mov",
}

var typeByExtension = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".gif":  "image/gif",
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mov":  "video/quicktime",
}

func extensionFor(contentType, sourceURL string) string {
	if ext, ok := extensionByType[contentType]; ok {
		return ext
	}
	if ext := urlExtension(sourceURL); ext != "" {
		return ext
	}
	return ".bin"
}

func sniffByExtension(sourceURL string) string {
	if t, ok := typeByExtension[urlExtension(sourceURL)]; ok {
		return t
	}
	return "application/octet-stream"
}

func urlExtension(sourceURL string) string {
	p := sourceURL
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	return strings.ToLower(path.Ext(p))
}

func decodeDataURL(u string) ([]byte, string, error) {
	rest := strings.TrimPrefix(u, "data:")
	comma := strings.Index(rest, ",")
	if comma < 0 {
		return nil, "", &domain.UpstreamFetchError{URL: "data:", Err: fmt.Errorf("malformed data url")}
	}
	header, payload := rest[:comma], rest[comma+1:]
	contentType := header
	if i := strings.Index(header, ";"); i >= 0 {
		contentType = header[:i]
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if !strings.Contains(header, "base64") {
		return []byte(payload), contentType, nil
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", &domain.UpstreamFetchError{URL: "data:", Err: err}
	}
	return data, contentType, nil
}
