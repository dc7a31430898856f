package vendors

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"

	"mediacore/internal/domain"
)

// maxReferenceBytes bounds how much image data we are willing to inline
// into a vendor payload.
const maxReferenceBytes = 16 << 20

// NormalizeReferences validates caller-supplied reference images before any
// vendor call. http(s) and data: references pass through; blob: references
// are always rejected since they cannot be dereferenced outside the
// caller's browser; anything else is unusable.
func NormalizeReferences(refs []string) ([]string, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			continue
		}
		switch {
		case strings.HasPrefix(ref, "blob:"):
			return nil, &domain.InvalidInputError{Detail: "blob: reference images cannot be resolved server-side"}
		case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"), strings.HasPrefix(ref, "data:"):
			out = append(out, ref)
		default:
			return nil, &domain.InvalidInputError{Detail: fmt.Sprintf("unsupported reference image scheme: %.32s", ref)}
		}
	}
	return out, nil
}

// InlineReference downloads an http(s) reference and re-encodes it as a
// data URL for vendors whose payloads require inline image bytes. data:
// references are returned unchanged.
func InlineReference(ctx context.Context, client *http.Client, ref string) (string, error) {
	if strings.HasPrefix(ref, "data:") {
		return ref, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return "", &domain.InvalidInputError{Detail: fmt.Sprintf("reference image url: %v", err)}
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", &domain.InvalidInputError{Detail: fmt.Sprintf("fetch reference image: %v", err)}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", &domain.InvalidInputError{Detail: fmt.Sprintf("reference image fetch status %d", resp.StatusCode)}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReferenceBytes+1))
	if err != nil {
		return "", &domain.InvalidInputError{Detail: fmt.Sprintf("read reference image: %v", err)}
	}
	if len(data) > maxReferenceBytes {
		return "", &domain.InvalidInputError{Detail: "reference image exceeds inline size limit"}
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" || !strings.HasPrefix(contentType, "image/") {
		contentType = "image/png"
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
