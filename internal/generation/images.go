package generation

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/phrazzld/scry-cards/internal/domain"
)

// ResolveImageRefs rewrites every "imageRef" property in raw into a resolved
// "imageUrl". A reference may be a 1-based index into images or the URL of
// one of them. Zero means "no image". Anything else is dropped with a
// warning. Responses without references are returned unchanged.
func ResolveImageRefs(raw json.RawMessage, images []domain.ImageRef, logger *slog.Logger) (json.RawMessage, error) {
	if !strings.Contains(string(raw), ImageRefField) {
		return raw, nil
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON response: %v", ErrInvalidResponse, err)
	}

	r := imageResolver{images: images, logger: logger}
	r.walk(doc)

	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to re-encode response: %w", err)
	}
	return out, nil
}

type imageResolver struct {
	images []domain.ImageRef
	logger *slog.Logger
}

func (r imageResolver) walk(node any) {
	switch v := node.(type) {
	case map[string]any:
		if ref, ok := v[ImageRefField]; ok {
			delete(v, ImageRefField)
			if url, ok := r.resolve(ref); ok {
				v[ImageURLField] = url
			}
		}
		for _, child := range v {
			r.walk(child)
		}
	case []any:
		for _, child := range v {
			r.walk(child)
		}
	}
}

func (r imageResolver) resolve(ref any) (string, bool) {
	switch v := ref.(type) {
	case nil:
		return "", false
	case float64:
		return r.byIndex(int(v), v == float64(int(v)))
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return "", false
		}
		if n, err := strconv.Atoi(s); err == nil {
			return r.byIndex(n, true)
		}
		for _, img := range r.images {
			if img.URL == s {
				return img.URL, true
			}
		}
	}

	if r.logger != nil {
		r.logger.Warn("dropping unresolvable image reference", "image_ref", ref, "image_count", len(r.images))
	}
	return "", false
}

func (r imageResolver) byIndex(n int, integral bool) (string, bool) {
	if integral && n == 0 {
		return "", false
	}
	if !integral || n < 1 || n > len(r.images) {
		if r.logger != nil {
			r.logger.Warn("dropping out-of-range image reference", "image_ref", n, "image_count", len(r.images))
		}
		return "", false
	}
	return r.images[n-1].URL, true
}
