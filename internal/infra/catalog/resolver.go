package catalog

import (
	"strconv"
	"strings"
	"time"
)

// Resolver turns opaque audio/art refs into fetchable URLs. Resolution
// is pure and synchronous; a cache-busting marker is appended so a
// re-uploaded ref is never served from a stale browser cache.
type Resolver struct {
	mediaBase string
	artBase   string
	bust      string
}

// NewResolver creates a resolver over the given base URLs.
func NewResolver(mediaBase, artBase string) *Resolver {
	return &Resolver{
		mediaBase: strings.TrimSuffix(mediaBase, "/") + "/",
		artBase:   strings.TrimSuffix(artBase, "/") + "/",
		bust:      strconv.FormatInt(time.Now().Unix(), 10),
	}
}

// PlayableURL resolves an audio ref. Returns "" for an empty ref.
func (r *Resolver) PlayableURL(ref string) string {
	return r.resolve(r.mediaBase, ref)
}

// ArtURL resolves an art or flyer ref. Returns "" for an empty ref.
func (r *Resolver) ArtURL(ref string) string {
	return r.resolve(r.artBase, ref)
}

func (r *Resolver) resolve(base, ref string) string {
	if ref == "" {
		return ""
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	return base + strings.TrimPrefix(ref, "/") + "?v=" + r.bust
}
