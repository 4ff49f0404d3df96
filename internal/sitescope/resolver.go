package sitescope

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/souroshsepehri/zimmer-chatbot-sub000/internal/storage/models"
	"github.com/souroshsepehri/zimmer-chatbot-sub000/internal/storage/sqlite"
	"github.com/souroshsepehri/zimmer-chatbot-sub000/pkg/logger"
)

// Registry is the tenant lookup collaborator, keyed by normalized domain.
type Registry interface {
	SiteByDomain(ctx context.Context, domain string) (*models.Site, error)
}

// Resolver maps a request's origin host to a tenant site. Resolution failure
// always degrades to global scope (nil site); it never fails the request.
type Resolver struct {
	registry Registry
}

func NewResolver(registry Registry) *Resolver {
	return &Resolver{registry: registry}
}

// Resolve returns the matched site or nil for global scope. An unmatched
// non-empty host is a logged misconfiguration signal, not an error.
func (r *Resolver) Resolve(ctx context.Context, host string) *models.Site {
	domain := NormalizeHost(host)
	if domain == "" {
		return nil
	}

	site, err := r.registry.SiteByDomain(ctx, domain)
	if err != nil {
		if errors.Is(err, sqlite.ErrSiteNotFound) {
			logger.Warn("Host did not match any registered site, serving global scope",
				zap.String("host", host),
				zap.String("domain", domain),
			)
		} else {
			logger.Warn("Site registry lookup failed, serving global scope",
				zap.String("domain", domain),
				zap.Error(err),
			)
		}
		return nil
	}

	return site
}

// NormalizeHost lower-cases and strips scheme, port, path, and a leading
// "www." from a raw host string.
func NormalizeHost(host string) string {
	h := strings.ToLower(strings.TrimSpace(host))
	if h == "" {
		return ""
	}

	if i := strings.Index(h, "://"); i >= 0 {
		h = h[i+3:]
	}
	if i := strings.IndexAny(h, "/?#"); i >= 0 {
		h = h[:i]
	}
	if i := strings.LastIndex(h, ":"); i >= 0 && !strings.Contains(h[i+1:], "]") {
		h = h[:i]
	}
	h = strings.TrimPrefix(h, "www.")

	return h
}
