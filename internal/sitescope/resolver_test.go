package sitescope

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/souroshsepehri/zimmer-chatbot-sub000/internal/storage/models"
	"github.com/souroshsepehri/zimmer-chatbot-sub000/internal/storage/sqlite"
)

type fakeRegistry struct {
	sites map[string]*models.Site
	err   error
	calls int
}

func (f *fakeRegistry) SiteByDomain(_ context.Context, domain string) (*models.Site, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	site, ok := f.sites[domain]
	if !ok {
		return nil, sqlite.ErrSiteNotFound
	}
	return site, nil
}

func TestNormalizeHost(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"https://www.Example.com/widget?x=1", "example.com"},
		{"http://shop.ir", "shop.ir"},
		{"example.com:8080", "example.com"},
		{"WWW.Shop.IR", "shop.ir"},
		{"zimmer.ir/path/to/page#frag", "zimmer.ir"},
		{"  ", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeHost(tt.input))
		})
	}
}

func TestResolve_MatchedSite(t *testing.T) {
	registry := &fakeRegistry{
		sites: map[string]*models.Site{
			"shop.ir": {ID: "site-1", Domain: "shop.ir", Name: "Shop"},
		},
	}
	r := NewResolver(registry)

	site := r.Resolve(context.Background(), "https://www.shop.ir/products")
	require.NotNil(t, site)
	assert.Equal(t, "site-1", site.ID)
}

func TestResolve_UnmatchedHostFallsBackToGlobal(t *testing.T) {
	registry := &fakeRegistry{sites: map[string]*models.Site{}}
	r := NewResolver(registry)

	site := r.Resolve(context.Background(), "unknown.example")
	assert.Nil(t, site)
	assert.Equal(t, 1, registry.calls)
}

func TestResolve_EmptyHostSkipsLookup(t *testing.T) {
	registry := &fakeRegistry{}
	r := NewResolver(registry)

	assert.Nil(t, r.Resolve(context.Background(), ""))
	assert.Zero(t, registry.calls)
}

func TestResolve_RegistryErrorFallsBackToGlobal(t *testing.T) {
	registry := &fakeRegistry{err: errors.New("db locked")}
	r := NewResolver(registry)

	assert.Nil(t, r.Resolve(context.Background(), "shop.ir"))
}
