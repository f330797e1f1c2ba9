package extraction

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

var (
	ErrAdapterNotRegistered = errors.New("extraction: no adapter registered for platform")
	ErrAdapterDuplicate     = errors.New("extraction: adapter already registered for platform")
)

// Page is a read-only snapshot of one rendered product page. Field extractors
// run selector queries against the document and never mutate it, so a single
// Page is safe to share across concurrent extractors.
type Page struct {
	URL string
	Doc *goquery.Document
}

// PlatformAdapter supplies platform-specific selectors and parsing rules for
// the fixed set of field extractors every platform must be able to produce.
// Implementations must tolerate missing and malformed markup: a field that
// cannot be read returns an error, never panics, and must not touch the page
// beyond read-only selector queries.
type PlatformAdapter interface {
	// Platform returns the key this adapter is registered under.
	Platform() Platform

	// Matches reports whether this adapter handles pages from the given host.
	Matches(host string) bool

	// ExternalID extracts the platform-native product id from a page URL.
	// Returns "" when no known URL pattern matches (non-fatal).
	ExternalID(pageURL string) string

	ExtractBasicInfo(page *Page) (BasicInfo, error)
	ExtractPricing(page *Page) (Pricing, error)
	ExtractImages(page *Page) ([]string, error)
	ExtractVideos(page *Page) ([]Video, error)
	ExtractVariants(page *Page) ([]Variant, error)
	ExtractReviews(page *Page, limit int) ([]Review, error)
	ExtractSpecifications(page *Page) (map[string]string, error)
	ExtractStock(page *Page) (Stock, error)
	ExtractShipping(page *Page) (Shipping, error)
}

// Registry maps platform keys to adapters. Adapters self-register into the
// package default registry; services receive a registry by constructor
// injection so tests can substitute fakes without process-wide state.
type Registry struct {
	mu       sync.RWMutex
	adapters map[Platform]PlatformAdapter
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[Platform]PlatformAdapter)}
}

// Register adds an adapter under its platform key.
func (r *Registry) Register(adapter PlatformAdapter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := adapter.Platform()
	if _, exists := r.adapters[key]; exists {
		return fmt.Errorf("%w: %s", ErrAdapterDuplicate, key)
	}
	r.adapters[key] = adapter
	return nil
}

// Lookup returns the adapter registered under the given platform key.
func (r *Registry) Lookup(platform Platform) (PlatformAdapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapter, ok := r.adapters[platform]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAdapterNotRegistered, platform)
	}
	return adapter, nil
}

// Detect returns the adapter whose host patterns match the given hostname,
// falling back to the generic adapter when nothing matches.
func (r *Registry) Detect(host string) (PlatformAdapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for key, adapter := range r.adapters {
		if key == PlatformGeneric {
			continue
		}
		if adapter.Matches(host) {
			return adapter, nil
		}
	}
	if generic, ok := r.adapters[PlatformGeneric]; ok {
		return generic, nil
	}
	return nil, fmt.Errorf("%w: no adapter matches host %q", ErrAdapterNotRegistered, host)
}

// Platforms returns the sorted list of registered platform keys.
func (r *Registry) Platforms() []Platform {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]Platform, 0, len(r.adapters))
	for key := range r.adapters {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// defaultRegistry is where adapters self-register at init time.
var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry adapters register into.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// MustRegister registers an adapter into the default registry and panics on
// duplicate keys. Intended for adapter init functions.
func MustRegister(adapter PlatformAdapter) {
	if err := defaultRegistry.Register(adapter); err != nil {
		panic(err)
	}
}
