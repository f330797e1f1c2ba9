package extraction

import (
	"context"
	"fmt"
	"net/url"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shopopti/backend/internal/domain/extraction"
	"github.com/shopopti/backend/internal/infrastructure/dom"
)

const defaultReviewLimit = 50

// ResultCache stores settled extraction records keyed by source URL. A miss
// is (nil, nil).
type ResultCache interface {
	Get(ctx context.Context, sourceURL string) (*extraction.RawExtraction, error)
	Set(ctx context.Context, sourceURL string, raw *extraction.RawExtraction) error
}

// Service runs the fixed set of field extractors against product pages.
type Service struct {
	registry    *extraction.Registry
	source      dom.PageSource
	cache       ResultCache
	reviewLimit int
	logger      *zap.Logger
}

// ServiceOption is a functional option for configuring the service
type ServiceOption func(*Service)

// WithResultCache enables caching of settled extractions
func WithResultCache(cache ResultCache) ServiceOption {
	return func(s *Service) {
		s.cache = cache
	}
}

// WithReviewLimit caps the number of reviews collected per page
func WithReviewLimit(limit int) ServiceOption {
	return func(s *Service) {
		if limit > 0 {
			s.reviewLimit = limit
		}
	}
}

// NewService creates an extraction service.
func NewService(registry *extraction.Registry, source dom.PageSource, logger *zap.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		registry:    registry,
		source:      source,
		reviewLimit: defaultReviewLimit,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ExtractFromURL fetches the page and runs the extractors over the snapshot.
// With a cache configured, a fresh cached record short-circuits the fetch.
// Cache failures degrade to a live extraction, never to an error.
func (s *Service) ExtractFromURL(ctx context.Context, pageURL string) (*extraction.RawExtraction, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, pageURL)
		if err != nil {
			s.logger.Warn("extraction cache read failed", zap.String("url", pageURL), zap.Error(err))
		} else if cached != nil {
			s.logger.Debug("extraction served from cache", zap.String("url", pageURL))
			return cached, nil
		}
	}

	page, err := s.source.FetchPage(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	raw, err := s.Extract(ctx, page)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, pageURL, raw); err != nil {
			s.logger.Warn("extraction cache write failed", zap.String("url", pageURL), zap.Error(err))
		}
	}
	return raw, nil
}

// Extract runs all nine field extractors concurrently over one page snapshot
// and settles when the slowest finishes. A failed extractor contributes a
// field error and its field keeps the zero value; the record as a whole only
// fails when the page URL is unusable or no adapter can be resolved.
func (s *Service) Extract(ctx context.Context, page *extraction.Page) (*extraction.RawExtraction, error) {
	parsed, err := url.Parse(page.URL)
	if err != nil || parsed.Host == "" {
		return nil, fmt.Errorf("extract: invalid page url %q", page.URL)
	}

	adapter, err := s.registry.Detect(parsed.Host)
	if err != nil {
		return nil, fmt.Errorf("extract: resolve adapter: %w", err)
	}

	start := time.Now()
	raw := &extraction.RawExtraction{
		SourcePlatform: adapter.Platform(),
		SourceURL:      page.URL,
		ExternalID:     adapter.ExternalID(page.URL),
	}

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		failed []extraction.FieldError
	)

	// run executes one extractor, isolating its failure to a field error.
	// A panicking extractor must not take the other eight down with it.
	run := func(field string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("extractor panicked",
						zap.String("field", field),
						zap.Any("panic", r),
						zap.ByteString("stack", debug.Stack()))
					mu.Lock()
					failed = append(failed, extraction.FieldError{
						Field:  field,
						Reason: fmt.Sprintf("panic: %v", r),
					})
					mu.Unlock()
				}
			}()
			if err := fn(); err != nil {
				mu.Lock()
				failed = append(failed, extraction.FieldError{Field: field, Reason: err.Error()})
				mu.Unlock()
			}
		}()
	}

	run("basic_info", func() error {
		info, err := adapter.ExtractBasicInfo(page)
		if err != nil {
			return err
		}
		mu.Lock()
		raw.BasicInfo = info
		mu.Unlock()
		return nil
	})
	run("pricing", func() error {
		pricing, err := adapter.ExtractPricing(page)
		if err != nil {
			return err
		}
		mu.Lock()
		raw.Pricing = pricing
		mu.Unlock()
		return nil
	})
	run("images", func() error {
		images, err := adapter.ExtractImages(page)
		if err != nil {
			return err
		}
		mu.Lock()
		raw.Images = images
		mu.Unlock()
		return nil
	})
	run("videos", func() error {
		videos, err := adapter.ExtractVideos(page)
		if err != nil {
			return err
		}
		mu.Lock()
		raw.Videos = videos
		mu.Unlock()
		return nil
	})
	run("variants", func() error {
		variants, err := adapter.ExtractVariants(page)
		if err != nil {
			return err
		}
		mu.Lock()
		raw.Variants = variants
		mu.Unlock()
		return nil
	})
	run("reviews", func() error {
		reviews, err := adapter.ExtractReviews(page, s.reviewLimit)
		if err != nil {
			return err
		}
		mu.Lock()
		raw.Reviews = reviews
		mu.Unlock()
		return nil
	})
	run("specifications", func() error {
		specs, err := adapter.ExtractSpecifications(page)
		if err != nil {
			return err
		}
		mu.Lock()
		raw.Specifications = specs
		mu.Unlock()
		return nil
	})
	run("stock", func() error {
		stock, err := adapter.ExtractStock(page)
		if err != nil {
			return err
		}
		mu.Lock()
		raw.Stock = stock
		mu.Unlock()
		return nil
	})
	run("shipping", func() error {
		shipping, err := adapter.ExtractShipping(page)
		if err != nil {
			return err
		}
		mu.Lock()
		raw.Shipping = shipping
		mu.Unlock()
		return nil
	})

	wg.Wait()

	raw.ExtractionErrors = failed
	raw.ExtractedAt = time.Now().UTC()
	raw.Duration = time.Since(start)
	raw.Normalize()

	s.logger.Info("extraction settled",
		zap.String("platform", raw.SourcePlatform.String()),
		zap.String("url", page.URL),
		zap.Int("field_errors", len(failed)),
		zap.Duration("duration", raw.Duration))
	return raw, nil
}
