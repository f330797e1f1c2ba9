package platforms

import (
	"regexp"

	"github.com/shopopti/backend/internal/domain/extraction"
)

func init() {
	extraction.MustRegister(newAdapter(genericProfile))
}

// genericProfile has no host patterns. The registry only selects it as the
// fallback when no platform-specific adapter matches, so it leans on
// structured data and broad heuristic selectors.
var genericProfile = Profile{
	Key: extraction.PlatformGeneric,
	IDPatterns: []*regexp.Regexp{
		regexp.MustCompile(`/products?/([\w-]+)`),
		regexp.MustCompile(`[?&](?:id|sku|product_id)=([\w-]+)`),
	},
	Title: []string{
		"h1",
		`[itemprop="name"]`,
		".product-title",
		".product-name",
	},
	Brand: []string{
		`[itemprop="brand"]`,
		".brand",
		".product-brand",
		".vendor",
	},
	Description: []string{
		`[itemprop="description"]`,
		".product-description",
		".description",
		"#description",
	},
	Price: []string{
		`[itemprop="price"]`,
		".price",
		".product-price",
		".current-price",
		`[class*="price"]`,
	},
	OriginalPrice: []string{
		".old-price",
		".compare-price",
		`[class*="original-price"]`,
	},
	Images: []string{
		`[itemprop="image"]`,
		".product-image img",
		".product-gallery img",
		".gallery img",
		"main img",
	},
	ImageAttrs:   []string{"data-src", "data-lazy-src", "src"},
	ReviewItem:   `.review, [itemprop="review"], [class*="review-item"]`,
	ReviewAuthor: `.review-author, [itemprop="author"]`,
	ReviewRating: `.review-rating, [itemprop="ratingValue"]`,
	ReviewText:   `.review-text, .review-body, [itemprop="reviewBody"]`,
	ReviewDate:   `.review-date, [itemprop="datePublished"]`,
	SpecRows: []string{
		".specifications tr",
		".product-specs tr",
		".attributes tr",
		"table tr",
	},
	Shipping: []string{
		".shipping-info",
		".delivery-info",
		`[class*="shipping"]`,
	},
}
