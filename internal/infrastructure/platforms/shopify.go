package platforms

import (
	"encoding/json"
	"regexp"
	"strconv"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"

	"github.com/shopopti/backend/internal/domain/extraction"
)

func init() {
	adapter := newAdapter(shopifyProfile)
	adapter.variantHook = shopifyVariants
	extraction.MustRegister(adapter)
}

var shopifyProfile = Profile{
	Key:   extraction.PlatformShopify,
	Hosts: []string{"myshopify.com", ".shopify.com"},
	IDPatterns: []*regexp.Regexp{
		regexp.MustCompile(`/products/([a-z0-9-]+)`),
	},
	Title: []string{
		".product__title",
		"h1.product-single__title",
		".product-title",
	},
	Brand: []string{
		".product__vendor",
		".product-single__vendor",
	},
	Description: []string{
		".product__description",
		".product-single__description",
		".product-description",
	},
	Price: []string{
		".price__regular .price-item--regular",
		".product__price",
		".product-single__price",
		`[data-product-price]`,
	},
	OriginalPrice: []string{
		".price__sale .price-item--regular",
		".product__price--compare",
	},
	Images: []string{
		".product__media img",
		".product-single__photo img",
		".product__main-photos img",
	},
	ImageAttrs:   []string{"data-src", "src"},
	ReviewItem:   ".spr-review, .jdgm-rev",
	ReviewAuthor: ".spr-review-header-byline strong, .jdgm-rev__author",
	ReviewRating: ".spr-starratings, .jdgm-rev__rating",
	ReviewText:   ".spr-review-content-body, .jdgm-rev__body",
	ReviewDate:   ".spr-review-header-byline, .jdgm-rev__timestamp",
	SpecRows: []string{
		".product__specs tr",
		".product-single__meta tr",
	},
	Shipping: []string{
		".product__shipping",
		".shipping-policy",
	},
	ImageUpgrades: []ImageUpgrade{shopifyHiRes},
}

type shopifyProductJSON struct {
	Variants []struct {
		ID        json.Number `json:"id"`
		Title     string      `json:"title"`
		Price     json.Number `json:"price"`
		Available bool        `json:"available"`
	} `json:"variants"`
}

// shopifyVariants reads the theme-embedded product JSON. Variant prices there
// are integer cents.
func shopifyVariants(page *extraction.Page) []extraction.Variant {
	var variants []extraction.Variant
	page.Doc.Find(`script[data-product-json], script[id^="ProductJson"], script[type="application/json"][data-product]`).
		EachWithBreak(func(_ int, script *goquery.Selection) bool {
			var product shopifyProductJSON
			if err := json.Unmarshal([]byte(script.Text()), &product); err != nil {
				return true
			}
			for _, v := range product.Variants {
				cents, err := strconv.ParseInt(v.Price.String(), 10, 64)
				if err != nil {
					continue
				}
				variants = append(variants, extraction.Variant{
					ID:        v.ID.String(),
					Label:     v.Title,
					Price:     decimal.New(cents, -2),
					Available: v.Available,
				})
			}
			return len(variants) == 0
		})
	return variants
}
