package platforms

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"

	"github.com/shopopti/backend/internal/domain/extraction"
)

func init() {
	adapter := newAdapter(aliexpressProfile)
	adapter.variantHook = aliexpressVariants
	extraction.MustRegister(adapter)
}

var aliexpressProfile = Profile{
	Key:   extraction.PlatformAliExpress,
	Hosts: []string{"aliexpress.", "fr.aliexpress"},
	IDPatterns: []*regexp.Regexp{
		regexp.MustCompile(`/item/(\d+)\.html`),
		regexp.MustCompile(`/i/(\d+)\.html`),
		regexp.MustCompile(`productId=(\d+)`),
	},
	Title: []string{
		`h1[data-pl="product-title"]`,
		".product-title-text",
		".pdp-comp-title h1",
	},
	Brand: []string{
		".store-info a",
		`[data-pl="store-name"]`,
	},
	Description: []string{
		"#product-description",
		".product-description",
		".detail-desc-decorate-richtext",
	},
	Price: []string{
		`.product-price-value`,
		`[class*="currentPriceText"]`,
		`.pdp-comp-price-current`,
	},
	OriginalPrice: []string{
		`.product-price-original`,
		`[class*="originalPriceText"]`,
	},
	Images: []string{
		`[class*="slider--img"] img`,
		".images-view-item img",
		".magnifier-image",
	},
	ImageAttrs:   []string{"data-src", "src"},
	ReviewItem:   `[class*="feedback-item"], .buyer-feedback`,
	ReviewAuthor: `[class*="user-name"], .user-name`,
	ReviewRating: `[class*="star-view"]`,
	ReviewText:   `[class*="feedback-content"], .buyer-feedback-content`,
	ReviewDate:   `[class*="feedback-time"]`,
	SpecRows: []string{
		".product-specs tr",
		`[class*="specification"] tr`,
	},
	Shipping: []string{
		`[class*="dynamic-shipping"]`,
		".product-shipping-info",
	},
	ImageUpgrades: []ImageUpgrade{alicdnHiRes},
}

// aliexpressVariants reads SKU properties from the runParams blob embedded in
// a page script. Markup-level option widgets are render-dependent; the blob is
// stable across layout versions.
var skuPropertyPattern = regexp.MustCompile(`"skuPropertyValues"\s*:\s*(\[[^\]]*\])`)

type aliexpressSKUValue struct {
	PropertyValueID          json.Number `json:"propertyValueId"`
	PropertyValueDisplayName string      `json:"propertyValueDisplayName"`
	SKUPropertyImagePath     string      `json:"skuPropertyImagePath"`
}

func aliexpressVariants(page *extraction.Page) []extraction.Variant {
	var variants []extraction.Variant
	page.Doc.Find("script").EachWithBreak(func(_ int, script *goquery.Selection) bool {
		content := script.Text()
		if !strings.Contains(content, "skuPropertyValues") {
			return true
		}
		for _, m := range skuPropertyPattern.FindAllStringSubmatch(content, -1) {
			var values []aliexpressSKUValue
			if err := json.Unmarshal([]byte(m[1]), &values); err != nil {
				continue
			}
			for _, value := range values {
				if value.PropertyValueDisplayName == "" {
					continue
				}
				variants = append(variants, extraction.Variant{
					ID:        value.PropertyValueID.String(),
					Label:     value.PropertyValueDisplayName,
					Price:     decimal.Zero,
					Image:     value.SKUPropertyImagePath,
					Available: true,
				})
			}
		}
		return len(variants) == 0
	})
	return variants
}
