package platforms

import (
	"regexp"

	"github.com/shopopti/backend/internal/domain/extraction"
)

func init() {
	extraction.MustRegister(newAdapter(ebayProfile))
}

var ebayProfile = Profile{
	Key:   extraction.PlatformEbay,
	Hosts: []string{"ebay."},
	IDPatterns: []*regexp.Regexp{
		regexp.MustCompile(`/itm/(?:[^/]+/)?(\d+)`),
		regexp.MustCompile(`[?&]item=(\d+)`),
	},
	Title: []string{
		".x-item-title__mainTitle",
		"#itemTitle",
		"h1.it-ttl",
	},
	Brand: []string{
		`.ux-labels-values--brand .ux-labels-values__values`,
		`[itemprop="brand"]`,
	},
	Description: []string{
		"#viTabs_0_is",
		".x-item-description",
		"#desc_div",
	},
	Price: []string{
		".x-price-primary",
		"#prcIsum",
		"#mm-saleDscPrc",
		`[itemprop="price"]`,
	},
	OriginalPrice: []string{
		".x-additional-info__textual-display .ux-textspans--STRIKETHROUGH",
		"#orgPrc",
	},
	Images: []string{
		".ux-image-carousel-item img",
		"#icImg",
		"#mainImgHldr img",
	},
	ImageAttrs:   []string{"data-zoom-src", "data-src", "src"},
	ReviewItem:   ".reviews .ebay-review-section, .fdbk-container",
	ReviewAuthor: ".review-item-author, .fdbk-container__details__info__username",
	ReviewRating: ".star-rating, .fdbk-star-rating",
	ReviewText:   ".review-item-content, .fdbk-container__details__comment",
	ReviewDate:   ".review-item-date, .fdbk-container__details__info__divide__time",
	SpecRows: []string{
		".ux-layout-section--features tr",
		"#viTabs_0_is .itemAttr tr",
	},
	Shipping: []string{
		".ux-labels-values--shipping .ux-labels-values__values",
		"#fshippingCost",
	},
}
