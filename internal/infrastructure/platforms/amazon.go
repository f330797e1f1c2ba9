package platforms

import (
	"regexp"

	"github.com/shopopti/backend/internal/domain/extraction"
)

func init() {
	extraction.MustRegister(newAdapter(amazonProfile))
}

var amazonProfile = Profile{
	Key:   extraction.PlatformAmazon,
	Hosts: []string{"amazon."},
	IDPatterns: []*regexp.Regexp{
		regexp.MustCompile(`/dp/([A-Z0-9]{10})`),
		regexp.MustCompile(`/gp/product/([A-Z0-9]{10})`),
		regexp.MustCompile(`/gp/aw/d/([A-Z0-9]{10})`),
	},
	Title: []string{"#productTitle", "#title span"},
	Brand: []string{"#bylineInfo", "a#brand", ".po-brand .po-break-word"},
	Description: []string{
		"#productDescription", "#feature-bullets", "#aplus",
	},
	Price: []string{
		".a-price .a-offscreen",
		"#priceblock_ourprice",
		"#priceblock_dealprice",
		"#corePrice_feature_div .a-price .a-offscreen",
	},
	OriginalPrice: []string{
		".a-price.a-text-price .a-offscreen",
		"#priceblock_listprice",
	},
	Images: []string{
		"#landingImage",
		"#imgBlkFront",
		"#altImages img",
		"#main-image-container img",
	},
	ImageAttrs:     []string{"data-old-hires", "data-a-hires", "src"},
	ReviewItem:     `[data-hook="review"]`,
	ReviewAuthor:   ".a-profile-name",
	ReviewRating:   `[data-hook="review-star-rating"], [data-hook="cmps-review-star-rating"]`,
	ReviewText:     `[data-hook="review-body"]`,
	ReviewDate:     `[data-hook="review-date"]`,
	ReviewVerified: `[data-hook="avp-badge"]`,
	SpecRows: []string{
		"#productDetails_techSpec_section_1 tr",
		"#productDetails_detailBullets_sections1 tr",
		"#prodDetails tr",
	},
	Shipping: []string{
		"#mir-layout-DELIVERY_BLOCK",
		"#deliveryBlockMessage",
		"#amazonGlobal_feature_div",
	},
	ImageUpgrades: []ImageUpgrade{amazonHiRes},
}
