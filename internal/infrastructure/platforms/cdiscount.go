package platforms

import (
	"regexp"

	"github.com/shopopti/backend/internal/domain/extraction"
)

func init() {
	extraction.MustRegister(newAdapter(cdiscountProfile))
}

var cdiscountProfile = Profile{
	Key:   extraction.PlatformCdiscount,
	Hosts: []string{"cdiscount.com"},
	IDPatterns: []*regexp.Regexp{
		regexp.MustCompile(`/f-[\w-]+-([a-z0-9]+)\.html`),
		regexp.MustCompile(`/dp/([a-z0-9]+)`),
		regexp.MustCompile(`sku=([a-zA-Z0-9]+)`),
	},
	Title: []string{
		`h1[itemprop="name"]`,
		".fpDesCol h1",
		"h1.c-fp-heading__title",
	},
	Brand: []string{
		`[itemprop="brand"]`,
		".fpBlocSeller a",
		".c-fp-seller__name",
	},
	Description: []string{
		"#fpContent .fpDescTb",
		`[itemprop="description"]`,
		".c-fp-description",
	},
	Price: []string{
		`.fpPrice[itemprop="price"]`,
		".c-price--promo",
		".c-price",
		".fpPrice",
	},
	OriginalPrice: []string{
		".fpStriked",
		".c-price--crossed",
	},
	Images: []string{
		"#fpZnPhotoLarge img",
		".fpMainImg img",
		".c-fp-images__main img",
		".c-fp-images__thumbs img",
	},
	ImageAttrs:   []string{"data-src", "data-zoom-image", "src"},
	ReviewItem:   ".fpCusto .rvcBlock, .c-review",
	ReviewAuthor: ".rvcAuthor, .c-review__author",
	ReviewRating: ".rvcNote, .c-review__rating",
	ReviewText:   ".rvcText, .c-review__body",
	ReviewDate:   ".rvcDate, .c-review__date",
	SpecRows: []string{
		"#fpBlocFicheTech tr",
		".fpDescTbPub tr",
		".c-fp-specs tr",
	},
	Shipping: []string{
		".fpDelivery",
		".c-fp-delivery",
	},
}
