package platforms

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"

	"github.com/shopopti/backend/internal/domain/extraction"
)

// Profile declares the selector chains and URL patterns for one platform.
// Each field lists selectors in fallback order: primary, then legacy, then a
// heuristic class-name match, because target markup changes without notice.
type Profile struct {
	Key   extraction.Platform
	Hosts []string

	// IDPatterns are ordered URL-pattern candidates; the first submatch of
	// the first matching pattern is the platform-native product id.
	IDPatterns []*regexp.Regexp

	Title       []string
	Brand       []string
	Description []string

	Price         []string
	OriginalPrice []string

	Images     []string
	ImageAttrs []string

	ReviewItem     string
	ReviewAuthor   string
	ReviewRating   string
	ReviewText     string
	ReviewDate     string
	ReviewVerified string

	SpecRows []string
	Shipping []string

	VariantSelects []string

	ImageUpgrades []ImageUpgrade
}

// adapter is the selector-driven implementation of the platform adapter
// contract shared by every concrete platform. Platforms that need more than
// selectors (script-embedded variant data, for instance) attach hooks.
type adapter struct {
	profile     Profile
	variantHook func(page *extraction.Page) []extraction.Variant
}

func newAdapter(profile Profile) *adapter {
	return &adapter{profile: profile}
}

// Platform returns the key this adapter is registered under.
func (a *adapter) Platform() extraction.Platform {
	return a.profile.Key
}

// Matches reports whether the hostname belongs to this platform.
func (a *adapter) Matches(host string) bool {
	host = strings.ToLower(host)
	for _, pattern := range a.profile.Hosts {
		if strings.Contains(host, pattern) {
			return true
		}
	}
	return false
}

// ExternalID tries each URL-pattern candidate in order; no match is non-fatal.
func (a *adapter) ExternalID(pageURL string) string {
	for _, pattern := range a.profile.IDPatterns {
		if m := pattern.FindStringSubmatch(pageURL); len(m) > 1 {
			return m[1]
		}
	}
	return ""
}

// ---------------------------------------------------------------------------
// Basic info
// ---------------------------------------------------------------------------

// ExtractBasicInfo reads title, description, brand and identifiers. JSON-LD is
// the most reliable signal, then OpenGraph, then the selector chains.
func (a *adapter) ExtractBasicInfo(page *extraction.Page) (extraction.BasicInfo, error) {
	info := extraction.BasicInfo{}

	for _, product := range jsonLDProducts(page) {
		if product.Name != "" {
			info.Title = cleanText(product.Name)
			info.Description = cleanText(product.Description)
			info.Brand = cleanText(product.brandName())
			info.SKU = product.identifier()
			info.GTIN = product.gtin()
			info.MPN = product.MPN
			break
		}
	}

	if info.Title == "" {
		info.Title = cleanText(openGraphMeta(page, "og:title", "twitter:title"))
		if info.Description == "" {
			info.Description = cleanText(openGraphMeta(page, "og:description", "twitter:description", "description"))
		}
	}

	if info.Title == "" {
		info.Title = textFirst(page, a.profile.Title)
	}
	if info.Brand == "" {
		info.Brand = stripBrandPrefix(textFirst(page, a.profile.Brand))
	}
	if info.Description == "" {
		info.Description = truncate(textFirst(page, a.profile.Description), 5000)
	}

	if info.Title == "" {
		return info, fmt.Errorf("basic_info: no title selector matched")
	}
	return info, nil
}

var brandPrefix = regexp.MustCompile(`(?i)^(par|by|marque|brand|visit(\sthe)?)\s+`)

func stripBrandPrefix(brand string) string {
	return strings.TrimSpace(brandPrefix.ReplaceAllString(brand, ""))
}

// ---------------------------------------------------------------------------
// Pricing
// ---------------------------------------------------------------------------

// ExtractPricing reads the current and original price. The documented default
// on failure is {price: 0, currency: EUR}.
func (a *adapter) ExtractPricing(page *extraction.Page) (extraction.Pricing, error) {
	pricing := extraction.Pricing{Currency: extraction.DefaultCurrency}

	for _, product := range jsonLDProducts(page) {
		offers := product.offers()
		if len(offers) == 0 {
			continue
		}
		price := offerPrice(offers[0])
		if !price.IsPositive() {
			continue
		}
		pricing.Price = price
		if high, err := decimal.NewFromString(offers[0].HighPrice.String()); err == nil && high.GreaterThan(price) {
			pricing.OriginalPrice = high
		}
		if offers[0].PriceCurrency != "" {
			pricing.Currency = offers[0].PriceCurrency
		}
		return pricing, nil
	}

	for _, sel := range a.profile.Price {
		node := page.Doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		raw := nodePriceText(node)
		price, currency, err := ParsePrice(raw)
		if err != nil || !price.IsPositive() {
			continue
		}
		pricing.Price = price
		if currency != "" {
			pricing.Currency = currency
		}
		break
	}

	if !pricing.Price.IsPositive() {
		return pricing, fmt.Errorf("pricing: no price selector matched")
	}

	for _, sel := range append(a.profile.OriginalPrice, defaultOriginalPriceSelectors...) {
		node := page.Doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		if original, _, err := ParsePrice(nodePriceText(node)); err == nil && original.GreaterThan(pricing.Price) {
			pricing.OriginalPrice = original
			break
		}
	}

	return pricing, nil
}

var defaultOriginalPriceSelectors = []string{
	".a-text-strike", ".originalPrice", ".was-price", ".old-price", "del", "s.price",
}

func nodePriceText(node *goquery.Selection) string {
	if content, ok := node.Attr("content"); ok && content != "" {
		return content
	}
	return node.Text()
}

// ---------------------------------------------------------------------------
// Images
// ---------------------------------------------------------------------------

const maxExtractedImages = 50

// ExtractImages collects gallery images from the selector chain and JSON-LD,
// deduplicated by content key and upgraded to HTTPS/high resolution.
func (a *adapter) ExtractImages(page *extraction.Page) ([]string, error) {
	var sources []string

	attrs := a.profile.ImageAttrs
	if len(attrs) == 0 {
		attrs = []string{"data-old-hires", "data-a-hires", "data-src", "src"}
	}

	for _, sel := range a.profile.Images {
		page.Doc.Find(sel).Each(func(_ int, img *goquery.Selection) {
			for _, attr := range attrs {
				if src, ok := img.Attr(attr); ok && src != "" {
					sources = append(sources, src)
					return
				}
			}
		})
	}

	for _, product := range jsonLDProducts(page) {
		sources = append(sources, product.images()...)
	}

	return DedupeImages(sources, a.profile.ImageUpgrades, maxExtractedImages), nil
}

// ---------------------------------------------------------------------------
// Videos
// ---------------------------------------------------------------------------

const maxExtractedVideos = 20

var videoURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`"videoUrl"\s*:\s*"([^"]+)"`),
	regexp.MustCompile(`"video_url"\s*:\s*"([^"]+)"`),
	regexp.MustCompile(`"playUrl"\s*:\s*"([^"]+)"`),
	regexp.MustCompile(`https?://[^"'\s]+\.mp4[^"'\s]*`),
	regexp.MustCompile(`https?://[^"'\s]+\.m3u8[^"'\s]*`),
}

var invalidVideoURL = regexp.MustCompile(`(?i)analytics|tracking|pixel|ads\.|\.gif$|\.png$`)
var validVideoURL = regexp.MustCompile(`(?i)\.(mp4|webm|m3u8|mov)|video|player|youtube|vimeo|dailymotion`)

// ExtractVideos harvests product videos from media elements, script-embedded
// URLs and player iframes.
func (a *adapter) ExtractVideos(page *extraction.Page) ([]extraction.Video, error) {
	seen := make(map[string]struct{})
	var videos []extraction.Video

	add := func(url string, kind extraction.VideoKind) {
		url = cleanVideoURL(url)
		if url == "" || invalidVideoURL.MatchString(url) || !validVideoURL.MatchString(url) {
			return
		}
		if _, dup := seen[url]; dup {
			return
		}
		seen[url] = struct{}{}
		videos = append(videos, extraction.Video{URL: url, Kind: kind})
	}

	page.Doc.Find("video source, video").Each(func(_ int, el *goquery.Selection) {
		if src, ok := el.Attr("src"); ok {
			add(src, extraction.VideoKindDirect)
		}
	})

	page.Doc.Find("script").Each(func(_ int, script *goquery.Selection) {
		content := script.Text()
		for _, pattern := range videoURLPatterns {
			for _, m := range pattern.FindAllStringSubmatch(content, -1) {
				url := m[0]
				if len(m) > 1 {
					url = m[1]
				}
				add(url, extraction.VideoKindDirect)
			}
		}
	})

	page.Doc.Find(`iframe[src*="video"], iframe[src*="player"], iframe[src*="youtube"]`).Each(func(_ int, iframe *goquery.Selection) {
		if src, ok := iframe.Attr("src"); ok {
			add(src, extraction.VideoKindEmbed)
		}
	})

	if len(videos) > maxExtractedVideos {
		videos = videos[:maxExtractedVideos]
	}
	return videos, nil
}

func cleanVideoURL(url string) string {
	return strings.TrimSpace(strings.ReplaceAll(url, `\/`, "/"))
}

// ---------------------------------------------------------------------------
// Variants
// ---------------------------------------------------------------------------

// ExtractVariants reads purchasable variations: JSON-LD multi-offer data
// first, then the platform hook, then generic option selects.
func (a *adapter) ExtractVariants(page *extraction.Page) ([]extraction.Variant, error) {
	var variants []extraction.Variant

	for _, product := range jsonLDProducts(page) {
		offers := product.offers()
		if len(offers) < 2 {
			continue
		}
		for i, offer := range offers {
			id := offer.SKU
			if id == "" {
				id = fmt.Sprintf("variant-%d", i)
			}
			variants = append(variants, extraction.Variant{
				ID:        id,
				Label:     id,
				Price:     offerPrice(offer),
				Available: !strings.Contains(strings.ToLower(offer.Availability), "outofstock"),
			})
		}
		return variants, nil
	}

	if a.variantHook != nil {
		if hooked := a.variantHook(page); len(hooked) > 0 {
			return hooked, nil
		}
	}

	selects := a.profile.VariantSelects
	if len(selects) == 0 {
		selects = []string{`select[name*="variant"]`, `select[name*="size"]`, `select[name*="color"]`}
	}
	for _, sel := range selects {
		page.Doc.Find(sel + " option:not([disabled])").Each(func(_ int, option *goquery.Selection) {
			value, _ := option.Attr("value")
			if value == "" {
				return
			}
			variants = append(variants, extraction.Variant{
				ID:        value,
				Label:     cleanText(option.Text()),
				Available: true,
			})
		})
	}

	return variants, nil
}

// ---------------------------------------------------------------------------
// Reviews
// ---------------------------------------------------------------------------

const maxReviewImages = 10

// ExtractReviews reads up to limit customer reviews using the profile's
// review selectors.
func (a *adapter) ExtractReviews(page *extraction.Page, limit int) ([]extraction.Review, error) {
	if a.profile.ReviewItem == "" {
		return nil, nil
	}

	var reviews []extraction.Review
	page.Doc.Find(a.profile.ReviewItem).EachWithBreak(func(i int, item *goquery.Selection) bool {
		if limit > 0 && i >= limit {
			return false
		}
		author := cleanText(item.Find(a.profile.ReviewAuthor).First().Text())
		if author == "" {
			author = "Anonymous"
		}
		text := cleanText(item.Find(a.profile.ReviewText).First().Text())
		rating := parseRating(item.Find(a.profile.ReviewRating).First())
		if text == "" && rating == 0 {
			return true
		}

		var images []string
		item.Find("img").Each(func(_ int, img *goquery.Selection) {
			if len(images) >= maxReviewImages {
				return
			}
			if src, ok := img.Attr("src"); ok && strings.Contains(src, "http") && !strings.Contains(src, "avatar") {
				images = append(images, src)
			}
		})

		reviews = append(reviews, extraction.Review{
			Author:   author,
			Rating:   rating,
			Text:     truncate(text, 5000),
			Date:     cleanText(item.Find(a.profile.ReviewDate).First().Text()),
			Verified: a.profile.ReviewVerified != "" && item.Find(a.profile.ReviewVerified).Length() > 0,
			Images:   images,
		})
		return true
	})

	return reviews, nil
}

var ratingPattern = regexp.MustCompile(`(\d[.,]?\d?)`)

func parseRating(node *goquery.Selection) float64 {
	if node.Length() == 0 {
		return 5
	}
	text := node.Text()
	if label, ok := node.Attr("aria-label"); ok && text == "" {
		text = label
	}
	m := ratingPattern.FindStringSubmatch(text)
	if m == nil {
		return 5
	}
	rating, err := strconv.ParseFloat(strings.Replace(m[1], ",", ".", 1), 64)
	if err != nil {
		return 5
	}
	if rating < 1 {
		return 1
	}
	if rating > 5 {
		return 5
	}
	return rating
}

// ---------------------------------------------------------------------------
// Specifications
// ---------------------------------------------------------------------------

const (
	maxSpecKeyLength   = 100
	maxSpecValueLength = 500
)

// ExtractSpecifications reads the label→value specification table. The first
// selector in the chain that yields any rows wins.
func (a *adapter) ExtractSpecifications(page *extraction.Page) (map[string]string, error) {
	specs := map[string]string{}
	for _, sel := range a.profile.SpecRows {
		page.Doc.Find(sel).Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("td, th")
			if cells.Length() < 2 {
				return
			}
			key := cleanText(cells.Eq(0).Text())
			value := cleanText(cells.Eq(1).Text())
			if key == "" || value == "" || len(key) >= maxSpecKeyLength || len(value) >= maxSpecValueLength {
				return
			}
			if _, exists := specs[key]; !exists {
				specs[key] = value
			}
		})
		if len(specs) > 0 {
			break
		}
	}
	return specs, nil
}

// ---------------------------------------------------------------------------
// Stock
// ---------------------------------------------------------------------------

var stockKeywords = []struct {
	status   extraction.StockStatus
	keywords []string
}{
	{extraction.StockStatusOutOfStock, []string{"rupture", "out of stock", "épuisé", "unavailable", "sold out"}},
	{extraction.StockStatusLowStock, []string{"limité", "limited stock", "few left", "plus que", "only"}},
	{extraction.StockStatusInStock, []string{"en stock", "in stock", "disponible", "available", "add to cart"}},
}

// ExtractStock classifies availability: JSON-LD offer availability first, then
// availability language in the page text, then the add-to-cart control.
func (a *adapter) ExtractStock(page *extraction.Page) (extraction.Stock, error) {
	for _, product := range jsonLDProducts(page) {
		for _, offer := range product.offers() {
			if offer.Availability == "" {
				continue
			}
			status := mapAvailability(offer.Availability)
			return extraction.Stock{
				InStock: status != extraction.StockStatusOutOfStock,
				Status:  status,
			}, nil
		}
	}

	pageText := strings.ToLower(truncate(page.Doc.Find("body").Text(), 10000))
	for _, group := range stockKeywords {
		for _, keyword := range group.keywords {
			if strings.Contains(pageText, keyword) {
				return extraction.Stock{
					InStock: group.status != extraction.StockStatusOutOfStock,
					Status:  group.status,
				}, nil
			}
		}
	}

	cart := page.Doc.Find(`#add-to-cart-button, [data-testid="add-to-cart"], .add-to-cart`).First()
	if cart.Length() > 0 {
		_, disabled := cart.Attr("disabled")
		if !disabled {
			return extraction.Stock{InStock: true, Status: extraction.StockStatusInStock}, nil
		}
	}

	return extraction.Stock{Status: extraction.StockStatusUnknown}, nil
}

func mapAvailability(availability string) extraction.StockStatus {
	lower := strings.ToLower(availability)
	switch {
	case strings.Contains(lower, "instock"):
		return extraction.StockStatusInStock
	case strings.Contains(lower, "outofstock"):
		return extraction.StockStatusOutOfStock
	case strings.Contains(lower, "preorder"):
		return extraction.StockStatusPreorder
	case strings.Contains(lower, "limited"):
		return extraction.StockStatusLowStock
	default:
		return extraction.StockStatusUnknown
	}
}

// ---------------------------------------------------------------------------
// Shipping
// ---------------------------------------------------------------------------

var (
	freeShippingPattern = regexp.MustCompile(`(?i)free|gratuit|livraison offerte|0[,.]00`)
	deliveryTimePattern = regexp.MustCompile(`(?i)(\d+)\s*[-à]\s*(\d+)\s*(jours?|days?|semaines?|weeks?)`)
)

// ExtractShipping reads the delivery block and derives the free-shipping flag
// and a delivery-time estimate from its text.
func (a *adapter) ExtractShipping(page *extraction.Page) (extraction.Shipping, error) {
	for _, sel := range a.profile.Shipping {
		node := page.Doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		info := truncate(cleanText(node.Text()), 500)
		if info == "" {
			continue
		}
		shipping := extraction.Shipping{
			Info:         info,
			FreeShipping: freeShippingPattern.MatchString(info),
		}
		if m := deliveryTimePattern.FindString(info); m != "" {
			shipping.DeliveryEstimate = m
		}
		if shipping.FreeShipping {
			zero := decimal.Zero
			shipping.Cost = &zero
		}
		return shipping, nil
	}
	return extraction.Shipping{}, nil
}

// ---------------------------------------------------------------------------
// Text helpers
// ---------------------------------------------------------------------------

var whitespace = regexp.MustCompile(`\s+`)

func cleanText(text string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(text, " "))
}

func truncate(text string, max int) string {
	if len(text) <= max {
		return text
	}
	return text[:max]
}

func textFirst(page *extraction.Page, selectors []string) string {
	for _, sel := range selectors {
		if text := cleanText(page.Doc.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

var _ extraction.PlatformAdapter = (*adapter)(nil)
