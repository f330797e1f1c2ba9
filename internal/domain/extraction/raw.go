package extraction

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is assumed when a page exposes no currency signal.
const DefaultCurrency = "EUR"

// Platform identifies the source marketplace of an extraction.
type Platform string

const (
	PlatformAmazon     Platform = "amazon"
	PlatformAliExpress Platform = "aliexpress"
	PlatformCdiscount  Platform = "cdiscount"
	PlatformEbay       Platform = "ebay"
	PlatformShopify    Platform = "shopify"
	PlatformGeneric    Platform = "generic"
)

// String returns the string representation of Platform
func (p Platform) String() string {
	return string(p)
}

// IsValid returns true if the platform is one of the known codes
func (p Platform) IsValid() bool {
	switch p {
	case PlatformAmazon, PlatformAliExpress, PlatformCdiscount,
		PlatformEbay, PlatformShopify, PlatformGeneric:
		return true
	default:
		return false
	}
}

// BasicInfo holds the identifying text fields of a product page.
type BasicInfo struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Brand       string `json:"brand"`
	SKU         string `json:"sku"`
	GTIN        string `json:"gtin"`
	MPN         string `json:"mpn"`
}

// Pricing holds the price fields of a product page.
type Pricing struct {
	Price         decimal.Decimal `json:"price"`
	OriginalPrice decimal.Decimal `json:"original_price"`
	Currency      string          `json:"currency"`
}

// VideoKind classifies where a product video came from.
type VideoKind string

const (
	VideoKindDirect VideoKind = "direct"
	VideoKindEmbed  VideoKind = "embed"
)

// Video is a product video reference.
type Video struct {
	URL  string    `json:"url"`
	Kind VideoKind `json:"kind"`
}

// Variant is one purchasable variation of the product.
type Variant struct {
	ID        string          `json:"id"`
	Label     string          `json:"label"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image,omitempty"`
	Available bool            `json:"available"`
}

// Review is one customer review scraped from the page.
type Review struct {
	Author   string   `json:"author"`
	Rating   float64  `json:"rating"`
	Text     string   `json:"text"`
	Date     string   `json:"date,omitempty"`
	Verified bool     `json:"verified"`
	Images   []string `json:"images,omitempty"`
}

// StockStatus classifies page availability signals.
type StockStatus string

const (
	StockStatusInStock    StockStatus = "in_stock"
	StockStatusOutOfStock StockStatus = "out_of_stock"
	StockStatusLowStock   StockStatus = "low_stock"
	StockStatusPreorder   StockStatus = "preorder"
	StockStatusUnknown    StockStatus = "unknown"
)

// Stock holds the availability signals of a product page.
type Stock struct {
	InStock  bool        `json:"in_stock"`
	Quantity *int        `json:"quantity,omitempty"`
	Status   StockStatus `json:"status"`
}

// Shipping holds delivery information scraped from the page.
type Shipping struct {
	Info             string           `json:"info"`
	FreeShipping     bool             `json:"free_shipping"`
	DeliveryEstimate string           `json:"delivery_estimate"`
	Cost             *decimal.Decimal `json:"cost,omitempty"`
}

// FieldError records one non-fatal field-level extraction failure.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// RawExtraction is the unvalidated output of running every field extractor
// against one page. Title and price are the only fields whose absence can make
// the record unusable; everything else degrades to empty defaults.
// Immutable once assembled by the extraction contract.
type RawExtraction struct {
	SourcePlatform Platform `json:"source_platform"`
	SourceURL      string   `json:"source_url"`
	ExternalID     string   `json:"external_id,omitempty"`

	BasicInfo
	Pricing

	Images         []string          `json:"images"`
	Videos         []Video           `json:"videos"`
	Variants       []Variant         `json:"variants"`
	Reviews        []Review          `json:"reviews"`
	Specifications map[string]string `json:"specifications"`
	Stock          Stock             `json:"stock"`
	Shipping       Shipping          `json:"shipping"`

	ExtractionErrors []FieldError  `json:"extraction_errors,omitempty"`
	ExtractedAt      time.Time     `json:"extracted_at"`
	Duration         time.Duration `json:"duration_millis"`
}

// HasTitle reports whether the extraction carries a usable title.
func (r *RawExtraction) HasTitle() bool {
	return r.Title != ""
}

// HasPrice reports whether the extraction carries a usable price.
func (r *RawExtraction) HasPrice() bool {
	return r.Price.IsPositive()
}

// Normalize applies every field default in one place: nil collections become
// empty, the currency falls back to EUR, and variants without their own price
// inherit the parent price. Idempotent.
func (r *RawExtraction) Normalize() {
	if r.Images == nil {
		r.Images = []string{}
	}
	if r.Videos == nil {
		r.Videos = []Video{}
	}
	if r.Variants == nil {
		r.Variants = []Variant{}
	}
	if r.Reviews == nil {
		r.Reviews = []Review{}
	}
	if r.Specifications == nil {
		r.Specifications = map[string]string{}
	}
	if r.Currency == "" {
		r.Currency = DefaultCurrency
	}
	if r.Stock.Status == "" {
		r.Stock.Status = StockStatusUnknown
	}
	for i := range r.Variants {
		if r.Variants[i].Price.IsZero() {
			r.Variants[i].Price = r.Price
		}
	}
}
