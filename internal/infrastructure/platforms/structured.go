package platforms

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"

	"github.com/shopopti/backend/internal/domain/extraction"
)

// jsonLDProduct is the subset of a schema.org Product node the extractors
// care about. Fields that appear as either a scalar or an object in the wild
// are decoded as json.RawMessage and resolved lazily.
type jsonLDProduct struct {
	Type        string          `json:"@type"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	SKU         string          `json:"sku"`
	ProductID   string          `json:"productID"`
	GTIN        string          `json:"gtin"`
	GTIN13      string          `json:"gtin13"`
	GTIN12      string          `json:"gtin12"`
	MPN         string          `json:"mpn"`
	Brand       json.RawMessage `json:"brand"`
	Image       json.RawMessage `json:"image"`
	Offers      json.RawMessage `json:"offers"`
}

type jsonLDOffer struct {
	Price         json.Number `json:"price"`
	HighPrice     json.Number `json:"highPrice"`
	PriceCurrency string      `json:"priceCurrency"`
	Availability  string      `json:"availability"`
	SKU           string      `json:"sku"`
}

// jsonLDProducts parses every schema.org Product node embedded in the page.
// Malformed script blocks are skipped, never fatal.
func jsonLDProducts(page *extraction.Page) []jsonLDProduct {
	var products []jsonLDProduct
	page.Doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return
		}
		var single jsonLDProduct
		if err := json.Unmarshal([]byte(raw), &single); err == nil && single.Type == "Product" {
			products = append(products, single)
			return
		}
		var many []jsonLDProduct
		if err := json.Unmarshal([]byte(raw), &many); err == nil {
			for _, item := range many {
				if item.Type == "Product" {
					products = append(products, item)
				}
			}
		}
	})
	return products
}

func (p jsonLDProduct) brandName() string {
	if len(p.Brand) == 0 {
		return ""
	}
	var name string
	if err := json.Unmarshal(p.Brand, &name); err == nil {
		return name
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(p.Brand, &obj); err == nil {
		return obj.Name
	}
	return ""
}

func (p jsonLDProduct) images() []string {
	if len(p.Image) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(p.Image, &list); err == nil {
		return list
	}
	var single string
	if err := json.Unmarshal(p.Image, &single); err == nil && single != "" {
		return []string{single}
	}
	var objs []struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(p.Image, &objs); err == nil {
		urls := make([]string, 0, len(objs))
		for _, o := range objs {
			if o.URL != "" {
				urls = append(urls, o.URL)
			}
		}
		return urls
	}
	return nil
}

func (p jsonLDProduct) offers() []jsonLDOffer {
	if len(p.Offers) == 0 {
		return nil
	}
	var many []jsonLDOffer
	if err := json.Unmarshal(p.Offers, &many); err == nil {
		return many
	}
	var single jsonLDOffer
	if err := json.Unmarshal(p.Offers, &single); err == nil {
		return []jsonLDOffer{single}
	}
	return nil
}

func (p jsonLDProduct) identifier() string {
	switch {
	case p.SKU != "":
		return p.SKU
	case p.ProductID != "":
		return p.ProductID
	default:
		return ""
	}
}

func (p jsonLDProduct) gtin() string {
	switch {
	case p.GTIN != "":
		return p.GTIN
	case p.GTIN13 != "":
		return p.GTIN13
	case p.GTIN12 != "":
		return p.GTIN12
	default:
		return ""
	}
}

func offerPrice(o jsonLDOffer) decimal.Decimal {
	if o.Price == "" {
		return decimal.Zero
	}
	price, err := decimal.NewFromString(o.Price.String())
	if err != nil {
		return decimal.Zero
	}
	return price
}

// openGraphMeta reads an OpenGraph or plain meta tag value.
func openGraphMeta(page *extraction.Page, properties ...string) string {
	for _, prop := range properties {
		sel := page.Doc.Find(`meta[property="` + prop + `"], meta[name="` + prop + `"]`).First()
		if content, ok := sel.Attr("content"); ok && strings.TrimSpace(content) != "" {
			return strings.TrimSpace(content)
		}
	}
	return ""
}
