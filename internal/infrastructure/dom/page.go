package dom

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/shopopti/backend/internal/domain/extraction"
)

// PageSource delivers a parsed DOM snapshot for a product URL. The plain HTTP
// fetcher covers server-rendered pages; the chromedp renderer covers pages
// that only materialize their product data client side.
type PageSource interface {
	FetchPage(ctx context.Context, pageURL string) (*extraction.Page, error)
}

// ParsePage parses raw HTML into a page snapshot.
func ParsePage(pageURL, html string) (*extraction.Page, error) {
	return ParsePageReader(pageURL, strings.NewReader(html))
}

// ParsePageReader parses HTML from a reader into a page snapshot.
func ParsePageReader(pageURL string, r io.Reader) (*extraction.Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("dom: parse %s: %w", pageURL, err)
	}
	return &extraction.Page{URL: pageURL, Doc: doc}, nil
}
