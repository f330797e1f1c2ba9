package platforms

import (
	"path"
	"regexp"
	"strings"
)

// ImageUpgrade rewrites a known thumbnail or low-resolution URL convention to
// its high-resolution counterpart.
type ImageUpgrade struct {
	Pattern     *regexp.Regexp
	Replacement string
}

// Shared upgrade rules for the CDNs the adapters meet most often. The same
// image is frequently served at several resolutions under the same stem, so
// upgrades must be idempotent: applying one to an already-upgraded URL leaves
// it unchanged.
var (
	amazonHiRes  = ImageUpgrade{regexp.MustCompile(`\._[A-Z]{2}\d+_\.`), "._SL1500_."}
	alicdnHiRes  = ImageUpgrade{regexp.MustCompile(`_\d+x\d+\w*\.(jpg|jpeg|png|webp)`), "_800x800.$1"}
	shopifyHiRes = ImageUpgrade{regexp.MustCompile(`_(small|medium|large|grande|pico|icon|compact|thumb)\.`), "_1024x1024."}
)

var querySuffix = regexp.MustCompile(`\?.*$`)

// NormalizeImageURL upgrades a single image URL: protocol-relative URLs are
// promoted to https, tracking query strings are stripped, and any matching
// upgrade rule is applied.
func NormalizeImageURL(src string, upgrades []ImageUpgrade) string {
	if src == "" {
		return ""
	}
	for _, up := range upgrades {
		src = up.Pattern.ReplaceAllString(src, up.Replacement)
	}
	src = querySuffix.ReplaceAllString(src, "")
	if strings.HasPrefix(src, "//") {
		src = "https:" + src
	}
	return src
}

// imageKey derives a content-identifying key for deduplication. The filename
// stem, not the full URL: the same image shows up at multiple resolutions and
// CDN paths.
func imageKey(src string) string {
	base := path.Base(strings.TrimSuffix(src, "/"))
	if i := strings.IndexAny(base, ".?"); i > 0 {
		base = base[:i]
	}
	// Resolution and size markers differ between renditions of one image.
	base = stemSizeSuffix.ReplaceAllString(base, "")
	base = stemAmazonSuffix.ReplaceAllString(base, "")
	if base == "" {
		return src
	}
	return strings.ToLower(base)
}

var (
	stemSizeSuffix   = regexp.MustCompile(`_\d+x\d+\w*$`)
	stemAmazonSuffix = regexp.MustCompile(`\._[A-Z]{2}\d+_$`)
)

// DedupeImages normalizes, deduplicates and orders a scraped image list.
// Order of first appearance is preserved; running the step twice over an
// already-normalized list yields the same list.
func DedupeImages(sources []string, upgrades []ImageUpgrade, limit int) []string {
	seen := make(map[string]struct{}, len(sources))
	out := make([]string, 0, len(sources))
	for _, src := range sources {
		normalized := NormalizeImageURL(src, upgrades)
		if normalized == "" || !strings.Contains(normalized, "http") {
			continue
		}
		key := imageKey(normalized)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, normalized)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}
