package content

import (
	"html"
	"math/rand/v2"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// RelatedLimit is how many related products a detail page shows.
const RelatedLimit = 8

var (
	stripTags = bluemonday.StrictPolicy().AddSpaceWhenStrippingTag(true)
	ugc       = bluemonday.UGCPolicy()
)

// SanitizeHTML keeps the formatting markup of an article body and drops
// scripts, styles and event handlers.
func SanitizeHTML(s string) string {
	return ugc.Sanitize(s)
}

// PlainText strips markup from s and collapses runs of whitespace.
func PlainText(s string) string {
	text := html.UnescapeString(stripTags.Sanitize(s))
	return strings.Join(strings.Fields(text), " ")
}

// Clip returns at most n runes of s.
func Clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Summary returns the first n runes of the text of an HTML fragment,
// followed by "..." when anything was cut.
func Summary(htmlContent string, n int) string {
	text := PlainText(htmlContent)
	if clipped := Clip(text, n); clipped != text {
		return clipped + "..."
	}
	return text
}

// Subtitle is the first line of a product description.
func Subtitle(description string) string {
	line, _, _ := strings.Cut(description, "\n")
	return strings.TrimSpace(line)
}

// SplitServiceDescription separates a service description into its lead
// paragraph and the non-blank lines of the paragraph that follows.
func SplitServiceDescription(desc string) (string, []string) {
	parts := strings.Split(desc, "\r\n\r\n")
	if len(parts) < 2 {
		return parts[0], nil
	}
	var features []string
	for _, line := range strings.Split(parts[1], "\r\n") {
		if strings.TrimSpace(line) != "" {
			features = append(features, line)
		}
	}
	return parts[0], features
}

// Related picks up to limit products that resemble current. Products sharing
// a description keyword or an application come first; failing that, products
// of the same category; failing that, every other product. A non-nil rng
// shuffles the pick before it is cut to limit.
func Related(all []Product, current Product, limit int, rng *rand.Rand) []Product {
	currentKeywords := keywords(current.Description)

	var picked []Product
	for _, p := range all {
		if p.ID == current.ID {
			continue
		}
		if sharesKeyword(currentKeywords, keywords(p.Description)) {
			picked = append(picked, p)
			continue
		}
		if current.Applications != nil && p.Applications != nil &&
			sharesApplication(current.Applications, p.Applications) {
			picked = append(picked, p)
		}
	}

	if len(picked) == 0 {
		for _, p := range all {
			if p.ID != current.ID && p.Category == current.Category {
				picked = append(picked, p)
			}
		}
	}
	if len(picked) == 0 {
		for _, p := range all {
			if p.ID != current.ID {
				picked = append(picked, p)
			}
		}
	}

	if rng != nil {
		rng.Shuffle(len(picked), func(i, j int) { picked[i], picked[j] = picked[j], picked[i] })
	}
	if limit >= 0 && len(picked) > limit {
		picked = picked[:limit]
	}
	return picked
}

func keywords(description string) []string {
	var words []string
	for _, w := range strings.Fields(strings.ToLower(description)) {
		if len([]rune(w)) > 4 {
			words = append(words, w)
		}
	}
	return words
}

func sharesKeyword(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if strings.Contains(x, y) || strings.Contains(y, x) {
				return true
			}
		}
	}
	return false
}

func sharesApplication(a, b StringList) bool {
	for _, x := range a {
		x = strings.ToLower(x)
		for _, y := range b {
			y = strings.ToLower(y)
			if strings.Contains(x, y) || strings.Contains(y, x) {
				return true
			}
		}
	}
	return false
}
