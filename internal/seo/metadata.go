// Package seo builds page metadata, structured data, the sitemap and
// robots.txt for the public site.
package seo

import (
	"strings"

	"github.com/KAMASDM/augustina/internal/content"
)

// descriptionRunes bounds descriptions derived from blog bodies.
const descriptionRunes = 160

// Site identifies the public site.
type Site struct {
	Name    string
	BaseURL string
}

// URL returns the absolute URL of path on the site.
func (s Site) URL(path string) string {
	return strings.TrimRight(s.BaseURL, "/") + path
}

// LogoURL is the site logo used as a fallback image.
func (s Site) LogoURL() string {
	return s.URL("/assets/images/logo.png")
}

// Title suffixes name with the site name.
func (s Site) Title(name string) string {
	if name == "" {
		return s.Name
	}
	return name + " | " + s.Name
}

// Metadata is what a page puts in its <head>.
type Metadata struct {
	Title         string
	Description   string
	Canonical     string
	Type          string
	URL           string
	Images        []string
	PublishedTime string
	ModifiedTime  string
	Authors       []string
	NoIndex       bool
}

type page struct {
	title       string
	description string
}

// Page keys for the static pages.
const (
	PageHome       = "/"
	PageAbout      = "/about-us"
	PageProducts   = "/products"
	PageServices   = "/services"
	PageBlogs      = "/blogs"
	PageContact    = "/contact-us"
	PagePrivacy    = "/privacy-policy"
	PageTerms      = "/terms-and-conditions"
	PageCalculator = "/calculator"
)

var pages = map[string]page{
	PageHome: {"", "Asia Biomass Tradelink is a leading provider of trade and logistics solutions for the global marketplace."},
	PageAbout: {"About Us", "Learn about Asia Biomass Tradelink's 15-year journey in sustainable innovation. " +
		"Discover our mission and vision to convert biomass waste into renewable energy solutions for a greener future."},
	PageProducts: {"Our Products", "Explore our range of advanced biomass processing equipment, including heavy-duty shredders, " +
		"dewatering presses, and bio compactors. Engineered for efficiency and sustainability."},
	PageServices: {"Our Services", "Discover the comprehensive services offered by Asia Biomass Tradelink, including free consultancy, " +
		"optimized biomass solutions, and project revival for non-functional systems."},
	PageBlogs: {"Our Blog", "Read the latest articles, news, and insights from the biomass industry. " +
		"Stay informed with updates from Asia Biomass Tradelink Pvt. Ltd."},
	PageContact: {"Contact Us", "Get in touch with Asia Biomass Tradelink for inquiries about our biomass solutions. " +
		"Reach out via phone, email, or our contact form for expert assistance with your renewable energy projects."},
	PagePrivacy: {"Privacy Policy", "Review the Privacy Policy for Asia Biomass Tradelink Pvt. Ltd. Understand how we collect, " +
		"use, and protect your personal information when you visit our website and use our services."},
	PageTerms: {"Terms and Conditions", "Read the Terms and Conditions for using the Asia Biomass Tradelink Pvt. Ltd. website. " +
		"This page outlines the rules, liabilities, and governing laws for all users."},
	PageCalculator: {"Resource Calculator", "Estimate the power, floor area and staffing a biomass processing line needs."},
}

// Page returns metadata for one of the static pages. Unknown paths get the
// home page description.
func (s Site) Page(path string) Metadata {
	p, ok := pages[path]
	if !ok {
		p = pages[PageHome]
	}
	canonical := path
	if path == PageHome {
		canonical = ""
	}
	return Metadata{
		Title:       s.Title(p.title),
		Description: p.description,
		Canonical:   s.URL(canonical),
		Type:        "website",
		URL:         s.URL(canonical),
	}
}

// NotFound is the metadata for a missing product or blog.
func (s Site) NotFound(what string) Metadata {
	return Metadata{
		Title:       s.Title(what + " Not Found"),
		Description: "The requested " + strings.ToLower(what) + " could not be found.",
		Type:        "website",
		NoIndex:     true,
	}
}

// ProductDescription is the meta description, or else the first line of
// the description.
func ProductDescription(p *content.Product) string {
	if p.MetaDescription != "" {
		return p.MetaDescription
	}
	return content.Subtitle(p.Description)
}

// Product returns metadata for a product detail page. image is the absolute
// image URL, or empty.
func (s Site) Product(p *content.Product, image string) Metadata {
	path := "/products/" + p.Slug
	md := Metadata{
		Title:       s.Title(p.Name),
		Description: ProductDescription(p),
		Canonical:   s.URL(path),
		Type:        "website",
		URL:         s.URL(path),
	}
	if image != "" {
		md.Images = []string{image}
	}
	return md
}

// BlogDescription is the meta description, or else the start of the body
// text.
func BlogDescription(b *content.Blog) string {
	if b.MetaDescription != "" {
		return b.MetaDescription
	}
	return content.Clip(content.PlainText(b.Content), descriptionRunes)
}

// Blog returns metadata for a blog detail page.
func (s Site) Blog(b *content.Blog, image string) Metadata {
	title := b.MetaTitle
	if title == "" {
		title = b.Title
	}
	path := "/blogs/" + b.Slug
	md := Metadata{
		Title:         s.Title(title),
		Description:   BlogDescription(b),
		Canonical:     s.URL(path),
		Type:          "article",
		URL:           s.URL(path),
		PublishedTime: b.PublishedAt,
		ModifiedTime:  b.UpdatedAt,
	}
	if image != "" {
		md.Images = []string{image}
	}
	if name := b.Author.DisplayName(); name != "" {
		md.Authors = []string{name}
	}
	return md
}
