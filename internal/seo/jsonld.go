package seo

import (
	"encoding/json"
	"html/template"
	"sort"
	"strings"

	"github.com/KAMASDM/augustina/internal/content"
)

const schemaContext = "https://schema.org"

// ProductSchema describes a product for search engines.
type ProductSchema struct {
	Context            string          `json:"@context"`
	Type               string          `json:"@type"`
	Name               string          `json:"name"`
	Description        string          `json:"description"`
	Brand              Thing           `json:"brand"`
	Model              string          `json:"model,omitempty"`
	Category           string          `json:"category,omitempty"`
	Offers             Offer           `json:"offers"`
	AdditionalProperty []PropertyValue `json:"additionalProperty,omitempty"`
}

// Thing is a typed schema.org reference with a name.
type Thing struct {
	Type string `json:"@type"`
	Name string `json:"name"`
	Logo *Image `json:"logo,omitempty"`
}

type Image struct {
	Type string `json:"@type"`
	URL  string `json:"url"`
}

type Offer struct {
	Type          string `json:"@type"`
	URL           string `json:"url"`
	PriceCurrency string `json:"priceCurrency"`
	Availability  string `json:"availability"`
}

type PropertyValue struct {
	Type  string `json:"@type"`
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// BlogPostingSchema describes an article for search engines.
type BlogPostingSchema struct {
	Context       string `json:"@context"`
	Type          string `json:"@type"`
	Headline      string `json:"headline"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	Image         string `json:"image"`
	Author        Thing  `json:"author"`
	Publisher     Thing  `json:"publisher"`
	DatePublished string `json:"datePublished,omitempty"`
	DateModified  string `json:"dateModified,omitempty"`
}

// ProductLD builds the Product schema. Specification keys are listed in
// sorted order with underscores shown as spaces.
func (s Site) ProductLD(p *content.Product) ProductSchema {
	schema := ProductSchema{
		Context:     schemaContext,
		Type:        "Product",
		Name:        p.Name,
		Description: p.Description,
		Brand:       Thing{Type: "Brand", Name: s.Name},
		Model:       p.Model,
		Category:    p.CategoryName,
		Offers: Offer{
			Type:          "Offer",
			URL:           s.URL("/products/" + p.Slug),
			PriceCurrency: "INR",
			Availability:  "https://schema.org/InStock",
		},
	}

	keys := make([]string, 0, len(p.Specifications))
	for k := range p.Specifications {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		schema.AdditionalProperty = append(schema.AdditionalProperty, PropertyValue{
			Type:  "PropertyValue",
			Name:  strings.ReplaceAll(k, "_", " "),
			Value: p.Specifications[k],
		})
	}
	return schema
}

// BlogLD builds the BlogPosting schema. image is the absolute featured image
// URL; the site logo stands in when it is empty.
func (s Site) BlogLD(b *content.Blog, image string) BlogPostingSchema {
	if image == "" {
		image = s.LogoURL()
	}
	author := b.Author.DisplayName()
	if author == "" {
		author = s.Name
	}
	return BlogPostingSchema{
		Context:       schemaContext,
		Type:          "BlogPosting",
		Headline:      b.Title,
		Name:          b.Title,
		Description:   BlogDescription(b),
		Image:         image,
		Author:        Thing{Type: "Person", Name: author},
		Publisher:     Thing{Type: "Organization", Name: s.Name, Logo: &Image{Type: "ImageObject", URL: s.LogoURL()}},
		DatePublished: b.PublishedAt,
		DateModified:  b.UpdatedAt,
	}
}

// Script encodes a schema for a <script type="application/ld+json"> element.
func Script(schema any) (template.JS, error) {
	data, err := json.Marshal(schema)
	if err != nil {
		return "", err
	}
	return template.JS(data), nil
}
