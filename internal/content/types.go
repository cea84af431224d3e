// Package content reads products, blogs and services from the site's content
// API and derives the listing data the pages show.
package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Product is one machine or plant offered on the site.
type Product struct {
	ID                  int            `json:"id"`
	Name                string         `json:"name"`
	Slug                string         `json:"slug"`
	Description         string         `json:"description"`
	Image               string         `json:"image"`
	Model               string         `json:"model"`
	Category            Ref            `json:"category"`
	CategoryName        string         `json:"category_name"`
	MaintenanceInterval string         `json:"maintenance_interval"`
	Specifications      map[string]any `json:"specifications"`
	Applications        StringList     `json:"applications"`
	Highlights          StringList     `json:"highlights"`
	MetaDescription     string         `json:"meta_description"`
	UpdatedAt           string         `json:"updated_at"`
}

// Spec is one specification row, formatted for display.
type Spec struct {
	Name  string
	Value string
}

// Specs returns the product's specifications sorted by key, with
// underscores in keys shown as spaces.
func (p Product) Specs() []Spec {
	keys := make([]string, 0, len(p.Specifications))
	for k := range p.Specifications {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	specs := make([]Spec, 0, len(keys))
	for _, k := range keys {
		specs = append(specs, Spec{
			Name:  strings.ReplaceAll(k, "_", " "),
			Value: fmt.Sprint(p.Specifications[k]),
		})
	}
	return specs
}

// Blog is a published article.
type Blog struct {
	ID              int      `json:"id"`
	Title           string   `json:"title"`
	Slug            string   `json:"slug"`
	Content         string   `json:"content"`
	FeaturedImage   string   `json:"featured_image"`
	Category        Category `json:"category"`
	Author          *Author  `json:"author"`
	Tags            []Tag    `json:"tags"`
	MetaTitle       string   `json:"meta_title"`
	MetaDescription string   `json:"meta_description"`
	PublishedAt     string   `json:"published_at"`
	UpdatedAt       string   `json:"updated_at"`
}

type Category struct {
	Name string `json:"name"`
}

type Tag struct {
	Name string `json:"name"`
}

// Author is a blog author account.
type Author struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// DisplayName is "first last" when a first name is set, else the username.
func (a *Author) DisplayName() string {
	if a == nil {
		return ""
	}
	if strings.TrimSpace(a.FirstName) != "" {
		return strings.TrimSpace(a.FirstName + " " + a.LastName)
	}
	return a.Username
}

// Service is a service offering. Features are derived from the description.
type Service struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Features    []string `json:"-"`
}

// StringList decodes either a JSON array of strings or a comma separated
// string.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if len(data) > 0 && data[0] == '[' {
		var items []string
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*l = items
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("string list: %w", err)
	}
	var items []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	*l = items
	return nil
}

// Ref is an identifier the API sends as either a number or a string.
type Ref string

func (r *Ref) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*r = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = Ref(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("ref: %w", err)
		}
		*r = Ref(n.String())
	}
	return nil
}
