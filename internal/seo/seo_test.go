package seo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/KAMASDM/augustina/internal/content"
)

var site = Site{Name: "Asia Biomass Tradelink Pvt. Ltd.", BaseURL: "https://asiabiomass.in"}

type fakeSource struct {
	products    []content.Product
	blogs       []content.Blog
	productsErr error
	blogsErr    error
}

func (f fakeSource) Products(context.Context) ([]content.Product, error) {
	return f.products, f.productsErr
}

func (f fakeSource) Blogs(context.Context) ([]content.Blog, error) {
	return f.blogs, f.blogsErr
}

func TestSite_Page(t *testing.T) {
	md := site.Page(PageAbout)
	assert.Equal(t, "About Us | Asia Biomass Tradelink Pvt. Ltd.", md.Title)
	assert.Equal(t, "https://asiabiomass.in/about-us", md.Canonical)

	home := site.Page(PageHome)
	assert.Equal(t, "Asia Biomass Tradelink Pvt. Ltd.", home.Title)
	assert.Equal(t, "https://asiabiomass.in", home.Canonical)
}

func TestSite_Product(t *testing.T) {
	p := &content.Product{Name: "Bio Compactor", Slug: "bio-compactor", Description: "Compacts waste\nDetails follow"}

	md := site.Product(p, "")
	assert.Equal(t, "Bio Compactor | Asia Biomass Tradelink Pvt. Ltd.", md.Title)
	assert.Equal(t, "Compacts waste", md.Description)
	assert.Equal(t, "https://asiabiomass.in/products/bio-compactor", md.Canonical)
	assert.Empty(t, md.Images)

	p.MetaDescription = "Meta wins"
	assert.Equal(t, "Meta wins", site.Product(p, "https://cdn/x.jpg").Description)
}

func TestSite_Blog(t *testing.T) {
	b := &content.Blog{
		Title:       "Briquettes 101",
		Slug:        "briquettes-101",
		Content:     "<p>" + strings.Repeat("a", 200) + "</p>",
		Author:      &content.Author{Username: "editor"},
		PublishedAt: "2025-01-02T00:00:00Z",
	}

	md := site.Blog(b, "")
	assert.Equal(t, "Briquettes 101 | Asia Biomass Tradelink Pvt. Ltd.", md.Title)
	assert.Len(t, md.Description, 160)
	assert.Equal(t, "article", md.Type)
	assert.Equal(t, []string{"editor"}, md.Authors)

	b.MetaTitle = "Briquette basics"
	b.Author = nil
	md = site.Blog(b, "")
	assert.Equal(t, "Briquette basics | Asia Biomass Tradelink Pvt. Ltd.", md.Title)
	assert.Empty(t, md.Authors)
}

func TestSite_ProductLD(t *testing.T) {
	p := &content.Product{
		Name:         "Shredder",
		Slug:         "shredder",
		Model:        "SH-90",
		CategoryName: "Shredding",
		Specifications: map[string]any{
			"motor_power": "75 HP",
			"capacity":    2.5,
		},
	}

	got := site.ProductLD(p)
	assert.Equal(t, "INR", got.Offers.PriceCurrency)
	assert.Equal(t, "https://asiabiomass.in/products/shredder", got.Offers.URL)
	want := []PropertyValue{
		{Type: "PropertyValue", Name: "capacity", Value: 2.5},
		{Type: "PropertyValue", Name: "motor power", Value: "75 HP"},
	}
	if diff := cmp.Diff(want, got.AdditionalProperty); diff != "" {
		t.Errorf("AdditionalProperty mismatch (-want +got):\n%s", diff)
	}

	script, err := Script(got)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(script), &decoded))
	assert.Equal(t, "Product", decoded["@type"])
	assert.Equal(t, "SH-90", decoded["model"])
}

func TestSite_BlogLD(t *testing.T) {
	b := &content.Blog{Title: "Post", Content: "<p>Body</p>", Author: &content.Author{FirstName: "Ravi", LastName: "Shah"}}

	got := site.BlogLD(b, "")
	assert.Equal(t, "Ravi Shah", got.Author.Name)
	assert.Equal(t, "https://asiabiomass.in/assets/images/logo.png", got.Image)
	assert.Equal(t, "Body", got.Description)

	b.Author = nil
	assert.Equal(t, site.Name, site.BlogLD(b, "").Author.Name)
}

func TestFrequency(t *testing.T) {
	tests := []struct {
		path     string
		freq     string
		priority float64
	}{
		{"", "daily", 1.0},
		{"/products", "monthly", 0.8},
		{"/products/shredder", "monthly", 0.8},
		{"/blogs/post", "weekly", 0.7},
		{"/privacy-policy", "weekly", 0.7},
	}
	for _, tt := range tests {
		freq, priority := Frequency(tt.path)
		assert.Equal(t, tt.freq, freq, tt.path)
		assert.InDelta(t, tt.priority, priority, 1e-9, tt.path)
	}
}

func TestSite_Sitemap(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	src := fakeSource{
		products: []content.Product{{Slug: "shredder", UpdatedAt: "2025-03-01T10:00:00Z"}},
		blogs:    []content.Blog{{Slug: "post"}},
	}

	entries := site.Sitemap(context.Background(), src, now, zaptest.NewLogger(t))
	require.Len(t, entries, len(StaticPaths)+2)

	assert.Equal(t, Entry{Loc: "https://asiabiomass.in", LastMod: "2025-06-01T12:00:00Z", ChangeFreq: "daily", Priority: "1.0"}, entries[0])
	product := entries[len(StaticPaths)]
	assert.Equal(t, "https://asiabiomass.in/products/shredder", product.Loc)
	assert.Equal(t, "2025-03-01T10:00:00Z", product.LastMod)
	assert.Equal(t, "monthly", product.ChangeFreq)
	blog := entries[len(StaticPaths)+1]
	assert.Equal(t, "https://asiabiomass.in/blogs/post", blog.Loc)
	assert.Equal(t, "2025-06-01T12:00:00Z", blog.LastMod)
}

func TestSite_SitemapOmitsFailedSection(t *testing.T) {
	src := fakeSource{
		productsErr: errors.New("upstream down"),
		blogs:       []content.Blog{{Slug: "post"}},
	}

	entries := site.Sitemap(context.Background(), src, time.Now(), zaptest.NewLogger(t))
	require.Len(t, entries, len(StaticPaths)+1)
	assert.Equal(t, "https://asiabiomass.in/blogs/post", entries[len(entries)-1].Loc)
}

func TestWriteSitemap(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSitemap(&buf, []Entry{{Loc: "https://asiabiomass.in", LastMod: "2025-06-01T12:00:00Z", ChangeFreq: "daily", Priority: "1.0"}}))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "<?xml"))
	assert.Contains(t, out, `<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`)
	assert.Contains(t, out, "<loc>https://asiabiomass.in</loc>")
	assert.Contains(t, out, "<priority>1.0</priority>")
}

func TestSite_Robots(t *testing.T) {
	robots := site.Robots()
	assert.Contains(t, robots, "Disallow: /admin\n")
	assert.Contains(t, robots, "Disallow: /api\n")
	assert.Contains(t, robots, "Sitemap: https://asiabiomass.in/sitemap.xml")
}
