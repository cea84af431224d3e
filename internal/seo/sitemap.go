package seo

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/KAMASDM/augustina/internal/content"
)

// StaticPaths are the pages listed in every sitemap.
var StaticPaths = []string{
	"",
	PageAbout,
	PageProducts,
	PageServices,
	PageBlogs,
	PageContact,
	PagePrivacy,
	PageTerms,
}

// Source lists the records that get their own sitemap entries.
type Source interface {
	Products(ctx context.Context) ([]content.Product, error)
	Blogs(ctx context.Context) ([]content.Blog, error)
}

// Entry is one <url> element.
type Entry struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod"`
	ChangeFreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`
}

type urlSet struct {
	XMLName xml.Name `xml:"urlset"`
	XMLNS   string   `xml:"xmlns,attr"`
	URLs    []Entry  `xml:"url"`
}

// Frequency returns the change frequency and priority for a site path.
func Frequency(path string) (string, float64) {
	switch {
	case path == "" || path == "/":
		return "daily", 1.0
	case strings.HasPrefix(path, PageProducts):
		return "monthly", 0.8
	default:
		return "weekly", 0.7
	}
}

func (s Site) entry(path string, lastMod time.Time) Entry {
	freq, priority := Frequency(path)
	return Entry{
		Loc:        s.URL(path),
		LastMod:    lastMod.UTC().Format(time.RFC3339),
		ChangeFreq: freq,
		Priority:   strconv.FormatFloat(priority, 'f', 1, 64),
	}
}

func lastModified(updatedAt string, now time.Time) time.Time {
	if updatedAt == "" {
		return now
	}
	t, err := time.Parse(time.RFC3339, updatedAt)
	if err != nil {
		return now
	}
	return t
}

// Sitemap lists the static pages then every product and blog. Products and
// blogs are fetched concurrently; a section whose fetch fails is logged and
// left out.
func (s Site) Sitemap(ctx context.Context, src Source, now time.Time, logger *zap.Logger) []Entry {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		products []content.Product
		blogs    []content.Blog
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if products, err = src.Products(gctx); err != nil {
			logger.Warn("sitemap: failed to fetch products", zap.Error(err))
			products = nil
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if blogs, err = src.Blogs(gctx); err != nil {
			logger.Warn("sitemap: failed to fetch blogs", zap.Error(err))
			blogs = nil
		}
		return nil
	})
	_ = g.Wait()

	entries := make([]Entry, 0, len(StaticPaths)+len(products)+len(blogs))
	for _, path := range StaticPaths {
		entries = append(entries, s.entry(path, now))
	}
	for _, p := range products {
		entries = append(entries, s.entry("/products/"+p.Slug, lastModified(p.UpdatedAt, now)))
	}
	for _, b := range blogs {
		entries = append(entries, s.entry("/blogs/"+b.Slug, lastModified(b.UpdatedAt, now)))
	}
	return entries
}

// WriteSitemap encodes entries as a sitemaps.org urlset.
func WriteSitemap(w io.Writer, entries []Entry) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(urlSet{XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9", URLs: entries}); err != nil {
		return fmt.Errorf("encode sitemap: %w", err)
	}
	return enc.Flush()
}

// Robots renders robots.txt.
func (s Site) Robots() string {
	var b strings.Builder
	b.WriteString("User-agent: *\n")
	b.WriteString("Allow: /\n")
	b.WriteString("Disallow: /admin\n")
	b.WriteString("Disallow: /api\n")
	b.WriteString("\n")
	b.WriteString("Sitemap: " + s.URL("/sitemap.xml") + "\n")
	return b.String()
}
