package main

import (
	"errors"
	"html/template"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/KAMASDM/augustina/internal/content"
	"github.com/KAMASDM/augustina/internal/seo"
)

const blogSummaryRunes = 120

type productCard struct {
	Name     string
	Slug     string
	Subtitle string
	Image    string
	Category string
}

type servicesViewData struct {
	baseViewData
	Services []content.Service
}

type productsViewData struct {
	baseViewData
	Products []productCard
	Calc     calculatorView
}

type productViewData struct {
	baseViewData
	Product    *content.Product
	Image      string
	Paragraphs []string
	Specs      []content.Spec
	Related    []productCard
}

type blogCard struct {
	Title     string
	Slug      string
	Summary   string
	Image     string
	Category  string
	Author    string
	Published string
}

type blogsViewData struct {
	baseViewData
	Blogs []blogCard
}

type blogViewData struct {
	baseViewData
	Blog      *content.Blog
	Image     string
	Author    string
	Published string
	Body      template.HTML
}

func (s *server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.renderTemplate(w, "home.html", s.base(s.site.Page(seo.PageHome)))
}

func (s *server) handleStatic(path, page string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.renderTemplate(w, page, s.base(s.site.Page(path)))
	}
}

func (s *server) handleServices(w http.ResponseWriter, r *http.Request) {
	data := servicesViewData{baseViewData: s.base(s.site.Page(seo.PageServices))}

	services, err := s.content.Services(r.Context())
	if err != nil {
		s.logger.Error("load services", zap.Error(err))
		data.ErrorMessage = "Failed to load services. Please try again later."
	}
	data.Services = services
	s.renderTemplate(w, "services.html", data)
}

func (s *server) card(p content.Product) productCard {
	return productCard{
		Name:     p.Name,
		Slug:     p.Slug,
		Subtitle: content.Subtitle(p.Description),
		Image:    s.content.ImageURL(p.Image),
		Category: p.CategoryName,
	}
}

func (s *server) handleProducts(w http.ResponseWriter, r *http.Request) {
	data := productsViewData{baseViewData: s.base(s.site.Page(seo.PageProducts))}

	products, err := s.content.Products(r.Context())
	if err != nil {
		s.logger.Error("load products", zap.Error(err))
		data.ErrorMessage = "Failed to load products. Please try again later."
	}
	for _, p := range products {
		data.Products = append(data.Products, s.card(p))
	}
	if data.Calc, err = s.widgetView(r); err != nil {
		s.logger.Error("load widget", zap.Error(err))
	}
	s.renderTemplate(w, "products.html", data)
}

func (s *server) handleProductDetail(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	product, err := s.content.Product(r.Context(), slug)
	if errors.Is(err, content.ErrNotFound) {
		s.renderNotFound(w, "Product")
		return
	}
	if err != nil {
		s.logger.Error("load product", zap.String("slug", slug), zap.Error(err))
		http.Error(w, "failed to load product", http.StatusBadGateway)
		return
	}

	image := s.content.ImageURL(product.Image)
	data := productViewData{
		baseViewData: s.base(s.site.Product(product, image)),
		Product:      product,
		Image:        image,
		Paragraphs:   paragraphs(product.Description),
		Specs:        product.Specs(),
	}
	if data.JSONLD, err = seo.Script(s.site.ProductLD(product)); err != nil {
		s.logger.Error("encode product schema", zap.Error(err))
	}

	// Related products are optional; the page renders without them.
	all, err := s.content.Products(r.Context())
	if err != nil {
		s.logger.Warn("load related products", zap.Error(err))
	}
	for _, p := range content.Related(all, *product, content.RelatedLimit, s.shuffler()) {
		data.Related = append(data.Related, s.card(p))
	}

	s.renderTemplate(w, "product.html", data)
}

func (s *server) handleBlogs(w http.ResponseWriter, r *http.Request) {
	data := blogsViewData{baseViewData: s.base(s.site.Page(seo.PageBlogs))}

	blogs, err := s.content.Blogs(r.Context())
	if err != nil {
		s.logger.Error("load blogs", zap.Error(err))
		data.ErrorMessage = "Failed to load blogs. Please try again later."
	}
	for _, b := range blogs {
		data.Blogs = append(data.Blogs, blogCard{
			Title:     b.Title,
			Slug:      b.Slug,
			Summary:   content.Summary(b.Content, blogSummaryRunes),
			Image:     s.content.ImageURL(b.FeaturedImage),
			Category:  b.Category.Name,
			Author:    b.Author.DisplayName(),
			Published: formatDate(b.PublishedAt),
		})
	}
	s.renderTemplate(w, "blogs.html", data)
}

func (s *server) handleBlogDetail(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	blog, err := s.content.Blog(r.Context(), slug)
	if errors.Is(err, content.ErrNotFound) {
		s.renderNotFound(w, "Blog Post")
		return
	}
	if err != nil {
		s.logger.Error("load blog", zap.String("slug", slug), zap.Error(err))
		http.Error(w, "failed to load blog", http.StatusBadGateway)
		return
	}

	image := s.content.ImageURL(blog.FeaturedImage)
	data := blogViewData{
		baseViewData: s.base(s.site.Blog(blog, image)),
		Blog:         blog,
		Image:        image,
		Author:       blog.Author.DisplayName(),
		Published:    formatDate(blog.PublishedAt),
		Body:         template.HTML(content.SanitizeHTML(blog.Content)),
	}
	if data.JSONLD, err = seo.Script(s.site.BlogLD(blog, image)); err != nil {
		s.logger.Error("encode blog schema", zap.Error(err))
	}
	s.renderTemplate(w, "blog.html", data)
}

func (s *server) handleSitemap(w http.ResponseWriter, r *http.Request) {
	entries := s.site.Sitemap(r.Context(), s.content, s.now(), s.logger)

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	if err := seo.WriteSitemap(w, entries); err != nil {
		s.logger.Error("write sitemap", zap.Error(err))
	}
}

func (s *server) handleRobots(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(s.site.Robots()))
}

func (s *server) shuffler() *rand.Rand {
	if !s.shuffle {
		return nil
	}
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

func paragraphs(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func formatDate(raw string) string {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return raw
	}
	return t.Format("January 2, 2006")
}
