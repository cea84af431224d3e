package main

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/KAMASDM/augustina/internal/calculator"
	"github.com/KAMASDM/augustina/internal/content"
	"github.com/KAMASDM/augustina/internal/enquiry"
	"github.com/KAMASDM/augustina/internal/metrics"
	"github.com/KAMASDM/augustina/internal/seo"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplates = []string{
	"home.html",
	"about.html",
	"privacy.html",
	"terms.html",
	"services.html",
	"products.html",
	"product.html",
	"blogs.html",
	"blog.html",
	"contact.html",
	"calculator.html",
	"not_found.html",
}

// contentAPI is the part of the content client the handlers use.
type contentAPI interface {
	Products(ctx context.Context) ([]content.Product, error)
	Product(ctx context.Context, slug string) (*content.Product, error)
	Blogs(ctx context.Context) ([]content.Blog, error)
	Blog(ctx context.Context, slug string) (*content.Blog, error)
	Services(ctx context.Context) ([]content.Service, error)
	ImageURL(path string) string
}

// notifier wakes the enquiry dispatcher.
type notifier interface {
	Notify()
}

type contactInfo struct {
	Address   string
	Phone     string
	PhoneLink string
	Email     string
	Hours     string
}

var companyContact = contactInfo{
	Address:   "415-A, Kapadia Compound, Vasta Devdi Road, Katargam, Surat- 395004",
	Phone:     "+91 9998835511",
	PhoneLink: "9998835511",
	Email:     "enquiry@augustina.in",
	Hours:     "Mon - Sat 10.00 AM - 8.00 PM",
}

type server struct {
	site       seo.Site
	logger     *zap.Logger
	metrics    *metrics.Collector
	content    contentAPI
	presets    []calculator.Preset
	widgets    *widgetStore
	enquiries  *enquiry.Store
	dispatcher notifier
	limiter    *enquiry.ClientLimiter
	templates  map[string]*template.Template
	metricsOn  bool
	now        func() time.Time
	shuffle    bool
}

type baseViewData struct {
	Meta           seo.Metadata
	SiteName       string
	Year           int
	Info           contactInfo
	JSONLD         template.JS
	ErrorMessage   string
	SuccessMessage string
}

func parseTemplates() (map[string]*template.Template, error) {
	templates := make(map[string]*template.Template, len(pageTemplates))
	for _, page := range pageTemplates {
		t, err := template.New("layout.html").ParseFS(templateFS,
			"templates/layout.html",
			"templates/partials.html",
			"templates/"+page,
		)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", page, err)
		}
		templates[page] = t
	}
	return templates, nil
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleHome)
	r.Get("/about-us", s.handleStatic(seo.PageAbout, "about.html"))
	r.Get("/privacy-policy", s.handleStatic(seo.PagePrivacy, "privacy.html"))
	r.Get("/terms-and-conditions", s.handleStatic(seo.PageTerms, "terms.html"))
	r.Get("/services", s.handleServices)
	r.Get("/products", s.handleProducts)
	r.Get("/products/{slug}", s.handleProductDetail)
	r.Get("/blogs", s.handleBlogs)
	r.Get("/blogs/{slug}", s.handleBlogDetail)
	r.Get("/contact-us", s.handleContactForm)
	r.Post("/contact-us", s.handleContactSubmit)

	r.Get("/calculator", s.handleCalculator)
	r.Post("/calculator/preset", s.handleCalculatorPreset)
	r.Post("/calculator/machines/{id}", s.handleCalculatorSetUnits)
	r.Post("/calculator/machines/{id}/increment", s.handleCalculatorIncrement)
	r.Post("/calculator/machines/{id}/decrement", s.handleCalculatorDecrement)
	r.Get("/calculator/export.csv", s.handleCalculatorExport)

	r.Get("/api/calculator", s.handleAPICalculatorState)
	r.Get("/api/calculator/presets", s.handleAPIPresets)
	r.Post("/api/calculator/evaluate", s.handleAPIEvaluate)

	r.Get("/sitemap.xml", s.handleSitemap)
	r.Get("/robots.txt", s.handleRobots)
	if s.metricsOn {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.NotFound(s.handleNotFound)
	return r
}

func (s *server) base(meta seo.Metadata) baseViewData {
	return baseViewData{
		Meta:     meta,
		SiteName: s.site.Name,
		Year:     s.now().Year(),
		Info:     companyContact,
	}
}

func (s *server) renderTemplate(w http.ResponseWriter, page string, data any) {
	s.renderStatus(w, http.StatusOK, page, data)
}

// renderStatus renders into a buffer first so a template error still yields
// a clean 500.
func (s *server) renderStatus(w http.ResponseWriter, status int, page string, data any) {
	t, ok := s.templates[page]
	if !ok {
		s.logger.Error("unknown template", zap.String("page", page))
		http.Error(w, "failed to render template", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		s.logger.Error("render template", zap.String("page", page), zap.Error(err))
		http.Error(w, "failed to render template", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

type notFoundViewData struct {
	baseViewData
	Heading string
}

func (s *server) renderNotFound(w http.ResponseWriter, what string) {
	md := s.site.NotFound(what)
	s.renderStatus(w, http.StatusNotFound, "not_found.html", notFoundViewData{
		baseViewData: s.base(md),
		Heading:      what + " not found",
	})
}

func (s *server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.renderNotFound(w, "Page")
}

func (s *server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("took", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}
