package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/KAMASDM/augustina/internal/metrics"
)

// ErrNotFound is returned when the API has no record for a slug.
var ErrNotFound = errors.New("content not found")

const maxBodyBytes = 8 << 20

// Client reads the content API. Concurrent requests for the same path share
// one upstream call.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	metrics    *metrics.Collector
	group      singleflight.Group
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger, m *metrics.Collector) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Named("content"),
		metrics:    m,
	}
}

// Products lists every product.
func (c *Client) Products(ctx context.Context) ([]Product, error) {
	var products []Product
	if err := c.get(ctx, "products", "/products/", &products); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// Product returns the product with the given slug.
func (c *Client) Product(ctx context.Context, slug string) (*Product, error) {
	var product Product
	if err := c.get(ctx, "product", "/products/"+url.PathEscape(slug)+"/", &product); err != nil {
		return nil, fmt.Errorf("get product %q: %w", slug, err)
	}
	return &product, nil
}

// Blogs lists every published blog.
func (c *Client) Blogs(ctx context.Context) ([]Blog, error) {
	var blogs []Blog
	if err := c.get(ctx, "blogs", "/blogs/", &blogs); err != nil {
		return nil, fmt.Errorf("list blogs: %w", err)
	}
	return blogs, nil
}

// Blog returns the blog with the given slug.
func (c *Client) Blog(ctx context.Context, slug string) (*Blog, error) {
	var blog Blog
	if err := c.get(ctx, "blog", "/blogs/"+url.PathEscape(slug)+"/", &blog); err != nil {
		return nil, fmt.Errorf("get blog %q: %w", slug, err)
	}
	return &blog, nil
}

// Services lists every service with its features split out of the
// description.
func (c *Client) Services(ctx context.Context) ([]Service, error) {
	var services []Service
	if err := c.get(ctx, "services", "/services/", &services); err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	for i := range services {
		services[i].Description, services[i].Features = SplitServiceDescription(services[i].Description)
	}
	return services, nil
}

// ImageURL resolves an image path the API returns relative to its own host.
func (c *Client) ImageURL(path string) string {
	if path == "" || strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base.Scheme + "://" + base.Host + path
}

func (c *Client) get(ctx context.Context, resource, path string, out any) error {
	body, err, shared := c.group.Do(path, func() (any, error) {
		return c.fetch(ctx, resource, path)
	})
	if shared {
		c.logger.Debug("shared content fetch", zap.String("path", path))
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body.([]byte), out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) fetch(ctx context.Context, resource, path string) (_ []byte, err error) {
	start := time.Now()
	defer func() {
		c.metrics.ContentFetch(resource, time.Since(start).Seconds(), err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request %s: unexpected status %d", path, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	c.logger.Debug("fetched content",
		zap.String("path", path),
		zap.Int("bytes", len(body)),
		zap.Duration("took", time.Since(start)))
	return body, nil
}
