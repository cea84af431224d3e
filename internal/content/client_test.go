package content

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/KAMASDM/augustina/internal/metrics"
)

const productsJSON = `[
  {"id": 1, "name": "Briquetting Press", "slug": "briquetting-press",
   "description": "Heavy duty briquette press\nBuilt for agro waste",
   "image": "/media/press.jpg", "category": 2, "category_name": "Briquetting",
   "applications": "Agro waste, Sawdust",
   "specifications": {"motor_power": "75 HP", "output": 1500},
   "updated_at": "2025-03-01T10:00:00Z"},
  {"id": 2, "name": "Pellet Mill", "slug": "pellet-mill",
   "description": "Ring die pellet mill", "category": "pellets",
   "applications": ["Feed", "Fuel pellets"]}
]`

func newTestClient(t *testing.T, h http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/asiabio/api/", 2*time.Second, zaptest.NewLogger(t), metrics.New()), srv
}

func TestClient_Products(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/asiabio/api/products/", r.URL.Path)
		_, _ = w.Write([]byte(productsJSON))
	}))

	products, err := c.Products(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)

	assert.Equal(t, "Briquetting Press", products[0].Name)
	assert.Equal(t, Ref("2"), products[0].Category)
	assert.Equal(t, StringList{"Agro waste", "Sawdust"}, products[0].Applications)
	assert.Equal(t, []Spec{{Name: "motor power", Value: "75 HP"}, {Name: "output", Value: "1500"}}, products[0].Specs())

	assert.Equal(t, Ref("pellets"), products[1].Category)
	assert.Equal(t, StringList{"Feed", "Fuel pellets"}, products[1].Applications)
	assert.Nil(t, products[1].Specs())
}

func TestClient_NotFound(t *testing.T) {
	c, _ := newTestClient(t, http.NotFoundHandler())

	_, err := c.Product(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = c.Blog(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestClient_ServerError(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	_, err := c.Blogs(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "unexpected status 500")
}

func TestClient_Services(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id": 1, "title": "Installation",
		  "description": "We install plants.\r\n\r\nSite survey\r\n\r\nCommissioning"}]`))
	}))

	services, err := c.Services(context.Background())
	require.NoError(t, err)
	require.Len(t, services, 1)
	assert.Equal(t, "We install plants.", services[0].Description)
	assert.Equal(t, []string{"Site survey"}, services[0].Features)
}

func TestClient_BlogAuthor(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": 7, "title": "Why briquettes", "slug": "why-briquettes",
		  "content": "<p>Cheap fuel</p>", "category": {"name": "Fuel"},
		  "author": {"username": "admin", "first_name": "Asha", "last_name": "Patel"}}`))
	}))

	blog, err := c.Blog(context.Background(), "why-briquettes")
	require.NoError(t, err)
	assert.Equal(t, "Asha Patel", blog.Author.DisplayName())
	assert.Equal(t, "Fuel", blog.Category.Name)
}

func TestClient_CollapsesConcurrentFetches(t *testing.T) {
	var hits atomic.Int32
	arrived := make(chan struct{}, 1)
	release := make(chan struct{})

	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		select {
		case arrived <- struct{}{}:
		default:
		}
		<-release
		_, _ = w.Write([]byte(productsJSON))
	}))

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			products, err := c.Products(context.Background())
			assert.NoError(t, err)
			assert.Len(t, products, 2)
		}()
	}

	<-arrived
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), hits.Load())
}

func TestClient_ImageURL(t *testing.T) {
	c := NewClient("https://sweekarme.in/asiabio/api", time.Second, nil, nil)

	assert.Equal(t, "https://sweekarme.in/media/a.jpg", c.ImageURL("/media/a.jpg"))
	assert.Equal(t, "https://sweekarme.in/media/a.jpg", c.ImageURL("media/a.jpg"))
	assert.Equal(t, "https://cdn.example.com/a.jpg", c.ImageURL("https://cdn.example.com/a.jpg"))
	assert.Equal(t, "", c.ImageURL(""))
}
