package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/KAMASDM/augustina/internal/enquiry"
)

func contactForm() url.Values {
	return url.Values{
		"name":    {"  Asha Patel "},
		"email":   {"asha@example.com"},
		"phone":   {"+91 99988 35511"},
		"message": {"Need a briquette line for groundnut shells."},
	}
}

func TestHandleContactForm_SuccessMessage(t *testing.T) {
	srv := newTestServer(t, sampleContent())
	h := srv.routes()

	rr := do(t, h, http.MethodGet, "/contact-us", nil)
	expectBody(t, rr, "enquiry@augustina.in", "Send Message")

	rr = do(t, h, http.MethodGet, "/contact-us?success=1", nil)
	expectBody(t, rr, "Message sent successfully!")
}

func TestHandleContactSubmit_QueuesDeliveries(t *testing.T) {
	srv := newTestServer(t, sampleContent())
	notifier := srv.dispatcher.(*countingNotifier)

	rr := do(t, srv.routes(), http.MethodPost, "/contact-us", contactForm())
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected status 303, got %d (%s)", rr.Code, rr.Body.String())
	}
	if loc := rr.Header().Get("Location"); loc != "/contact-us?success=1" {
		t.Fatalf("unexpected redirect %q", loc)
	}
	if notifier.calls != 1 {
		t.Fatalf("expected dispatcher to be notified once, got %d", notifier.calls)
	}

	pending, err := srv.enquiries.Pending(context.Background(), 10)
	if err != nil {
		t.Fatalf("Pending returned error: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending deliveries, got %d", len(pending))
	}
	routes := map[string]bool{}
	for _, d := range pending {
		routes[d.Route] = true
		if d.Enquiry.Name != "Asha Patel" {
			t.Fatalf("expected trimmed name, got %q", d.Enquiry.Name)
		}
		if d.Enquiry.RemoteAddr != "192.0.2.1" {
			t.Fatalf("expected client ip without port, got %q", d.Enquiry.RemoteAddr)
		}
	}
	if !routes[enquiry.RouteCompany] || !routes[enquiry.RouteAcknowledgement] {
		t.Fatalf("expected company and acknowledgement deliveries, got %v", routes)
	}
}

func TestHandleContactSubmit_InvalidForm(t *testing.T) {
	srv := newTestServer(t, sampleContent())

	form := contactForm()
	form.Set("email", "not-an-email")
	form.Set("message", "   ")

	rr := do(t, srv.routes(), http.MethodPost, "/contact-us", form)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", rr.Code)
	}
	expectBody(t, rr, "Please enter a valid email address.", "Please enter a message", "Asha Patel")

	pending, err := srv.enquiries.Pending(context.Background(), 10)
	if err != nil {
		t.Fatalf("Pending returned error: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected nothing queued, got %d", len(pending))
	}
}

func TestHandleContactSubmit_RateLimited(t *testing.T) {
	srv := newTestServer(t, sampleContent())
	srv.limiter = enquiry.NewClientLimiter(1, 1)
	h := srv.routes()

	if rr := do(t, h, http.MethodPost, "/contact-us", contactForm()); rr.Code != http.StatusSeeOther {
		t.Fatalf("expected first submission to pass, got %d", rr.Code)
	}

	rr := do(t, h, http.MethodPost, "/contact-us", contactForm())
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d", rr.Code)
	}
	expectBody(t, rr, "Too many messages.")

	other := httptest.NewRequest(http.MethodPost, "/contact-us", nil)
	other.RemoteAddr = "198.51.100.7:4000"
	other.PostForm = contactForm()
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, other)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected another client to pass, got %d", rr.Code)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.9:51234"
	if got := clientIP(req); got != "203.0.113.9" {
		t.Fatalf("expected host only, got %q", got)
	}

	req.RemoteAddr = "203.0.113.9"
	if got := clientIP(req); got != "203.0.113.9" {
		t.Fatalf("expected bare address unchanged, got %q", got)
	}
}
