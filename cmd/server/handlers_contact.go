package main

import (
	"errors"
	"net"
	"net/http"

	"go.uber.org/zap"

	"github.com/KAMASDM/augustina/internal/enquiry"
	"github.com/KAMASDM/augustina/internal/seo"
)

const (
	contactSent    = "Message sent successfully!"
	contactFailed  = "Failed to send. Please try again."
	contactLimited = "Too many messages. Please wait a minute and try again."
)

type contactViewData struct {
	baseViewData
	Form   enquiry.Form
	Errors map[string]string
}

func (s *server) contactView() contactViewData {
	return contactViewData{
		baseViewData: s.base(s.site.Page(seo.PageContact)),
		Errors:       map[string]string{},
	}
}

func (s *server) handleContactForm(w http.ResponseWriter, r *http.Request) {
	data := s.contactView()
	if r.URL.Query().Get("success") == "1" {
		data.SuccessMessage = contactSent
	}
	s.renderTemplate(w, "contact.html", data)
}

func (s *server) handleContactSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	data := s.contactView()
	data.Form = enquiry.Form{
		Name:    r.FormValue("name"),
		Email:   r.FormValue("email"),
		Phone:   r.FormValue("phone"),
		Message: r.FormValue("message"),
	}

	client := clientIP(r)
	if !s.limiter.Allow(client) {
		s.metrics.Enquiry("limited")
		data.ErrorMessage = contactLimited
		s.renderStatus(w, http.StatusTooManyRequests, "contact.html", data)
		return
	}

	data.Form.Normalize()
	if err := enquiry.Validate(data.Form); err != nil {
		var verr *enquiry.ValidationError
		if !errors.As(err, &verr) {
			s.logger.Error("validate enquiry", zap.Error(err))
			s.metrics.Enquiry("failed")
			data.ErrorMessage = contactFailed
			s.renderStatus(w, http.StatusInternalServerError, "contact.html", data)
			return
		}
		s.metrics.Enquiry("invalid")
		data.Errors = verr.Fields
		s.renderStatus(w, http.StatusUnprocessableEntity, "contact.html", data)
		return
	}

	e := enquiry.New(data.Form, client, s.now())
	queued, err := s.enquiries.Save(r.Context(), e)
	if err != nil {
		if errors.Is(err, enquiry.ErrNoRoutes) {
			s.logger.Error("no notification routes configured", zap.String("enquiry_id", e.ID))
		} else {
			s.logger.Error("save enquiry", zap.String("enquiry_id", e.ID), zap.Error(err))
		}
		s.metrics.Enquiry("failed")
		data.ErrorMessage = contactFailed
		s.renderStatus(w, http.StatusInternalServerError, "contact.html", data)
		return
	}

	s.logger.Info("enquiry accepted", zap.String("enquiry_id", e.ID), zap.Int("deliveries", queued))
	s.metrics.Enquiry("accepted")
	if s.dispatcher != nil {
		s.dispatcher.Notify()
	}
	http.Redirect(w, r, "/contact-us?success=1", http.StatusSeeOther)
}

// clientIP is the address the rate limiter keys on. RealIP has already
// replaced RemoteAddr when a proxy header was present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
