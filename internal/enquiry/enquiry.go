// Package enquiry accepts contact form submissions, stores them in an outbox
// and delivers the resulting notifications.
package enquiry

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Notification routes. Every accepted enquiry is sent to the company inbox
// and acknowledged to the sender.
const (
	RouteCompany         = "company"
	RouteAcknowledgement = "acknowledgement"
)

// Form is a contact form submission as typed by the visitor.
type Form struct {
	Name    string `validate:"required,max=120"`
	Email   string `validate:"required,email,max=254"`
	Phone   string `validate:"omitempty,max=32"`
	Message string `validate:"required,max=5000"`
}

// Normalize trims surrounding whitespace from every field.
func (f *Form) Normalize() {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.TrimSpace(f.Email)
	f.Phone = strings.TrimSpace(f.Phone)
	f.Message = strings.TrimSpace(f.Message)
}

// ValidationError maps lower-case form field names to messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return "invalid enquiry: " + strings.Join(names, ", ")
}

var validate = validator.New()

var fieldMessages = map[string]string{
	"Name":    "Please enter your name (up to 120 characters).",
	"Email":   "Please enter a valid email address.",
	"Phone":   "Phone numbers can be at most 32 characters.",
	"Message": "Please enter a message (up to 5000 characters).",
}

// Validate checks a normalized form. It returns a *ValidationError when any
// field is unacceptable.
func Validate(f Form) error {
	err := validate.Struct(f)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[strings.ToLower(fe.Field())] = fieldMessages[fe.Field()]
	}
	return &ValidationError{Fields: fields}
}

// Enquiry is an accepted submission.
type Enquiry struct {
	ID         string
	Name       string
	Email      string
	Phone      string
	Message    string
	RemoteAddr string
	CreatedAt  time.Time
}

// New turns a validated form into an enquiry with a fresh id.
func New(f Form, remoteAddr string, now time.Time) Enquiry {
	return Enquiry{
		ID:         uuid.NewString(),
		Name:       f.Name,
		Email:      f.Email,
		Phone:      f.Phone,
		Message:    f.Message,
		RemoteAddr: remoteAddr,
		CreatedAt:  now.UTC(),
	}
}

// TemplateParams are the values a notification template renders.
func (e Enquiry) TemplateParams() map[string]string {
	return map[string]string{
		"name":    e.Name,
		"email":   e.Email,
		"phone":   e.Phone,
		"message": e.Message,
	}
}
