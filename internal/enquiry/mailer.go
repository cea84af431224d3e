package enquiry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Message is one notification to render and send.
type Message struct {
	Route      string
	TemplateID string
	Params     map[string]string
}

// Mailer sends notifications.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// EmailJSMailer sends through the EmailJS REST API.
type EmailJSMailer struct {
	endpoint   string
	serviceID  string
	userID     string
	httpClient *http.Client
}

func NewEmailJSMailer(endpoint, serviceID, userID string, timeout time.Duration) *EmailJSMailer {
	return &EmailJSMailer{
		endpoint:   endpoint,
		serviceID:  serviceID,
		userID:     userID,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type emailJSRequest struct {
	ServiceID      string            `json:"service_id"`
	TemplateID     string            `json:"template_id"`
	UserID         string            `json:"user_id"`
	TemplateParams map[string]string `json:"template_params"`
}

func (m *EmailJSMailer) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(emailJSRequest{
		ServiceID:      m.serviceID,
		TemplateID:     msg.TemplateID,
		UserID:         m.userID,
		TemplateParams: msg.Params,
	})
	if err != nil {
		return fmt.Errorf("marshal emailjs request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create emailjs request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send emailjs request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("emailjs: status %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
	}
	return nil
}

// LogMailer writes notifications to the log instead of sending them.
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.logger.Info("enquiry notification",
		zap.String("route", msg.Route),
		zap.String("template", msg.TemplateID),
		zap.String("name", msg.Params["name"]),
		zap.String("email", msg.Params["email"]))
	return nil
}
