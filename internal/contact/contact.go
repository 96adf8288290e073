// Package contact validates portfolio contact-form submissions and relays
// them to a transactional email provider. The relay contract is narrow on
// purpose: four fields in, a structured success/failure out.
package contact

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"
)

const maxBodyLen = 5000

var validEmail = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Message is one contact-form submission.
type Message struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Body    string `json:"message"`
}

// Validate checks that all required fields are present and plausible.
func (m Message) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if !validEmail.MatchString(m.Email) {
		return fmt.Errorf("invalid email address %q", m.Email)
	}
	if strings.TrimSpace(m.Body) == "" {
		return fmt.Errorf("message is required")
	}
	if len(m.Body) > maxBodyLen {
		return fmt.Errorf("message exceeds %d characters", maxBodyLen)
	}
	return nil
}

// Result reports the relay outcome back to the caller in a form suitable for
// direct display.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Relay forwards a validated message to an email provider.
type Relay interface {
	Send(ctx context.Context, msg Message) Result
}

// HTTPRelay posts submissions to an EmailJS-style send endpoint.
type HTTPRelay struct {
	client     *http.Client
	endpoint   string
	serviceID  string
	templateID string
	publicKey  string
}

// NewHTTPRelay returns a relay for the given provider credentials.
func NewHTTPRelay(endpoint, serviceID, templateID, publicKey string) *HTTPRelay {
	return &HTTPRelay{
		client:     &http.Client{Timeout: 10 * time.Second},
		endpoint:   endpoint,
		serviceID:  serviceID,
		templateID: templateID,
		publicKey:  publicKey,
	}
}

type relayPayload struct {
	ServiceID      string         `json:"service_id"`
	TemplateID     string         `json:"template_id"`
	UserID         string         `json:"user_id"`
	TemplateParams map[string]any `json:"template_params"`
}

// Send forwards the message. Failures come back as an unsuccessful Result
// with a human-readable message, never an error: a broken relay should not
// take the contact endpoint down with it.
func (r *HTTPRelay) Send(ctx context.Context, msg Message) Result {
	payload := relayPayload{
		ServiceID:  r.serviceID,
		TemplateID: r.templateID,
		UserID:     r.publicKey,
		TemplateParams: map[string]any{
			"from_name":  msg.Name,
			"from_email": msg.Email,
			"subject":    msg.Subject,
			"message":    msg.Body,
			"reply_to":   msg.Email,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Result{Message: "Could not prepare the message. Please try again."}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{Message: "Could not reach the email service. Please try again."}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		slog.Warn("email relay request failed", "error", err)
		return Result{Message: "Could not reach the email service. Please try again later."}
	}
	defer resp.Body.Close()
	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Warn("email relay rejected message", "status", resp.StatusCode)
		return Result{Message: "The email service rejected the message. Please try again later."}
	}

	return Result{Success: true, Message: "Message sent successfully!"}
}

// DryRunRelay logs submissions instead of sending them. Used in test mode so
// the form can be exercised without provider credentials.
type DryRunRelay struct{}

// Send logs the message and reports success.
func (DryRunRelay) Send(ctx context.Context, msg Message) Result {
	slog.Info("dry-run contact message",
		"from", fmt.Sprintf("%s <%s>", msg.Name, msg.Email),
		"subject", msg.Subject,
		"length", len(msg.Body),
	)
	return Result{Success: true, Message: "Message accepted (test mode, not sent)."}
}
