package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/pyae198022/ShopHub/internal/apperr"
	"github.com/resend/resend-go/v2"
)

// Message is a single outgoing email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer writes emails to the log instead of sending them. It is the
// default when no provider is configured.
type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return apperr.Wrap(apperr.Transient, "notify.LogMailer", "email send timed out", err)
	}
	slog.Info("==========================================")
	slog.Info("EMAIL SENT TO: " + msg.To)
	slog.Info("Subject: " + msg.Subject)
	slog.Debug("Body", "html", msg.HTML)
	slog.Info("==========================================")
	return nil
}

// ResendMailer delivers through the Resend HTTP API.
type ResendMailer struct {
	client *resend.Client
	from   string
}

const resendTimeout = 30 * time.Second

func NewResendMailer(apiKey, from string) *ResendMailer {
	httpClient := &http.Client{
		Timeout:   resendTimeout,
		Transport: statusTransport{next: http.DefaultTransport},
	}
	return &ResendMailer{client: resend.NewCustomClient(httpClient, apiKey), from: from}
}

// StatusError is a provider response that may succeed if sent again.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider returned %d %s", e.Code, http.StatusText(e.Code))
}

// statusTransport turns throttling and server-side failures into a
// StatusError. The Resend client flattens error responses into plain
// strings, so the status code is only visible here.
type statusTransport struct {
	next http.RoundTripper
}

func (t statusTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		resp.Body.Close()
		return nil, &StatusError{Code: resp.StatusCode}
	}
	return resp, nil
}

func retryable(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func (m *ResendMailer) Send(ctx context.Context, msg Message) error {
	params := &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
	}
	sent, err := m.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return apperr.Wrap(apperr.Transient, "notify.ResendMailer", "email send timed out", err)
		}
		if retryable(err) {
			return apperr.Wrap(apperr.Transient, "notify.ResendMailer", "email provider unavailable", err)
		}
		return fmt.Errorf("resend: %w", err)
	}
	slog.Info("Email sent", "to", msg.To, "subject", msg.Subject, "id", sent.Id)
	return nil
}

// NewMailer picks a Mailer by provider name ("resend" or "log").
func NewMailer(provider, apiKey, from string) Mailer {
	if strings.EqualFold(provider, "resend") {
		if apiKey == "" {
			slog.Warn("MAIL_PROVIDER is resend but RESEND_API_KEY is empty. Falling back to log mailer.")
			return LogMailer{}
		}
		return NewResendMailer(apiKey, from)
	}
	return LogMailer{}
}
