// Package email sends the marketplace's transactional notifications.
//
// Notifications are best-effort: callers log a failed send and carry on,
// so a broken mail server never fails the request that triggered it.
package email

import (
	"context"
	"log/slog"
	"sync"
)

// =============================================================================
// Interface Definition
// =============================================================================

// EmailService defines the notifications the marketplace sends.
//
// Implementations:
// - SMTPEmailService: Uses SMTP protocol (Mailhog for dev, any relay in prod)
// - LogEmailService: Writes the notification to the log instead of sending it
type EmailService interface {
	// SendQuoteReceivedEmail tells a tradesperson a new quote request arrived.
	SendQuoteReceivedEmail(ctx context.Context, to, name, reference string) error

	// SendApplicationReceivedEmail tells a customer someone applied to their job.
	SendApplicationReceivedEmail(ctx context.Context, to, name, jobTitle string) error

	// SendReviewModeratedEmail tells a review's author the moderation outcome.
	SendReviewModeratedEmail(ctx context.Context, to, name, outcome string) error

	// SendReportResolvedEmail tells a reporter their report was handled.
	SendReportResolvedEmail(ctx context.Context, to, name, resolution string) error
}

// =============================================================================
// Email Data Types
// =============================================================================

// Email represents a single email message.
type Email struct {
	To       string // Recipient email address
	Subject  string // Email subject line
	HTMLBody string // HTML content of the email
	TextBody string // Plain text fallback content
}

// SMTPConfig holds SMTP server configuration.
type SMTPConfig struct {
	Host     string // SMTP server hostname (e.g., "localhost" for Mailhog)
	Port     int    // SMTP server port (e.g., 1025 for Mailhog)
	Username string // SMTP authentication username (empty for Mailhog)
	Password string // SMTP authentication password (empty for Mailhog)
	From     string // Default sender email address
	FromName string // Default sender display name
}

const (
	// DefaultFromEmail is the default sender email for transactional emails.
	DefaultFromEmail = "noreply@tradeslink.app"

	// DefaultFromName is the default sender display name.
	DefaultFromName = "Tradeslink"
)

// =============================================================================
// Log-only implementation
// =============================================================================

// LogEmailService records notifications in the log. It is used in
// development when no SMTP server is configured, and in tests.
type LogEmailService struct {
	logger *slog.Logger

	mu   sync.Mutex
	sent []Email
}

// NewLogEmailService creates a notifier that only logs.
func NewLogEmailService(logger *slog.Logger) *LogEmailService {
	return &LogEmailService{logger: logger}
}

// Sent returns the notifications recorded so far.
func (s *LogEmailService) Sent() []Email {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Email(nil), s.sent...)
}

func (s *LogEmailService) record(to, subject string) error {
	s.mu.Lock()
	s.sent = append(s.sent, Email{To: to, Subject: subject})
	s.mu.Unlock()
	s.logger.Info("email suppressed", "to", to, "subject", subject)
	return nil
}

func (s *LogEmailService) SendQuoteReceivedEmail(_ context.Context, to, _, reference string) error {
	return s.record(to, quoteReceivedSubject(reference))
}

func (s *LogEmailService) SendApplicationReceivedEmail(_ context.Context, to, _, jobTitle string) error {
	return s.record(to, applicationReceivedSubject(jobTitle))
}

func (s *LogEmailService) SendReviewModeratedEmail(_ context.Context, to, _, outcome string) error {
	return s.record(to, reviewModeratedSubject(outcome))
}

func (s *LogEmailService) SendReportResolvedEmail(_ context.Context, to, _, _ string) error {
	return s.record(to, reportResolvedSubject)
}

var _ EmailService = (*LogEmailService)(nil)
