package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/smtp"
	"strings"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

const reportResolvedSubject = "Your report has been reviewed"

func quoteReceivedSubject(reference string) string {
	return fmt.Sprintf("New quote request %s", reference)
}

func applicationReceivedSubject(jobTitle string) string {
	return fmt.Sprintf("New application for %q", jobTitle)
}

func reviewModeratedSubject(outcome string) string {
	return fmt.Sprintf("Your review was %s", strings.ToLower(outcome))
}

// =============================================================================
// SMTP Email Service Implementation
// =============================================================================

// SMTPEmailService sends emails via SMTP.
//
// This implementation works with:
// - Mailhog (development): No authentication required
// - Any authenticated SMTP relay (production)
type SMTPEmailService struct {
	config    SMTPConfig
	baseURL   string
	templates *template.Template
	logger    *slog.Logger
}

// NewSMTPEmailService creates a new SMTP-based email service using the
// embedded HTML templates.
func NewSMTPEmailService(config SMTPConfig, baseURL string, logger *slog.Logger) (*SMTPEmailService, error) {
	if config.From == "" {
		config.From = DefaultFromEmail
	}
	if config.FromName == "" {
		config.FromName = DefaultFromName
	}

	templates, err := template.New("email").Funcs(emailTemplateFuncs()).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}

	return &SMTPEmailService{
		config:    config,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		templates: templates,
		logger:    logger,
	}, nil
}

// =============================================================================
// EmailService Interface Implementation
// =============================================================================

// SendQuoteReceivedEmail tells a tradesperson a new quote request arrived.
func (s *SMTPEmailService) SendQuoteReceivedEmail(ctx context.Context, to, name, reference string) error {
	link := fmt.Sprintf("%s/dashboard/quotes?ref=%s", s.baseURL, reference)
	return s.sendTemplate(ctx, to, quoteReceivedSubject(reference), "quote_received.html", map[string]any{
		"Name":      name,
		"Reference": reference,
		"Link":      link,
	}, fmt.Sprintf("Hi %s,\n\nYou have a new quote request (%s). View it here:\n\n%s\n\nThe Tradeslink Team\n",
		name, reference, link))
}

// SendApplicationReceivedEmail tells a customer someone applied to their job.
func (s *SMTPEmailService) SendApplicationReceivedEmail(ctx context.Context, to, name, jobTitle string) error {
	return s.sendTemplate(ctx, to, applicationReceivedSubject(jobTitle), "application_received.html", map[string]any{
		"Name":     name,
		"JobTitle": jobTitle,
		"Link":     s.baseURL + "/account/jobs",
	}, fmt.Sprintf("Hi %s,\n\nA tradesperson applied to %q.\n\nThe Tradeslink Team\n", name, jobTitle))
}

// SendReviewModeratedEmail tells a review's author the moderation outcome.
func (s *SMTPEmailService) SendReviewModeratedEmail(ctx context.Context, to, name, outcome string) error {
	return s.sendTemplate(ctx, to, reviewModeratedSubject(outcome), "review_moderated.html", map[string]any{
		"Name":    name,
		"Outcome": strings.ToLower(outcome),
	}, fmt.Sprintf("Hi %s,\n\nYour review was %s.\n\nThe Tradeslink Team\n", name, strings.ToLower(outcome)))
}

// SendReportResolvedEmail tells a reporter their report was handled.
func (s *SMTPEmailService) SendReportResolvedEmail(ctx context.Context, to, name, resolution string) error {
	return s.sendTemplate(ctx, to, reportResolvedSubject, "report_resolved.html", map[string]any{
		"Name":       name,
		"Resolution": resolution,
	}, fmt.Sprintf("Hi %s,\n\nThanks for your report. %s\n\nThe Tradeslink Team\n", name, resolution))
}

// =============================================================================
// Internal Methods
// =============================================================================

func (s *SMTPEmailService) sendTemplate(ctx context.Context, to, subject, tmpl string, data map[string]any, text string) error {
	htmlBody, err := s.renderTemplate(tmpl, data)
	if err != nil {
		return fmt.Errorf("failed to render %s: %w", tmpl, err)
	}
	return s.send(ctx, Email{To: to, Subject: subject, HTMLBody: htmlBody, TextBody: text})
}

// send sends an email via SMTP.
func (s *SMTPEmailService) send(ctx context.Context, email Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := s.buildMessage(email)
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	// Mailhog needs no auth
	var auth smtp.Auth
	if s.config.Username != "" && s.config.Password != "" {
		auth = smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
	}

	if err := smtp.SendMail(addr, auth, s.config.From, []string{email.To}, msg); err != nil {
		s.logger.Error("failed to send email",
			"to", email.To,
			"subject", email.Subject,
			"error", err,
		)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("email sent",
		"to", email.To,
		"subject", email.Subject,
	)
	return nil
}

// buildMessage constructs the raw email message with headers.
func (s *SMTPEmailService) buildMessage(email Email) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "From: %s <%s>\r\n", s.config.FromName, s.config.From)
	fmt.Fprintf(&buf, "To: %s\r\n", email.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", email.Subject)
	buf.WriteString("MIME-Version: 1.0\r\n")

	boundary := "===============TRADESLINK_BOUNDARY==============="
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=\"%s\"\r\n\r\n", boundary)

	fmt.Fprintf(&buf, "--%s\r\n", boundary)
	buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	buf.WriteString(email.TextBody)
	buf.WriteString("\r\n")

	fmt.Fprintf(&buf, "--%s\r\n", boundary)
	buf.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
	buf.WriteString(email.HTMLBody)
	buf.WriteString("\r\n")

	fmt.Fprintf(&buf, "--%s--\r\n", boundary)
	return buf.Bytes()
}

func (s *SMTPEmailService) renderTemplate(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func emailTemplateFuncs() template.FuncMap {
	return template.FuncMap{
		"currentYear": func() int {
			return time.Now().Year()
		},
	}
}

var _ EmailService = (*SMTPEmailService)(nil)
