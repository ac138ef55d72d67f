package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"secretburner/internal/domain"

	"go.uber.org/zap"
)

// Message is a rendered email ready for delivery.
type Message struct {
	Subject string
	Text    string
	HTML    string
	From    string
	To      []string
}

// Mailer delivers rendered emails. Implementations own their transport
// timeout policy.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// ProviderConfig selects and configures a delivery provider.
type ProviderConfig struct {
	Provider     string // "log" or "smtp"
	SMTPAddr     string // host:port
	SMTPUsername string
	SMTPPassword string
}

// NewMailer builds the configured provider. An unsupported provider is a
// construction-time configuration error, not a per-request failure.
func NewMailer(cfg ProviderConfig, logger *zap.Logger) (Mailer, error) {
	switch cfg.Provider {
	case "log":
		return &LogMailer{logger: logger}, nil
	case "smtp":
		return &SMTPMailer{
			addr:     cfg.SMTPAddr,
			username: cfg.SMTPUsername,
			password: cfg.SMTPPassword,
		}, nil
	default:
		return nil, &domain.ConfigurationError{
			Reason: fmt.Sprintf("unsupported mail provider %q", cfg.Provider),
		}
	}
}

// LogMailer records outbound mail instead of sending it. Used in development
// and tests.
type LogMailer struct {
	logger *zap.Logger
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.logger.Info("outbound email",
		zap.String("subject", msg.Subject),
		zap.String("from", msg.From),
		zap.Strings("to", msg.To),
	)
	return nil
}

// SMTPMailer delivers mail through a plain SMTP relay.
type SMTPMailer struct {
	addr     string
	username string
	password string
}

func (m *SMTPMailer) Send(_ context.Context, msg Message) error {
	var auth smtp.Auth
	if m.username != "" {
		host := m.addr
		if i := strings.IndexByte(host, ':'); i >= 0 {
			host = host[:i]
		}
		auth = smtp.PlainAuth("", m.username, m.password, host)
	}
	return smtp.SendMail(m.addr, auth, msg.From, msg.To, buildMIME(msg))
}

// buildMIME assembles a multipart/alternative body carrying both the text
// and HTML renditions.
func buildMIME(msg Message) []byte {
	const boundary = "secretburner-alt"
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", msg.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", boundary)

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(msg.Text)
	b.WriteString("\r\n")

	if msg.HTML != "" {
		fmt.Fprintf(&b, "--%s\r\n", boundary)
		b.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
		b.WriteString(msg.HTML)
		b.WriteString("\r\n")
	}

	fmt.Fprintf(&b, "--%s--\r\n", boundary)
	return []byte(b.String())
}
