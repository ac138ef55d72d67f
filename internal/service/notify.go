package service

import (
	"context"
	"errors"

	"secretburner/internal/domain"
	"secretburner/internal/mail"

	"go.uber.org/zap"
)

// Envelope carries the notification fields extracted from a request body
// before entity validation: who claims to be sending, who should receive,
// and the verified token authorizing the email.
type Envelope struct {
	SenderEmail    string
	RecipientEmail string
	VerifiedToken  string
}

// TokenConsumer spends a verified token against the claimed email pair.
type TokenConsumer interface {
	Consume(ctx context.Context, token, senderEmail, recipientEmail string) error
}

// Notifier sends secret-bearing notification emails gated by the
// verification handshake. Failure to notify never fails the operation that
// triggered it; the outcome is reported as a soft status string instead.
type Notifier struct {
	consumer   TokenConsumer
	renderer   *mail.Renderer
	mailer     mail.Mailer
	fromEmail  string
	allowEmail bool
	logger     *zap.Logger
}

func NewNotifier(consumer TokenConsumer, renderer *mail.Renderer, mailer mail.Mailer, fromEmail string, allowEmail bool, logger *zap.Logger) *Notifier {
	return &Notifier{
		consumer:   consumer,
		renderer:   renderer,
		mailer:     mailer,
		fromEmail:  fromEmail,
		allowEmail: allowEmail,
		logger:     logger,
	}
}

// SendVerified consumes the envelope's verified token and, only on success,
// renders and sends the named template to the given address. The returned
// status is "" when no email was attempted, "ok" on success, or the
// verification error message. The token is spent before sending, so a send
// failure cannot be replayed.
func (n *Notifier) SendVerified(ctx context.Context, env Envelope, to, templateName, subject string, tctx map[string]string) string {
	if !n.allowEmail {
		return ""
	}
	if to == "" || env.VerifiedToken == "" {
		return ""
	}

	if err := n.consumer.Consume(ctx, env.VerifiedToken, env.SenderEmail, env.RecipientEmail); err != nil {
		if errors.Is(err, domain.ErrEmailVerification) {
			return err.Error()
		}
		n.logger.Error("consume verified token", zap.Error(err))
		return domain.ErrEmailVerification.Error()
	}

	text, html, err := n.renderer.Render(templateName, tctx)
	if err != nil {
		n.logger.Error("render notification", zap.String("template", templateName), zap.Error(err))
		return ""
	}
	err = n.mailer.Send(ctx, mail.Message{
		Subject: subject,
		Text:    text,
		HTML:    html,
		From:    n.fromEmail,
		To:      []string{to},
	})
	if err != nil {
		n.logger.Error("send notification", zap.String("template", templateName), zap.Error(err))
		return ""
	}
	return "ok"
}

// LinkBuilder assembles the recipient-facing UI links embedded in
// notification emails.
type LinkBuilder struct {
	UIHostname       string
	ViewSecretURL    string
	FulfilRequestURI string
}

// SecretURL returns the one-time view link for a stored secret.
func (l LinkBuilder) SecretURL(secretID string) string {
	return l.UIHostname + l.ViewSecretURL + secretID
}

// RequestURL returns the fulfilment link for a pending request.
func (l LinkBuilder) RequestURL(requestID string) string {
	return l.UIHostname + l.FulfilRequestURI + requestID
}
