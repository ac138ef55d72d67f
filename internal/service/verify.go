// Package service implements the secret lifecycle and email verification
// state machines on top of the store, mail and utility packages.
package service

import (
	"context"
	"crypto/subtle"
	"time"

	"secretburner/internal/domain"
	"secretburner/internal/mail"
	"secretburner/internal/store"
	"secretburner/internal/utility"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const subjectVerifyEmail = "Secret Burner: Please verify your email"

// VerificationService drives the email-ownership handshake: a pending code
// is exchanged for a single-use verified token, which is later consumed to
// authorize exactly one notification email.
type VerificationService struct {
	verifications store.VerificationRepository
	renderer      *mail.Renderer
	mailer        mail.Mailer
	codes         *utility.RandomStringGenerator
	tokens        *utility.RandomStringGenerator
	fromEmail     string
	allowEmail    bool
	ttl           time.Duration
	logger        *zap.Logger
	now           func() time.Time
}

// NewVerificationService wires the verification state machine. A zero or
// negative expiry is a configuration error.
func NewVerificationService(
	verifications store.VerificationRepository,
	renderer *mail.Renderer,
	mailer mail.Mailer,
	fromEmail string,
	allowEmail bool,
	expirySeconds int,
	logger *zap.Logger,
) (*VerificationService, error) {
	if expirySeconds <= 0 {
		return nil, &domain.ConfigurationError{Reason: "verification expiry must be positive"}
	}
	codes, err := utility.NewRandomStringGenerator(
		domain.VerificationCodeLength, utility.CharacterClasses{Numeric: true})
	if err != nil {
		return nil, err
	}
	tokens, err := utility.NewRandomStringGenerator(
		domain.VerifiedTokenLength,
		utility.CharacterClasses{Alpha: true, Numeric: true, Symbols: true})
	if err != nil {
		return nil, err
	}
	return &VerificationService{
		verifications: verifications,
		renderer:      renderer,
		mailer:        mailer,
		codes:         codes,
		tokens:        tokens,
		fromEmail:     fromEmail,
		allowEmail:    allowEmail,
		ttl:           time.Duration(expirySeconds) * time.Second,
		logger:        logger,
		now:           time.Now,
	}, nil
}

// RequestVerification creates a pending verification bound to the two email
// hashes and mails the code to the sender. At least one address is required;
// the code goes to the sender when present, otherwise to the recipient.
func (s *VerificationService) RequestVerification(ctx context.Context, senderEmail, recipientEmail string) (string, error) {
	if senderEmail == "" && recipientEmail == "" {
		return "", domain.NewValidationError("sender_email", "an email address is required")
	}
	if len(senderEmail) > domain.MaxEmailSize {
		return "", domain.NewValidationError("sender_email", "too long")
	}
	if len(recipientEmail) > domain.MaxEmailSize {
		return "", domain.NewValidationError("recipient_email", "too long")
	}

	code, err := s.codes.Generate()
	if err != nil {
		return "", err
	}
	senderHash, err := utility.HashCredential(senderEmail)
	if err != nil {
		return "", err
	}
	recipientHash, err := utility.HashCredential(recipientEmail)
	if err != nil {
		return "", err
	}

	v := &domain.Verification{
		VerifyID:           uuid.NewString(),
		Code:               code,
		SenderEmailHash:    senderHash,
		RecipientEmailHash: recipientHash,
		BurnAt:             utility.ExpiryTimestamp(s.now(), int(s.ttl/time.Second)),
	}
	if err := s.verifications.Create(ctx, v, s.ttl); err != nil {
		return "", err
	}

	s.sendCode(ctx, code, senderEmail, recipientEmail)
	return v.VerifyID, nil
}

// sendCode emails the verification code. Delivery failures never fail the
// verification request; the client retries by requesting a new code.
func (s *VerificationService) sendCode(ctx context.Context, code, senderEmail, recipientEmail string) {
	if !s.allowEmail {
		return
	}
	to := senderEmail
	if to == "" {
		to = recipientEmail
	}
	text, html, err := s.renderer.Render("verify-email", map[string]string{
		"code":            code,
		"sender_email":    senderEmail,
		"recipient_email": recipientEmail,
	})
	if err != nil {
		s.logger.Error("render verification email", zap.Error(err))
		return
	}
	err = s.mailer.Send(ctx, mail.Message{
		Subject: subjectVerifyEmail,
		Text:    text,
		HTML:    html,
		From:    s.fromEmail,
		To:      []string{to},
	})
	if err != nil {
		s.logger.Error("send verification email", zap.Error(err))
	}
}

// ConfirmCode exchanges a correct code for a verified token. Confirming
// again before the token is consumed reissues the token and invalidates the
// previous one. Expired verifications are burned on sight.
func (s *VerificationService) ConfirmCode(ctx context.Context, verifyID, code string) (string, error) {
	if verifyID == "" || len(verifyID) > domain.MaxIDSize {
		return "", domain.ErrVerificationNotFound
	}
	if len(code) > domain.MaxCodeSize {
		return "", domain.ErrVerificationCodeMismatch
	}

	v, err := s.verifications.Get(ctx, verifyID)
	if err != nil {
		return "", err
	}
	if utility.IsExpired(v.BurnAt, s.now()) {
		if derr := s.verifications.Delete(ctx, v); derr != nil {
			s.logger.Error("delete expired verification", zap.Error(derr))
		}
		return "", domain.ErrVerificationNotFound
	}
	if subtle.ConstantTimeCompare([]byte(v.Code), []byte(code)) != 1 {
		return "", domain.ErrVerificationCodeMismatch
	}

	token, err := s.tokens.Generate()
	if err != nil {
		return "", err
	}
	if _, err := s.verifications.SetToken(ctx, verifyID, token); err != nil {
		return "", err
	}
	return token, nil
}

// Consume spends a verified token: the claimed sender and recipient emails
// must match the hashes bound at request time, and the record is deleted so
// the token authorizes exactly one notification.
func (s *VerificationService) Consume(ctx context.Context, token, senderEmail, recipientEmail string) error {
	if token == "" {
		return domain.ErrEmailVerification
	}
	v, err := s.verifications.GetByToken(ctx, token)
	if err != nil {
		return err
	}
	if !utility.VerifyCredential(senderEmail, v.SenderEmailHash) {
		return domain.ErrEmailVerification
	}
	if !utility.VerifyCredential(recipientEmail, v.RecipientEmailHash) {
		return domain.ErrEmailVerification
	}
	won, err := s.verifications.ConsumeByToken(ctx, token)
	if err != nil {
		return err
	}
	if !won {
		return domain.ErrEmailVerification
	}
	return nil
}
