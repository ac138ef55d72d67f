package service

import (
	"context"
	"time"

	"secretburner/internal/domain"
	"secretburner/internal/store"
	"secretburner/internal/utility"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	subjectSecretReady      = "Secret Burner: Somebody has sent you a secret"
	subjectSecretRequest    = "Secret Burner: Somebody is requesting a secret from you"
	subjectRequestFulfilled = "Secret Burner: Your secret request has been fulfilled"
)

// SecretService drives the secret lifecycle: creation, one-time retrieval
// with burn-on-read and burn-on-expiry, and the request/fulfilment
// handshake.
type SecretService struct {
	secrets  store.SecretRepository
	notifier *Notifier
	links    LinkBuilder
	logger   *zap.Logger
	now      func() time.Time
}

func NewSecretService(secrets store.SecretRepository, notifier *Notifier, links LinkBuilder, logger *zap.Logger) *SecretService {
	return &SecretService{
		secrets:  secrets,
		notifier: notifier,
		links:    links,
		logger:   logger,
		now:      time.Now,
	}
}

type StoreSecretInput struct {
	SecretText    string
	ExpirySeconds int
	Passphrase    string
	PublicKey     string
}

type StoreSecretResult struct {
	SecretID      string
	BurnAt        int64
	EmailResponse string
}

type RetrieveSecretResult struct {
	SecretText          string
	BurnAt              int64
	PassphraseEncrypted bool
	PKIEncrypted        bool
}

// StoreSecret persists a new secret and, when the envelope carries a
// recipient and a verified token, notifies the recipient with a one-time
// view link. Notification failure is reported in EmailResponse, never as an
// error: the secret is valid either way and the link can be shared
// out-of-band.
func (s *SecretService) StoreSecret(ctx context.Context, in StoreSecretInput, env Envelope) (*StoreSecretResult, error) {
	if in.SecretText == "" {
		return nil, domain.NewValidationError("secret_text", "this field is required")
	}
	if err := validateCommonInput(in.SecretText, in.ExpirySeconds, in.Passphrase, in.PublicKey, env); err != nil {
		return nil, err
	}

	expiry := in.ExpirySeconds
	if expiry == 0 {
		expiry = domain.DefaultExpirySeconds
	}

	var passphraseHash string
	if in.Passphrase != "" {
		var err error
		passphraseHash, err = utility.HashCredential(in.Passphrase)
		if err != nil {
			return nil, err
		}
	}

	sec := &domain.Secret{
		SecretID:       uuid.NewString(),
		SecretText:     in.SecretText,
		ExpirySeconds:  expiry,
		BurnAt:         utility.ExpiryTimestamp(s.now(), expiry),
		PassphraseHash: passphraseHash,
		PublicKey:      in.PublicKey,
	}
	ttl := time.Duration(expiry) * time.Second
	if err := s.secrets.Create(ctx, sec, ttl); err != nil {
		return nil, err
	}

	emailResponse := s.notifier.SendVerified(ctx, env, env.RecipientEmail,
		"secret-ready", subjectSecretReady, map[string]string{
			"sender_email": env.SenderEmail,
			"secret_url":   s.links.SecretURL(sec.SecretID),
		})

	return &StoreSecretResult{
		SecretID:      sec.SecretID,
		BurnAt:        sec.BurnAt,
		EmailResponse: emailResponse,
	}, nil
}

// RetrieveSecret hands out the secret text exactly once. Wrong passphrase,
// missing record and expired record are indistinguishable to the caller.
// The read and the delete form one atomic unit: under concurrent retrievals
// only one caller wins, the rest see not-found.
func (s *SecretService) RetrieveSecret(ctx context.Context, secretID, passphrase string) (*RetrieveSecretResult, error) {
	if secretID == "" || len(secretID) > domain.MaxIDSize {
		return nil, domain.ErrSecretNotFound
	}
	sec, err := s.secrets.Get(ctx, secretID)
	if err != nil {
		return nil, err
	}
	if sec.PassphraseHash != "" && !utility.VerifyCredential(passphrase, sec.PassphraseHash) {
		return nil, domain.ErrSecretNotFound
	}
	if utility.IsExpired(sec.BurnAt, s.now()) {
		s.burn(ctx, sec)
		return nil, domain.ErrSecretNotFound
	}

	won, err := s.secrets.Take(ctx, sec)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, domain.ErrSecretNotFound
	}

	return &RetrieveSecretResult{
		SecretText:          sec.SecretText,
		BurnAt:              sec.BurnAt,
		PassphraseEncrypted: sec.PassphraseEncrypted(),
		PKIEncrypted:        sec.PKIEncrypted(),
	}, nil
}

// CheckSecret reports whether retrieval needs a passphrase, without spending
// the one-time read. Expired records are still burned on sight.
func (s *SecretService) CheckSecret(ctx context.Context, secretID string) (bool, error) {
	if secretID == "" || len(secretID) > domain.MaxIDSize {
		return false, domain.ErrSecretNotFound
	}
	sec, err := s.secrets.Get(ctx, secretID)
	if err != nil {
		return false, err
	}
	if utility.IsExpired(sec.BurnAt, s.now()) {
		s.burn(ctx, sec)
		return false, domain.ErrSecretNotFound
	}
	return sec.PassphraseHash != "", nil
}

// burn deletes an expired record found on a read path.
func (s *SecretService) burn(ctx context.Context, sec *domain.Secret) {
	if err := s.secrets.Delete(ctx, sec); err != nil {
		s.logger.Error("delete expired secret", zap.Error(err))
	}
}

func validateCommonInput(text string, expirySeconds int, passphrase, publicKey string, env Envelope) error {
	var errs []domain.FieldError
	if len(text) > domain.MaxSecretTextSize {
		errs = append(errs, domain.FieldError{Field: "secret_text", Detail: "too long"})
	}
	if expirySeconds != 0 && expirySeconds < domain.MinExpirySeconds {
		errs = append(errs, domain.FieldError{Field: "expiry_seconds", Detail: "must be at least 60"})
	}
	if len(passphrase) > domain.MaxPassphraseSize {
		errs = append(errs, domain.FieldError{Field: "passphrase", Detail: "too long"})
	}
	if len(publicKey) > domain.MaxPublicKeySize {
		errs = append(errs, domain.FieldError{Field: "public_key", Detail: "too long"})
	}
	if len(env.SenderEmail) > domain.MaxEmailSize {
		errs = append(errs, domain.FieldError{Field: "sender_email", Detail: "too long"})
	}
	if len(env.RecipientEmail) > domain.MaxEmailSize {
		errs = append(errs, domain.FieldError{Field: "recipient_email", Detail: "too long"})
	}
	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}
