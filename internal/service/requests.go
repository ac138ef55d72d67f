package service

import (
	"context"
	"time"

	"secretburner/internal/domain"
	"secretburner/internal/utility"

	"github.com/google/uuid"
)

type StoreRequestInput struct {
	ExpirySeconds int
	Passphrase    string
	PublicKey     string
}

type StoreRequestResult struct {
	SecretID      string
	RequestID     string
	BurnAt        int64
	EmailResponse string
}

type ClaimFulfilmentResult struct {
	RequestID    string
	FulfilmentID string
	PublicKey    string
}

type FulfilRequestResult struct {
	RequestID     string
	BurnAt        int64
	EmailResponse string
}

// StoreRequest creates a secret without text, to be filled in later through
// the fulfilment handshake. The notification, if any, goes to the sender:
// the person being asked to supply the secret.
func (s *SecretService) StoreRequest(ctx context.Context, in StoreRequestInput, env Envelope) (*StoreRequestResult, error) {
	if err := validateCommonInput("", in.ExpirySeconds, in.Passphrase, in.PublicKey, env); err != nil {
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
		ExpirySeconds:  expiry,
		BurnAt:         utility.ExpiryTimestamp(s.now(), expiry),
		PassphraseHash: passphraseHash,
		PublicKey:      in.PublicKey,
		RequestID:      uuid.NewString(),
	}
	ttl := time.Duration(expiry) * time.Second
	if err := s.secrets.Create(ctx, sec, ttl); err != nil {
		return nil, err
	}

	emailResponse := s.notifier.SendVerified(ctx, env, env.SenderEmail,
		"secret-request", subjectSecretRequest, map[string]string{
			"sender_email": env.SenderEmail,
			"request_url":  s.links.RequestURL(sec.RequestID),
		})

	return &StoreRequestResult{
		SecretID:      sec.SecretID,
		RequestID:     sec.RequestID,
		BurnAt:        sec.BurnAt,
		EmailResponse: emailResponse,
	}, nil
}

// ClaimFulfilment issues a fresh fulfilment id for a pending request. The
// claim is single-use: a second claim on the same request fails like a
// missing request, so two parties cannot race to fulfil it.
func (s *SecretService) ClaimFulfilment(ctx context.Context, requestID string) (*ClaimFulfilmentResult, error) {
	if requestID == "" || len(requestID) > domain.MaxIDSize {
		return nil, domain.ErrRequestNotFound
	}
	sec, err := s.secrets.GetByRequestID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if utility.IsExpired(sec.BurnAt, s.now()) {
		s.burn(ctx, sec)
		return nil, domain.ErrRequestNotFound
	}
	if sec.FulfilmentID != "" {
		return nil, domain.ErrRequestNotFound
	}

	claimed, err := s.secrets.ClaimFulfilment(ctx, requestID, uuid.NewString())
	if err != nil {
		return nil, err
	}
	return &ClaimFulfilmentResult{
		RequestID:    requestID,
		FulfilmentID: claimed.FulfilmentID,
		PublicKey:    claimed.PublicKey,
	}, nil
}

// FulfilRequest stores the submitted text on the claimed request. Both ids
// must address the same record. The completed secret is not deleted here; it
// awaits normal one-time retrieval by the original requester.
func (s *SecretService) FulfilRequest(ctx context.Context, requestID, fulfilmentID, text string, env Envelope) (*FulfilRequestResult, error) {
	if text == "" {
		return nil, domain.NewValidationError("secret_text", "this field is required")
	}
	if len(text) > domain.MaxSecretTextSize {
		return nil, domain.NewValidationError("secret_text", "too long")
	}
	if requestID == "" || len(requestID) > domain.MaxIDSize ||
		fulfilmentID == "" || len(fulfilmentID) > domain.MaxIDSize {
		return nil, domain.ErrRequestNotFound
	}

	sec, err := s.secrets.GetByFulfilmentID(ctx, fulfilmentID)
	if err != nil {
		return nil, err
	}
	if sec.RequestID != requestID {
		return nil, domain.ErrRequestNotFound
	}
	if utility.IsExpired(sec.BurnAt, s.now()) {
		s.burn(ctx, sec)
		return nil, domain.ErrRequestNotFound
	}

	updated, err := s.secrets.SetText(ctx, fulfilmentID, requestID, text)
	if err != nil {
		return nil, err
	}

	emailResponse := s.notifier.SendVerified(ctx, env, env.RecipientEmail,
		"request-fulfilled", subjectRequestFulfilled, map[string]string{
			"sender_email": env.SenderEmail,
		})

	return &FulfilRequestResult{
		RequestID:     updated.RequestID,
		BurnAt:        updated.BurnAt,
		EmailResponse: emailResponse,
	}, nil
}
