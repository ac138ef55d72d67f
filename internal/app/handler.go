// Package app wires the HTTP surface: handlers, middleware and routing.
package app

import (
	"context"
	"encoding/json"
	"net/http"

	"secretburner/internal/service"

	"go.uber.org/zap"
)

// SecretService is the slice of the secret state machine the handlers need.
type SecretService interface {
	StoreSecret(ctx context.Context, in service.StoreSecretInput, env service.Envelope) (*service.StoreSecretResult, error)
	RetrieveSecret(ctx context.Context, secretID, passphrase string) (*service.RetrieveSecretResult, error)
	CheckSecret(ctx context.Context, secretID string) (bool, error)
	StoreRequest(ctx context.Context, in service.StoreRequestInput, env service.Envelope) (*service.StoreRequestResult, error)
	ClaimFulfilment(ctx context.Context, requestID string) (*service.ClaimFulfilmentResult, error)
	FulfilRequest(ctx context.Context, requestID, fulfilmentID, text string, env service.Envelope) (*service.FulfilRequestResult, error)
}

// VerificationService is the slice of the verification state machine the
// handlers need.
type VerificationService interface {
	RequestVerification(ctx context.Context, senderEmail, recipientEmail string) (string, error)
	ConfirmCode(ctx context.Context, verifyID, code string) (string, error)
}

type Handler struct {
	secrets       SecretService
	verifications VerificationService
	logger        *zap.Logger
}

func NewHandler(secrets SecretService, verifications VerificationService, logger *zap.Logger) *Handler {
	return &Handler{secrets: secrets, verifications: verifications, logger: logger}
}

// emailEnvelope carries the notification fields shared by every creating
// operation. It is decoded alongside, but kept separate from, the
// entity-specific fields.
type emailEnvelope struct {
	SenderEmail    string `json:"sender_email"`
	RecipientEmail string `json:"recipient_email"`
	VerifiedToken  string `json:"verified_token"`
}

func (e emailEnvelope) envelope() service.Envelope {
	return service.Envelope{
		SenderEmail:    e.SenderEmail,
		RecipientEmail: e.RecipientEmail,
		VerifiedToken:  e.VerifiedToken,
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

type storeSecretReq struct {
	emailEnvelope
	SecretText    string `json:"secret_text"`
	ExpirySeconds int    `json:"expiry_seconds"`
	Passphrase    string `json:"passphrase"`
	PublicKey     string `json:"public_key"`
}

type storeSecretRes struct {
	SecretID      string `json:"secret_id"`
	BurnAt        int64  `json:"burn_at"`
	EmailResponse string `json:"email_response,omitempty"`
}

func (h *Handler) HandleStoreSecret(w http.ResponseWriter, r *http.Request) {
	var req storeSecretReq
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.secrets.StoreSecret(r.Context(), service.StoreSecretInput{
		SecretText:    req.SecretText,
		ExpirySeconds: req.ExpirySeconds,
		Passphrase:    req.Passphrase,
		PublicKey:     req.PublicKey,
	}, req.envelope())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, storeSecretRes{
		SecretID:      res.SecretID,
		BurnAt:        res.BurnAt,
		EmailResponse: res.EmailResponse,
	})
}

type retrieveSecretReq struct {
	SecretID   string `json:"secret_id"`
	Passphrase string `json:"passphrase"`
}

type retrieveSecretRes struct {
	SecretText          string `json:"secret_text"`
	BurnAt              int64  `json:"burn_at"`
	PassphraseEncrypted bool   `json:"passphrase_encrypted"`
	PKIEncrypted        bool   `json:"pki_encrypted"`
}

func (h *Handler) HandleRetrieveSecret(w http.ResponseWriter, r *http.Request) {
	var req retrieveSecretReq
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.secrets.RetrieveSecret(r.Context(), req.SecretID, req.Passphrase)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, retrieveSecretRes{
		SecretText:          res.SecretText,
		BurnAt:              res.BurnAt,
		PassphraseEncrypted: res.PassphraseEncrypted,
		PKIEncrypted:        res.PKIEncrypted,
	})
}

type checkSecretReq struct {
	SecretID string `json:"secret_id"`
}

type checkSecretRes struct {
	PassphraseProtected bool `json:"passphrase_protected"`
}

func (h *Handler) HandleCheckSecret(w http.ResponseWriter, r *http.Request) {
	var req checkSecretReq
	if !h.decode(w, r, &req) {
		return
	}
	protected, err := h.secrets.CheckSecret(r.Context(), req.SecretID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, checkSecretRes{PassphraseProtected: protected})
}

type storeRequestReq struct {
	emailEnvelope
	ExpirySeconds int    `json:"expiry_seconds"`
	Passphrase    string `json:"passphrase"`
	PublicKey     string `json:"public_key"`
}

type storeRequestRes struct {
	SecretID      string `json:"secret_id"`
	RequestID     string `json:"request_id"`
	BurnAt        int64  `json:"burn_at"`
	EmailResponse string `json:"email_response,omitempty"`
}

func (h *Handler) HandleStoreRequest(w http.ResponseWriter, r *http.Request) {
	var req storeRequestReq
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.secrets.StoreRequest(r.Context(), service.StoreRequestInput{
		ExpirySeconds: req.ExpirySeconds,
		Passphrase:    req.Passphrase,
		PublicKey:     req.PublicKey,
	}, req.envelope())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, storeRequestRes{
		SecretID:      res.SecretID,
		RequestID:     res.RequestID,
		BurnAt:        res.BurnAt,
		EmailResponse: res.EmailResponse,
	})
}

type claimFulfilmentReq struct {
	RequestID string `json:"request_id"`
}

type claimFulfilmentRes struct {
	RequestID    string `json:"request_id"`
	FulfilmentID string `json:"fulfilment_id"`
	PublicKey    string `json:"public_key,omitempty"`
}

func (h *Handler) HandleClaimFulfilment(w http.ResponseWriter, r *http.Request) {
	var req claimFulfilmentReq
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.secrets.ClaimFulfilment(r.Context(), req.RequestID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, claimFulfilmentRes{
		RequestID:    res.RequestID,
		FulfilmentID: res.FulfilmentID,
		PublicKey:    res.PublicKey,
	})
}

type fulfilRequestReq struct {
	emailEnvelope
	RequestID    string `json:"request_id"`
	FulfilmentID string `json:"fulfilment_id"`
	SecretText   string `json:"secret_text"`
}

type fulfilRequestRes struct {
	RequestID     string `json:"request_id"`
	BurnAt        int64  `json:"burn_at"`
	EmailResponse string `json:"email_response,omitempty"`
}

func (h *Handler) HandleFulfilRequest(w http.ResponseWriter, r *http.Request) {
	var req fulfilRequestReq
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.secrets.FulfilRequest(r.Context(), req.RequestID, req.FulfilmentID, req.SecretText, req.envelope())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fulfilRequestRes{
		RequestID:     res.RequestID,
		BurnAt:        res.BurnAt,
		EmailResponse: res.EmailResponse,
	})
}

type requestVerificationReq struct {
	SenderEmail    string `json:"sender_email"`
	RecipientEmail string `json:"recipient_email"`
}

type requestVerificationRes struct {
	VerifyID string `json:"verify_id"`
}

func (h *Handler) HandleRequestVerification(w http.ResponseWriter, r *http.Request) {
	var req requestVerificationReq
	if !h.decode(w, r, &req) {
		return
	}
	verifyID, err := h.verifications.RequestVerification(r.Context(), req.SenderEmail, req.RecipientEmail)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, requestVerificationRes{VerifyID: verifyID})
}

type confirmCodeReq struct {
	VerifyID string `json:"verify_id"`
	Code     string `json:"code"`
}

type confirmCodeRes struct {
	OK            bool   `json:"ok"`
	VerifiedToken string `json:"verified_token"`
}

func (h *Handler) HandleConfirmCode(w http.ResponseWriter, r *http.Request) {
	var req confirmCodeReq
	if !h.decode(w, r, &req) {
		return
	}
	token, err := h.verifications.ConfirmCode(r.Context(), req.VerifyID, req.Code)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, confirmCodeRes{OK: true, VerifiedToken: token})
}
