package domain

// Secret is a one-time-readable piece of text with an absolute expiry.
//
// A Secret doubles as a pending request when SecretText is empty and
// RequestID is set: the text is supplied later through the fulfilment
// handshake.
type Secret struct {
	SecretID       string `json:"secret_id"`
	SecretText     string `json:"secret_text,omitempty"`
	ExpirySeconds  int    `json:"expiry_seconds"`
	BurnAt         int64  `json:"burn_at"`
	PassphraseHash string `json:"passphrase_hash,omitempty"`
	PublicKey      string `json:"public_key,omitempty"`
	RequestID      string `json:"request_id,omitempty"`
	FulfilmentID   string `json:"fulfilment_id,omitempty"`
}

// PKIEncrypted reports whether the stored text is expected to be decrypted
// client-side with the stored public key. Derived, never stored.
func (s *Secret) PKIEncrypted() bool {
	return s.PublicKey != ""
}

// PassphraseEncrypted reports whether retrieval is gated by a passphrase.
// Mutually exclusive with the public-key and request flows.
func (s *Secret) PassphraseEncrypted() bool {
	return s.PublicKey == "" && s.RequestID == "" && s.PassphraseHash != ""
}

// Verification is the email-ownership proof binding a sender and recipient
// address pair. The code is exchanged for a single-use verified token, which
// is in turn consumed immediately before a notification email is sent.
type Verification struct {
	VerifyID           string `json:"verify_id"`
	Code               string `json:"code"`
	VerifiedToken      string `json:"verified_token,omitempty"`
	SenderEmailHash    string `json:"sender_email_hash"`
	RecipientEmailHash string `json:"recipient_email_hash"`
	BurnAt             int64  `json:"burn_at"`
}
