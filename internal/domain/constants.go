package domain

const (
	// MinExpirySeconds is the shortest lifetime a secret may be created with.
	MinExpirySeconds = 60

	// DefaultExpirySeconds is used when no expiry is supplied.
	DefaultExpirySeconds = 3600

	// MaxSecretTextSize is the maximum allowed size for secret text (500 KB).
	MaxSecretTextSize = 512000

	// MaxPassphraseSize is the maximum length of a retrieval passphrase.
	MaxPassphraseSize = 500

	// MaxPublicKeySize is the maximum length of a stored public key.
	MaxPublicKeySize = 4096

	// MaxEmailSize is the maximum length of a sender or recipient email.
	MaxEmailSize = 500

	// MaxCodeSize is the maximum length of a verification code entry.
	MaxCodeSize = 20

	// MaxIDSize is the maximum length of any client-supplied identifier.
	MaxIDSize = 40

	// MaxRequestBodySize caps request bodies. Slightly larger than
	// MaxSecretTextSize to account for JSON overhead.
	MaxRequestBodySize = MaxSecretTextSize + 8192

	// VerificationCodeLength is the length of the emailed numeric code.
	VerificationCodeLength = 6

	// VerifiedTokenLength is the length of the single-use bearer token
	// issued after a successful code confirmation.
	VerifiedTokenLength = 128
)
