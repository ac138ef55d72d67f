package utility

import "golang.org/x/crypto/bcrypt"

// HashCredential returns a salted one-way hash of a passphrase or email
// address. bcrypt embeds a per-call salt in the encoded output.
func HashCredential(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyCredential reports whether plaintext matches a hash produced by
// HashCredential. The comparison is constant-time.
func VerifyCredential(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
