package auth

import (
	"crypto/sha256"
	"encoding/base64"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt only looks at the first 72 bytes of its input and rejects longer
// ones, so secrets are digested first. The base64 form keeps NUL bytes out.
func digest(secret string) []byte {
	sum := sha256.Sum256([]byte(secret))
	out := make([]byte, base64.StdEncoding.EncodedLen(len(sum)))
	base64.StdEncoding.Encode(out, sum[:])
	return out
}

// HashSecret hashes a password of any length with bcrypt
func HashSecret(secret string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(digest(secret), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CompareSecret reports whether secret matches a hash from HashSecret
func CompareSecret(hash, secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), digest(secret)) == nil
}
