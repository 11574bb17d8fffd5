package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Sign computes the hex HMAC-SHA256 signature over "{timestamp}.{nonce}.{raw_body}".
// rawBody must be the exact bytes transmitted; re-serialization on either side
// breaks the signature.
func Sign(secret, timestamp, nonce string, rawBody []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%s.%s.", timestamp, nonce)
	mac.Write(rawBody)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the signature and compares in constant time.
func Verify(secret, timestamp, nonce string, rawBody []byte, signature string) bool {
	expected := Sign(secret, timestamp, nonce, rawBody)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// GenerateNonce returns a 32-char hex token from crypto/rand.
func GenerateNonce() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
