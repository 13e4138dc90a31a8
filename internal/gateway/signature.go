package gateway

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"strconv"
)

// IntegrityToken computes the token the provider attaches to webhook
// notifications: hex(sha512(orderCode + providerStatus + amount + serverKey)).
// The concatenation order and lack of delimiter are fixed by the provider
// contract; changing them breaks wire compatibility with real deliveries.
func IntegrityToken(orderCode, providerStatus string, amount int64, serverKey string) string {
	payload := orderCode + providerStatus + strconv.FormatInt(amount, 10) + serverKey
	sum := sha512.Sum512([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// VerifyIntegrityToken recomputes the expected token and compares it in
// constant time against the one supplied in a notification.
func VerifyIntegrityToken(orderCode, providerStatus string, amount int64, serverKey, supplied string) bool {
	expected := IntegrityToken(orderCode, providerStatus, amount, serverKey)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(supplied)) == 1
}
