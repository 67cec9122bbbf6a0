package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
)

// Sign computes the HMAC-SHA256 signature of msg under key. The key is used
// directly, without derivation.
func Sign(key, msg []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(msg)
	return mac.Sum(nil)
}

// VerifySignature recomputes the signature of msg and compares it against sig
// in constant time.
func VerifySignature(key, msg, sig []byte) bool {
	expected := Sign(key, msg)
	return subtle.ConstantTimeCompare(sig, expected) == 1
}
