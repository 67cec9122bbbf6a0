package token

import (
	"encoding/base64"
	"encoding/json"
	"strings"
)

type header struct {
	Alg string `json:"alg"`
	Typ string `json:"typ"`
}

// Payload carries the identity claims embedded in a token. Times are Unix
// seconds.
type Payload struct {
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// encodeToken assembles the three-segment compact form: base64url(JSON header)
// "." base64url(JSON payload) "." base64url(signature). Base64url output never
// contains '.', so the separator is unambiguous.
func encodeToken(p Payload, secret []byte) (string, error) {
	headerJSON, err := json.Marshal(header{Alg: "HS256", Typ: "JWT"})
	if err != nil {
		return "", err
	}
	payloadJSON, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	signingString := base64.RawURLEncoding.EncodeToString(headerJSON) + "." +
		base64.RawURLEncoding.EncodeToString(payloadJSON)
	sig := Sign(secret, []byte(signingString))
	return signingString + "." + base64.RawURLEncoding.EncodeToString(sig), nil
}

type segments struct {
	signingString string
	payload       string
	signature     []byte
}

// splitToken validates the three-segment structure without touching the
// signature or the payload contents.
func splitToken(tok string) (segments, error) {
	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		return segments{}, ErrInvalidToken
	}
	for _, part := range parts {
		if part == "" {
			return segments{}, ErrInvalidToken
		}
	}
	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return segments{}, ErrInvalidToken
	}
	return segments{
		signingString: parts[0] + "." + parts[1],
		payload:       parts[1],
		signature:     sig,
	}, nil
}

// decodePayload decodes the payload segment and checks it against the
// expected claim schema. The userId claim is mandatory; everything else may
// be absent.
func decodePayload(segment string) (Payload, error) {
	raw, err := base64.RawURLEncoding.DecodeString(segment)
	if err != nil {
		return Payload{}, ErrInvalidToken
	}
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Payload{}, ErrInvalidToken
	}
	if strings.TrimSpace(p.UserID) == "" {
		return Payload{}, ErrInvalidToken
	}
	return p, nil
}
