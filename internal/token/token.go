// Package token issues and verifies self-contained bearer tokens. The wire
// format matches the HS256 compact JWT shape, but construction and
// verification are implemented here rather than delegated to a general
// purpose JWT library: only HS256 is ever accepted and the header's alg claim
// is never trusted to select an algorithm.
package token

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrInvalidToken indicates a malformed, tampered or unparseable token.
	ErrInvalidToken = errors.New("token: invalid token")
	// ErrTokenExpired indicates an authentic token past its expiry.
	ErrTokenExpired = errors.New("token: token expired")
)

const (
	defaultTTL              = 24 * time.Hour
	defaultNearExpiryWindow = time.Hour
	bearerScheme            = "Bearer"
)

// Identity is the subject a token is issued for.
type Identity struct {
	UserID   string
	Username string
	Email    string
}

// Service issues and verifies tokens under a single shared secret. The
// secret is fixed at construction and never read from ambient state.
type Service struct {
	secret     []byte
	ttl        time.Duration
	nearWindow time.Duration
	now        func() time.Time
}

// Option configures Service behavior.
type Option func(*Service)

// WithTTL sets the validity window applied by Issue.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl != 0 {
			s.ttl = ttl
		}
	}
}

// WithNearExpiryWindow sets the lookahead used by NearExpiry.
func WithNearExpiryWindow(window time.Duration) Option {
	return func(s *Service) {
		if window > 0 {
			s.nearWindow = window
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs a token service for the given signing secret.
func NewService(secret string, opts ...Option) (*Service, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("token: signing secret is required")
	}
	svc := &Service{
		secret:     []byte(secret),
		ttl:        defaultTTL,
		nearWindow: defaultNearExpiryWindow,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// TTL returns the validity window applied by Issue.
func (s *Service) TTL() time.Duration { return s.ttl }

// Issue signs a token for id using the configured TTL.
func (s *Service) Issue(id Identity) (string, error) {
	return s.IssueWithTTL(id, s.ttl)
}

// IssueWithTTL signs a token for id valid for the given duration. A
// non-positive ttl produces an already expired token; Verify will reject it
// with ErrTokenExpired.
func (s *Service) IssueWithTTL(id Identity, ttl time.Duration) (string, error) {
	if strings.TrimSpace(id.UserID) == "" {
		return "", errors.New("token: user id is required")
	}
	iat := s.now().Unix()
	return encodeToken(Payload{
		UserID:    id.UserID,
		Username:  id.Username,
		Email:     id.Email,
		IssuedAt:  iat,
		ExpiresAt: iat + int64(ttl/time.Second),
	}, s.secret)
}

// Verify checks structure, signature and expiry, in that order, and returns
// the decoded payload. Expiry is only consulted once authenticity is
// established, so a tampered expired token reports ErrInvalidToken while an
// authentic expired one reports ErrTokenExpired. All comparisons use Unix
// seconds throughout.
func (s *Service) Verify(tok string) (Payload, error) {
	segs, err := splitToken(tok)
	if err != nil {
		return Payload{}, ErrInvalidToken
	}
	if !VerifySignature(s.secret, []byte(segs.signingString), segs.signature) {
		return Payload{}, ErrInvalidToken
	}
	p, err := decodePayload(segs.payload)
	if err != nil {
		return Payload{}, ErrInvalidToken
	}
	if p.ExpiresAt != 0 && s.now().Unix() >= p.ExpiresAt {
		return Payload{}, ErrTokenExpired
	}
	return p, nil
}

// ExtractFromHeader pulls the token out of an Authorization header value of
// the form "Bearer <token>". It reports false for an absent header, a wrong
// scheme word, more or fewer than two space-separated parts, or an empty
// token part.
func (s *Service) ExtractFromHeader(headerValue string) (string, bool) {
	if headerValue == "" {
		return "", false
	}
	parts := strings.Split(headerValue, " ")
	if len(parts) != 2 || parts[0] != bearerScheme || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// DecodeUnverified decodes the payload without checking the signature. It is
// for non-authoritative inspection only and reports false on any malformed
// input.
func (s *Service) DecodeUnverified(tok string) (Payload, bool) {
	segs, err := splitToken(tok)
	if err != nil {
		return Payload{}, false
	}
	p, err := decodePayload(segs.payload)
	if err != nil {
		return Payload{}, false
	}
	return p, true
}

// NearExpiry reports whether the token should be refreshed: true when it
// fails verification for any reason, carries no expiry, or expires within
// the configured lookahead window.
func (s *Service) NearExpiry(tok string) bool {
	p, err := s.Verify(tok)
	if err != nil {
		return true
	}
	if p.ExpiresAt == 0 {
		return true
	}
	return p.ExpiresAt <= s.now().Add(s.nearWindow).Unix()
}
