// File: auth/token.go
// Package auth implements the optional connection-token scheme. When the
// server is configured with an auth key, WebSocket upgrades must carry a
// signed token in the `token` query parameter; tokens are HS256 JWTs signed
// with the auth key salted by the broadcast salt.
// License: Apache-2.0

package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/sockeon/sockeon-go/api"
	"github.com/sockeon/sockeon-go/middleware"
	"github.com/sockeon/sockeon-go/protocol"
)

// DefaultExpiration applies when no token expiration is configured.
const DefaultExpiration = time.Hour

// DataKeySubject is the client user-data key holding the authenticated
// subject after a successful handshake.
const DataKeySubject = "auth_subject"

// TokenIssuer signs and validates connection tokens.
type TokenIssuer struct {
	secret     []byte
	expiration time.Duration

	clock func() time.Time
}

// NewTokenIssuer derives the signing secret from the auth key and salt.
func NewTokenIssuer(authKey, salt string, expiration time.Duration) *TokenIssuer {
	if expiration <= 0 {
		expiration = DefaultExpiration
	}
	return &TokenIssuer{
		secret:     []byte(authKey + salt),
		expiration: expiration,
		clock:      time.Now,
	}
}

// Issue signs a token for subject, expiring after the configured duration.
func (i *TokenIssuer) Issue(subject string) (string, error) {
	now := i.clock()
	claims := jwt.MapClaims{
		"sub": subject,
		"jti": uuid.NewString(),
		"iat": now.Unix(),
		"exp": now.Add(i.expiration).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", api.WrapError(api.ClassFatal, err, "token signing failed")
	}
	return signed, nil
}

// Validate checks signature and expiry and returns the token's subject.
func (i *TokenIssuer) Validate(tokenString string) (string, error) {
	tok, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.clock))
	if err != nil || !tok.Valid {
		return "", api.ErrHandshakeDenied
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return "", api.ErrHandshakeDenied
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", api.ErrHandshakeDenied
	}
	return sub, nil
}

// HandshakeMiddleware builds the handshake middleware the server installs
// when an auth key is configured. It denies upgrades without a valid token
// and stores the subject in the client's user data.
func HandshakeMiddleware(issuer *TokenIssuer) middleware.HandshakeMiddleware {
	return func(id api.ClientID, hs *protocol.HandshakeRequest, next middleware.HandshakeNext, h api.ServerHandle) error {
		token := hs.Query.Get("token")
		if token == "" {
			return api.ErrHandshakeDenied
		}
		subject, err := issuer.Validate(token)
		if err != nil {
			return api.ErrHandshakeDenied
		}
		h.SetClientData(id, DataKeySubject, subject)
		return next()
	}
}
