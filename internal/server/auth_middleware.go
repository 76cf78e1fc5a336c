package server

import "crypto/subtle"

// TokenAuth checks the shared token renderers present when connecting.
// WebSocket clients pass it as the token query parameter, QUIC clients in
// their hello frame. An empty configured token admits everyone.
type TokenAuth struct {
	token string
}

func NewTokenAuth(token string) *TokenAuth {
	return &TokenAuth{token: token}
}

func (a *TokenAuth) Name() string {
	return "TokenAuth"
}

func (a *TokenAuth) Enabled() bool {
	return a != nil && a.token != ""
}

// Authorize returns ErrUnauthorized unless token matches.
func (a *TokenAuth) Authorize(token string) error {
	if !a.Enabled() {
		return nil
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(a.token)) != 1 {
		return ErrUnauthorized
	}
	return nil
}
