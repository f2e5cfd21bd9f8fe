// Package tokeninfo extracts display metadata from a bearer token without
// verifying it. The backend is the sole authority on token validity; these
// claims feed logs and the whoami surface only, never authorization
// decisions.
package tokeninfo

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Info is the subset of claims worth showing to a user or a log line.
type Info struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the token carries an expiry in the past. A token
// without an exp claim never reports expired.
func (i Info) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && i.ExpiresAt.Before(now)
}

// Parse extracts claims from tok without validating the signature.
func Parse(tok string) (Info, error) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tok, &claims); err != nil {
		return Info{}, fmt.Errorf("tokeninfo: parse token: %w", err)
	}

	info := Info{Subject: claims.Subject}
	if claims.IssuedAt != nil {
		info.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	return info, nil
}
