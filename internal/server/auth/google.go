package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/boostauth/internal/common"
	"github.com/dmitrijs2005/boostauth/internal/server/models"
)

// GoogleCertsURL serves the keys Google signs ID tokens with.
const GoogleCertsURL = "https://www.googleapis.com/oauth2/v3/certs"

var googleIssuers = []string{"accounts.google.com", "https://accounts.google.com"}

// KeyProvider looks up the verification key named by a token's kid header.
// keyfunc.Keyfunc implements it.
type KeyProvider interface {
	KeyfuncCtx(ctx context.Context) jwt.Keyfunc
}

// NewRemoteKeys fetches the JWK Set at url and keeps it fresh in the
// background until ctx is done. A token signed with an unknown kid triggers
// a rate-limited refetch.
func NewRemoteKeys(ctx context.Context, url string) (keyfunc.Keyfunc, error) {
	k, err := keyfunc.NewDefaultCtx(ctx, []string{url})
	if err != nil {
		return nil, fmt.Errorf("jwks %s: %w", url, err)
	}
	return k, nil
}

// GoogleVerifier verifies Google ID tokens: RS256 signature against Google's
// published keys, issuer, audience (the configured client id), expiry and a
// verified email.
type GoogleVerifier struct {
	clientID string
	keys     KeyProvider
	leeway   time.Duration
	now      func() time.Time
}

// NewGoogleVerifier builds a verifier for clientID. An empty clientID is
// allowed here; Verify then fails with common.ErrVerifierMisconfigured.
func NewGoogleVerifier(clientID string, keys KeyProvider) *GoogleVerifier {
	return &GoogleVerifier{
		clientID: clientID,
		keys:     keys,
		leeway:   30 * time.Second,
		now:      time.Now,
	}
}

type googleClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	EmailVerified any    `json:"email_verified"`
	Name          string `json:"name"`
}

// Verify checks raw and returns the asserted identity.
func (v *GoogleVerifier) Verify(ctx context.Context, raw string) (*models.Identity, error) {
	if v.clientID == "" || v.keys == nil {
		return nil, common.ErrVerifierMisconfigured
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(v.clientID),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(v.leeway),
		jwt.WithTimeFunc(v.now),
	)

	claims := &googleClaims{}
	_, err := parser.ParseWithClaims(raw, claims, v.keys.KeyfuncCtx(ctx))
	if err != nil {
		return nil, fmt.Errorf("parse id token: %w", err)
	}

	if !slices.Contains(googleIssuers, claims.Issuer) {
		return nil, fmt.Errorf("unexpected issuer %q", claims.Issuer)
	}
	if claims.Subject == "" || claims.Email == "" {
		return nil, errors.New("id token lacks subject or email")
	}
	if !isTrue(claims.EmailVerified) {
		return nil, errors.New("email is not verified")
	}

	return &models.Identity{
		Subject:       claims.Subject,
		Email:         claims.Email,
		Name:          claims.Name,
		EmailVerified: true,
	}, nil
}

// isTrue accepts both the boolean and the legacy string form of
// email_verified.
func isTrue(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, err := strconv.ParseBool(b)
		return err == nil && parsed
	default:
		return false
	}
}
