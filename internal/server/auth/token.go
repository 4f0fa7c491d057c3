package auth

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/boostauth/internal/common"
)

// TokenCodec issues and validates stateless HS256 session tokens. The
// header, payload and signature are base64url segments joined by dots; the
// header (including "alg") is covered by the signature.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	issuer string
	method jwt.SigningMethod
}

// NewTokenCodec validates the configuration and returns a codec.
func NewTokenCodec(secret []byte, ttl time.Duration, issuer string) (*TokenCodec, error) {
	if len(secret) == 0 {
		return nil, errors.New("token secret is required")
	}
	if ttl <= 0 {
		return nil, errors.New("token ttl must be positive")
	}
	return &TokenCodec{
		secret: secret,
		ttl:    ttl,
		issuer: issuer,
		method: jwt.SigningMethodHS256,
	}, nil
}

// TTL returns the lifetime given to issued tokens.
func (c *TokenCodec) TTL() time.Duration {
	return c.ttl
}

// Issue signs a token for subjectID that expires at now+TTL.
func (c *TokenCodec) Issue(subjectID string, now time.Time) (string, error) {
	if subjectID == "" {
		return "", errors.New("subject is required")
	}

	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  subjectID,
			Issuer:   c.issuer,
			IssuedAt: jwt.NewNumericDate(now),
		},
		Expiry: exactTime{now.Add(c.ttl)},
	}

	return jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
}

// Validate returns the subject of a well-formed, correctly signed HS256
// token that has not expired at now. Every failure yields
// common.ErrInvalidToken.
func (c *TokenCodec) Validate(tokenString string, now time.Time) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}

	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if t.Method != c.method {
			return nil, common.ErrInvalidToken
		}
		return c.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return "", common.ErrInvalidToken
	}

	if claims.Subject == "" || claims.Expiry.IsZero() || !now.Before(claims.Expiry.Time) {
		return "", common.ErrInvalidToken
	}

	return claims.Subject, nil
}

// sessionClaims carries exp with nanosecond precision; jwt.NumericDate
// truncates to jwt.TimePrecision, which would end a session early.
type sessionClaims struct {
	jwt.RegisteredClaims
	Expiry exactTime `json:"exp"`
}

func (c sessionClaims) GetExpirationTime() (*jwt.NumericDate, error) {
	if c.Expiry.IsZero() {
		return nil, nil
	}
	return &jwt.NumericDate{Time: c.Expiry.Time}, nil
}

// exactTime is a NumericDate encoded as seconds with up to nine fractional
// digits.
type exactTime struct {
	time.Time
}

func (t exactTime) MarshalJSON() ([]byte, error) {
	sec, nsec := t.Unix(), t.Nanosecond()
	if nsec == 0 {
		return strconv.AppendInt(nil, sec, 10), nil
	}
	frac := strings.TrimRight(strconv.Itoa(1e9 + nsec)[1:], "0")
	return []byte(strconv.FormatInt(sec, 10) + "." + frac), nil
}

func (t *exactTime) UnmarshalJSON(b []byte) error {
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}

	whole, frac, _ := strings.Cut(n.String(), ".")
	sec, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || sec < 0 {
		return errors.New("invalid exp")
	}

	var nsec int64
	if frac != "" {
		if len(frac) > 9 {
			frac = frac[:9]
		}
		frac += strings.Repeat("0", 9-len(frac))
		if nsec, err = strconv.ParseInt(frac, 10, 64); err != nil || nsec < 0 {
			return errors.New("invalid exp")
		}
	}

	t.Time = time.Unix(sec, nsec).UTC()
	return nil
}
