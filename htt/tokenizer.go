package htt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ZenLiuCN/bitfields/conf"
	"github.com/golang-jwt/jwt/v5"
)

var ErrUnauthorized = errors.New("unauthorized")

// Tokenizer issues and verifies HMAC signed bearer tokens.
type Tokenizer struct {
	method jwt.SigningMethod
	secret []byte
	issuer string
	ttl    time.Duration
}

// ConfigJwt reads
//
//	jwt{ sign: HS256, secret: "change me", issuer: bitfields, ttl: 1h }
func ConfigJwt(c conf.Config) (*Tokenizer, error) {
	method := jwt.GetSigningMethod(c.GetString("jwt.sign", "HS256"))
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unsupported jwt signing method %q", c.GetString("jwt.sign"))
	}
	secret := c.GetString("jwt.secret", "")
	if secret == "" {
		return nil, errors.New("missing jwt.secret")
	}
	return &Tokenizer{
		method: method,
		secret: []byte(secret),
		issuer: c.GetString("jwt.issuer", "bitfields"),
		ttl:    c.GetTimeDuration("jwt.ttl", time.Hour),
	}, nil
}

// Generate a signed token of subject.
func (t *Tokenizer) Generate(subject string) (string, error) {
	now := time.Now()
	return jwt.NewWithClaims(t.method, jwt.RegisteredClaims{
		Issuer:    t.issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
	}).SignedString(t.secret)
}

func (t *Tokenizer) Parse(token string) (*jwt.RegisteredClaims, error) {
	claims := new(jwt.RegisteredClaims)
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{t.method.Alg()}), jwt.WithIssuer(t.issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	return claims, nil
}

type claimsKey struct{}

// ClaimsOf the verified claims of a request passed by [Tokenizer.Middleware].
func ClaimsOf(ctx context.Context) (*jwt.RegisteredClaims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*jwt.RegisteredClaims)
	return c, ok
}

// Middleware rejects requests without a valid "Authorization: Bearer" token with 401.
func (t *Tokenizer) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			writeJsonError(w, http.StatusUnauthorized, ErrUnauthorized.Error())
			return
		}
		claims, err := t.Parse(token)
		if err != nil {
			conf.Internal().WarnContext(r.Context(), "reject token ", err)
			writeJsonError(w, http.StatusUnauthorized, ErrUnauthorized.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	})
}
