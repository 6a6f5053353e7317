package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"mercator-hq/pulse/pkg/config"
)

// Verifier checks HS256-signed bearer tokens. Tokens are issued by another
// service that shares the secret.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
	issuer string
	now    func() time.Time
}

// VerifierOptions configures a Verifier.
type VerifierOptions struct {
	Secret   string
	Issuer   string
	Audience string
	Leeway   time.Duration

	// Now overrides the clock. Used by tests.
	Now func() time.Time
}

// VerifierOptionsFromConfig maps the auth configuration section.
func VerifierOptionsFromConfig(cfg config.AuthConfig) VerifierOptions {
	return VerifierOptions{
		Secret:   cfg.TokenSecret,
		Issuer:   cfg.Issuer,
		Audience: cfg.Audience,
		Leeway:   cfg.Leeway,
	}
}

// NewVerifier creates a verifier. The secret is required.
func NewVerifier(opts VerifierOptions) (*Verifier, error) {
	if opts.Secret == "" {
		return nil, errors.New("token secret is required")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(opts.Leeway),
		jwt.WithTimeFunc(opts.Now),
	}
	if opts.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(opts.Issuer))
	}
	if opts.Audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(opts.Audience))
	}

	return &Verifier{
		secret: []byte(opts.Secret),
		parser: jwt.NewParser(parserOpts...),
		issuer: opts.Issuer,
		now:    opts.Now,
	}, nil
}

// Verify validates the token signature and claims and returns the caller.
func (v *Verifier) Verify(_ context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	var claims Claims
	_, err := v.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrExpiredToken, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	userID := claims.Subject
	if userID == "" {
		userID = claims.UserID
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: no subject", ErrInvalidToken)
	}

	id := &Identity{
		UserID: userID,
		Issuer: claims.Issuer,
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id, nil
}

// Issue signs a token for userID valid for ttl. The service never issues
// tokens to clients; this exists for local tooling and tests.
func (v *Verifier) Issue(userID string, ttl time.Duration, audience ...string) (string, error) {
	now := v.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if len(audience) > 0 {
		claims.Audience = jwt.ClaimStrings(audience)
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
