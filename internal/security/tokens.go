package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token is malformed, has a bad
	// signature, or carries claims that fail issuer/audience validation.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when a token's signature is valid but its
	// expiry is in the past.
	ErrExpiredToken = errors.New("expired token")
	// ErrWrongTokenType is returned when a valid token carries a token_type
	// claim other than the one the verifier expects (e.g. a refresh token
	// presented on a connection handshake).
	ErrWrongTokenType = errors.New("wrong token type")
)

// TokenTypeAccess is the token_type claim value accepted on connections.
const TokenTypeAccess = "access"

// AccessClaims holds JWT claims for a gateway access token.
type AccessClaims struct {
	jwt.RegisteredClaims
	DisplayName string `json:"name"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	TokenType   string `json:"token_type"`
}

// TokenProvider verifies gateway access tokens using RS256 or ES256 and, when
// constructed with a private key, can also issue them (used by cmd/seed and
// tests; production tokens come from the external auth authority).
type TokenProvider struct {
	privateKey crypto.Signer
	publicKey  crypto.PublicKey
	issuer     string
	audience   string
	accessTTL  time.Duration
}

// NewTokenProvider returns a TokenProvider that verifies against publicKey.
// privateKey may be nil for verify-only deployments. issuer and audience are
// validated on every verification.
func NewTokenProvider(privateKey crypto.Signer, publicKey crypto.PublicKey, issuer, audience string, accessTTL time.Duration) *TokenProvider {
	return &TokenProvider{
		privateKey: privateKey,
		publicKey:  publicKey,
		issuer:     issuer,
		audience:   audience,
		accessTTL:  accessTTL,
	}
}

// IssueAccess issues a short-lived access JWT for the given subject.
// Returns the token string, its jti, and expiration time.
func (p *TokenProvider) IssueAccess(subjectID, displayName, email, role string) (token string, jti string, expiresAt time.Time, err error) {
	return p.issue(subjectID, displayName, email, role, TokenTypeAccess)
}

// IssueWithType issues a token with an arbitrary token_type claim. Used by
// tests exercising the wrong-token-type rejection path.
func (p *TokenProvider) IssueWithType(subjectID, displayName, email, role, tokenType string) (token string, jti string, expiresAt time.Time, err error) {
	return p.issue(subjectID, displayName, email, role, tokenType)
}

func (p *TokenProvider) issue(subjectID, displayName, email, role, tokenType string) (string, string, time.Time, error) {
	if p.privateKey == nil {
		return "", "", time.Time{}, ErrInvalidToken
	}
	jti, err := generateJTI()
	if err != nil {
		return "", "", time.Time{}, err
	}
	now := time.Now().UTC()
	expiresAt := now.Add(p.accessTTL)
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   subjectID,
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		DisplayName: displayName,
		Email:       email,
		Role:        role,
		TokenType:   tokenType,
	}
	var method jwt.SigningMethod
	switch p.privateKey.Public().(type) {
	case *rsa.PublicKey:
		method = jwt.SigningMethodRS256
	case *ecdsa.PublicKey:
		method = jwt.SigningMethodES256
	default:
		return "", "", time.Time{}, ErrInvalidToken
	}
	signed, err := jwt.NewWithClaims(method, claims).SignedString(p.privateKey)
	return signed, jti, expiresAt, err
}

// VerifyAccess parses and validates an access token (signature, exp, iss, aud,
// token_type). Returns the decoded claims, or ErrInvalidToken, ErrExpiredToken,
// or ErrWrongTokenType. No side effects.
func (p *TokenProvider) VerifyAccess(tokenString string) (*AccessClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); ok {
			return p.publicKey, nil
		}
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); ok {
			return p.publicKey, nil
		}
		return nil, ErrInvalidToken
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Issuer != p.issuer {
		return nil, ErrInvalidToken
	}
	audOk := false
	for _, a := range claims.Audience {
		if a == p.audience {
			audOk = true
			break
		}
	}
	if !audOk {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != TokenTypeAccess {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
