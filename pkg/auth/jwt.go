package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWTConfig selects one key source, checked in the order PrivateKeyPEM, PublicKeyPEM, Secret.
type JWTConfig struct {
	// PrivateKeyPEM enables RS256 signing and validation.
	PrivateKeyPEM string
	// PublicKeyPEM enables RS256 validation only.
	PublicKeyPEM string
	// Secret enables HS256 signing and validation.
	Secret string

	Issuer string
	// Expiration of issued tokens, one hour when unset.
	Expiration time.Duration
}

// ErrSigningDisabled is returned by GenerateToken when only a public key is configured.
var ErrSigningDisabled = errors.New("auth: token signing is not configured")

// JWTService issues and validates bearer tokens.
type JWTService struct {
	method    jwt.SigningMethod
	signKey   any
	verifyKey any
	issuer    string
	ttl       time.Duration
}

// NewJWTService creates a JWTService from the first configured key source.
func NewJWTService(cfg JWTConfig) (*JWTService, error) {
	s := &JWTService{issuer: cfg.Issuer, ttl: cfg.Expiration}
	if s.ttl <= 0 {
		s.ttl = time.Hour
	}

	switch {
	case cfg.PrivateKeyPEM != "":
		key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(cfg.PrivateKeyPEM))
		if err != nil {
			return nil, fmt.Errorf("auth: parse RSA private key: %w", err)
		}
		s.method, s.signKey, s.verifyKey = jwt.SigningMethodRS256, key, &key.PublicKey
	case cfg.PublicKeyPEM != "":
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(cfg.PublicKeyPEM))
		if err != nil {
			return nil, fmt.Errorf("auth: parse RSA public key: %w", err)
		}
		s.method, s.verifyKey = jwt.SigningMethodRS256, key
	case cfg.Secret != "":
		secret := []byte(cfg.Secret)
		s.method, s.signKey, s.verifyKey = jwt.SigningMethodHS256, secret, secret
	default:
		return nil, errors.New("auth: one of PrivateKeyPEM, PublicKeyPEM or Secret is required")
	}
	return s, nil
}

// GenerateToken issues a token for userID acting in tenantID with the given roles.
func (s *JWTService) GenerateToken(userID, tenantID uuid.UUID, roles []string) (string, error) {
	if s.signKey == nil {
		return "", ErrSigningDisabled
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		UserID:   userID,
		TenantID: tenantID,
		Roles:    roles,
	}
	signed, err := jwt.NewWithClaims(s.method, claims).SignedString(s.signKey)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken checks the signature algorithm, signature, expiry and, when configured, issuer.
func (s *JWTService) ValidateToken(raw string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{s.method.Alg()}),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	var claims Claims
	if _, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) { return s.verifyKey, nil }, opts...); err != nil {
		return nil, fmt.Errorf("auth: %w", err)
	}
	return &claims, nil
}

// GenerateKeyPair returns a PEM-encoded 2048-bit RSA key pair for local setups.
func GenerateKeyPair() (privateKeyPEM, publicKeyPEM []byte, err error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, nil, fmt.Errorf("auth: generate RSA key: %w", err)
	}
	pub, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return nil, nil, fmt.Errorf("auth: marshal public key: %w", err)
	}
	privateKeyPEM = pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	publicKeyPEM = pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pub})
	return privateKeyPEM, publicKeyPEM, nil
}
