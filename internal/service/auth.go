// Package service provides the business logic layer (use cases) on top of
// the ledger core. AuthService is the authentication gateway: it verifies
// PIN candidates against stored bcrypt hashes and issues session tokens.
// The stored credential never leaves this package.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/bkramer/bank-ledger-go/internal/domain"
	"github.com/bkramer/bank-ledger-go/internal/infra/observability"
	"github.com/bkramer/bank-ledger-go/internal/ledger"
	"github.com/bkramer/bank-ledger-go/internal/port"
)

var authTracer = otel.Tracer("service/auth")

const (
	maxFailedAttempts = 5
	bcryptCost        = 12

	tokenIssuer = "bank-ledger"
)

// AuthService verifies PINs and manages session tokens. Failed attempts
// are counted in a TTL cache: after maxFailedAttempts the customer is
// locked out until the cache entry expires.
type AuthService struct {
	dir       *ledger.Directory
	attempts  port.Cache[int]
	jwtSecret []byte
	accessTTL time.Duration
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewAuthService creates the authentication gateway. The attempts cache
// TTL doubles as the lockout duration.
func NewAuthService(dir *ledger.Directory, attempts port.Cache[int], jwtSecret string, accessTTL time.Duration, metrics *observability.Metrics, logger *zap.Logger) *AuthService {
	return &AuthService{
		dir:       dir,
		attempts:  attempts,
		jwtSecret: []byte(jwtSecret),
		accessTTL: accessTTL,
		metrics:   metrics,
		logger:    logger,
	}
}

// HashPIN hashes a PIN for storage. Shape validation (exactly 4 digits)
// belongs to the input shell, not here.
func (s *AuthService) HashPIN(pin string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash pin: %w", err)
	}
	return string(hash), nil
}

// VerifyPIN checks a candidate PIN for the customer, reporting only
// match/no-match. Repeated failures lock the customer out for the
// attempts-cache TTL.
func (s *AuthService) VerifyPIN(ctx context.Context, customerID, pin string) error {
	_, span := authTracer.Start(ctx, "AuthService.VerifyPIN")
	defer span.End()

	if n, ok := s.attempts.Get(customerID); ok && n >= maxFailedAttempts {
		s.logger.Warn("pin verify: customer locked out",
			zap.String("customer_id", customerID),
			zap.Int("attempts", n),
		)
		return &domain.ErrAuthenticationFailed{Message: "too many failed attempts, try again later"}
	}

	hash, err := s.dir.PINHash(customerID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)); err != nil {
		n, _ := s.attempts.Get(customerID)
		s.attempts.Set(customerID, n+1)
		s.metrics.IncrAuthFailure()
		s.logger.Warn("pin verify: wrong pin",
			zap.String("customer_id", customerID),
			zap.Int("attempts", n+1),
			zap.Int("max", maxFailedAttempts),
		)
		return &domain.ErrAuthenticationFailed{}
	}

	s.attempts.Delete(customerID)
	return nil
}

// Login verifies the PIN and issues a signed access token.
func (s *AuthService) Login(ctx context.Context, customerID, pin string) (token string, expiresAt time.Time, err error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Login")
	defer span.End()

	if err := s.VerifyPIN(ctx, customerID, pin); err != nil {
		return "", time.Time{}, err
	}

	expiresAt = time.Now().Add(s.accessTTL)
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   customerID,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}

	s.logger.Info("customer logged in", zap.String("customer_id", customerID))
	return token, expiresAt, nil
}

// ValidateAccessToken parses and verifies a bearer token, returning the
// authenticated customer id.
func (s *AuthService) ValidateAccessToken(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithExpirationRequired())
	if err != nil {
		return "", &domain.ErrAuthenticationFailed{Message: "invalid or expired token"}
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", &domain.ErrAuthenticationFailed{Message: "invalid token claims"}
	}
	return claims.Subject, nil
}
