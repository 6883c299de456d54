// Package auth holds the credential checks for worker-facing endpoints. The protocol code only sees
// the Verifier interface, so the strategy can change per deployment.
package auth

import (
	"context"
	"crypto/subtle"
	"fmt"

	"github.com/amankumarsingh77/transcript-pipeline/internal/config"
	"github.com/amankumarsingh77/transcript-pipeline/internal/models"
	"github.com/amankumarsingh77/transcript-pipeline/pkg/utils"
	"golang.org/x/crypto/bcrypt"
)

const (
	ModeShared = "shared"
	ModeHashed = "hashed"
	ModeJWT    = "jwt"

	sharedWorkerName = "shared"
)

// Verifier checks a bearer token and tells who presented it.
type Verifier interface {
	Verify(ctx context.Context, token string) (*models.WorkerIdentity, error)
}

// NewVerifier picks the strategy named by cfg.AuthMode.
func NewVerifier(cfg config.WorkerConfig) (Verifier, error) {
	switch cfg.AuthMode {
	case ModeShared, "":
		if cfg.APIToken == "" {
			return nil, fmt.Errorf("shared auth needs an api token")
		}
		return NewSharedSecret(cfg.APIToken), nil
	case ModeHashed:
		if cfg.APITokenHash == "" {
			return nil, fmt.Errorf("hashed auth needs an api token hash")
		}
		return NewHashedSecret(cfg.APITokenHash), nil
	case ModeJWT:
		if cfg.JwtSecretKey == "" {
			return nil, fmt.Errorf("jwt auth needs a secret key")
		}
		return NewJWTVerifier(cfg.JwtSecretKey), nil
	default:
		return nil, fmt.Errorf("unknown worker auth mode %q", cfg.AuthMode)
	}
}

type sharedSecret struct {
	secret []byte
}

// NewSharedSecret compares the token verbatim with one secret shared by all workers.
func NewSharedSecret(secret string) Verifier {
	return &sharedSecret{secret: []byte(secret)}
}

func (s *sharedSecret) Verify(_ context.Context, token string) (*models.WorkerIdentity, error) {
	if token == "" || subtle.ConstantTimeCompare([]byte(token), s.secret) != 1 {
		return nil, fmt.Errorf("bad worker token: %w", models.ErrUnauthorized)
	}
	return &models.WorkerIdentity{Name: sharedWorkerName}, nil
}

type hashedSecret struct {
	hash []byte
}

// NewHashedSecret accepts the token whose bcrypt hash is configured, keeping the secret itself out
// of the config file.
func NewHashedSecret(hash string) Verifier {
	return &hashedSecret{hash: []byte(hash)}
}

func (h *hashedSecret) Verify(_ context.Context, token string) (*models.WorkerIdentity, error) {
	if token == "" {
		return nil, fmt.Errorf("missing worker token: %w", models.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword(h.hash, []byte(token)); err != nil {
		return nil, fmt.Errorf("bad worker token: %w", models.ErrUnauthorized)
	}
	return &models.WorkerIdentity{Name: sharedWorkerName}, nil
}

// HashToken returns the bcrypt hash to configure for hashed mode.
func HashToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash token: %w", err)
	}
	return string(hash), nil
}

type jwtVerifier struct {
	secretKey string
}

// NewJWTVerifier accepts per-worker tokens minted with utils.GenerateWorkerToken.
func NewJWTVerifier(secretKey string) Verifier {
	return &jwtVerifier{secretKey: secretKey}
}

func (j *jwtVerifier) Verify(_ context.Context, token string) (*models.WorkerIdentity, error) {
	claims, err := utils.ValidateWorkerToken(token, j.secretKey)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, models.ErrUnauthorized)
	}
	return &models.WorkerIdentity{Name: claims.Worker}, nil
}
