package utils

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const (
	TokenExpireDuration = time.Hour * 24 * 30
	workerTokenIssuer   = "transcript-pipeline"
)

// WorkerClaims identify one transcription worker.
type WorkerClaims struct {
	Worker string `json:"worker"`
	jwt.RegisteredClaims
}

func GenerateWorkerToken(worker string, secretKey string, ttl time.Duration) (string, error) {
	if worker == "" {
		return "", fmt.Errorf("worker name is required")
	}
	if ttl <= 0 {
		ttl = TokenExpireDuration
	}
	now := time.Now()
	claims := &WorkerClaims{
		Worker: worker,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    workerTokenIssuer,
			Subject:   worker,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(secretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signedToken, nil
}

func ValidateWorkerToken(tokenString string, secretKey string) (*WorkerClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &WorkerClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secretKey), nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*WorkerClaims)
	if !ok || !token.Valid || claims.Worker == "" {
		return nil, fmt.Errorf("invalid token claims")
	}

	return claims, nil
}
