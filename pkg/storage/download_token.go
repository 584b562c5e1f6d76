package storage

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DownloadClaims binds a signed download token to one export file.
type DownloadClaims struct {
	FilePath string `json:"file_path"`
	jwt.RegisteredClaims
}

// DownloadSigner mints and validates short-lived download tokens for export
// files, so completed exports can be fetched without an authenticated session.
type DownloadSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewDownloadSigner constructs a signer with the provided secret and TTL.
func NewDownloadSigner(secret string, ttl time.Duration) *DownloadSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &DownloadSigner{secret: []byte(secret), ttl: ttl}
}

// Generate returns a signed token referencing the export job and file path.
func (s *DownloadSigner) Generate(exportID, relPath string) (string, time.Time, error) {
	if exportID == "" || relPath == "" {
		return "", time.Time{}, fmt.Errorf("exportID and relPath required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}

	now := time.Now().UTC()
	expiresAt := now.Add(s.ttl)
	claims := DownloadClaims{
		FilePath: relPath,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   exportID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign download token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse validates a token and returns the export id and file path it covers.
func (s *DownloadSigner) Parse(token string) (exportID, relPath string, err error) {
	parsed, err := jwt.ParseWithClaims(token, &DownloadClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return "", "", fmt.Errorf("parse download token: %w", err)
	}

	claims, ok := parsed.Claims.(*DownloadClaims)
	if !ok || !parsed.Valid {
		return "", "", fmt.Errorf("invalid download token claims")
	}
	return claims.Subject, claims.FilePath, nil
}
