package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Signer issues and verifies HMAC signed download tokens for export files.
type Signer struct {
	secret []byte
	ttl    time.Duration
}

var (
	// ErrTokenInvalid indicates a malformed or tampered token.
	ErrTokenInvalid = errors.New("download token is invalid")
	// ErrTokenExpired indicates the token is past its expiry.
	ErrTokenExpired = errors.New("download token has expired")
)

// NewSigner builds a token signer with the given secret and lifetime.
func NewSigner(secret string, ttl time.Duration) *Signer {
	return &Signer{secret: []byte(secret), ttl: ttl}
}

// Sign produces a token bound to a job ID and storage path. The token embeds
// the expiry so verification needs no state.
func (s *Signer) Sign(jobID, relPath string) string {
	expires := time.Now().Add(s.ttl).Unix()
	encodedPath := base64.RawURLEncoding.EncodeToString([]byte(relPath))
	payload := fmt.Sprintf("%s.%d.%s", jobID, expires, encodedPath)
	return payload + "." + s.signature(payload)
}

// Verify checks the token and returns the job ID and storage path it grants.
func (s *Signer) Verify(token string) (jobID, relPath string, err error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return "", "", ErrTokenInvalid
	}

	payload := strings.Join(parts[:3], ".")
	if !hmac.Equal([]byte(s.signature(payload)), []byte(parts[3])) {
		return "", "", ErrTokenInvalid
	}

	expires, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", "", ErrTokenInvalid
	}
	if time.Now().Unix() > expires {
		return "", "", ErrTokenExpired
	}

	pathBytes, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return "", "", ErrTokenInvalid
	}

	return parts[0], string(pathBytes), nil
}

func (s *Signer) signature(payload string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
