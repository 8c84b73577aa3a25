package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignerRoundTrip(t *testing.T) {
	signer := NewSigner("test-secret", time.Minute)

	token := signer.Sign("job-123", "exports/2026/schedule.csv")

	jobID, relPath, err := signer.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "job-123", jobID)
	require.Equal(t, "exports/2026/schedule.csv", relPath)
}

func TestSignerRejectsTampering(t *testing.T) {
	signer := NewSigner("test-secret", time.Minute)

	token := signer.Sign("job-123", "exports/schedule.csv")
	tampered := "job-999" + token[len("job-123"):]

	_, _, err := signer.Verify(tampered)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestSignerRejectsWrongSecret(t *testing.T) {
	token := NewSigner("secret-a", time.Minute).Sign("job-1", "exports/x.pdf")

	_, _, err := NewSigner("secret-b", time.Minute).Verify(token)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestSignerRejectsExpired(t *testing.T) {
	signer := NewSigner("test-secret", -time.Minute)

	token := signer.Sign("job-1", "exports/x.csv")

	_, _, err := signer.Verify(token)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestSignerRejectsMalformed(t *testing.T) {
	signer := NewSigner("test-secret", time.Minute)

	_, _, err := signer.Verify("not-a-token")
	require.ErrorIs(t, err, ErrTokenInvalid)
}
