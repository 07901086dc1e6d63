package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignedURLRoundTrip(t *testing.T) {
	signer := NewSignedURLSigner("test-secret", time.Hour)

	token, expiresAt, err := signer.Generate("req-1", "2025-07/req-1.pdf")
	require.NoError(t, err)
	require.True(t, expiresAt.After(time.Now()))

	requestID, relPath, parsedExpiry, err := signer.Parse(token, false)
	require.NoError(t, err)
	require.Equal(t, "req-1", requestID)
	require.Equal(t, "2025-07/req-1.pdf", relPath)
	require.Equal(t, expiresAt.Unix(), parsedExpiry.Unix())
}

func TestSignedURLRejectsTamperedSignature(t *testing.T) {
	signer := NewSignedURLSigner("test-secret", time.Hour)

	token, _, err := signer.Generate("req-1", "2025-07/req-1.pdf")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	parts[3] = strings.Repeat("0", len(parts[3]))
	_, _, _, err = signer.Parse(strings.Join(parts, "."), false)
	require.ErrorContains(t, err, "signature")
}

// Swapping the request id invalidates the signature, so a link cannot be
// replayed against another request's certificate.
func TestSignedURLBindsRequestID(t *testing.T) {
	signer := NewSignedURLSigner("test-secret", time.Hour)

	token, _, err := signer.Generate("req-1", "2025-07/req-1.pdf")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	parts[0] = "req-2"
	_, _, _, err = signer.Parse(strings.Join(parts, "."), false)
	require.ErrorContains(t, err, "signature")
}

func TestSignedURLExpiry(t *testing.T) {
	signer := NewSignedURLSigner("test-secret", time.Hour)
	signer.ttl = -time.Minute

	token, _, err := signer.Generate("req-1", "2025-07/req-1.pdf")
	require.NoError(t, err)

	_, _, _, err = signer.Parse(token, false)
	require.ErrorContains(t, err, "expired")

	requestID, _, _, err := signer.Parse(token, true)
	require.NoError(t, err)
	require.Equal(t, "req-1", requestID)
}

func TestSignedURLRejectsDifferentSecret(t *testing.T) {
	signer := NewSignedURLSigner("test-secret", time.Hour)
	other := NewSignedURLSigner("another-secret", time.Hour)

	token, _, err := signer.Generate("req-1", "2025-07/req-1.pdf")
	require.NoError(t, err)

	_, _, _, err = other.Parse(token, false)
	require.ErrorContains(t, err, "signature")
}

func TestSignedURLRejectsMalformedToken(t *testing.T) {
	signer := NewSignedURLSigner("test-secret", time.Hour)
	_, _, _, err := signer.Parse("not-a-token", false)
	require.ErrorContains(t, err, "format")
}
