package service

import (
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // test fixture for the deployment provider's scheme
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JSONbored/claudepro-directory-sub000/internal/webhook/domain"
)

func signSHA256(t *testing.T, key []byte, id, timestamp string, body []byte) string {
	t.Helper()

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(id + "." + timestamp + "."))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func signSHA1(secret string, body []byte) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func defaultVerifier() Verifier {
	return NewVerifier([]SourceConfig{
		{Source: domain.SourceEmailProvider, Scheme: SchemeHMACSHA256, Secret: "email-secret"},
		{Source: domain.SourcePaymentsProvider, Scheme: SchemeHMACSHA256, Secret: "payments-secret"},
		{Source: domain.SourceDeploymentProvider, Scheme: SchemeHMACSHA1, Secret: "deploy-secret"},
	})
}

func sha256Headers(t *testing.T, secret string, body []byte) http.Header {
	t.Helper()

	headers := http.Header{}
	headers.Set("webhook-id", "msg_123")
	headers.Set("webhook-timestamp", "1717243200")
	headers.Set("webhook-signature", "v1,"+signSHA256(t, []byte(secret), "msg_123", "1717243200", body))
	return headers
}

func TestVerify_SHA256_Valid(t *testing.T) {
	body := []byte(`{"type":"email.delivered"}`)
	result := defaultVerifier().Verify(sha256Headers(t, "email-secret", body), body)

	assert.True(t, result.Verified)
	assert.Equal(t, domain.SourceEmailProvider, result.Source)
	assert.NoError(t, result.Err)
}

func TestVerify_SHA256_BodyMutation(t *testing.T) {
	body := []byte(`{"type":"email.delivered"}`)
	headers := sha256Headers(t, "email-secret", body)

	// Any single-byte mutation of the body must fail verification.
	mutated := append([]byte(nil), body...)
	mutated[0] = '['

	result := defaultVerifier().Verify(headers, mutated)
	assert.False(t, result.Verified)
	assert.ErrorIs(t, result.Err, domain.ErrSignatureInvalid)
}

func TestVerify_SHA256_RotatedSignatures(t *testing.T) {
	body := []byte(`{"type":"email.delivered"}`)

	// Key rotation: multiple space-separated version,signature pairs;
	// any single matching signature verifies.
	valid := signSHA256(t, []byte("email-secret"), "msg_123", "1717243200", body)
	stale := signSHA256(t, []byte("retired-secret"), "msg_123", "1717243200", body)

	headers := http.Header{}
	headers.Set("webhook-id", "msg_123")
	headers.Set("webhook-timestamp", "1717243200")
	headers.Set("webhook-signature", "v1,"+stale+" v2,"+valid)

	result := defaultVerifier().Verify(headers, body)
	assert.True(t, result.Verified)
}

func TestVerify_SHA256_Base64Secret(t *testing.T) {
	rawKey := []byte("raw-signing-key")
	secret := "whsec_" + base64.StdEncoding.EncodeToString(rawKey)
	verifier := NewVerifier([]SourceConfig{
		{Source: domain.SourceEmailProvider, Scheme: SchemeHMACSHA256, Secret: secret},
	})

	body := []byte(`{"type":"email.delivered"}`)
	headers := http.Header{}
	headers.Set("webhook-id", "msg_123")
	headers.Set("webhook-timestamp", "1717243200")
	// Signed with the decoded key, not the prefixed string.
	headers.Set("webhook-signature", "v1,"+signSHA256(t, rawKey, "msg_123", "1717243200", body))

	result := verifier.Verify(headers, body)
	assert.True(t, result.Verified)
}

func TestVerify_SHA256_SourceAttribution(t *testing.T) {
	body := []byte(`{"type":"charge.succeeded"}`)

	// Sources share the scheme; attribution goes to the source whose
	// secret verifies.
	result := defaultVerifier().Verify(sha256Headers(t, "payments-secret", body), body)

	require.True(t, result.Verified)
	assert.Equal(t, domain.SourcePaymentsProvider, result.Source)
}

func TestVerify_SHA1_Valid(t *testing.T) {
	body := []byte(`{"type":"deployment.created"}`)
	headers := http.Header{}
	headers.Set("x-deploy-signature", signSHA1("deploy-secret", body))

	result := defaultVerifier().Verify(headers, body)
	assert.True(t, result.Verified)
	assert.Equal(t, domain.SourceDeploymentProvider, result.Source)
}

func TestVerify_SHA1_WrongSecret(t *testing.T) {
	body := []byte(`{"type":"deployment.created"}`)
	headers := http.Header{}
	headers.Set("x-deploy-signature", signSHA1("wrong-secret", body))

	result := defaultVerifier().Verify(headers, body)
	assert.False(t, result.Verified)
	assert.ErrorIs(t, result.Err, domain.ErrSignatureInvalid)
}

func TestVerify_DetectionOrder(t *testing.T) {
	// When both schemes' headers are present, the three-header scheme wins.
	body := []byte(`{"type":"email.delivered"}`)
	headers := sha256Headers(t, "email-secret", body)
	headers.Set("x-deploy-signature", signSHA1("deploy-secret", body))

	result := defaultVerifier().Verify(headers, body)
	assert.Equal(t, domain.SourceEmailProvider, result.Source)
	assert.True(t, result.Verified)
}

func TestVerify_UnrecognizedHeaders(t *testing.T) {
	result := defaultVerifier().Verify(http.Header{}, []byte(`{}`))

	assert.Equal(t, domain.SourceCustom, result.Source)
	assert.False(t, result.Verified)
	assert.NoError(t, result.Err)
}

func TestVerify_MissingSecretIsTypedFailure(t *testing.T) {
	verifier := NewVerifier(nil)
	body := []byte(`{}`)

	result := verifier.Verify(sha256Headers(t, "email-secret", body), body)
	assert.False(t, result.Verified)
	assert.ErrorIs(t, result.Err, domain.ErrSecretNotConfigured)
}

func TestVerify_MalformedSignatureHeader(t *testing.T) {
	body := []byte(`{}`)
	headers := http.Header{}
	headers.Set("webhook-id", "msg_123")
	headers.Set("webhook-timestamp", "1717243200")
	headers.Set("webhook-signature", "not-a-pair %%%")

	result := defaultVerifier().Verify(headers, body)
	assert.False(t, result.Verified)
	assert.ErrorIs(t, result.Err, domain.ErrSignatureInvalid)
}
