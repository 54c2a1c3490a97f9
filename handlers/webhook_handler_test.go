package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const testWebhookKey = "dGVzdC13ZWJob29rLXNpZ25pbmcta2V5" // "test-webhook-signing-key"

func signWebhook(t *testing.T, id, timestamp string, body []byte) string {
	t.Helper()
	key, err := base64.StdEncoding.DecodeString(testWebhookKey)
	assert.NoError(t, err)

	mac := hmac.New(sha256.New, key)
	fmt.Fprintf(mac, "%s.%s.%s", id, timestamp, body)
	return "v1," + base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestVerifyClerkSignature_ValidSignature(t *testing.T) {
	t.Setenv("CLERK_WEBHOOK_SECRET", "whsec_"+testWebhookKey)

	body := []byte(`{"type":"user.created","data":{"id":"user_123"}}`)
	req := httptest.NewRequest("POST", "/webhooks/clerk", strings.NewReader(string(body)))
	req.Header.Set("svix-id", "msg_abc")
	req.Header.Set("svix-timestamp", "1756700000")
	req.Header.Set("svix-signature", signWebhook(t, "msg_abc", "1756700000", body))

	assert.True(t, verifyClerkSignature(req, body))
}

func TestVerifyClerkSignature_TamperedBody(t *testing.T) {
	t.Setenv("CLERK_WEBHOOK_SECRET", "whsec_"+testWebhookKey)

	body := []byte(`{"type":"user.created"}`)
	req := httptest.NewRequest("POST", "/webhooks/clerk", strings.NewReader(string(body)))
	req.Header.Set("svix-id", "msg_abc")
	req.Header.Set("svix-timestamp", "1756700000")
	req.Header.Set("svix-signature", signWebhook(t, "msg_abc", "1756700000", body))

	tampered := []byte(`{"type":"user.deleted"}`)
	assert.False(t, verifyClerkSignature(req, tampered))
}

func TestVerifyClerkSignature_MissingHeaders(t *testing.T) {
	t.Setenv("CLERK_WEBHOOK_SECRET", "whsec_"+testWebhookKey)

	body := []byte(`{}`)
	req := httptest.NewRequest("POST", "/webhooks/clerk", strings.NewReader(string(body)))

	assert.False(t, verifyClerkSignature(req, body))
}

func TestVerifyClerkSignature_MultipleSignatures(t *testing.T) {
	// Svix sends space-separated signatures during key rotation; any
	// matching one is enough.
	t.Setenv("CLERK_WEBHOOK_SECRET", "whsec_"+testWebhookKey)

	body := []byte(`{"type":"user.updated"}`)
	good := signWebhook(t, "msg_rot", "1756700000", body)

	req := httptest.NewRequest("POST", "/webhooks/clerk", strings.NewReader(string(body)))
	req.Header.Set("svix-id", "msg_rot")
	req.Header.Set("svix-timestamp", "1756700000")
	req.Header.Set("svix-signature", "v1,bm90LXRoZS1yaWdodC1zaWc= "+good)

	assert.True(t, verifyClerkSignature(req, body))
}

func TestVerifyClerkSignature_SkippedWithoutSecret(t *testing.T) {
	t.Setenv("CLERK_WEBHOOK_SECRET", "")

	body := []byte(`{}`)
	req := httptest.NewRequest("POST", "/webhooks/clerk", strings.NewReader(string(body)))

	assert.True(t, verifyClerkSignature(req, body))
}
