package webhook_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evocloud/jobqueue/pkg/webhook"
)

func TestSignAndVerify(t *testing.T) {
	t.Parallel()

	secret := "whsec_test"
	payload := []byte(`{"alert_type":"failure_rate","value":42.5}`)

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()

		headers, err := webhook.SignPayload(secret, payload)
		require.NoError(t, err)
		assert.NotEmpty(t, headers.Signature)
		assert.NotEmpty(t, headers.ID)
		assert.NotZero(t, headers.Timestamp)

		assert.NoError(t, webhook.VerifySignature(secret, payload, headers, time.Minute))
	})

	t.Run("tampered payload rejected", func(t *testing.T) {
		t.Parallel()

		headers, err := webhook.SignPayload(secret, payload)
		require.NoError(t, err)

		err = webhook.VerifySignature(secret, []byte(`{"alert_type":"queue_depth"}`), headers, time.Minute)
		assert.ErrorIs(t, err, webhook.ErrInvalidConfiguration)
	})

	t.Run("wrong secret rejected", func(t *testing.T) {
		t.Parallel()

		headers, err := webhook.SignPayload(secret, payload)
		require.NoError(t, err)

		err = webhook.VerifySignature("whsec_other", payload, headers, time.Minute)
		assert.ErrorIs(t, err, webhook.ErrInvalidConfiguration)
	})

	t.Run("expired timestamp rejected", func(t *testing.T) {
		t.Parallel()

		headers, err := webhook.SignPayload(secret, payload)
		require.NoError(t, err)
		headers.Timestamp = time.Now().Add(-time.Hour).Unix()

		err = webhook.VerifySignature(secret, payload, headers, 5*time.Minute)
		assert.ErrorIs(t, err, webhook.ErrInvalidConfiguration)
	})

	t.Run("empty secret rejected", func(t *testing.T) {
		t.Parallel()

		_, err := webhook.SignPayload("", payload)
		assert.ErrorIs(t, err, webhook.ErrInvalidConfiguration)
	})

	t.Run("empty payload rejected", func(t *testing.T) {
		t.Parallel()

		_, err := webhook.SignPayload(secret, nil)
		assert.ErrorIs(t, err, webhook.ErrInvalidPayload)
	})
}

func TestExtractSignatureHeaders(t *testing.T) {
	t.Parallel()

	t.Run("extracts all headers", func(t *testing.T) {
		t.Parallel()

		h := http.Header{}
		h.Set(webhook.HeaderSignature, "abc123")
		h.Set(webhook.HeaderTimestamp, "1756166400")
		h.Set(webhook.HeaderID, "evt_1")

		sig, err := webhook.ExtractSignatureHeaders(h)
		require.NoError(t, err)
		assert.Equal(t, "abc123", sig.Signature)
		assert.Equal(t, int64(1756166400), sig.Timestamp)
		assert.Equal(t, "evt_1", sig.ID)
	})

	t.Run("missing signature fails", func(t *testing.T) {
		t.Parallel()

		h := http.Header{}
		h.Set(webhook.HeaderTimestamp, "1756166400")

		_, err := webhook.ExtractSignatureHeaders(h)
		assert.ErrorIs(t, err, webhook.ErrInvalidConfiguration)
	})

	t.Run("malformed timestamp fails", func(t *testing.T) {
		t.Parallel()

		h := http.Header{}
		h.Set(webhook.HeaderSignature, "abc123")
		h.Set(webhook.HeaderTimestamp, "yesterday")

		_, err := webhook.ExtractSignatureHeaders(h)
		assert.ErrorIs(t, err, webhook.ErrInvalidConfiguration)
	})
}
