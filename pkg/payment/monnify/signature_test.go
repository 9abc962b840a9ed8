package monnify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWebhookSecret = "whsec_test"

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"eventType":"TRANSACTION_SUCCESSFUL","data":{"paymentReference":"MON_1_ab","status":"SUCCESS"}}`)
	sig512, err := Sign(testWebhookSecret, "sha512", body)
	require.NoError(t, err)
	sig256, err := Sign(testWebhookSecret, "sha256", body)
	require.NoError(t, err)

	tests := []struct {
		name      string
		algorithm string
		header    string
		body      []byte
		wantErr   error
	}{
		{name: "sha512 raw digest", algorithm: "sha512", header: sig512, body: body},
		{name: "sha512 prefixed header", algorithm: "sha512", header: "sha512=" + sig512, body: body},
		{name: "sha256 prefixed upper case", algorithm: "sha256", header: "SHA256=" + sig256, body: body},
		{name: "default algorithm is sha512", algorithm: "", header: sig512, body: body},
		{name: "tampered body", algorithm: "sha512", header: sig512, body: []byte(`{"eventType":"TRANSACTION_SUCCESSFUL","data":{"paymentReference":"MON_1_ab","status":"FAILED"}}`), wantErr: ErrSignatureMismatch},
		{name: "non hex header", algorithm: "sha512", header: "not-hex", body: body, wantErr: ErrSignatureMismatch},
		{name: "empty header", algorithm: "sha512", header: "", body: body, wantErr: ErrSignatureMismatch},
		{name: "wrong algorithm digest", algorithm: "sha512", header: sig256, body: body, wantErr: ErrSignatureMismatch},
		{name: "unsupported algorithm", algorithm: "md5", header: sig512, body: body, wantErr: ErrUnsupportedAlgorithm},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifySignature(testWebhookSecret, tt.algorithm, tt.header, tt.body)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestVerifySignature_NoSecret(t *testing.T) {
	err := VerifySignature("", "sha512", "anything", []byte(`{}`))
	assert.ErrorIs(t, err, ErrNoSecret)
}

func TestVerifySignature_ReformattedJSONFallback(t *testing.T) {
	compact := []byte(`{"data":{"paymentReference":"MON_1_ab","status":"SUCCESS"},"eventType":"TRANSACTION_SUCCESSFUL"}`)
	sig, err := Sign(testWebhookSecret, "sha512", compact)
	require.NoError(t, err)

	// same document, different whitespace and key order
	pretty := []byte("{\n  \"eventType\": \"TRANSACTION_SUCCESSFUL\",\n  \"data\": {\"status\": \"SUCCESS\", \"paymentReference\": \"MON_1_ab\"}\n}")
	assert.NoError(t, VerifySignature(testWebhookSecret, "sha512", sig, pretty))
}
