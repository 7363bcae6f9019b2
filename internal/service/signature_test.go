package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifySignature_RoundTrip(t *testing.T) {
	body := []byte(`{"id":"evt_1","type":"payment.succeeded"}`)
	sig := SignBody("secret", body)

	assert.True(t, VerifySignature("secret", body, sig))
}

func TestVerifySignature_AcceptsBarePrefix(t *testing.T) {
	body := []byte(`{"id":"evt_1"}`)
	withPrefix := SignBody("secret", body)
	bare := withPrefix[len("sha256="):]

	assert.True(t, VerifySignature("secret", body, withPrefix))
	assert.True(t, VerifySignature("secret", body, bare))
}

func TestVerifySignature_WrongSecret(t *testing.T) {
	body := []byte(`{"id":"evt_1"}`)
	sig := SignBody("secret", body)

	assert.False(t, VerifySignature("other-secret", body, sig))
}

func TestVerifySignature_TamperedBody(t *testing.T) {
	sig := SignBody("secret", []byte(`{"amount_cents":100}`))

	assert.False(t, VerifySignature("secret", []byte(`{"amount_cents":100000}`), sig))
}

func TestVerifySignature_EmptySignatureRejected(t *testing.T) {
	assert.False(t, VerifySignature("secret", []byte(`{}`), ""))
}

func TestVerifySignature_GarbageSignatureRejected(t *testing.T) {
	assert.False(t, VerifySignature("secret", []byte(`{}`), "sha256=nothex"))
}
