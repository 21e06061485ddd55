package signing

import (
	"bytes"
	"crypto/ed25519"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "mediguard/pkg/domain-errors"
)

var master = bytes.Repeat([]byte{0x42}, MinMasterKeyLength)

func TestDeriveKeyIsDeterministicPerIssuer(t *testing.T) {
	a1, err := DeriveKey(master, "demo_issuer")
	require.NoError(t, err)
	a2, err := DeriveKey(master, "demo_issuer")
	require.NoError(t, err)
	b, err := DeriveKey(master, "city_hospital")
	require.NoError(t, err)

	assert.Equal(t, a1, a2)
	assert.NotEqual(t, a1, b)
}

func TestDeriveKeyRejectsShortMaster(t *testing.T) {
	_, err := DeriveKey([]byte("short"), "demo_issuer")
	assert.Error(t, err)
	_, err = DeriveKey(master, "")
	assert.Error(t, err)
}

func TestPublicKeyEncoding(t *testing.T) {
	key, err := DeriveKey(master, "demo_issuer")
	require.NoError(t, err)
	pub := key.Public().(ed25519.PublicKey)

	encoded := EncodePublicKey(pub)
	assert.NotContains(t, encoded, "=")

	decoded, err := DecodePublicKey(encoded)
	require.NoError(t, err)
	assert.Equal(t, pub, decoded)

	_, err = DecodePublicKey("not base64!")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	_, err = DecodePublicKey(EncodePublicKey(pub[:16]))
	assert.Error(t, err)
}

func TestSignAndVerify(t *testing.T) {
	key, err := DeriveKey(master, "demo_issuer")
	require.NoError(t, err)
	issuedAt := time.Unix(1_700_000_000, 0)
	attrs := map[string]string{"age": "34", "vaccination_type": "COVID-19"}

	sig, err := Sign(key, "demo_issuer", "cred-1", "vaccination", attrs, issuedAt)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(sig, "."))

	claims, err := Verify(sig, key.Public().(ed25519.PublicKey))
	require.NoError(t, err)
	assert.Equal(t, "cred-1", claims.ID)
	assert.Equal(t, "demo_issuer", claims.Issuer)
	assert.Equal(t, "vaccination", claims.Type)
	assert.Equal(t, attrs, claims.Attributes)
	assert.True(t, claims.IssuedAt.Equal(issuedAt))
}

func TestVerifyRejectsOtherIssuersKeyAndTampering(t *testing.T) {
	key, err := DeriveKey(master, "demo_issuer")
	require.NoError(t, err)
	other, err := DeriveKey(master, "other")
	require.NoError(t, err)
	sig, err := Sign(key, "demo_issuer", "cred-1", "vaccination", map[string]string{"age": "34"}, time.Now())
	require.NoError(t, err)

	_, err = Verify(sig, other.Public().(ed25519.PublicKey))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	parts := strings.Split(sig, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]
	_, err = Verify(tampered, key.Public().(ed25519.PublicKey))
	assert.Error(t, err)

	_, err = Verify("", key.Public().(ed25519.PublicKey))
	assert.Error(t, err)
}
