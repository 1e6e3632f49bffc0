package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCardNumber(t *testing.T) {
	for i := 0; i < 50; i++ {
		number, err := GenerateCardNumber("400000", 16)
		require.NoError(t, err)
		assert.Len(t, number, 16)
		assert.True(t, strings.HasPrefix(number, "400000"))
		assert.True(t, ValidCardNumber(number), "generated number %s failed the Luhn check", number)
	}
}

func TestGenerateCardNumber_InvalidLength(t *testing.T) {
	_, err := GenerateCardNumber("400000", 4)
	require.Error(t, err)
	_, err = GenerateCardNumber("400000", 25)
	require.Error(t, err)
}

func TestValidCardNumber(t *testing.T) {
	// 4242... is the canonical Luhn-valid test PAN.
	assert.True(t, ValidCardNumber("4242424242424242"))
	assert.False(t, ValidCardNumber("4242424242424243"))
	assert.False(t, ValidCardNumber("42424242"))
	assert.False(t, ValidCardNumber("424242424242424a"))
}

func TestMaskCardNumber(t *testing.T) {
	assert.Equal(t, "************4242", MaskCardNumber("4242424242424242"))
	assert.Equal(t, "****", MaskCardNumber("1234"))
	assert.Equal(t, "", MaskCardNumber(""))
}

func TestGenerateExpiryDate(t *testing.T) {
	issue := time.Date(2025, time.January, 10, 12, 0, 0, 0, time.UTC)
	expiry := GenerateExpiryDate(issue)

	assert.Equal(t, 2028, expiry.Year())
	assert.Equal(t, time.January, expiry.Month())
	assert.Equal(t, 31, expiry.Day(), "expiry should land on the last day of the month")

	// February rollover in a non-leap year.
	issue = time.Date(2026, time.February, 5, 0, 0, 0, 0, time.UTC)
	expiry = GenerateExpiryDate(issue)
	assert.Equal(t, 2029, expiry.Year())
	assert.Equal(t, time.February, expiry.Month())
	assert.Equal(t, 28, expiry.Day())
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	key := []byte("0123456789abcdef")

	encrypted, err := Encrypt("4242424242424242", key)
	require.NoError(t, err)
	assert.NotContains(t, encrypted, "4242424242424242")

	decrypted, err := Decrypt(encrypted, key)
	require.NoError(t, err)
	assert.Equal(t, "4242424242424242", decrypted)
}

func TestEncrypt_BadKey(t *testing.T) {
	_, err := Encrypt("data", []byte("short"))
	require.Error(t, err)
}

func TestDecrypt_WrongKeyFails(t *testing.T) {
	encrypted, err := Encrypt("4242424242424242", []byte("0123456789abcdef"))
	require.NoError(t, err)

	decrypted, err := Decrypt(encrypted, []byte("fedcba9876543210"))
	if err == nil {
		// CBC with random IV: wrong key almost always breaks the padding,
		// but when it does not the plaintext still must not match.
		assert.NotEqual(t, "4242424242424242", decrypted)
	}
}

func TestGenerateHMAC_Deterministic(t *testing.T) {
	a := GenerateHMAC("4242424242424242", "secret")
	b := GenerateHMAC("4242424242424242", "secret")
	assert.Equal(t, a, b)

	assert.NotEqual(t, a, GenerateHMAC("4242424242424242", "other-secret"))
	assert.NotEqual(t, a, GenerateHMAC("4000001234567899", "secret"))
}
