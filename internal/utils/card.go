package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// GenerateCardNumber generates a Luhn-valid card number with the
// specified prefix and length.
func GenerateCardNumber(prefix string, length int) (string, error) {
	if length <= len(prefix) || length > 19 {
		return "", fmt.Errorf("invalid card number length: %d", length)
	}

	// Random body, last position reserved for the check digit
	digits := make([]byte, length-len(prefix)-1)
	if _, err := rand.Read(digits); err != nil {
		return "", fmt.Errorf("failed to generate random digits: %w", err)
	}

	var builder strings.Builder
	builder.WriteString(prefix)
	for _, b := range digits {
		builder.WriteByte(b%10 + '0')
	}

	partial := builder.String()
	builder.WriteByte(luhnCheckDigit(partial) + '0')

	cardNumber := builder.String()
	if len(cardNumber) != length {
		return "", fmt.Errorf("generated card number has incorrect length: got %d, want %d", len(cardNumber), length)
	}

	return cardNumber, nil
}

// luhnCheckDigit computes the digit that makes partial+digit pass the
// Luhn check.
func luhnCheckDigit(partial string) byte {
	sum := 0
	double := true
	for i := len(partial) - 1; i >= 0; i-- {
		d := int(partial[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return byte((10 - sum%10) % 10)
}

// ValidCardNumber reports whether number is 12-19 digits and passes the
// Luhn check.
func ValidCardNumber(number string) bool {
	if len(number) < 12 || len(number) > 19 {
		return false
	}
	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		c := number[i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// MaskCardNumber replaces all but the last 4 digits with '*'. Short
// inputs are masked entirely.
func MaskCardNumber(number string) string {
	if len(number) <= 4 {
		return strings.Repeat("*", len(number))
	}
	return strings.Repeat("*", len(number)-4) + number[len(number)-4:]
}

// GenerateExpiryDate returns the expiry date for a newly issued card:
// the end of the month 3 years from now, truncated to a date.
func GenerateExpiryDate(now time.Time) time.Time {
	d := now.UTC().AddDate(3, 0, 0)
	// Normalize to the first day of the following month minus one day
	firstNext := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return firstNext.AddDate(0, 0, -1)
}

// GenerateHMAC produces a deterministic digest of the card number, used
// as a lookup and uniqueness key without storing the number itself.
func GenerateHMAC(cardNumber, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(cardNumber))
	return hex.EncodeToString(h.Sum(nil))
}

// Encrypt encrypts a string using AES-CBC with PKCS#5/PKCS#7 padding
func Encrypt(data string, key []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("input data is empty")
	}
	if len(key) != 16 && len(key) != 24 && len(key) != 32 {
		return "", fmt.Errorf("encryption key must be 16, 24, or 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("failed to generate IV: %w", err)
	}

	dataBytes := []byte(data)
	padding := aes.BlockSize - len(dataBytes)%aes.BlockSize
	for i := 0; i < padding; i++ {
		dataBytes = append(dataBytes, byte(padding))
	}

	ciphertext := make([]byte, len(dataBytes))
	mode := cipher.NewCBCEncrypter(block, iv)
	mode.CryptBlocks(ciphertext, dataBytes)

	final := append(iv, ciphertext...)
	return hex.EncodeToString(final), nil
}

// Decrypt decrypts a hex-encoded string produced by Encrypt
func Decrypt(encryptedData string, key []byte) (string, error) {
	if len(encryptedData) == 0 {
		return "", fmt.Errorf("encrypted data is empty")
	}
	if len(key) != 16 && len(key) != 24 && len(key) != 32 {
		return "", fmt.Errorf("decryption key must be 16, 24, or 32 bytes, got %d", len(key))
	}

	data, err := hex.DecodeString(encryptedData)
	if err != nil {
		return "", fmt.Errorf("failed to decode hex: %w", err)
	}

	if len(data) < aes.BlockSize {
		return "", fmt.Errorf("encrypted data too short: %d bytes", len(data))
	}

	iv := data[:aes.BlockSize]
	ciphertext := data[aes.BlockSize:]

	if len(ciphertext) == 0 {
		return "", fmt.Errorf("ciphertext is empty")
	}
	if len(ciphertext)%aes.BlockSize != 0 {
		return "", fmt.Errorf("invalid ciphertext length: %d bytes", len(ciphertext))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	plaintext := make([]byte, len(ciphertext))
	mode := cipher.NewCBCDecrypter(block, iv)
	mode.CryptBlocks(plaintext, ciphertext)

	padding := int(plaintext[len(plaintext)-1])
	if padding > aes.BlockSize || padding == 0 {
		return "", fmt.Errorf("invalid padding value: %d", padding)
	}
	for i := len(plaintext) - padding; i < len(plaintext); i++ {
		if int(plaintext[i]) != padding {
			return "", fmt.Errorf("invalid padding bytes: expected %d, got %d at position %d", padding, plaintext[i], i)
		}
	}

	return string(plaintext[:len(plaintext)-padding]), nil
}
