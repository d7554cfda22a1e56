package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

// Suite selects the symmetric construction used for every line on the wire.
type Suite uint8

const (
	// SuiteAESCBC is AES-256-CBC with PKCS#7 padding and a 16-byte IV prefix.
	// It is the default and the only suite legacy clients understand.
	SuiteAESCBC Suite = iota
	// SuiteXChaCha20Poly1305 is the authenticated alternative with a 24-byte nonce prefix.
	SuiteXChaCha20Poly1305
)

func (s Suite) String() string {
	switch s {
	case SuiteAESCBC:
		return "aes-cbc"
	case SuiteXChaCha20Poly1305:
		return "xchacha20poly1305"
	default:
		return "unknown"
	}
}

// ParseSuite converts a configuration string to a Suite.
func ParseSuite(name string) (Suite, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "aes-cbc", "aes":
		return SuiteAESCBC, nil
	case "xchacha20poly1305", "xchacha20", "chacha":
		return SuiteXChaCha20Poly1305, nil
	default:
		return 0, fmt.Errorf("crypto: unknown cipher suite %q (valid: aes-cbc, xchacha20poly1305)", name)
	}
}

func newBlock(key []byte) (cipher.Block, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("crypto: invalid aes256 key length: expected %d, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: new aes cipher: %w", err)
	}
	return block, nil
}

func newXChaCha20Poly1305(key []byte) (cipher.AEAD, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("crypto: invalid xchacha20poly1305 key length: expected %d, got %d", chacha20poly1305.KeySize, len(key))
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: new xchacha20 cipher: %w", err)
	}
	return aead, nil
}

// pkcs7Pad appends PKCS#7 padding up to a multiple of blockSize.
func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	out := make([]byte, len(data)+n)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = byte(n)
	}
	return out
}

// pkcs7Unpad strips and verifies PKCS#7 padding.
func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, ErrCrypto
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, ErrCrypto
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, ErrCrypto
		}
	}
	return data[:len(data)-n], nil
}
