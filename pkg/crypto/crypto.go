// Package crypto implements the line cipher shared by every quizline participant.
//
// A token is base64(IV ‖ ciphertext). The key is SHA-256 of a pre-shared
// passphrase, so client and server interoperate as long as they agree on the
// passphrase and the suite.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// KeySize is the derived key length (AES-256).
const KeySize = sha256.Size

// DefaultPassphrase is the passphrase legacy clients were built with.
const DefaultPassphrase = "secretKey"

var (
	// ErrDecode is returned when a token is not valid base64.
	ErrDecode = errors.New("crypto: token decode failed")
	// ErrCrypto is returned when a decoded token cannot be decrypted.
	ErrCrypto = errors.New("crypto: decryption failed")
)

// DeriveKey hashes a passphrase into a symmetric key.
func DeriveKey(passphrase string) []byte {
	sum := sha256.Sum256([]byte(passphrase))
	return sum[:]
}

// Codec seals and opens wire tokens. It is immutable and safe for concurrent use.
type Codec struct {
	suite Suite
	block cipher.Block
	aead  cipher.AEAD
}

// NewCodec derives the key from passphrase and prepares the selected suite.
func NewCodec(passphrase string, suite Suite) (*Codec, error) {
	key := DeriveKey(passphrase)
	c := &Codec{suite: suite}
	var err error
	switch suite {
	case SuiteAESCBC:
		c.block, err = newBlock(key)
	case SuiteXChaCha20Poly1305:
		c.aead, err = newXChaCha20Poly1305(key)
	default:
		err = fmt.Errorf("crypto: unknown cipher suite: %v", suite)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Suite reports the construction this codec uses.
func (c *Codec) Suite() Suite {
	return c.suite
}

// Seal encrypts plaintext under a fresh random IV and returns printable text.
func (c *Codec) Seal(plaintext []byte) (string, error) {
	var out []byte
	switch c.suite {
	case SuiteXChaCha20Poly1305:
		nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plaintext)+c.aead.Overhead())
		if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
			return "", fmt.Errorf("crypto: generate nonce: %w", err)
		}
		out = c.aead.Seal(nonce, nonce, plaintext, nil)
	default:
		padded := pkcs7Pad(plaintext, aes.BlockSize)
		out = make([]byte, aes.BlockSize+len(padded))
		iv := out[:aes.BlockSize]
		if _, err := io.ReadFull(rand.Reader, iv); err != nil {
			return "", fmt.Errorf("crypto: generate iv: %w", err)
		}
		cipher.NewCBCEncrypter(c.block, iv).CryptBlocks(out[aes.BlockSize:], padded)
	}
	return base64.StdEncoding.EncodeToString(out), nil
}

// Open reverses Seal. Errors wrap ErrDecode or ErrCrypto.
func (c *Codec) Open(token string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	switch c.suite {
	case SuiteXChaCha20Poly1305:
		ns := c.aead.NonceSize()
		if len(data) < ns+c.aead.Overhead() {
			return nil, fmt.Errorf("%w: token too short (%d bytes)", ErrCrypto, len(data))
		}
		plaintext, err := c.aead.Open(nil, data[:ns], data[ns:], nil)
		if err != nil {
			return nil, ErrCrypto
		}
		return plaintext, nil
	default:
		body := len(data) - aes.BlockSize
		if body <= 0 || body%aes.BlockSize != 0 {
			return nil, fmt.Errorf("%w: invalid ciphertext length %d", ErrCrypto, len(data))
		}
		plain := make([]byte, body)
		cipher.NewCBCDecrypter(c.block, data[:aes.BlockSize]).CryptBlocks(plain, data[aes.BlockSize:])
		unpadded, err := pkcs7Unpad(plain, aes.BlockSize)
		if err != nil {
			return nil, fmt.Errorf("%w: bad padding", ErrCrypto)
		}
		return unpadded, nil
	}
}
