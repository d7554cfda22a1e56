package protocol

import (
	"fmt"

	"github.com/NicolasHaas/quizline/pkg/crypto"
)

// Wire turns packages into sealed lines and back.
type Wire struct {
	codec *crypto.Codec
}

// NewWire binds a wire to a cipher codec.
func NewWire(codec *crypto.Codec) *Wire {
	return &Wire{codec: codec}
}

// Marshal encodes p and seals it into one printable line (without newline).
func (w *Wire) Marshal(p Package) (string, error) {
	data, err := Encode(p)
	if err != nil {
		return "", err
	}
	token, err := w.codec.Seal(data)
	if err != nil {
		return "", fmt.Errorf("protocol: seal: %w", err)
	}
	return token, nil
}

// Unmarshal opens a sealed line and decodes it. Errors wrap crypto.ErrDecode,
// crypto.ErrCrypto or ErrProtocol.
func (w *Wire) Unmarshal(line string) (Package, error) {
	data, err := w.codec.Open(line)
	if err != nil {
		return Package{}, err
	}
	return Decode(data)
}
