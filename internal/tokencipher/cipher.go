package tokencipher

import (
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/guilded-university/tokenvault/internal/keymaterial"
	"github.com/guilded-university/tokenvault/internal/tokenerr"
)

// Overhead is the size of the authentication tag appended to every blob.
const Overhead = chacha20poly1305.Overhead

// Seal encrypts token under km and returns ciphertext || tag.
func Seal(km *keymaterial.KeyMaterial, token string) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(km.Key[:])
	if err != nil {
		return nil, tokenerr.Wrap(tokenerr.KindInvalidKeyLength, err, "")
	}

	return aead.Seal(nil, km.Nonce[:], []byte(token), nil), nil
}

// Open verifies and decrypts a blob produced by Seal.
func Open(km *keymaterial.KeyMaterial, blob []byte) (string, error) {
	if len(blob) < Overhead {
		return "", tokenerr.New(tokenerr.KindAuthenticationFailed,
			fmt.Sprintf("blob of %d bytes is shorter than the %d-byte tag", len(blob), Overhead))
	}

	aead, err := chacha20poly1305.NewX(km.Key[:])
	if err != nil {
		return "", tokenerr.Wrap(tokenerr.KindInvalidKeyLength, err, "")
	}

	plaintext, err := aead.Open(nil, km.Nonce[:], blob, nil)
	if err != nil {
		return "", tokenerr.New(tokenerr.KindAuthenticationFailed, "")
	}

	if !utf8.Valid(plaintext) {
		clear(plaintext)
		return "", tokenerr.New(tokenerr.KindUTF8DecodeFailed, "")
	}

	return string(plaintext), nil
}

// Cipher encrypts and decrypts tokens, resolving key material on every call.
// It holds no key material between calls.
type Cipher struct {
	keys keymaterial.Resolver
}

// New creates a Cipher that resolves key material through keys.
func New(keys keymaterial.Resolver) (*Cipher, error) {
	if keys == nil {
		return nil, fmt.Errorf("missing key material resolver")
	}

	return &Cipher{keys: keys}, nil
}

// Encrypt resolves key material and seals token.
func (c *Cipher) Encrypt(token string) ([]byte, error) {
	km, err := c.keys.Resolve()
	if err != nil {
		return nil, err
	}
	defer km.Destroy()

	return Seal(km, token)
}

// Decrypt resolves key material and opens blob.
func (c *Cipher) Decrypt(blob []byte) (string, error) {
	km, err := c.keys.Resolve()
	if err != nil {
		return "", err
	}
	defer km.Destroy()

	return Open(km, blob)
}
