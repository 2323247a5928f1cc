package keymaterial

import (
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/guilded-university/tokenvault/internal/tokenerr"
)

const (
	KeySize   = chacha20poly1305.KeySize    // 32 bytes
	NonceSize = chacha20poly1305.NonceSizeX // 24 bytes
)

// Default value names looked up in a Source.
const (
	DefaultKeyName   = "FILE_ENCRYPTION_KEY"
	DefaultNonceName = "FILE_ENCRYPTION_NONCE"
)

// KeyMaterial is the key and nonce pair needed to encrypt or decrypt a token.
type KeyMaterial struct {
	Key   [KeySize]byte
	Nonce [NonceSize]byte
}

// Destroy zeroes the key and nonce.
func (m *KeyMaterial) Destroy() {
	if m == nil {
		return
	}
	clear(m.Key[:])
	clear(m.Nonce[:])
}

// Resolver produces key material on demand.
type Resolver interface {
	Resolve() (*KeyMaterial, error)
}

// Parse validates a key and nonce given as raw strings.
func Parse(key, nonce string) (*KeyMaterial, error) {
	if len(key) != KeySize {
		return nil, tokenerr.New(tokenerr.KindInvalidKeyLength, fmt.Sprintf("got %d bytes", len(key)))
	}
	if len(nonce) != NonceSize {
		return nil, tokenerr.New(tokenerr.KindInvalidNonceLength, fmt.Sprintf("got %d bytes", len(nonce)))
	}

	m := &KeyMaterial{}
	copy(m.Key[:], key)
	copy(m.Nonce[:], nonce)
	return m, nil
}

// Option configures a Provider.
type Option func(*Provider)

// WithKeyName overrides the name the key is looked up under.
func WithKeyName(name string) Option {
	return func(p *Provider) {
		p.keyName = name
	}
}

// WithNonceName overrides the name the nonce is looked up under.
func WithNonceName(name string) Option {
	return func(p *Provider) {
		p.nonceName = name
	}
}

// Provider resolves key material from a Source on every call.
// It holds no key material between calls.
type Provider struct {
	source    Source
	keyName   string
	nonceName string
}

// Compile-time check to ensure Provider implements Resolver
var _ Resolver = (*Provider)(nil)

// NewProvider creates a Provider reading from source.
func NewProvider(source Source, opts ...Option) (*Provider, error) {
	if source == nil {
		return nil, fmt.Errorf("missing key material source")
	}

	p := &Provider{
		source:    source,
		keyName:   DefaultKeyName,
		nonceName: DefaultNonceName,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.keyName == "" {
		return nil, fmt.Errorf("key name cannot be empty")
	}
	if p.nonceName == "" {
		return nil, fmt.Errorf("nonce name cannot be empty")
	}

	return p, nil
}

// Resolve looks up the key and nonce and validates their lengths.
// The key is checked fully before the nonce is looked up.
func (p *Provider) Resolve() (*KeyMaterial, error) {
	key, err := p.lookup(p.keyName, tokenerr.KindMissingKey)
	if err != nil {
		return nil, err
	}
	if len(key) != KeySize {
		return nil, tokenerr.New(tokenerr.KindInvalidKeyLength,
			fmt.Sprintf("%s has %d bytes", p.keyName, len(key)))
	}

	nonce, err := p.lookup(p.nonceName, tokenerr.KindMissingNonce)
	if err != nil {
		return nil, err
	}
	if len(nonce) != NonceSize {
		return nil, tokenerr.New(tokenerr.KindInvalidNonceLength,
			fmt.Sprintf("%s has %d bytes", p.nonceName, len(nonce)))
	}

	return Parse(key, nonce)
}

func (p *Provider) lookup(name string, missing tokenerr.Kind) (string, error) {
	value, ok, err := p.source.Lookup(name)
	if err != nil {
		return "", tokenerr.Wrap(missing, err, fmt.Sprintf("looking up %s in %s", name, p.source))
	}
	if !ok {
		return "", tokenerr.New(missing, fmt.Sprintf("%s is not set in %s", name, p.source))
	}
	return value, nil
}
