package tokencipher

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/guilded-university/tokenvault/internal/keymaterial"
	"github.com/guilded-university/tokenvault/internal/tokenerr"
)

const (
	testKey   = "12345678901234567890123456789012"
	testNonce = "123456789012345678901234"
)

// helloBlob is "hello" sealed under testKey/testNonce.
var helloBlob = []byte{
	145, 197, 231, 192, 14, 9, 75, 168, 206, 124, 218, 212, 108, 206, 158, 140, 165,
	93, 198, 108, 208,
}

type staticResolver struct {
	km  *keymaterial.KeyMaterial
	err error
}

func (s staticResolver) Resolve() (*keymaterial.KeyMaterial, error) {
	if s.err != nil {
		return nil, s.err
	}
	// Cipher destroys what it receives, hand out a copy.
	km := *s.km
	return &km, nil
}

func testKeyMaterial(t *testing.T) *keymaterial.KeyMaterial {
	t.Helper()
	km, err := keymaterial.Parse(testKey, testNonce)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return km
}

func testCipher(t *testing.T) *Cipher {
	t.Helper()
	c, err := New(staticResolver{km: testKeyMaterial(t)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestSealKnownVector(t *testing.T) {
	got, err := Seal(testKeyMaterial(t), "hello")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if !bytes.Equal(got, helloBlob) {
		t.Errorf("Seal(hello) = %v, want %v", got, helloBlob)
	}
}

func TestOpenKnownVector(t *testing.T) {
	got, err := Open(testKeyMaterial(t), helloBlob)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got != "hello" {
		t.Errorf("Open() = %q, want %q", got, "hello")
	}
}

func TestRoundTrip(t *testing.T) {
	c := testCipher(t)

	tests := []string{
		"",
		"hello",
		"eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiIxMjM0In0.sig",
		"ünïcødé ✓ 令牌",
		strings.Repeat("x", 1<<16),
	}

	for _, token := range tests {
		blob, err := c.Encrypt(token)
		if err != nil {
			t.Fatalf("Encrypt(%.20q): %v", token, err)
		}
		if len(blob) != len(token)+Overhead {
			t.Errorf("blob length = %d, want %d", len(blob), len(token)+Overhead)
		}

		got, err := c.Decrypt(blob)
		if err != nil {
			t.Fatalf("Decrypt(%.20q): %v", token, err)
		}
		if got != token {
			t.Errorf("round trip = %.20q, want %.20q", got, token)
		}
	}
}

func TestEncryptIsDeterministic(t *testing.T) {
	c := testCipher(t)

	first, err := c.Encrypt("same token")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	second, err := c.Encrypt("same token")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("expected identical blobs for identical input")
	}
}

func TestEmptyToken(t *testing.T) {
	c := testCipher(t)

	blob, err := c.Encrypt("")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if len(blob) != Overhead {
		t.Fatalf("empty token blob length = %d, want %d", len(blob), Overhead)
	}

	got, err := c.Decrypt(blob)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if got != "" {
		t.Errorf("Decrypt() = %q, want empty", got)
	}
}

func TestTamperDetection(t *testing.T) {
	c := testCipher(t)

	for i := range helloBlob {
		tampered := bytes.Clone(helloBlob)
		tampered[i] ^= 0x01

		if _, err := c.Decrypt(tampered); !errors.Is(err, tokenerr.ErrAuthenticationFailed) {
			t.Errorf("byte %d flipped: error = %v, want authentication failure", i, err)
		}
	}
}

func TestDecryptMalformedInput(t *testing.T) {
	c := testCipher(t)

	tests := []struct {
		name string
		blob []byte
	}{
		{"nil", nil},
		{"empty", []byte{}},
		{"shorter than tag", helloBlob[:Overhead-1]},
		{"truncated", helloBlob[:len(helloBlob)-1]},
		{"extended", append(bytes.Clone(helloBlob), 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := c.Decrypt(tt.blob); !errors.Is(err, tokenerr.ErrAuthenticationFailed) {
				t.Errorf("error = %v, want authentication failure", err)
			}
		})
	}
}

func TestDecryptWrongKey(t *testing.T) {
	km, err := keymaterial.Parse(strings.Repeat("k", 32), testNonce)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if _, err := Open(km, helloBlob); !errors.Is(err, tokenerr.ErrAuthenticationFailed) {
		t.Errorf("error = %v, want authentication failure", err)
	}
}

func TestDecryptInvalidUTF8(t *testing.T) {
	km := testKeyMaterial(t)

	// A blob that authenticates but whose plaintext is not UTF-8 can only be
	// produced by sealing the raw bytes directly.
	blob, err := Seal(km, string([]byte{0xff, 0xfe, 0xfd}))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	if _, err := Open(km, blob); !errors.Is(err, tokenerr.ErrUTF8DecodeFailed) {
		t.Errorf("error = %v, want utf-8 decode failure", err)
	}
}

func TestResolverErrorsPropagate(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"missing key", tokenerr.New(tokenerr.KindMissingKey, "FILE_ENCRYPTION_KEY is not set")},
		{"invalid nonce", tokenerr.New(tokenerr.KindInvalidNonceLength, "got 3 bytes")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(staticResolver{err: tt.err})
			if err != nil {
				t.Fatalf("New: %v", err)
			}

			if _, err := c.Encrypt("hello"); !errors.Is(err, tt.err) {
				t.Errorf("Encrypt error = %v, want %v", err, tt.err)
			}
			if _, err := c.Decrypt(helloBlob); !errors.Is(err, tt.err) {
				t.Errorf("Decrypt error = %v, want %v", err, tt.err)
			}
		})
	}
}

func TestNewRequiresResolver(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Error("expected error for nil resolver")
	}
}
