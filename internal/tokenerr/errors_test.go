package tokenerr

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"testing"
)

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "kind only",
			err:  New(KindAuthenticationFailed, ""),
			want: "message authentication failed",
		},
		{
			name: "kind with detail",
			err:  New(KindMissingKey, "FILE_ENCRYPTION_KEY is not set"),
			want: "no encryption key configured: FILE_ENCRYPTION_KEY is not set",
		},
		{
			name: "category wrapping kind",
			err:  Wrap(KindEncryptionFailed, New(KindInvalidKeyLength, "got 31 bytes"), ""),
			want: "unable to encrypt data: key must be a string of 32 bytes: got 31 bytes",
		},
		{
			name: "cause from the standard library",
			err:  Wrap(KindReadFailed, fs.ErrNotExist, ".token"),
			want: "unable to read token file: .token: file does not exist",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSentinelsMatchAtAnyDepth(t *testing.T) {
	inner := New(KindMissingKey, "FILE_ENCRYPTION_KEY is not set")
	err := fmt.Errorf("store: %w", Wrap(KindDecryptionFailed, inner, ""))

	if !errors.Is(err, ErrDecryptionFailed) {
		t.Error("expected category to match")
	}
	if !errors.Is(err, ErrMissingKey) {
		t.Error("expected wrapped kind to match")
	}
	if errors.Is(err, ErrInvalidKeyLength) {
		t.Error("length error must stay distinct from missing key")
	}
	if errors.Is(err, ErrEncryptionFailed) {
		t.Error("decryption failure must not match encryption category")
	}
}

func TestSentinelDoesNotMatchDetailedTarget(t *testing.T) {
	err := New(KindReadFailed, "a")
	if errors.Is(err, New(KindReadFailed, "b")) {
		t.Error("detailed errors are not sentinels")
	}
}

func TestKindOfAndCause(t *testing.T) {
	err := fmt.Errorf("ctx: %w", Wrap(KindEncryptionFailed, New(KindMissingNonce, ""), ""))

	if got := KindOf(err); got != KindEncryptionFailed {
		t.Errorf("KindOf() = %v, want %v", got, KindEncryptionFailed)
	}
	if got := Cause(err); got != KindMissingNonce {
		t.Errorf("Cause() = %v, want %v", got, KindMissingNonce)
	}
	if !IsConfig(err) {
		t.Error("missing nonce is a configuration error")
	}
	if got := KindOf(errors.New("plain")); got != KindUnknown {
		t.Errorf("KindOf(plain) = %v, want %v", got, KindUnknown)
	}
}

func TestHelpers(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"missing key", ErrMissingKey, IsMissingKey},
		{"missing nonce", ErrMissingNonce, IsMissingNonce},
		{"authentication", ErrAuthenticationFailed, IsAuthenticationFailed},
		{"read", ErrReadFailed, IsReadFailed},
		{"write", ErrWriteFailed, IsWriteFailed},
		{"encryption", ErrEncryptionFailed, IsEncryptionFailed},
		{"decryption", ErrDecryptionFailed, IsDecryptionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.check(fmt.Errorf("wrapped: %w", tt.err)) {
				t.Errorf("helper did not match %v", tt.err)
			}
			if tt.check(errors.New("other")) {
				t.Error("helper matched unrelated error")
			}
		})
	}
}

func TestMarshalJSON(t *testing.T) {
	err := Wrap(KindDecryptionFailed, New(KindAuthenticationFailed, ""), "")

	data, mErr := json.Marshal(struct {
		Error *Error `json:"error"`
	}{err})
	if mErr != nil {
		t.Fatalf("Marshal: %v", mErr)
	}

	want := `{"error":"unable to decrypt data: message authentication failed"}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}
