package tokenerr

import (
	"encoding/json"
	"errors"
)

// Kind classifies a failure.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindMissingKey
	KindMissingNonce
	KindInvalidKeyLength
	KindInvalidNonceLength
	KindAuthenticationFailed
	KindUTF8DecodeFailed
	KindWriteFailed
	KindReadFailed
	KindEncryptionFailed
	KindDecryptionFailed
)

var kindMessages = map[Kind]string{
	KindUnknown:              "unknown error",
	KindMissingKey:           "no encryption key configured",
	KindMissingNonce:         "no encryption nonce configured",
	KindInvalidKeyLength:     "key must be a string of 32 bytes",
	KindInvalidNonceLength:   "nonce must be a string of 24 bytes",
	KindAuthenticationFailed: "message authentication failed",
	KindUTF8DecodeFailed:     "decrypted token is not valid utf-8",
	KindWriteFailed:          "unable to write token file",
	KindReadFailed:           "unable to read token file",
	KindEncryptionFailed:     "unable to encrypt data",
	KindDecryptionFailed:     "unable to decrypt data",
}

// String returns the kind's message.
func (k Kind) String() string {
	if msg, ok := kindMessages[k]; ok {
		return msg
	}
	return kindMessages[KindUnknown]
}

// IsConfig reports whether the kind describes missing or malformed key material.
func (k Kind) IsConfig() bool {
	switch k {
	case KindMissingKey, KindMissingNonce, KindInvalidKeyLength, KindInvalidNonceLength:
		return true
	default:
		return false
	}
}

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrMissingKey           = &Error{Kind: KindMissingKey}
	ErrMissingNonce         = &Error{Kind: KindMissingNonce}
	ErrInvalidKeyLength     = &Error{Kind: KindInvalidKeyLength}
	ErrInvalidNonceLength   = &Error{Kind: KindInvalidNonceLength}
	ErrAuthenticationFailed = &Error{Kind: KindAuthenticationFailed}
	ErrUTF8DecodeFailed     = &Error{Kind: KindUTF8DecodeFailed}
	ErrWriteFailed          = &Error{Kind: KindWriteFailed}
	ErrReadFailed           = &Error{Kind: KindReadFailed}
	ErrEncryptionFailed     = &Error{Kind: KindEncryptionFailed}
	ErrDecryptionFailed     = &Error{Kind: KindDecryptionFailed}
)

// Error is a classified failure.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

// Compile-time checks for boundary serialization
var (
	_ json.Marshaler = (*Error)(nil)
	_ error          = (*Error)(nil)
)

// New creates an Error of the given kind.
func New(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

// Wrap creates an Error of the given kind with err as its cause.
func Wrap(kind Kind, err error, detail string) *Error {
	return &Error{Kind: kind, Detail: detail, Err: err}
}

// Error renders kind, detail and cause as one message.
func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches a bare sentinel of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Detail != "" || t.Err != nil {
		return false
	}
	return t.Kind == e.Kind
}

// MarshalText returns the message as text.
func (e *Error) MarshalText() ([]byte, error) {
	return []byte(e.Error()), nil
}

// MarshalJSON encodes the error as a single JSON string.
func (e *Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Error())
}

// KindOf returns the kind of the outermost *Error in err's chain,
// or KindUnknown if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Cause returns the most specific kind in err's chain. For a category error
// wrapping a MissingKey failure it returns KindMissingKey.
func Cause(err error) Kind {
	kind := KindUnknown
	for err != nil {
		if e, ok := err.(*Error); ok {
			kind = e.Kind
		}
		err = errors.Unwrap(err)
	}
	return kind
}

// IsConfig reports whether err was caused by missing or malformed key material.
func IsConfig(err error) bool {
	return Cause(err).IsConfig()
}

// IsMissingKey returns true if the error is or wraps ErrMissingKey.
func IsMissingKey(err error) bool {
	return errors.Is(err, ErrMissingKey)
}

// IsMissingNonce returns true if the error is or wraps ErrMissingNonce.
func IsMissingNonce(err error) bool {
	return errors.Is(err, ErrMissingNonce)
}

// IsAuthenticationFailed returns true if the error is or wraps ErrAuthenticationFailed.
func IsAuthenticationFailed(err error) bool {
	return errors.Is(err, ErrAuthenticationFailed)
}

// IsReadFailed returns true if the error is or wraps ErrReadFailed.
func IsReadFailed(err error) bool {
	return errors.Is(err, ErrReadFailed)
}

// IsWriteFailed returns true if the error is or wraps ErrWriteFailed.
func IsWriteFailed(err error) bool {
	return errors.Is(err, ErrWriteFailed)
}

// IsEncryptionFailed returns true if the error is or wraps ErrEncryptionFailed.
func IsEncryptionFailed(err error) bool {
	return errors.Is(err, ErrEncryptionFailed)
}

// IsDecryptionFailed returns true if the error is or wraps ErrDecryptionFailed.
func IsDecryptionFailed(err error) bool {
	return errors.Is(err, ErrDecryptionFailed)
}
