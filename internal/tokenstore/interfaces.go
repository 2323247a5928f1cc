package tokenstore

import "context"

// TokenStore reads and writes the token to persistent storage.
type TokenStore interface {
	// Read returns the stored token. Returns error if the token is missing
	// or cannot be decrypted.
	Read(ctx context.Context) (string, error)

	// Write encrypts and persists the token, replacing any previous value.
	Write(ctx context.Context, token string) error
}

// Codec turns a token into an encrypted blob and back.
type Codec interface {
	Encrypt(token string) ([]byte, error)
	Decrypt(blob []byte) (string, error)
}
