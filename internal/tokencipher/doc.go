// Package tokencipher encrypts and decrypts tokens with XChaCha20-Poly1305.
//
// Blobs are ciphertext followed by the 16-byte authentication tag. The nonce
// is not stored: it comes from the resolved key material, so encryption is
// deterministic for a given key, nonce and token.
package tokencipher
