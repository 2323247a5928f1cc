// Package keymaterial resolves the XChaCha20-Poly1305 key and nonce used to
// protect the stored token.
//
// Both values are configured as strings whose raw UTF-8 bytes are used
// directly: the key must be exactly 32 bytes and the nonce exactly 24 bytes.
// No hex or base64 decoding takes place.
//
// Values come from a Source:
//   - EnvSource: process environment, re-read on every Resolve
//   - KeyringSource: OS-native credential storage (macOS Keychain, Windows Credential Manager, etc.)
//   - StaticSource: values injected from loaded configuration
//
// The same nonce is reused for every encryption under a key. This is only
// sound while the pair protects a single token slot that is overwritten
// wholesale, which is the only way this module uses it.
package keymaterial
