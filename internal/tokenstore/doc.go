// Package tokenstore persists an encrypted authentication token to the filesystem.
//
// The stored file holds only ciphertext followed by the authentication tag:
// no header, no version, no nonce. Writes go to a temp file in the target
// directory and are renamed into place, so readers see either the old or the
// new blob. A symlinked token path is written through to its target and the
// link itself is kept. There is no locking; concurrent saves to one path race and the
// last rename wins.
//
// Failures are classified with package tokenerr:
//   - EncryptionFailed / WriteFailed on save
//   - ReadFailed / DecryptionFailed on load
package tokenstore
