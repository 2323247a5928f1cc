// Package tokenerr defines the failure taxonomy shared by key resolution,
// token encryption and token storage.
//
// Every failure is a *Error carrying a Kind, a human-readable detail and an
// optional cause. Storage operations wrap the specific kind in one of two
// categories:
//   - EncryptionFailed: anything that went wrong before the blob reached disk
//   - DecryptionFailed: anything that went wrong after the blob was read
//
// Use errors.Is with the Err* sentinels to classify at any depth. Errors are
// rendered to a single string only at the boundary (CLI output, HTTP body).
package tokenerr
