package api

import (
	"errors"
	"io"
	"io/fs"
	"net/http"
	"unicode/utf8"

	"github.com/guilded-university/tokenvault/internal/tokenerr"
)

// MaxTokenSize bounds the request body of PUT /token.
const MaxTokenSize = 64 << 10

type handlers struct {
	vault Vault
}

func (h *handlers) storeToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxTokenSize))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSONError(ctx, w, "token exceeds maximum size", http.StatusRequestEntityTooLarge)
			return
		}
		writeJSONError(ctx, w, "unable to read request body", http.StatusBadRequest)
		return
	}
	defer clear(body)

	if !utf8.Valid(body) {
		writeJSONError(ctx, w, "token must be valid utf-8", http.StatusBadRequest)
		return
	}

	if err := h.vault.Store(ctx, string(body)); err != nil {
		writeJSONError(ctx, w, err.Error(), statusFor(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) retrieveToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token, err := h.vault.Retrieve(ctx)
	if err != nil {
		writeJSONError(ctx, w, err.Error(), statusFor(err))
		return
	}

	writeJSON(ctx, w, TokenResponse{Token: token}, http.StatusOK)
}

// statusFor maps a store or retrieve failure to an HTTP status code.
func statusFor(err error) int {
	switch {
	case tokenerr.IsConfig(err):
		return http.StatusInternalServerError
	case tokenerr.IsReadFailed(err) && errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound
	case tokenerr.IsDecryptionFailed(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
