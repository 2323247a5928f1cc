// Package api serves the store and retrieve operations over a loopback HTTP API.
//
// Routes:
//   - PUT /token: request body is the raw token; responds 204
//   - GET /token: responds {"token": "..."}
//
// Requests must be addressed to a loopback host (or the configured server
// host) and carry no foreign Origin; anything else is refused with 403.
//
// Failures respond {"error": "<message>"} where the message is the single
// string rendering of the underlying tokenerr.Error.
package api
