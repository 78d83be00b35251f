// Package types holds the wire envelopes shared by every API response.
package types

// SuccessEnvelope wraps successful responses: job results, sheet headers,
// change-history listings.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the public face of a failure. Details carries field-level
// validation output or upstream table-store context when the error code
// allows it.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
