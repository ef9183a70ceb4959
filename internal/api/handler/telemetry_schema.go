package handler

import "encoding/json"

// batchRequest is an array of raw provider payloads; each entry is passed to
// the provider adapter untouched.
type batchRequest []json.RawMessage

type acceptedResponse struct {
	Message string `json:"message"`
}

// batchResponse reports per-batch outcome counts. Malformed entries are
// dropped and counted, they never fail the whole batch.
type batchResponse struct {
	Accepted int      `json:"accepted"`
	Rejected int      `json:"rejected"`
	Errors   []string `json:"errors,omitempty"`
}
