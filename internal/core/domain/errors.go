package domain

import "errors"

var ErrMalformedPayload = errors.New("malformed provider payload")
var ErrUnknownProvider = errors.New("unknown provider kind")
var ErrLookupTimeout = errors.New("external lookup timed out")
var ErrVehicleNotTracked = errors.New("vehicle not tracked")
var ErrAlertNotFound = errors.New("alert not found")
var ErrTripNotFound = errors.New("trip not found")
var ErrStaleEvent = errors.New("event older than last processed sample")
