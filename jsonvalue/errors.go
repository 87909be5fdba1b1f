package jsonvalue

import "errors"

// === Decode Related Errors ===
var (
	// ErrExpectedObject is returned when a JSON object was expected but not found.
	ErrExpectedObject = errors.New("jsonvalue: expected object")

	// ErrExpectedObjectKey is returned when an object key token was not a string.
	ErrExpectedObjectKey = errors.New("jsonvalue: expected object key")

	// ErrUnexpectedToken is returned when the decoder encounters a token it
	// does not know how to fold into a Value.
	ErrUnexpectedToken = errors.New("jsonvalue: unexpected token")
)
