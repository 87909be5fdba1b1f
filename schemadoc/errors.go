package schemadoc

import "errors"

// ErrInvalidSchema is the sentinel behind every malformed-schema error this
// package raises while walking the tree (spec §7 InvalidSchema(detail)).
var ErrInvalidSchema = errors.New("invalid schema")
