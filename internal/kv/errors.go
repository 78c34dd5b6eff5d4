package kv

import "errors"

// ErrNotFound is returned by lookups for an absent key, distinct from a
// transport-level Redis error; callers translate it into domain-specific
// "not found" handling (apierror.Authentication, a cache miss, and so on).
var ErrNotFound = errors.New("kv: not found")
