package kv

import "errors"

// ErrConnection is returned when the KV backend connection fails.
var ErrConnection = errors.New("kv store connection failed")
