package doc

import "errors"

// ErrConnection is returned when the document store connection fails.
var ErrConnection = errors.New("doc store connection failed")
