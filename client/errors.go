package client

import "errors"

// ErrTimeout is returned by Do when the per-transaction deadline elapsed
// before a response was fully read.
var ErrTimeout = errors.New("client: request timed out")

// ErrAborted is returned by Do when Abort was called while the transaction
// was in flight.
var ErrAborted = errors.New("client: request aborted")
