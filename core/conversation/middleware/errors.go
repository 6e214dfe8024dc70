package middleware

import "errors"

// ErrRetryExhausted is returned by the retry middleware when every attempt
// failed with a retryable error. It is joined with the last attempt's error,
// so errors.Is still matches that error's kind.
var ErrRetryExhausted = errors.New("convo: all retry attempts exhausted")
