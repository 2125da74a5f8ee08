package worker

import (
	"errors"
	"fmt"
)

var errNotAnObject = errors.New("payload must decode to a JSON object")

// DecodeError reports record bytes that could not be decoded into a JSON
// object.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return "decode failed"
	}
	return e.Err.Error()
}

func (e *DecodeError) Unwrap() error { return e.Err }

// BrokerError reports a poll or commit failure. It ends the runtime loop.
type BrokerError struct {
	Op  string
	Err error
}

func (e *BrokerError) Error() string {
	return fmt.Sprintf("worker: broker %s failed: %v", e.Op, e.Err)
}

func (e *BrokerError) Unwrap() error { return e.Err }
