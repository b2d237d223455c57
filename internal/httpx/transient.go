package httpx

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// BodyReadError is a response body that could not be read to the end,
// usually because the connection dropped mid-transfer.
type BodyReadError struct {
	URL string
	Err error
}

func (e *BodyReadError) Error() string {
	return fmt.Sprintf("httpx: read body of %s: %v", e.URL, e.Err)
}

func (e *BodyReadError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a connection-level network failure
// worth retrying: timeouts, resets, refused connections and bodies cut off
// in transit. Cancellation is never transient, and neither is anything that
// merely mentions EOF: parsers report truncated input that way too.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var berr *BodyReadError
	if errors.As(err, &berr) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) || errors.Is(err, syscall.EPIPE) {
		return true
	}

	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	var operr *net.OpError
	if errors.As(err, &operr) {
		return true
	}

	// errors that reach us flattened into strings by a proxy or wrapper
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection reset", "connection refused", "broken pipe", "i/o timeout"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
