package canvas

import (
	"errors"
	"net/http"

	"syllabus-audit/internal/httpx"
)

// ErrAuth marks a request that could not be authorized: the credential
// refused to hand out its key, or Canvas answered 401.
var ErrAuth = errors.New("canvas: not authorized")

// IsAuthError reports whether err is an authorization failure. Callers that
// otherwise degrade gracefully must still stop on these.
func IsAuthError(err error) bool {
	if errors.Is(err, ErrAuth) {
		return true
	}
	var herr *httpx.HTTPError
	return errors.As(err, &herr) && herr.StatusCode == http.StatusUnauthorized
}
