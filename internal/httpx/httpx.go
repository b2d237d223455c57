package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// HTTPError is a Canvas response outside 2xx. The body is kept because
// Canvas explains most refusals there ("user not authorized", throttling).
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http error: %s %s status=%d body=%s", e.Method, e.URL, e.StatusCode, snippet(e.Body, 900))
}

func snippet(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) > n {
		return s[:n] + "…"
	}
	return s
}

// RetryConfig decides how often a Canvas call is repeated and which
// statuses count as "try again later".
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	Retry5xx      bool
	RetryStatuses map[int]bool
}

const (
	defaultBaseDelay = 700 * time.Millisecond
	defaultMaxDelay  = 30 * time.Second
	maxJitter        = 400 * time.Millisecond
)

// DefaultRetryConfig suits Canvas API pages: Canvas throttles with 429 and
// its load balancers answer 502-504 during deploys.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 8,
		BaseDelay:   defaultBaseDelay,
		MaxDelay:    defaultMaxDelay,
		Retry5xx:    true,
		RetryStatuses: map[int]bool{
			http.StatusTooManyRequests:    true,
			http.StatusRequestTimeout:     true,
			http.StatusTooEarly:           true,
			http.StatusServiceUnavailable: true,
			http.StatusBadGateway:         true,
			http.StatusGatewayTimeout:     true,
		},
	}
}

// SingleAttempt issues the request once. File downloads use it because the
// extractor runs its own retry loop around download and decode.
func SingleAttempt() RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.MaxAttempts = 1
	return cfg
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxAttempts <= 0 {
		return DefaultRetryConfig()
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = defaultBaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = defaultMaxDelay
	}
	if c.RetryStatuses == nil {
		c.RetryStatuses = DefaultRetryConfig().RetryStatuses
	}
	return c
}

func (c RetryConfig) retriesStatus(code int) bool {
	return c.RetryStatuses[code] || (c.Retry5xx && code >= 500 && code <= 599)
}

// outcome is what one round trip produced and whether another is worth it.
type outcome struct {
	resp       *http.Response
	body       []byte
	err        error
	retry      bool
	retryAfter time.Duration
}

// DoWithRetry sends the request built by buildReq until it gets a 2xx, a
// final error, or runs out of attempts. buildReq is called once per attempt
// so request bodies can be rebuilt. The whole body is always drained so the
// connection goes back to the pool, and br/gzip bodies come back decoded.
func DoWithRetry(
	ctx context.Context,
	client *http.Client,
	buildReq func(context.Context) (*http.Request, error),
	cfg RetryConfig,
) (*http.Response, []byte, error) {
	cfg = cfg.withDefaults()

	var last outcome
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		req, err := buildReq(ctx)
		if err != nil {
			return nil, nil, err
		}
		if req.Header.Get("Accept-Encoding") == "" {
			req.Header.Set("Accept-Encoding", AcceptEncoding)
		}

		last = roundTrip(client, req, cfg)
		if last.err == nil || !last.retry {
			return last.resp, last.body, last.err
		}
		if attempt == cfg.MaxAttempts {
			break
		}
		if err := sleepBackoff(ctx, attempt, cfg.BaseDelay, cfg.MaxDelay, last.retryAfter); err != nil {
			return nil, nil, err
		}
	}

	if last.err == nil {
		return nil, nil, errors.New("httpx: request failed")
	}
	// exhausted: transport failures carry no response
	var herr *HTTPError
	if errors.As(last.err, &herr) {
		return last.resp, last.body, last.err
	}
	return nil, nil, last.err
}

func roundTrip(client *http.Client, req *http.Request, cfg RetryConfig) outcome {
	resp, err := client.Do(req)
	if err != nil {
		return outcome{err: err, retry: IsTransient(err)}
	}

	raw, err := readAndClose(resp.Body)
	if err != nil {
		err = &BodyReadError{URL: req.URL.String(), Err: err}
		return outcome{resp: resp, body: raw, err: err, retry: true}
	}
	body, err := decodeBody(resp.Header.Get("Content-Encoding"), raw)
	if err != nil {
		return outcome{resp: resp, body: raw, err: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return outcome{resp: resp, body: body}
	}
	herr := &HTTPError{
		Method:     req.Method,
		URL:        req.URL.String(),
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       body,
	}
	return outcome{
		resp:       resp,
		body:       body,
		err:        herr,
		retry:      cfg.retriesStatus(resp.StatusCode),
		retryAfter: ParseRetryAfter(resp),
	}
}

func readAndClose(rc io.ReadCloser) ([]byte, error) {
	defer rc.Close()
	return io.ReadAll(rc)
}

// sleepBackoff honours Retry-After when Canvas sent one, otherwise waits
// Backoff plus up to maxJitter so parallel workers do not retry in step.
func sleepBackoff(ctx context.Context, attempt int, base, max time.Duration, retryAfter time.Duration) error {
	if retryAfter > 0 {
		return Sleep(ctx, retryAfter)
	}
	jitter := time.Duration(rand.Int64N(int64(maxJitter)))
	return Sleep(ctx, Backoff(attempt, base, max)+jitter)
}

// Backoff is the exponential delay before retry number attempt (1-based):
// base, 2*base, 4*base ... capped at max.
func Backoff(attempt int, base, max time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 30 {
		return max
	}
	d := base << (attempt - 1)
	if d <= 0 || d > max {
		return max
	}
	return d
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ParseRetryAfter reads Retry-After as delta-seconds or an HTTP date.
// Missing, malformed or past values give 0.
func ParseRetryAfter(resp *http.Response) time.Duration {
	v := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(max(secs, 0)) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		return max(time.Until(at), 0)
	}
	return 0
}

// DoJSON decodes a successful Canvas response into out. A nil out only
// checks the status.
func DoJSON(
	ctx context.Context,
	client *http.Client,
	buildReq func(context.Context) (*http.Request, error),
	out any,
	cfg RetryConfig,
) error {
	_, err := DoJSONResponse(ctx, client, buildReq, out, cfg)
	return err
}

// DoJSONResponse is DoJSON that also returns the response, whose Link
// header drives Canvas pagination.
func DoJSONResponse(
	ctx context.Context,
	client *http.Client,
	buildReq func(context.Context) (*http.Request, error),
	out any,
	cfg RetryConfig,
) (*http.Response, error) {
	resp, body, err := DoWithRetry(ctx, client, buildReq, cfg)
	if err != nil || out == nil {
		return resp, err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return resp, fmt.Errorf("json parse error: %w body=%s", err, snippet(body, 900))
	}
	return resp, nil
}
