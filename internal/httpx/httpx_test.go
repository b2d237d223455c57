package httpx

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"testing"
	"time"
)

func TestSnippet(t *testing.T) {
	cases := map[string]struct {
		in   string
		n    int
		want string
	}{
		"fits":      {"user not authorized", 100, "user not authorized"},
		"empty":     {"", 100, ""},
		"trimmed":   {"\n  {\"errors\":[]}  \n", 100, `{"errors":[]}`},
		"truncated": {"Invalid access token provided", 14, "Invalid access…"},
	}
	for name, tc := range cases {
		if got := snippet([]byte(tc.in), tc.n); got != tc.want {
			t.Errorf("%s: snippet(%q, %d) = %q, want %q", name, tc.in, tc.n, got, tc.want)
		}
	}
}

func TestHTTPErrorMessage(t *testing.T) {
	err := &HTTPError{
		Method:     http.MethodGet,
		URL:        "https://canvas.test/api/v1/courses/7",
		StatusCode: http.StatusNotFound,
		Body:       []byte(`{"errors":[{"message":"The specified resource does not exist."}]}`),
	}
	want := `http error: GET https://canvas.test/api/v1/courses/7 status=404 body={"errors":[{"message":"The specified resource does not exist."}]}`
	if err.Error() != want {
		t.Errorf("got %q\nwant %q", err.Error(), want)
	}
}

func TestDefaultRetryConfig(t *testing.T) {
	cfg := DefaultRetryConfig()
	if cfg.MaxAttempts != 8 || cfg.BaseDelay != 700*time.Millisecond || cfg.MaxDelay != 30*time.Second {
		t.Errorf("unexpected limits: %+v", cfg)
	}
	if !cfg.Retry5xx {
		t.Error("5xx should be retried by default")
	}
	for _, code := range []int{429, 408, 425, 502, 503, 504} {
		if !cfg.RetryStatuses[code] {
			t.Errorf("status %d missing from retry set", code)
		}
	}
	if SingleAttempt().MaxAttempts != 1 {
		t.Error("SingleAttempt should allow exactly one attempt")
	}
}

func TestRetriesStatus(t *testing.T) {
	cfg := DefaultRetryConfig()
	for code := 500; code <= 599; code++ {
		if !cfg.retriesStatus(code) {
			t.Errorf("status %d should be retried", code)
		}
	}
	// Canvas answers these for bad tokens, missing courses and validation
	for _, code := range []int{400, 401, 403, 404, 422} {
		if cfg.retriesStatus(code) {
			t.Errorf("status %d should not be retried", code)
		}
	}

	cfg.Retry5xx = false
	if cfg.retriesStatus(500) {
		t.Error("500 retried with Retry5xx off")
	}
	if !cfg.retriesStatus(http.StatusTooManyRequests) {
		t.Error("429 must stay retryable with Retry5xx off")
	}
}

func TestWithDefaultsFillsZeroFields(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 3}.withDefaults()
	if cfg.MaxAttempts != 3 {
		t.Errorf("MaxAttempts overwritten: %d", cfg.MaxAttempts)
	}
	if cfg.BaseDelay != defaultBaseDelay || cfg.MaxDelay != defaultMaxDelay || cfg.RetryStatuses == nil {
		t.Errorf("defaults not applied: %+v", cfg)
	}

	if got := (RetryConfig{}).withDefaults(); got.MaxAttempts != DefaultRetryConfig().MaxAttempts {
		t.Errorf("zero config should become the default, got %+v", got)
	}
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o deadline reached" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestIsTransient(t *testing.T) {
	syntaxErr := xml.NewDecoder(strings.NewReader("<w:document><w:body>")).Decode(new(struct{}))

	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, true},
		{"net timeout", timeoutError{}, true},
		{"dial refused", fmt.Errorf("canvas: download: %w", &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}), true},
		{"reset errno", fmt.Errorf("wrapped: %w", syscall.ECONNRESET), true},
		{"reset text", errors.New("read tcp 10.0.0.1:443: connection reset by peer"), true},
		{"broken pipe text", errors.New("write: broken pipe"), true},
		{"body cut short", &BodyReadError{URL: "https://canvas.test/files/1", Err: io.ErrUnexpectedEOF}, true},
		{"wrapped body cut short", fmt.Errorf("download: %w", &BodyReadError{Err: io.ErrUnexpectedEOF}), true},
		{"bare unexpected EOF", io.ErrUnexpectedEOF, false},
		{"bare EOF", io.EOF, false},
		{"eof in message", errors.New("unexpected EOF"), false},
		{"pdf trailer", errors.New("not a PDF file: missing %%EOF"), false},
		{"truncated xml", fmt.Errorf("extract: decode syllabus.docx: %w", syntaxErr), false},
		{"http 404", &HTTPError{StatusCode: 404}, false},
		{"other", errors.New("zip: not a valid zip file"), false},
	}
	for _, tc := range cases {
		if got := IsTransient(tc.err); got != tc.want {
			t.Errorf("%s: IsTransient(%v) = %v, want %v", tc.name, tc.err, got, tc.want)
		}
	}
}

func TestBodyReadErrorUnwraps(t *testing.T) {
	err := &BodyReadError{URL: "https://canvas.test/files/9/download", Err: io.ErrUnexpectedEOF}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("BodyReadError should unwrap to its cause")
	}
	if !strings.Contains(err.Error(), "files/9/download") {
		t.Errorf("message lacks URL: %q", err.Error())
	}
}

func TestParseRetryAfter(t *testing.T) {
	at := func(v string) time.Duration {
		resp := &http.Response{Header: http.Header{}}
		if v != "" {
			resp.Header.Set("Retry-After", v)
		}
		return ParseRetryAfter(resp)
	}

	if got := at("30"); got != 30*time.Second {
		t.Errorf("seconds: got %v", got)
	}
	if got := at(time.Now().Add(-time.Minute).UTC().Format(http.TimeFormat)); got != 0 {
		t.Errorf("past date: got %v", got)
	}
	if got := at(time.Now().Add(time.Hour).UTC().Format(http.TimeFormat)); got <= 50*time.Minute {
		t.Errorf("future date: got %v", got)
	}
	if got := at("soon"); got != 0 {
		t.Errorf("garbage: got %v", got)
	}
	if got := at("-5"); got != 0 {
		t.Errorf("negative: got %v", got)
	}
	if got := at(""); got != 0 {
		t.Errorf("missing: got %v", got)
	}
}

func TestBackoff(t *testing.T) {
	steps := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{5, time.Second},
		{64, time.Second},
	}
	for _, s := range steps {
		if got := Backoff(s.attempt, 100*time.Millisecond, time.Second); got != s.want {
			t.Errorf("Backoff(%d) = %v, want %v", s.attempt, got, s.want)
		}
	}
}

func TestSleep(t *testing.T) {
	if err := Sleep(context.Background(), 0); err != nil {
		t.Errorf("zero sleep: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	if err := Sleep(ctx, time.Minute); !errors.Is(err, context.Canceled) {
		t.Errorf("want context.Canceled, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Sleep ignored cancellation")
	}
}
