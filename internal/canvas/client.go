package canvas

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"syllabus-audit/internal/httpx"
)

const (
	acceptJSON = "application/json"
	perPage    = 100
)

// TokenSource yields the API key for each request. A credential that
// expires mid-run fails the next call instead of being silently reused.
type TokenSource interface {
	Key() (string, error)
}

// StaticToken is a TokenSource that never expires.
type StaticToken string

func (t StaticToken) Key() (string, error) { return string(t), nil }

type Client struct {
	BaseURL string
	Auth    TokenSource
	HTTP    *http.Client
	Limiter *rate.Limiter
	Retry   httpx.RetryConfig
}

// New builds a client for a Canvas instance. baseURL may be the bare host
// ("https://school.instructure.com") or already include /api/v1.
// requestsPerSecond <= 0 disables client-side throttling.
func New(baseURL string, auth TokenSource, requestsPerSecond float64) *Client {
	tr := &http.Transport{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	c := &Client{
		BaseURL: normalizeBaseURL(baseURL),
		Auth:    auth,
		HTTP: &http.Client{
			Timeout:   2 * time.Minute,
			Transport: tr,
		},
		Retry: httpx.DefaultRetryConfig(),
	}
	if requestsPerSecond > 0 {
		c.Limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 5)
	}
	return c
}

func normalizeBaseURL(base string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" || strings.HasSuffix(base, "/api/v1") {
		return base
	}
	return base + "/api/v1"
}

// GetCourse fetches one course. include values map to include[] parameters,
// e.g. "syllabus_body".
func (c *Client) GetCourse(ctx context.Context, courseID int64, include ...string) (Course, error) {
	q := url.Values{}
	for _, inc := range include {
		q.Add("include[]", inc)
	}

	var out Course
	if _, err := c.getJSON(ctx, c.endpoint(fmt.Sprintf("/courses/%d", courseID), q), &out, c.Retry); err != nil {
		return Course{}, fmt.Errorf("canvas: get course %d: %w", courseID, err)
	}
	return out, nil
}

// ListCourses returns every course under an account matching q, following
// pagination. Order is whatever Canvas returns.
func (c *Client) ListCourses(ctx context.Context, accountID int64, q CourseQuery) ([]Course, error) {
	v := url.Values{}
	if q.EnrollmentTermID != 0 {
		v.Set("enrollment_term_id", strconv.FormatInt(q.EnrollmentTermID, 10))
	}
	if q.WithEnrollments {
		v.Set("with_enrollments", "true")
	}

	courses, err := listAll(ctx, c, c.endpoint(fmt.Sprintf("/accounts/%d/courses", accountID), v), decodeSlice[Course])
	if err != nil {
		return courses, fmt.Errorf("canvas: list courses for account %d: %w", accountID, err)
	}
	return courses, nil
}

// ListEnrollmentTerms returns all terms defined on a (root) account.
func (c *Client) ListEnrollmentTerms(ctx context.Context, accountID int64) ([]Term, error) {
	terms, err := listAll(ctx, c, c.endpoint(fmt.Sprintf("/accounts/%d/terms", accountID), nil), func(b []byte) ([]Term, error) {
		var page termsPage
		if err := json.Unmarshal(b, &page); err != nil {
			return nil, err
		}
		return page.EnrollmentTerms, nil
	})
	if err != nil {
		return terms, fmt.Errorf("canvas: list terms for account %d: %w", accountID, err)
	}
	return terms, nil
}

// ListCourseUsers lists users enrolled in a course with the given
// enrollment type ("teacher", "student", ...). Empty type means everyone.
func (c *Client) ListCourseUsers(ctx context.Context, courseID int64, enrollmentType string) ([]User, error) {
	v := url.Values{}
	if enrollmentType != "" {
		v.Add("enrollment_type[]", enrollmentType)
	}
	v.Add("include[]", "email")

	users, err := listAll(ctx, c, c.endpoint(fmt.Sprintf("/courses/%d/users", courseID), v), decodeSlice[User])
	if err != nil {
		return users, fmt.Errorf("canvas: list users for course %d: %w", courseID, err)
	}
	return users, nil
}

// GetFile fetches file metadata (content type and download URL).
func (c *Client) GetFile(ctx context.Context, fileID int64) (File, error) {
	var out File
	if _, err := c.getJSON(ctx, c.endpoint(fmt.Sprintf("/files/%d", fileID), nil), &out, c.Retry); err != nil {
		return File{}, fmt.Errorf("canvas: get file %d: %w", fileID, err)
	}
	return out, nil
}

// DownloadFile fetches the file payload with a single attempt; transient
// failures surface to the caller unchanged so it can decide to retry.
func (c *Client) DownloadFile(ctx context.Context, f File) ([]byte, error) {
	if f.URL == "" {
		return nil, fmt.Errorf("canvas: file %d has no download url", f.ID)
	}
	_, body, err := httpx.DoWithRetry(ctx, c.HTTP, func(ctx context.Context) (*http.Request, error) {
		return c.newRequest(ctx, f.URL, "*/*")
	}, httpx.SingleAttempt())
	if err != nil {
		return nil, fmt.Errorf("canvas: download file %d: %w", f.ID, err)
	}
	return body, nil
}

func (c *Client) endpoint(path string, q url.Values) string {
	u := c.BaseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

func (c *Client) newRequest(ctx context.Context, rawURL, accept string) (*http.Request, error) {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	if c.Auth == nil {
		return nil, errors.New("canvas: no credential configured")
	}
	key, err := c.Auth.Key()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuth, err)
	}

	r, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	r.Header.Set("Accept", accept)
	r.Header.Set("Authorization", "Bearer "+key)
	return r, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any, cfg httpx.RetryConfig) (*http.Response, error) {
	return httpx.DoJSONResponse(ctx, c.HTTP, func(ctx context.Context) (*http.Request, error) {
		return c.newRequest(ctx, rawURL, acceptJSON)
	}, out, cfg)
}

func decodeSlice[T any](b []byte) ([]T, error) {
	var out []T
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// listAll walks Link rel="next" pages. Whatever was collected before a
// failing page is returned alongside the error.
func listAll[T any](ctx context.Context, c *Client, first string, decode func([]byte) ([]T, error)) ([]T, error) {
	var all []T

	next, err := withPerPage(first)
	if err != nil {
		return nil, err
	}

	for page := 1; next != ""; page++ {
		pageURL := next
		resp, body, err := httpx.DoWithRetry(ctx, c.HTTP, func(ctx context.Context) (*http.Request, error) {
			return c.newRequest(ctx, pageURL, acceptJSON)
		}, c.Retry)
		if err != nil {
			return all, fmt.Errorf("page %d: %w", page, err)
		}

		items, err := decode(body)
		if err != nil {
			return all, fmt.Errorf("page %d: json parse error: %w", page, err)
		}
		all = append(all, items...)

		next = httpx.NextLink(resp.Header)
	}
	return all, nil
}

func withPerPage(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("canvas: invalid url %q: %w", raw, err)
	}
	q := u.Query()
	if q.Get("per_page") == "" {
		q.Set("per_page", strconv.Itoa(perPage))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
