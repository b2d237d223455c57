// Package credential stores the Canvas API endpoint and key outside the
// project tree, in an INI file with an expiration date. The key is only
// handed out while the expiration date is still in the future.
package credential

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"gopkg.in/ini.v1"
)

const (
	section = "CANVAS_API"

	keyURL        = "API_URL"
	keyAPIKey     = "API_KEY"
	keyUser       = "User"
	keyExpiration = "Expiration Date"
)

var (
	// ErrConfigRead matches every *ConfigReadError.
	ErrConfigRead = errors.New("credential: cannot read config file")
	// ErrExpiredCredential is returned by Key once the expiration date is reached.
	ErrExpiredCredential = errors.New("credential: the key is expired")
)

// ConfigReadError reports a missing or unparseable credential file.
type ConfigReadError struct {
	Path string
	Err  error
}

func (e *ConfigReadError) Error() string {
	return fmt.Sprintf("credential: read %s: %v", e.Path, e.Err)
}

func (e *ConfigReadError) Unwrap() error { return e.Err }

func (e *ConfigReadError) Is(target error) bool { return target == ErrConfigRead }

// Credential is one Canvas API key and where it is valid.
type Credential struct {
	APIURL     string
	APIKey     string
	Owner      string
	Expiration string

	// now is the clock used by Key; nil means time.Now.
	now func() time.Time
}

// DefaultPath is the per-user location of the key file.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "CanvasAPI", "canvas_api_key.ini")
}

// New builds a credential in memory, e.g. before saving it.
func New(apiURL, apiKey, owner, expiration string) *Credential {
	return &Credential{APIURL: apiURL, APIKey: apiKey, Owner: owner, Expiration: expiration}
}

// Load reads the credential file at path.
func Load(path string) (*Credential, error) {
	f, err := ini.LoadSources(ini.LoadOptions{InsensitiveKeys: true}, path)
	if err != nil {
		return nil, &ConfigReadError{Path: path, Err: err}
	}
	sec, err := f.GetSection(section)
	if err != nil {
		return nil, &ConfigReadError{Path: path, Err: err}
	}

	c := &Credential{
		APIURL:     sec.Key(strings.ToLower(keyURL)).String(),
		APIKey:     sec.Key(strings.ToLower(keyAPIKey)).String(),
		Owner:      sec.Key(strings.ToLower(keyUser)).String(),
		Expiration: sec.Key(strings.ToLower(keyExpiration)).String(),
	}
	if c.APIKey == "" {
		return nil, &ConfigReadError{Path: path, Err: fmt.Errorf("section %s has no %s", section, keyAPIKey)}
	}
	return c, nil
}

// Save writes c to path, replacing whatever was there.
func Save(path string, c *Credential) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("credential: create dir: %w", err)
	}

	f := ini.Empty()
	sec, err := f.NewSection(section)
	if err != nil {
		return fmt.Errorf("credential: %w", err)
	}
	for _, kv := range [][2]string{
		{keyURL, c.APIURL},
		{keyAPIKey, c.APIKey},
		{keyUser, c.Owner},
		{keyExpiration, c.Expiration},
	} {
		if _, err := sec.NewKey(kv[0], kv[1]); err != nil {
			return fmt.Errorf("credential: set %s: %w", kv[0], err)
		}
	}

	out, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("credential: open %s: %w", path, err)
	}
	if _, err := f.WriteTo(out); err != nil {
		out.Close()
		return fmt.Errorf("credential: write %s: %w", path, err)
	}
	return out.Close()
}

// URL returns the stored API endpoint as-is.
func (c *Credential) URL() string { return c.APIURL }

// Key returns the API key if today is before the expiration date.
func (c *Credential) Key() (string, error) {
	now := time.Now
	if c.now != nil {
		now = c.now
	}
	return c.KeyAt(now())
}

// KeyAt is Key evaluated at an explicit instant. Only the calendar date of
// now counts: a key expiring on 2025-06-01 is rejected for all of that day.
func (c *Credential) KeyAt(now time.Time) (string, error) {
	exp, err := c.ExpiresAt()
	if err != nil {
		return "", err
	}
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, exp.Location())
	if !today.Before(exp) {
		return "", fmt.Errorf("%w (expired %s)", ErrExpiredCredential, c.Expiration)
	}
	return c.APIKey, nil
}

// ExpiresAt parses the free-form expiration date in local time.
func (c *Credential) ExpiresAt() (time.Time, error) {
	s := strings.TrimSpace(c.Expiration)
	if s == "" {
		return time.Time{}, errors.New("credential: no expiration date")
	}
	t, err := dateparse.ParseIn(s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("credential: parse expiration %q: %w", s, err)
	}
	return t, nil
}
