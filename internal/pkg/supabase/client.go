package supabase

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/supabase-community/gotrue-go"
)

// ErrInvalidCredentials is returned when GoTrue rejects an email/password pair.
var ErrInvalidCredentials = errors.New("invalid credentials")

// gotrue-go reports non-2xx answers only through the error text.
var statusPattern = regexp.MustCompile(`response status code (\d+)`)

// Client checks credentials against a Supabase project's GoTrue service.
type Client struct {
	auth gotrue.Client
}

// extractProjectRef extracts just the project reference ID from a Supabase URL
// From: akrqbuajqkirdekonpzy.supabase.co
// To: akrqbuajqkirdekonpzy
func extractProjectRef(url string) string {
	url = strings.TrimPrefix(url, "https://")
	url = strings.TrimPrefix(url, "http://")

	parts := strings.Split(url, ".")
	return parts[0]
}

// NewClient builds a client for the project behind supabaseURL.
func NewClient(supabaseURL, serviceKey string) *Client {
	projectRef := extractProjectRef(supabaseURL)
	slog.Info("Initializing Supabase client", "project", projectRef)

	return &Client{auth: gotrue.New(projectRef, serviceKey)}
}

// NewClientWithURL targets a self-hosted or local GoTrue endpoint.
func NewClientWithURL(gotrueURL, serviceKey string) *Client {
	return &Client{auth: gotrue.New("", serviceKey).WithCustomGoTrueURL(gotrueURL)}
}

// Ping verifies the GoTrue service is reachable.
func (c *Client) Ping() error {
	if _, err := c.auth.GetSettings(); err != nil {
		return fmt.Errorf("failed to connect to Supabase: %w", err)
	}
	return nil
}

// ValidateCredentials signs in with email and password. A 400 or 401 from
// GoTrue is reported as ErrInvalidCredentials; transport failures and other
// statuses are returned as plain errors.
func (c *Client) ValidateCredentials(email, password string) error {
	res, err := c.auth.SignInWithEmailPassword(email, password)
	if err != nil {
		if rejected(err) {
			return fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
		}
		return fmt.Errorf("supabase sign-in failed: %w", err)
	}
	if res == nil || res.AccessToken == "" {
		return ErrInvalidCredentials
	}
	return nil
}

func rejected(err error) bool {
	m := statusPattern.FindStringSubmatch(err.Error())
	if m == nil {
		return false
	}
	code, _ := strconv.Atoi(m[1])
	return code == http.StatusBadRequest || code == http.StatusUnauthorized
}
