package einvoice

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
)

type tinKey struct{}
type forceAuthKey struct{}

// Context attaches the taxpayer identification number of the caller.
func Context(ctx context.Context, tin string) context.Context {
	return context.WithValue(ctx, tinKey{}, tin)
}

// ContextWithForceAuth makes the authentication client ignore cached tokens.
func ContextWithForceAuth(ctx context.Context) context.Context {
	return context.WithValue(ctx, forceAuthKey{}, true)
}

func TinFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(tinKey{}).(string)
	return v, ok && v != ""
}

func IsForceAuth(ctx context.Context) bool {
	v, ok := ctx.Value(forceAuthKey{}).(bool)
	return ok && v
}

var (
	ErrMissingCredentials    = errors.New("missing taxpayer credentials")
	ErrAuthRejected          = errors.New("authentication rejected by tax service")
	ErrTokenExtractionFailed = errors.New("no token in authentication response")
	// ErrAuthExpired 401/403 from a downstream call, caller has to log in again
	ErrAuthExpired       = errors.New("tax service token expired")
	ErrUpstreamTransport = errors.New("tax service transport error")
	ErrUpstreamStatus    = errors.New("tax service returned error status")
)

// AuthError status reported by the legacy login endpoint.
type AuthError struct {
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("tax service rejected login with code %s: %s", e.Code, e.Message)
}

func (e *AuthError) Unwrap() error {
	return ErrAuthRejected
}

// NeedsReauth reports whether err can be recovered by logging in again.
func NeedsReauth(err error) bool {
	return errors.Is(err, ErrAuthExpired)
}

type Credentials struct {
	Tin      string
	Username string
	Password string
}

func (c Credentials) Validate() error {
	if c.Tin == "" || c.Username == "" || c.Password == "" {
		return ErrMissingCredentials
	}
	return nil
}
