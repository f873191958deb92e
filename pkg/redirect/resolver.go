package redirect

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/jzx17/robustfetch/pkg/fetch"
	"github.com/jzx17/robustfetch/pkg/types"
)

// ErrNoLocation indicates a 301 response without a Location header
var ErrNoLocation = errors.New("redirect has no location")

// Resolver follows a single 301 by hand and returns the repaired target
type Resolver struct {
	opener fetch.Opener
}

// NewResolver creates a resolver. The opener must not follow redirects;
// a nil opener gets a transport with redirect following disabled.
func NewResolver(opener fetch.Opener) *Resolver {
	if opener == nil {
		config := fetch.DefaultTransportConfig()
		config.FollowRedirects = false
		opener = fetch.NewTransport(config)
	}
	return &Resolver{opener: opener}
}

// Resolve requests locator, requires a 301 response and returns its
// Location header passed through Normalize. A relative target is resolved
// against locator.
func (r *Resolver) Resolve(ctx context.Context, locator string) (string, error) {
	resp, err := r.opener.Open(ctx, locator)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", locator, err)
	}
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusMovedPermanently {
		return "", fmt.Errorf("resolve %s: %w: received %d, want %d",
			locator, types.ErrUnexpectedStatus, resp.StatusCode, http.StatusMovedPermanently)
	}

	if resp.Location == "" {
		return "", fmt.Errorf("resolve %s: %w", locator, ErrNoLocation)
	}

	return resolveReference(locator, Normalize(resp.Location)), nil
}

// resolveReference makes target absolute; absolute or unparsable targets
// are returned as is
func resolveReference(locator, target string) string {
	ref, err := url.Parse(target)
	if err != nil || ref.IsAbs() {
		return target
	}
	base, err := url.Parse(locator)
	if err != nil {
		return target
	}
	return base.ResolveReference(ref).String()
}

// Repair implements the retry driver's locator repair hook
func (r *Resolver) Repair(ctx context.Context, locator string) (string, error) {
	return r.Resolve(ctx, locator)
}
