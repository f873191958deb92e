package fetch

import (
	"context"
	"fmt"
	"io"

	"github.com/jzx17/robustfetch/pkg/types"
)

// PageOperation fetches a page into memory and returns its text
type PageOperation struct {
	*Base
	opener Opener
}

// NewPageOperation creates a page operation
func NewPageOperation(opener Opener, locator string, opts ...Option) *PageOperation {
	return &PageOperation{
		Base:   NewBase(locator, opts...),
		opener: opener,
	}
}

// Attempt fetches the page once
func (o *PageOperation) Attempt(ctx context.Context) (string, error) {
	resp, err := openOK(ctx, o.opener, o.Locator())
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read page: %w", err)
	}

	return string(body), nil
}

// openOK opens locator and turns every non-2xx response into a StatusError
func openOK(ctx context.Context, opener Opener, locator string) (*Response, error) {
	resp, err := opener.Open(ctx, locator)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		drain(resp.Body)
		return nil, types.NewStatusError(resp.StatusCode, locator)
	}

	return resp, nil
}
