// Package opener hands external URLs to the desktop's default browser.
package opener

import (
	"context"
	"fmt"
	"net/url"

	"github.com/pkg/browser"
)

// Browser opens URLs with the system URL handler (xdg-open, open, or
// rundll32 depending on the platform).
type Browser struct {
	// open is swapped in tests.
	open func(string) error
}

// NewBrowser returns an opener backed by the system browser.
func NewBrowser() *Browser {
	return &Browser{open: browser.OpenURL}
}

// OpenURL opens rawURL. Only absolute http and https URLs are accepted.
func (b *Browser) OpenURL(ctx context.Context, rawURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("opener: parse %q: %w", rawURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("opener: refusing to open %q", rawURL)
	}
	if err := b.open(u.String()); err != nil {
		return fmt.Errorf("opener: %w", err)
	}
	return nil
}
