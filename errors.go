package reagentcrawler

import (
	"errors"
	"fmt"
)

var (
	ErrNavigation         = errors.New("navigation failed")
	ErrSelectorTimeout    = errors.New("selector timeout")
	ErrInteraction        = errors.New("interaction failed")
	ErrIdentityExhaustion = errors.New("identity provider exhausted")
	ErrCrawlLimitReached  = errors.New("crawl limit reached")
	ErrDisallowed         = errors.New("disallowed by robots.txt")
)

// NavigationError describes a failed top-level page load. StatusCode is zero
// when the failure happened before a response arrived.
type NavigationError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *NavigationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("navigation to %s failed with status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("navigation to %s failed: %v", e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

func (e *NavigationError) Is(target error) bool { return target == ErrNavigation }

// Retryable reports whether the response status is one of the configured retry codes.
func (e *NavigationError) Retryable(codes []int) bool {
	return e.StatusCode != 0 && inArray(codes, e.StatusCode)
}

func newNavigationError(url string, status int, err error) *NavigationError {
	return &NavigationError{URL: url, StatusCode: status, Err: err}
}
