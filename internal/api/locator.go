package api

import (
	"fmt"
	"net/url"
	"strings"
)

// Locator resolves resource paths returned by the backend into absolute URLs.
type Locator struct {
	base   string // API base, e.g. http://localhost:8000/api
	origin string // scheme://host of base
}

// NewLocator builds a Locator for an absolute API base URL.
func NewLocator(base string) (Locator, error) {
	u, err := url.Parse(base)
	if err != nil {
		return Locator{}, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return Locator{}, fmt.Errorf("base url must be absolute: %q", base)
	}
	return Locator{
		base:   strings.TrimRight(base, "/"),
		origin: u.Scheme + "://" + u.Host,
	}, nil
}

// Resolve returns path unchanged when it is already absolute. Rooted paths
// ("/api/jobs/...") resolve against the base URL's origin, anything else
// against the base URL itself.
func (l Locator) Resolve(path string) string {
	if strings.HasPrefix(path, "http") {
		return path
	}
	if strings.HasPrefix(path, "/") {
		return l.origin + path
	}
	return l.base + "/" + path
}

// Endpoint returns the absolute URL of an API route such as "/jobs/x/status".
func (l Locator) Endpoint(route string) string {
	return l.base + "/" + strings.TrimLeft(route, "/")
}
