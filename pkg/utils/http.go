// Package utils provides common utility functions.
package utils

import (
	"net/http"
	"net/url"
)

// DefaultUserAgent identifies the exporter to the API.
const DefaultUserAgent = "notiontable/1.0"

// HTTPHelper provides HTTP utility functions.
type HTTPHelper struct {
	userAgent string
}

// NewHTTPHelper creates a new HTTP helper.
func NewHTTPHelper() *HTTPHelper {
	return &HTTPHelper{userAgent: DefaultUserAgent}
}

// IsValidURL reports whether raw is an absolute http or https URL with a host.
func (h *HTTPHelper) IsValidURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}

	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// BuildHeaders creates JSON API request headers. Custom headers override the defaults.
func (h *HTTPHelper) BuildHeaders(customHeaders map[string]string) http.Header {
	headers := http.Header{}

	headers.Set("User-Agent", h.userAgent)
	headers.Set("Accept", "application/json")
	headers.Set("Content-Type", "application/json")

	for key, value := range customHeaders {
		headers.Set(key, value)
	}

	return headers
}

// BearerHeaders returns the headers for a bearer-authenticated, versioned API call.
func (h *HTTPHelper) BearerHeaders(token, version string) http.Header {
	custom := map[string]string{
		"Authorization": "Bearer " + token,
	}

	if version != "" {
		custom["Notion-Version"] = version
	}

	return h.BuildHeaders(custom)
}
