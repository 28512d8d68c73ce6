// Package image builds asset URLs for the image CDN.
package image

import (
	"slices"
	"strings"
)

// Image is the resolved asset.
type Image struct {
	URL string `json:"url"`
}

// Provider resolves image sources against a base URL.
type Provider struct {
	// BaseURL is used when GetImage is called without one.
	BaseURL string
	// SiteURL is the last fallback when no base URL is known.
	SiteURL string
}

// NewProvider creates a Provider with the given default base URL and site URL.
func NewProvider(baseURL, siteURL string) *Provider {
	return &Provider{BaseURL: baseURL, SiteURL: siteURL}
}

// GetImage joins src and its transform modifiers onto baseURL, falling back to
// the provider's BaseURL and then its SiteURL.
func (p *Provider) GetImage(src string, modifiers map[string]string, baseURL string) Image {
	if baseURL == "" {
		baseURL = p.BaseURL
	}
	if baseURL == "" {
		baseURL = p.SiteURL
	}

	input := src
	if ops := Operations(modifiers); ops != "" {
		input += "?" + ops
	}

	return Image{URL: JoinURL(baseURL, input)}
}

// Operations renders modifiers as key=value pairs joined by &, sorted by key.
// Modifiers with an empty value are skipped.
func Operations(modifiers map[string]string) string {
	keys := make([]string, 0, len(modifiers))
	for k, v := range modifiers {
		if k != "" && v != "" {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+modifiers[k])
	}
	return strings.Join(parts, "&")
}

// JoinURL joins base and input with exactly one slash between them.
func JoinURL(base, input string) string {
	if base == "" || base == "/" {
		return input
	}
	if input == "" || input == "/" {
		return base
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(input, "/")
}
