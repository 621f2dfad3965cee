// Package render maps stored entry content into client-facing representations.
package render

import (
	"html"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// Mode selects how entry content is returned to clients.
type Mode string

const (
	// ModeHTML returns content exactly as stored.
	ModeHTML Mode = "html"
	// ModePlain strips markup and decodes entities.
	ModePlain Mode = "plain"
	// ModeMarkdown converts stored HTML to Markdown.
	ModeMarkdown Mode = "markdown"
)

// ParseMode maps a query-string value to a Mode, defaulting to HTML.
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "plain":
		return ModePlain
	case "markdown":
		return ModeMarkdown
	default:
		return ModeHTML
	}
}

// Content renders stored content in the requested mode.
func Content(stored string, mode Mode) string {
	switch mode {
	case ModePlain:
		return StripHTML(stored)
	case ModeMarkdown:
		return ToMarkdown(stored)
	default:
		return stored
	}
}

// tagPattern matches any HTML tag, including unclosed attribute lists.
var tagPattern = regexp.MustCompile(`<[^>]*>`)

// StripHTML removes markup from content and decodes HTML entities.
// "<b>Hi &amp; bye</b>" becomes "Hi & bye".
func StripHTML(s string) string {
	if s == "" {
		return ""
	}

	stripped := tagPattern.ReplaceAllString(s, "")
	return strings.TrimSpace(html.UnescapeString(stripped))
}

// htmlTagPattern matches common HTML tags to detect if a string contains HTML.
// Looks for opening tags like <p>, <br>, <div>, <b>, etc.
var htmlTagPattern = regexp.MustCompile(`<(p|br|div|span|b|i|strong|em|a|ul|ol|li|h[1-6]|blockquote)[\s>/]`)

// containsHTML checks if a string appears to contain HTML markup.
func containsHTML(s string) bool {
	return htmlTagPattern.MatchString(strings.ToLower(s))
}

// ToMarkdown converts HTML content to Markdown.
// If the input doesn't contain HTML, it's returned unchanged.
func ToMarkdown(s string) string {
	if s == "" || !containsHTML(s) {
		return s
	}

	markdown, err := htmltomarkdown.ConvertString(s)
	if err != nil {
		// If conversion fails, return the original string
		return s
	}

	return strings.TrimSpace(markdown)
}

// RewriteURL makes a stored relative path absolute against baseURL.
// URLs that already carry a scheme pass through unchanged.
func RewriteURL(baseURL, path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}

	base := strings.TrimRight(baseURL, "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}
