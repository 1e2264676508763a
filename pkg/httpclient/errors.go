package httpclient

import (
	"fmt"
	"strings"
)

const maxSnippetBytes = 512

// StatusError reports a response outside the 2xx range.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	snippet := Snippet(e.Body)
	if snippet == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: status %d body: %s", e.Method, e.URL, e.StatusCode, snippet)
}

// Snippet trims a response body for logs and error messages.
func Snippet(body []byte) string {
	if len(body) > maxSnippetBytes {
		return strings.TrimSpace(string(body[:maxSnippetBytes])) + "..."
	}
	return strings.TrimSpace(string(body))
}
