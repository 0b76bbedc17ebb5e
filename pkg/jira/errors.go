package jira

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/mattn/go-runewidth"
)

// APIError is a non-2xx response. Jira reports failures as a list of
// messages plus per-field errors.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Messages   []string          `json:"errorMessages"`
	Fields     map[string]string `json:"errors"`
	Body       string            // raw body when it was not JSON
}

func (e *APIError) Error() string {
	var details []string
	details = append(details, e.Messages...)
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		details = append(details, k+": "+e.Fields[k])
	}
	if len(details) == 0 && e.Body != "" {
		details = append(details, e.Body)
	}

	msg := fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
	if len(details) > 0 {
		msg += ": " + strings.Join(details, "; ")
	}
	return msg
}

// maxErrorBody bounds the raw body kept in an APIError.
const maxErrorBody = 200

func newAPIError(method, path string, status int, body []byte) *APIError {
	apiErr := &APIError{}
	if err := json.Unmarshal(body, apiErr); err != nil {
		apiErr = &APIError{Body: truncate(strings.TrimSpace(string(body)), maxErrorBody)}
	}
	apiErr.StatusCode = status
	apiErr.Method = method
	apiErr.Path = path
	return apiErr
}

// IsUnauthorized reports whether err is a 401 or 403 from Jira.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
}

// truncate cuts s to n cells, never inside a rune.
func truncate(s string, n int) string {
	return runewidth.Truncate(s, n, "...")
}
