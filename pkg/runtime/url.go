package runtime

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateHTTPURL rejects anything that is not an absolute http(s) URL.
func ValidateHTTPURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u == nil {
		return fmt.Errorf("invalid url %q", raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url %q must be http/https", raw)
	}
	if strings.TrimSpace(u.Host) == "" {
		return fmt.Errorf("url %q missing host", raw)
	}
	return nil
}
