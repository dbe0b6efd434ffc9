package document

import (
	"fmt"
	"net/url"
	"strings"
)

// MinCharsWarningThreshold is the character count below which a document is
// flagged as suspiciously short (possibly a failed extraction).
const MinCharsWarningThreshold = 1000

// blockedHosts are publishers whose paywalled or no-scrape content must not
// be processed. Matching is by registrable suffix of the source URL's host.
var blockedHosts = []string{
	"wsj.com",
	"ft.com",
	"bloomberg.com",
	"economist.com",
	"nytimes.com",
	"washingtonpost.com",
}

// BlockedPublisherError signals that a document's source is a disallowed
// publisher. This is fatal, not a warning.
type BlockedPublisherError struct {
	Host   string
	Source string
}

func (e *BlockedPublisherError) Error() string {
	return fmt.Sprintf("source %s is a blocked publisher (%s)", e.Source, e.Host)
}

// Validate runs the two-stage content check: blocked publisher (hard stop)
// then short-content (warning only). The returned warning is empty when the
// content looks complete.
func Validate(d *Document) (warning string, err error) {
	if host := blockedHost(d.SourcePath); host != "" {
		return "", &BlockedPublisherError{Host: host, Source: d.SourcePath}
	}
	if n := len(d.Content); n < MinCharsWarningThreshold {
		warning = fmt.Sprintf(
			"content of %q is only %d characters; extraction may be incomplete",
			d.Title, n,
		)
	}
	return warning, nil
}

// blockedHost returns the matching blocked host for a URL source, or "".
// Non-URL sources (local files) are never blocked.
func blockedHost(source string) string {
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		return ""
	}
	u, err := url.Parse(source)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	for _, blocked := range blockedHosts {
		if host == blocked || strings.HasSuffix(host, "."+blocked) {
			return blocked
		}
	}
	return ""
}
