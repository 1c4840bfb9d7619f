// Package source implements the provider clients papers are discovered
// through: the arXiv Atom API, the OpenAlex works API, CVF open-access
// proceedings pages, and public subreddit listings.
package source

import (
	"context"
	"strings"
	"time"
)

// browserUserAgent mirrors a desktop browser; arXiv and CVF reject
// obvious bot agents.
const browserUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// pause sleeps for d unless the context ends first. Clients pause after
// each request because consecutive retrieval rounds hit the same
// provider again.
func pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// matchesKeywords reports whether text contains any of the keywords,
// case-insensitively. An empty keyword list matches everything.
func matchesKeywords(text string, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// collapseSpace squeezes runs of whitespace, including the newlines feed
// titles and abstracts arrive with, into single spaces.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
