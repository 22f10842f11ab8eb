package backend

import (
	"regexp"
	"strings"
)

// rootRelativeLink matches markdown links and images whose target starts
// with a single "/". Protocol-relative targets ("//host/...") are absolute
// and left alone.
var rootRelativeLink = regexp.MustCompile(`(!?\[[^\]]*\])\((/[^/)][^)]*|/)\)`)

// rewriteRootLinks resolves root-relative markdown links against the docs
// site base URL, so answers copied out of the terminal stay clickable.
// With an empty base the text passes through unchanged.
func rewriteRootLinks(text, base string) string {
	if base == "" {
		return text
	}
	base = strings.TrimRight(base, "/")

	return rootRelativeLink.ReplaceAllStringFunc(text, func(m string) string {
		sub := rootRelativeLink.FindStringSubmatch(m)
		return sub[1] + "(" + base + sub[2] + ")"
	})
}
