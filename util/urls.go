package util

import (
	"net/url"
	"strings"
)

// MakeUrl joins url parts with exactly one slash between them. Empty parts
// are skipped.
func MakeUrl(parts ...string) string {
	res := ""
	for i, p := range parts {
		if p == "" {
			continue
		}
		if p[len(p)-1:] == "/" {
			p = p[:len(p)-1]
		}
		if p == "" {
			continue
		}
		if p[0] != '/' && i > 0 && res != "" {
			res += "/" + p
		} else {
			res += p
		}
	}
	return res
}

// EscapePath escapes every segment of a slash separated path.
func EscapePath(p string) string {
	segments := strings.Split(p, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
