package dynbus

import (
	"fmt"
	"strings"
)

// validateObjectPath checks that p is a valid DBus object path: "/",
// or a sequence of "/"-prefixed non-empty elements made of
// [A-Za-z0-9_].
func validateObjectPath(p string) error {
	if p == "" || p[0] != '/' {
		return fmt.Errorf("object path %q must begin with /", p)
	}
	if p == "/" {
		return nil
	}
	if strings.HasSuffix(p, "/") {
		return fmt.Errorf("object path %q must not end with /", p)
	}
	for _, elem := range strings.Split(p[1:], "/") {
		if elem == "" {
			return fmt.Errorf("object path %q has an empty element", p)
		}
		for _, c := range elem {
			if !isPathChar(c) {
				return fmt.Errorf("object path %q has invalid character %q", p, c)
			}
		}
	}
	return nil
}

func isPathChar(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_'
}
