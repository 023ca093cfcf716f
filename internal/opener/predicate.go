package opener

import (
	"net/url"
	"path"
	"strings"
)

// Predicate reports whether a URI may be opened by the handler.
type Predicate func(u *url.URL) bool

// AcceptAll accepts every URI.
func AcceptAll(*url.URL) bool {
	return true
}

// ExtensionPredicate accepts URIs whose path ends in one of exts.
// Extensions match case-insensitively, with or without the leading dot.
// With no extensions every URI is accepted.
func ExtensionPredicate(exts ...string) Predicate {
	if len(exts) == 0 {
		return AcceptAll
	}

	allowed := make(map[string]bool, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allowed[ext] = true
	}

	return func(u *url.URL) bool {
		return allowed[strings.ToLower(path.Ext(u.Path))]
	}
}

// All accepts a URI only when every non-nil predicate does.
func All(preds ...Predicate) Predicate {
	return func(u *url.URL) bool {
		for _, p := range preds {
			if p != nil && !p(u) {
				return false
			}
		}
		return true
	}
}
