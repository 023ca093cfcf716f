// Package disambig encodes an editor-selection marker into a URI query.
//
// A caller that wants a resource opened with a particular surface, rather
// than whichever handler scores highest, adds the marker token
// "open-handler=<id>" to the URI's query. The marker never changes the
// resource identity: Decode strips it again, leaving the original URI.
//
// Matching is exact token equality over the "&"-separated raw query, so a
// parameter that merely contains the marker as a substring is left alone.
// Only the raw query is touched; existing parameters keep their order and
// their original escaping.
package disambig

import (
	"net/url"
	"strings"
)

// DefaultID is the surface identifier used by the Default codec.
const DefaultID = "code-editor-ckeditor"

// param is the query key that carries the surface identifier.
const param = "open-handler"

// Codec adds and removes the marker for one surface identifier.
type Codec struct {
	// ID is the surface identifier written after "open-handler=".
	ID string
}

// Default is the codec for DefaultID.
var Default = New(DefaultID)

// New creates a codec for the given surface identifier.
func New(id string) Codec {
	return Codec{ID: id}
}

// Marker returns the exact query token, e.g. "open-handler=code-editor-ckeditor".
func (c Codec) Marker() string {
	return param + "=" + c.ID
}

// Matches reports whether u's query contains the marker token.
func (c Codec) Matches(u *url.URL) bool {
	if u == nil || u.RawQuery == "" {
		return false
	}
	marker := c.Marker()
	for _, p := range strings.Split(u.RawQuery, "&") {
		if p == marker {
			return true
		}
	}
	return false
}

// Encode returns u with the marker prepended to its query.
// If u already carries the marker, u itself is returned.
func (c Codec) Encode(u *url.URL) *url.URL {
	if u == nil || c.Matches(u) {
		return u
	}

	out := clone(u)
	if u.RawQuery == "" {
		out.RawQuery = c.Marker()
	} else {
		out.RawQuery = c.Marker() + "&" + u.RawQuery
	}
	return out
}

// Decode returns u with every marker token removed from its query.
// If u does not carry the marker, u itself is returned. The query is
// cleared when no other parameter remains.
func (c Codec) Decode(u *url.URL) *url.URL {
	if !c.Matches(u) {
		return u
	}

	marker := c.Marker()
	parts := strings.Split(u.RawQuery, "&")
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != marker {
			kept = append(kept, p)
		}
	}

	out := clone(u)
	out.RawQuery = strings.Join(kept, "&")
	return out
}

// MatchesString parses raw and reports whether it carries the marker.
func (c Codec) MatchesString(raw string) (bool, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return false, err
	}
	return c.Matches(u), nil
}

// EncodeString parses raw, encodes it, and returns the string form.
func (c Codec) EncodeString(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	return c.Encode(u).String(), nil
}

// DecodeString parses raw, decodes it, and returns the string form.
func (c Codec) DecodeString(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	return c.Decode(u).String(), nil
}

func clone(u *url.URL) *url.URL {
	out := *u
	return &out
}
