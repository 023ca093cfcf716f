// Package opener decides when a URI opens in the rendered view and opens it.
//
// A host asks every registered handler how well it can open a URI and
// picks the highest score. Scorer computes this handler's score relative to
// the plain text editor's, and Handler opens the binding, registers the
// commands and supplies the toolbar items.
package opener

import (
	"net/url"

	"github.com/dshills/richview/internal/disambig"
)

// Score is a handler priority. Zero means the handler cannot open the URI.
type Score float64

// SoleHandlerScore is returned when no text editor can open the URI.
const SoleHandlerScore Score = 200

// Scorer computes this handler's priority for a URI.
type Scorer struct {
	// Codec recognizes URIs that explicitly ask for this handler.
	Codec disambig.Codec

	// Accepts vetoes URIs. Nil accepts everything.
	Accepts Predicate

	// OpenByDefault makes this handler beat the text editor for plain URIs.
	OpenByDefault bool

	// SoleHandler is the score when base is zero. Zero means SoleHandlerScore.
	SoleHandler Score
}

// NewScorer returns a scorer using the default codec.
func NewScorer() *Scorer {
	return &Scorer{Codec: disambig.Default}
}

// Score returns the priority for u given base, the text editor's priority.
//
// A rejected URI scores 0. Without a competing editor the score is
// SoleHandler. A URI carrying the marker doubles base, and so does any
// URI when OpenByDefault is set; otherwise base is halved.
func (s *Scorer) Score(u *url.URL, base Score) Score {
	if s.Accepts != nil && !s.Accepts(u) {
		return 0
	}
	if base == 0 {
		if s.SoleHandler != 0 {
			return s.SoleHandler
		}
		return SoleHandlerScore
	}
	if s.Codec.Matches(u) || s.OpenByDefault {
		return base * 2
	}
	return base * 0.5
}
