package vocab

import (
	"log/slog"
)

// Result is the classification of a reply against a pending question.
type Result int

const (
	// Unrelated means the utterance neither affirms nor denies; it should
	// fall through to ordinary intent handling and the pending question
	// stays armed.
	Unrelated Result = iota
	// Affirm means the utterance answers the pending question with yes.
	Affirm
	// Deny means the utterance answers the pending question with no.
	Deny
)

// String returns a human-readable result name.
func (r Result) String() string {
	switch r {
	case Affirm:
		return "affirm"
	case Deny:
		return "deny"
	default:
		return "unrelated"
	}
}

// Classifier decides whether an utterance affirms, denies, or is unrelated
// to a pending yes/no question.  It is a pure wrapper over a Lookup with one
// policy added: when a vocabulary bug makes an utterance match both lists,
// the reply is treated as Unrelated rather than guessing.
type Classifier struct {
	lookup Lookup
}

// NewClassifier returns a Classifier backed by lookup.
func NewClassifier(lookup Lookup) *Classifier {
	return &Classifier{lookup: lookup}
}

// Classify returns the classification of utterance for lang.
func (c *Classifier) Classify(utterance, lang string) Result {
	aff := c.lookup.IsAffirmative(utterance, lang)
	neg := c.lookup.IsNegative(utterance, lang)

	switch {
	case aff && neg:
		slog.Warn("utterance matched both affirmative and negative vocabulary, treating as unrelated",
			"lang", lang)
		return Unrelated
	case aff:
		return Affirm
	case neg:
		return Deny
	default:
		return Unrelated
	}
}
