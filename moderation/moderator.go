// Package moderation masks forbidden words in message content before the
// engine sequences it. Matching runs on a normalized view of the text
// (lowercased, leet-speak folded, punctuation stripped) so obfuscated
// spellings are still caught, while the replacement preserves the
// original spacing and punctuation.
package moderation

import (
	"log/slog"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"

	"term-chatroom/errors"
)

type Moderator struct {
	machine     *goahocorasick.Machine
	replacement rune
	log         *slog.Logger
}

// NewModerator builds the Aho-Corasick automaton over the normalized
// word list. Words that normalize to nothing (pure punctuation) are
// dropped; an empty effective list is an error so callers can decide to
// run without moderation instead of with a useless automaton.
func NewModerator(words []string, replacement rune, log *slog.Logger) (*Moderator, error) {
	var patterns [][]rune
	for _, word := range words {
		normalized := normalize([]rune(word))
		if len(normalized) == 0 {
			continue
		}
		patterns = append(patterns, normalized)
	}
	if len(patterns) == 0 {
		return nil, errors.ErrEmptyWords
	}

	machine := new(goahocorasick.Machine)
	if err := machine.Build(patterns); err != nil {
		return nil, err
	}
	return &Moderator{machine: machine, replacement: replacement, log: log}, nil
}

// Censor replaces every matched span with the replacement rune and
// returns the censored content plus the normalized words that matched.
func (m *Moderator) Censor(content string) (string, []string) {
	original := []rune(content)
	normalized, originIdx := project(original)
	if len(normalized) == 0 {
		return content, nil
	}

	spans := m.machine.MultiPatternSearch(normalized, false)
	if len(spans) == 0 {
		return content, nil
	}

	var matched []string
	for _, span := range spans {
		start := span.Pos
		end := start + len(span.Word)
		if start < 0 || end > len(originIdx) {
			continue
		}
		matched = append(matched, string(span.Word))

		// Mask every original rune between the first and last rune that
		// contributed to the normalized match, noise included.
		for i := originIdx[start]; i <= originIdx[end-1]; i++ {
			original[i] = m.replacement
		}
	}
	return string(original), matched
}

// project builds the normalized rune slice plus, for each normalized
// rune, the index of the original rune it came from.
func project(original []rune) ([]rune, []int) {
	normalized := make([]rune, 0, len(original))
	originIdx := make([]int, 0, len(original))
	for i, r := range original {
		folded := foldLeet(r)
		if isNoise(folded) {
			continue
		}
		normalized = append(normalized, unicode.ToLower(folded))
		originIdx = append(originIdx, i)
	}
	return normalized, originIdx
}

func normalize(input []rune) []rune {
	out, _ := project(input)
	return out
}

// foldLeet maps common leet-speak characters back to their alphabet
// counterparts so B.4.d.g.3.r still matches badger.
func foldLeet(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}

func isNoise(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}
