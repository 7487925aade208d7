package voice

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// primaryBonus is added to hits in the first (primary) transcript.
const primaryBonus = 0.05

// Hit is the best keyword occurrence found for one vocabulary.
type Hit struct {
	// Name is the canonical crop name or intent.
	Name string
	// Keyword is the normalized keyword that matched.
	Keyword string
	// Candidate is the index of the transcript the keyword was found in;
	// 0 is the primary transcript.
	Candidate  int
	Confidence float64
}

// Match is the result of scanning all candidates.
type Match struct {
	Intent *Hit
	Crop   *Hit
}

// Matcher finds intent and crop keywords in recognizer transcripts.
type Matcher struct {
	dict *Dictionary
}

func NewMatcher(d *Dictionary) *Matcher {
	return &Matcher{dict: d}
}

// Match scans transcript and its alternatives for the best intent and the
// best crop independently. Among hits the winner has the highest
// confidence; ties go to the earlier candidate, then to the entry and
// keyword listed first in the dictionary.
func (m *Matcher) Match(transcript string, alternatives ...string) Match {
	candidates := make([]string, 0, 1+len(alternatives))
	candidates = append(candidates, m.dict.norm.Normalize(transcript))
	for _, a := range alternatives {
		candidates = append(candidates, m.dict.norm.Normalize(a))
	}

	return Match{
		Intent: best(candidates, m.dict.intents),
		Crop:   best(candidates, m.dict.crops),
	}
}

func best(candidates []string, entries []compiled) *Hit {
	var top *Hit
	for ci, text := range candidates {
		total := utf8.RuneCountInString(text)
		if total == 0 {
			continue
		}
		for _, e := range entries {
			for _, kw := range e.keywords {
				if !containsWord(text, kw) {
					continue
				}
				conf := float64(utf8.RuneCountInString(kw)) / float64(total)
				if ci == 0 {
					conf += primaryBonus
				}
				// strictly greater keeps the earlier candidate and entry on ties
				if top == nil || conf > top.Confidence {
					top = &Hit{Name: e.name, Keyword: kw, Candidate: ci, Confidence: conf}
				}
			}
		}
	}
	return top
}

// containsWord reports whether kw occurs in text delimited by non-word
// characters or the ends of text.
func containsWord(text, kw string) bool {
	for off := 0; off <= len(text)-len(kw); {
		i := strings.Index(text[off:], kw)
		if i < 0 {
			return false
		}
		start := off + i
		end := start + len(kw)
		if boundaryBefore(text, start) && boundaryAfter(text, end) {
			return true
		}
		_, size := utf8.DecodeRuneInString(text[start:])
		off = start + size
	}
	return false
}

func boundaryBefore(text string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return !isWordRune(r)
}

func boundaryAfter(text string, i int) bool {
	if i >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return !isWordRune(r)
}

// isWordRune treats combining marks as part of a word so Indic vowel signs
// and viramas never act as boundaries.
func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.In(r, unicode.Mn, unicode.Mc)
}
