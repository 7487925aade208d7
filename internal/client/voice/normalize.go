package voice

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Normalizer brings transcripts and keywords to a comparable form.
// It is safe for concurrent use; the transform chain is built per call.
type Normalizer struct {
	fillers map[string]struct{}
}

// NewNormalizer returns a normalizer that drops the given filler tokens.
// Filler tokens must already be normalized.
func NewNormalizer(fillers map[string]struct{}) *Normalizer {
	return &Normalizer{fillers: fillers}
}

func separator(r rune) rune {
	if unicode.IsPunct(r) || unicode.IsSymbol(r) {
		return ' '
	}
	return r
}

func chain() transform.Transformer {
	return transform.Chain(
		norm.NFC,
		runes.Remove(runes.In(unicode.Cf)),
		width.Fold,
		cases.Fold(),
		runes.Map(separator),
		norm.NFC,
	)
}

// Normalize applies NFC, case and width folding, strips format characters,
// turns punctuation into spaces, drops fillers and collapses whitespace.
func (n *Normalizer) Normalize(s string) string {
	out, _, err := transform.String(chain(), s)
	if err != nil {
		out = strings.ToLower(s)
	}

	fields := strings.Fields(out)
	kept := fields[:0]
	for _, f := range fields {
		if _, filler := n.fillers[f]; filler {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}
