package voice

import (
	"fmt"
	"sort"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys used by the interpreter and the session.
const (
	keyCropSelected = "crop.selected"
	keyCropFacts    = "crop.facts"
	keyCropUnknown  = "crop.unknown"
	keyFallback     = "fallback"
)

func confirmKey(i Intent) string { return "confirm." + string(i) }

// Phrases is the spoken-message catalog for all supported languages.
type Phrases struct {
	cat       catalog.Catalog
	supported []language.Tag
	matcher   language.Matcher
}

// NewPhrases builds a catalog from lang -> key -> format. Languages not in
// Languages are rejected; missing keys fall back to English.
func NewPhrases(table map[string]map[string]string) (*Phrases, error) {
	supported := make([]language.Tag, len(Languages))
	index := make(map[string]language.Tag, len(Languages))
	for i, code := range Languages {
		supported[i] = language.Make(code)
		index[code] = supported[i]
	}

	b := catalog.NewBuilder(catalog.Fallback(language.English))
	codes := make([]string, 0, len(table))
	for code := range table {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		tag, ok := index[code]
		if !ok {
			return nil, fmt.Errorf("unsupported language %q", code)
		}
		for key, msg := range table[code] {
			if err := b.SetString(tag, key, msg); err != nil {
				return nil, fmt.Errorf("failed to add %s/%s: %w", code, key, err)
			}
		}
	}

	return &Phrases{cat: b, supported: supported, matcher: language.NewMatcher(supported)}, nil
}

var (
	phrasesOnce sync.Once
	phrases     *Phrases
	phrasesErr  error
)

// LoadPhrases parses the embedded catalog once.
func LoadPhrases() (*Phrases, error) {
	phrasesOnce.Do(func() {
		var table map[string]map[string]string
		if phrasesErr = readYAML("data/phrases.yaml", &table); phrasesErr != nil {
			return
		}
		phrases, phrasesErr = NewPhrases(table)
	})
	return phrases, phrasesErr
}

// Match picks the supported language closest to the given preferences
// (BCP 47 tags, most preferred first). English is the default.
func (p *Phrases) Match(prefs ...string) language.Tag {
	tags := make([]language.Tag, 0, len(prefs))
	for _, s := range prefs {
		if t, err := language.Parse(s); err == nil {
			tags = append(tags, t)
		}
	}
	if len(tags) == 0 {
		return p.supported[0]
	}
	_, idx, conf := p.matcher.Match(tags...)
	if conf == language.No {
		return p.supported[0]
	}
	return p.supported[idx]
}

// Text renders key in lang.
func (p *Phrases) Text(lang language.Tag, key string, args ...any) string {
	return message.NewPrinter(lang, message.Catalog(p.cat)).Sprintf(key, args...)
}
