package voice

import (
	"embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var dataFS embed.FS

// Languages lists the supported language codes in keyword precedence order.
var Languages = []string{"en", "hi", "bn", "te", "mr", "ta", "gu", "kn", "ml", "pa", "or"}

// Entry is one dictionary row: a canonical name and its per-language keywords.
type Entry struct {
	Name     string              `yaml:"name"`
	Keywords map[string][]string `yaml:"keywords"`
}

// Dictionary holds the crop and intent vocabularies in matching form.
type Dictionary struct {
	crops   []compiled
	intents []compiled
	fillers map[string]struct{}
	norm    *Normalizer
}

type compiled struct {
	name     string
	keywords []string
}

// NewDictionary builds a dictionary from raw entries. Keywords are normalized
// and flattened in Languages order; duplicates within an entry are dropped.
func NewDictionary(crops, intents []Entry, fillers map[string][]string) (*Dictionary, error) {
	fs := make(map[string]struct{})
	plain := NewNormalizer(nil)
	for _, words := range fillers {
		for _, w := range words {
			if n := plain.Normalize(w); n != "" {
				fs[n] = struct{}{}
			}
		}
	}

	c, err := compileEntries(plain, crops)
	if err != nil {
		return nil, fmt.Errorf("crops: %w", err)
	}
	in, err := compileEntries(plain, intents)
	if err != nil {
		return nil, fmt.Errorf("intents: %w", err)
	}
	for _, e := range in {
		if !Intent(e.name).Valid() {
			return nil, fmt.Errorf("intents: unknown intent %q", e.name)
		}
	}

	return &Dictionary{crops: c, intents: in, fillers: fs, norm: NewNormalizer(fs)}, nil
}

func compileEntries(n *Normalizer, entries []Entry) ([]compiled, error) {
	out := make([]compiled, 0, len(entries))
	for _, e := range entries {
		if e.Name == "" {
			return nil, fmt.Errorf("entry without name")
		}
		seen := make(map[string]struct{})
		ce := compiled{name: e.Name}
		for _, lang := range Languages {
			for _, kw := range e.Keywords[lang] {
				k := n.Normalize(kw)
				if k == "" {
					continue
				}
				if _, dup := seen[k]; dup {
					continue
				}
				seen[k] = struct{}{}
				ce.keywords = append(ce.keywords, k)
			}
		}
		if len(ce.keywords) == 0 {
			return nil, fmt.Errorf("entry %q has no keywords", e.Name)
		}
		out = append(out, ce)
	}
	return out, nil
}

var (
	defaultOnce sync.Once
	defaultDict *Dictionary
	defaultErr  error
)

// LoadDictionary parses the embedded vocabularies once.
func LoadDictionary() (*Dictionary, error) {
	defaultOnce.Do(func() {
		defaultDict, defaultErr = loadEmbedded()
	})
	return defaultDict, defaultErr
}

func loadEmbedded() (*Dictionary, error) {
	var crops, intents []Entry
	var fillers map[string][]string

	if err := readYAML("data/crops.yaml", &crops); err != nil {
		return nil, err
	}
	if err := readYAML("data/intents.yaml", &intents); err != nil {
		return nil, err
	}
	if err := readYAML("data/fillers.yaml", &fillers); err != nil {
		return nil, err
	}
	return NewDictionary(crops, intents, fillers)
}

func readYAML(name string, v any) error {
	b, err := dataFS.ReadFile(name)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := yaml.Unmarshal(b, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return nil
}
