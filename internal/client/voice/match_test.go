package voice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadDict(t *testing.T) *Dictionary {
	t.Helper()
	d, err := LoadDictionary()
	require.NoError(t, err)
	return d
}

func TestResolve_Examples(t *testing.T) {
	m := NewMatcher(loadDict(t))

	tests := []struct {
		name         string
		transcript   string
		alternatives []string
		want         Outcome
	}{
		{
			name:       "hindi crop only",
			transcript: "चावल",
			want:       CropInfoOutcome{Crop: "rice", Said: "चावल"},
		},
		{
			name:       "intent with crop",
			transcript: "rice fertilizer",
			want:       IntentOutcome{Intent: IntentFertilizer, Crop: "rice", Said: "rice"},
		},
		{
			name:       "nothing matches",
			transcript: "xyz abc",
			want:       FallbackOutcome{Transcript: "xyz abc"},
		},
		{
			name:       "price is not rice",
			transcript: "onion price",
			want:       IntentOutcome{Intent: IntentMarket, Crop: "onion", Said: "onion"},
		},
		{
			name:         "alternative rescues the primary",
			transcript:   "what",
			alternatives: []string{"wheat"},
			want:         CropInfoOutcome{Crop: "wheat", Said: "wheat"},
		},
		{
			name:       "fillers and punctuation",
			transcript: "Um, please... WEATHER?",
			want:       IntentOutcome{Intent: IntentWeather},
		},
		{
			name:       "hindi wheat fertilizer",
			transcript: "गेहूं की खाद",
			want:       IntentOutcome{Intent: IntentFertilizer, Crop: "wheat", Said: "गेहूं"},
		},
		{
			name:       "tamil paddy fertilizer",
			transcript: "நெல் உரம்",
			want:       IntentOutcome{Intent: IntentFertilizer, Crop: "rice", Said: "நெல்"},
		},
		{
			name:       "punjabi paddy market",
			transcript: "ਝੋਨਾ ਮੰਡੀ",
			want:       IntentOutcome{Intent: IntentMarket, Crop: "rice", Said: "ਝੋਨਾ"},
		},
		{
			name:       "bengali rain",
			transcript: "আজ বৃষ্টি হবে?",
			want:       IntentOutcome{Intent: IntentWeather},
		},
		{
			name:       "romanized hindi",
			transcript: "gehun ka mausam",
			want:       IntentOutcome{Intent: IntentWeather, Crop: "wheat", Said: "gehun"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(m.Match(tt.transcript, tt.alternatives...), tt.transcript)
			assert.Equal(t, tt.want, got)
		})
	}
}

func tieDict(t *testing.T) *Dictionary {
	t.Helper()
	d, err := NewDictionary(
		[]Entry{{Name: "rice", Keywords: map[string][]string{"en": {"rice"}}}},
		[]Entry{
			{Name: "weather", Keywords: map[string][]string{"en": {"aa"}}},
			{Name: "help", Keywords: map[string][]string{"en": {"bb", "help me"}}},
		},
		nil,
	)
	require.NoError(t, err)
	return d
}

func TestMatch_TieBreak(t *testing.T) {
	m := NewMatcher(tieDict(t))

	t.Run("dictionary order on equal confidence", func(t *testing.T) {
		got := m.Match("bb aa")
		require.NotNil(t, got.Intent)
		assert.Equal(t, "weather", got.Intent.Name)
	})

	t.Run("earlier candidate beats dictionary order", func(t *testing.T) {
		got := m.Match("zz", "bb x", "aa x")
		require.NotNil(t, got.Intent)
		assert.Equal(t, "help", got.Intent.Name)
		assert.Equal(t, 1, got.Intent.Candidate)
	})

	t.Run("longer keyword wins", func(t *testing.T) {
		got := m.Match("aa help me")
		require.NotNil(t, got.Intent)
		assert.Equal(t, "help", got.Intent.Name)
		assert.Equal(t, "help me", got.Intent.Keyword)
	})

	t.Run("higher confidence beats the primary bonus", func(t *testing.T) {
		got := m.Match("aa and many other words", "bb")
		require.NotNil(t, got.Intent)
		assert.Equal(t, "help", got.Intent.Name)
		assert.InDelta(t, 1.0, got.Intent.Confidence, 1e-9)
	})

	t.Run("primary bonus", func(t *testing.T) {
		got := m.Match("aa x", "bb x")
		require.NotNil(t, got.Intent)
		assert.Equal(t, "weather", got.Intent.Name)
		assert.InDelta(t, 0.5+primaryBonus, got.Intent.Confidence, 1e-9)
	})
}

func TestNewDictionary_Errors(t *testing.T) {
	_, err := NewDictionary(nil, []Entry{{Name: "dance", Keywords: map[string][]string{"en": {"dance"}}}}, nil)
	assert.ErrorContains(t, err, "unknown intent")

	_, err = NewDictionary([]Entry{{Name: "rice"}}, nil, nil)
	assert.ErrorContains(t, err, "no keywords")

	_, err = NewDictionary([]Entry{{Keywords: map[string][]string{"en": {"x"}}}}, nil, nil)
	assert.ErrorContains(t, err, "without name")
}

func TestEmbeddedDictionary_CoversAllLanguages(t *testing.T) {
	for _, file := range []string{"data/crops.yaml", "data/intents.yaml"} {
		var entries []Entry
		require.NoError(t, readYAML(file, &entries))
		require.NotEmpty(t, entries)
		for _, e := range entries {
			for _, lang := range Languages {
				assert.NotEmpty(t, e.Keywords[lang], "%s: %s has no %s keywords", file, e.Name, lang)
			}
		}
	}

	var intents []Entry
	require.NoError(t, readYAML("data/intents.yaml", &intents))
	names := make([]Intent, len(intents))
	for i, e := range intents {
		names[i] = Intent(e.Name)
	}
	assert.Equal(t, Intents, names)
}

func TestMatch_EveryLanguageVocabulary(t *testing.T) {
	m := NewMatcher(loadDict(t))

	var crops, intents []Entry
	require.NoError(t, readYAML("data/crops.yaml", &crops))
	require.NoError(t, readYAML("data/intents.yaml", &intents))

	for _, lang := range Languages {
		t.Run(lang, func(t *testing.T) {
			for _, crop := range crops {
				words := crop.Keywords[lang]
				require.NotEmpty(t, words, "%s has no %s keyword", crop.Name, lang)

				for _, cw := range words {
					got := m.Match(cw)
					if assert.NotNil(t, got.Crop, "crop keyword %q", cw) {
						assert.Equal(t, crop.Name, got.Crop.Name, "crop keyword %q", cw)
					}

					for _, intent := range intents {
						for _, iw := range intent.Keywords[lang] {
							said := cw + " " + iw
							got := m.Match(said)
							if assert.NotNil(t, got.Crop, said) && assert.NotNil(t, got.Intent, said) {
								assert.Equal(t, crop.Name, got.Crop.Name, said)
								assert.Equal(t, intent.Name, got.Intent.Name, said)
							}
						}
					}
				}
			}
		})
	}
}
