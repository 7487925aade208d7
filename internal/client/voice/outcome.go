package voice

// Outcome is what an utterance resolves to. It is one of IntentOutcome,
// CropInfoOutcome or FallbackOutcome.
type Outcome interface {
	outcome()
}

// IntentOutcome routes to the intent's view, optionally prefilled with a crop.
type IntentOutcome struct {
	Intent Intent
	// Crop is the canonical crop name, empty when none was mentioned.
	Crop string
	// Said is the crop keyword as the user spoke it.
	Said string
}

// CropInfoOutcome asks for facts about a crop mentioned without an intent.
type CropInfoOutcome struct {
	Crop string
	Said string
}

// FallbackOutcome carries an utterance nothing matched; it goes to free-text chat.
type FallbackOutcome struct {
	Transcript string
}

func (IntentOutcome) outcome()   {}
func (CropInfoOutcome) outcome() {}
func (FallbackOutcome) outcome() {}

// Resolve turns a match into an outcome. A transcript with no keywords
// falls back to free text; that is not an error.
func Resolve(m Match, transcript string) Outcome {
	switch {
	case m.Intent != nil:
		o := IntentOutcome{Intent: Intent(m.Intent.Name)}
		if m.Crop != nil {
			o.Crop, o.Said = m.Crop.Name, m.Crop.Keyword
		}
		return o
	case m.Crop != nil:
		return CropInfoOutcome{Crop: m.Crop.Name, Said: m.Crop.Keyword}
	default:
		return FallbackOutcome{Transcript: transcript}
	}
}
