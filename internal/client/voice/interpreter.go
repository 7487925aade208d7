package voice

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/farmadvisor/internal/client/models"
	"github.com/dmitrijs2005/farmadvisor/internal/client/store"
	"github.com/dmitrijs2005/farmadvisor/internal/logging"
	"golang.org/x/text/language"
)

// Request is what an intent handler receives.
type Request struct {
	// Crop is the canonical crop name to prefill, empty when none was said.
	Crop       string
	Transcript string
	Lang       language.Tag
}

// Handler reacts to interpreted utterances. There is one method per intent,
// so adding an intent fails to compile until every handler supports it.
type Handler interface {
	Weather(ctx context.Context, r Request) error
	Recommendation(ctx context.Context, r Request) error
	Pest(ctx context.Context, r Request) error
	Fertilizer(ctx context.Context, r Request) error
	Market(ctx context.Context, r Request) error
	Irrigation(ctx context.Context, r Request) error
	Soil(ctx context.Context, r Request) error
	Help(ctx context.Context, r Request) error

	// CropInfo is called for a crop mentioned without an intent. fact is nil
	// when the crop table has no entry.
	CropInfo(ctx context.Context, r Request, fact *models.CropFact) error
	// FreeText forwards an unmatched utterance to chat and returns the reply
	// to speak, if any.
	FreeText(ctx context.Context, r Request) (string, error)
}

// CropLookup resolves crop facts by canonical name.
type CropLookup interface {
	CropFact(ctx context.Context, name string) (*models.CropFact, bool, error)
}

// StoreCrops reads facts from the cropDatabase collection.
type StoreCrops struct {
	Store store.Store
}

func (s StoreCrops) CropFact(ctx context.Context, name string) (*models.CropFact, bool, error) {
	return store.GetTyped[models.CropFact](ctx, s.Store, name)
}

// Interpreter matches transcripts, speaks a localized confirmation and
// dispatches the outcome to a Handler.
type Interpreter struct {
	matcher   *Matcher
	phrases   *Phrases
	announcer *Announcer
	handler   Handler
	crops     CropLookup
	lang      func() string
	log       logging.Logger
}

// InterpreterOptions wires the interpreter's collaborators.
type InterpreterOptions struct {
	Dictionary *Dictionary
	Phrases    *Phrases
	Announcer  *Announcer
	Handler    Handler
	Crops      CropLookup
	// Language returns the user's preferred language tag.
	Language func() string
	Logger   logging.Logger
}

// NewInterpreter falls back to the embedded dictionary and phrases when the
// options leave them nil.
func NewInterpreter(opts InterpreterOptions) (*Interpreter, error) {
	var err error
	if opts.Dictionary == nil {
		if opts.Dictionary, err = LoadDictionary(); err != nil {
			return nil, err
		}
	}
	if opts.Phrases == nil {
		if opts.Phrases, err = LoadPhrases(); err != nil {
			return nil, err
		}
	}
	if opts.Handler == nil || opts.Announcer == nil {
		return nil, fmt.Errorf("voice interpreter needs a handler and an announcer")
	}
	if opts.Language == nil {
		opts.Language = func() string { return "en" }
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}

	return &Interpreter{
		matcher:   NewMatcher(opts.Dictionary),
		phrases:   opts.Phrases,
		announcer: opts.Announcer,
		handler:   opts.Handler,
		crops:     opts.Crops,
		lang:      opts.Language,
		log:       opts.Logger.With("module", "voice"),
	}, nil
}

// Language is the tag currently used for spoken output.
func (in *Interpreter) Language() language.Tag {
	return in.phrases.Match(in.lang())
}

// Interpret resolves one final recognizer result and acts on it.
func (in *Interpreter) Interpret(ctx context.Context, transcript string, alternatives ...string) (Outcome, error) {
	m := in.matcher.Match(transcript, alternatives...)
	out := Resolve(m, transcript)
	in.log.Debug(ctx, "utterance interpreted", "transcript", transcript, "outcome", fmt.Sprintf("%+v", out))
	return out, in.dispatch(ctx, out, transcript)
}

func (in *Interpreter) dispatch(ctx context.Context, out Outcome, transcript string) error {
	lang := in.Language()
	req := Request{Transcript: transcript, Lang: lang}

	switch o := out.(type) {
	case IntentOutcome:
		req.Crop = o.Crop
		text := in.phrases.Text(lang, confirmKey(o.Intent))
		if o.Crop != "" {
			text += " " + in.phrases.Text(lang, keyCropSelected, o.Said)
		}
		in.announcer.Say(ctx, lang, text)
		return dispatchIntent(ctx, in.handler, o.Intent, req)

	case CropInfoOutcome:
		req.Crop = o.Crop
		fact, err := in.cropFact(ctx, o.Crop)
		if err != nil {
			return err
		}
		if fact != nil {
			in.announcer.Say(ctx, lang, in.phrases.Text(lang, keyCropFacts, o.Said, fact.Season, fact.WaterNeed, fact.Soil, fact.PH))
		} else {
			in.announcer.Say(ctx, lang, in.phrases.Text(lang, keyCropUnknown, o.Said))
		}
		return in.handler.CropInfo(ctx, req, fact)

	case FallbackOutcome:
		in.announcer.Say(ctx, lang, in.phrases.Text(lang, keyFallback))
		reply, err := in.handler.FreeText(ctx, req)
		if err != nil {
			return fmt.Errorf("free text: %w", err)
		}
		if reply != "" {
			in.announcer.Say(ctx, lang, reply)
		}
		return nil

	default:
		return fmt.Errorf("unexpected outcome %T", out)
	}
}

func (in *Interpreter) cropFact(ctx context.Context, name string) (*models.CropFact, error) {
	if in.crops == nil {
		return nil, nil
	}
	fact, found, err := in.crops.CropFact(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read crop facts for %s: %w", name, err)
	}
	if !found {
		return nil, nil
	}
	return fact, nil
}

func dispatchIntent(ctx context.Context, h Handler, i Intent, r Request) error {
	switch i {
	case IntentWeather:
		return h.Weather(ctx, r)
	case IntentRecommendation:
		return h.Recommendation(ctx, r)
	case IntentPest:
		return h.Pest(ctx, r)
	case IntentFertilizer:
		return h.Fertilizer(ctx, r)
	case IntentMarket:
		return h.Market(ctx, r)
	case IntentIrrigation:
		return h.Irrigation(ctx, r)
	case IntentSoil:
		return h.Soil(ctx, r)
	case IntentHelp:
		return h.Help(ctx, r)
	default:
		return fmt.Errorf("unknown intent %q", i)
	}
}

// Say speaks key in the current language. Used for messages that do not
// come from an utterance, such as recognition errors.
func (in *Interpreter) Say(ctx context.Context, key string, args ...any) string {
	lang := in.Language()
	text := in.phrases.Text(lang, key, args...)
	in.announcer.Say(ctx, lang, text)
	return text
}
