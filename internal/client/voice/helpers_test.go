package voice

import (
	"context"
	"sync"
	"testing"

	"github.com/dmitrijs2005/farmadvisor/internal/client/models"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

type utterance struct {
	lang language.Tag
	text string
}

// recordingSpeaker finishes every utterance immediately.
type recordingSpeaker struct {
	mu   sync.Mutex
	said []utterance
}

func (s *recordingSpeaker) Speak(ctx context.Context, lang language.Tag, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.said = append(s.said, utterance{lang: lang, text: text})
	return nil
}

func (s *recordingSpeaker) Texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.said))
	for i, u := range s.said {
		out[i] = u.text
	}
	return out
}

type handlerCall struct {
	method string
	req    Request
	fact   *models.CropFact
}

type fakeHandler struct {
	mu    sync.Mutex
	calls []handlerCall
	reply string
	err   error
}

func (h *fakeHandler) record(method string, r Request, fact *models.CropFact) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, handlerCall{method: method, req: r, fact: fact})
	return h.err
}

func (h *fakeHandler) Calls() []handlerCall {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]handlerCall(nil), h.calls...)
}

func (h *fakeHandler) Weather(ctx context.Context, r Request) error {
	return h.record("weather", r, nil)
}
func (h *fakeHandler) Recommendation(ctx context.Context, r Request) error {
	return h.record("recommendation", r, nil)
}
func (h *fakeHandler) Pest(ctx context.Context, r Request) error { return h.record("pest", r, nil) }
func (h *fakeHandler) Fertilizer(ctx context.Context, r Request) error {
	return h.record("fertilizer", r, nil)
}
func (h *fakeHandler) Market(ctx context.Context, r Request) error { return h.record("market", r, nil) }
func (h *fakeHandler) Irrigation(ctx context.Context, r Request) error {
	return h.record("irrigation", r, nil)
}
func (h *fakeHandler) Soil(ctx context.Context, r Request) error { return h.record("soil", r, nil) }
func (h *fakeHandler) Help(ctx context.Context, r Request) error { return h.record("help", r, nil) }
func (h *fakeHandler) CropInfo(ctx context.Context, r Request, fact *models.CropFact) error {
	return h.record("crop", r, fact)
}
func (h *fakeHandler) FreeText(ctx context.Context, r Request) (string, error) {
	err := h.record("chat", r, nil)
	return h.reply, err
}

type mapCrops map[string]models.CropFact

func (m mapCrops) CropFact(ctx context.Context, name string) (*models.CropFact, bool, error) {
	f, ok := m[name]
	if !ok {
		return nil, false, nil
	}
	return &f, true, nil
}

type fixture struct {
	speaker   *recordingSpeaker
	handler   *fakeHandler
	announcer *Announcer
	interp    *Interpreter
	lang      string
}

func newFixture(t *testing.T, crops CropLookup) *fixture {
	t.Helper()
	f := &fixture{speaker: &recordingSpeaker{}, handler: &fakeHandler{}, lang: "en"}
	f.announcer = NewAnnouncer(f.speaker, nil)
	t.Cleanup(f.announcer.Stop)

	in, err := NewInterpreter(InterpreterOptions{
		Announcer: f.announcer,
		Handler:   f.handler,
		Crops:     crops,
		Language:  func() string { return f.lang },
	})
	require.NoError(t, err)
	f.interp = in
	return f
}

// spoken waits for the last utterance and returns everything said so far.
func (f *fixture) spoken() []string {
	f.announcer.Wait()
	return f.speaker.Texts()
}
