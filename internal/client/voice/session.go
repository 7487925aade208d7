package voice

import (
	"context"
	"strings"
	"sync"

	"github.com/dmitrijs2005/farmadvisor/internal/logging"
)

// Result is one recognizer hypothesis. Interim results are superseded by a
// later final result for the same utterance.
type Result struct {
	Transcript   string
	Alternatives []string
	Final        bool
}

// Event is either a Result or a recognition failure.
type Event struct {
	Result
	Err error
}

// Recognizer streams results until ctx is done or recognition ends. The
// returned channel is closed when the stream ends.
type Recognizer interface {
	Recognize(ctx context.Context) (<-chan Event, error)
}

// Session feeds final recognizer results to an interpreter.
type Session struct {
	rec    Recognizer
	interp *Interpreter
	log    logging.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewSession(rec Recognizer, interp *Interpreter, log logging.Logger) *Session {
	if log == nil {
		log = logging.Nop()
	}
	return &Session{rec: rec, interp: interp, log: log.With("module", "voice-session")}
}

// Listen runs until the stream ends, ctx is cancelled, Stop is called or the
// recognizer fails. A failure is announced in the user's language and
// returned as *RecognitionError; Listen may be called again afterwards.
func (s *Session) Listen(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return ErrSessionActive
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.cancel = nil
		s.mu.Unlock()
		cancel()
	}()

	events, err := s.rec.Recognize(ctx)
	if err != nil {
		return s.failed(ctx, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ev.Err != nil {
				return s.failed(ctx, ev.Err)
			}
			if !ev.Final {
				continue
			}
			if _, err := s.interp.Interpret(ctx, ev.Transcript, ev.Alternatives...); err != nil {
				s.log.Warn(ctx, "voice command failed", "transcript", ev.Transcript, "error", err)
			}
		}
	}
}

// Stop ends a running Listen. It is a no-op when idle.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Session) failed(ctx context.Context, err error) error {
	re := asRecognitionError(err)
	msg := s.interp.Say(ctx, re.Kind.messageKey())
	s.log.Info(ctx, "speech recognition stopped", "kind", string(re.Kind), "message", msg)
	return re
}

// TextRecognizer replays typed utterances as final results. Each line is a
// transcript with optional alternatives separated by "|". A line of the form
// "!kind" reports a recognition error of that kind.
type TextRecognizer struct {
	Lines []string
}

func (t TextRecognizer) Recognize(ctx context.Context) (<-chan Event, error) {
	ch := make(chan Event)
	go func() {
		defer close(ch)
		for _, line := range t.Lines {
			ev := parseLine(line)
			select {
			case ch <- ev:
			case <-ctx.Done():
				return
			}
			if ev.Err != nil {
				return
			}
		}
	}()
	return ch, nil
}

func parseLine(line string) Event {
	line = strings.TrimSpace(line)
	if code, ok := strings.CutPrefix(line, "!"); ok {
		return Event{Err: &RecognitionError{Kind: ParseRecognitionKind(strings.TrimSpace(code))}}
	}
	parts := strings.Split(line, "|")
	r := Result{Transcript: strings.TrimSpace(parts[0]), Final: true}
	for _, p := range parts[1:] {
		if p = strings.TrimSpace(p); p != "" {
			r.Alternatives = append(r.Alternatives, p)
		}
	}
	return Event{Result: r}
}
