package voice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/dmitrijs2005/farmadvisor/internal/logging"
	"golang.org/x/text/language"
)

// Speaker turns text into audio. Speak blocks until the utterance is done
// and must return promptly once ctx is cancelled.
type Speaker interface {
	Speak(ctx context.Context, lang language.Tag, text string) error
}

// Announcer keeps at most one utterance active: starting a new one cancels
// the previous one and waits for it to stop.
type Announcer struct {
	speaker Speaker
	log     logging.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewAnnouncer(s Speaker, log logging.Logger) *Announcer {
	if log == nil {
		log = logging.Nop()
	}
	return &Announcer{speaker: s, log: log}
}

// Say interrupts whatever is being spoken and starts text in the background.
// The utterance outlives ctx cancellation; use Stop to silence it.
func (a *Announcer) Say(ctx context.Context, lang language.Tag, text string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stopLocked()

	uctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	a.cancel, a.done = cancel, done

	go func() {
		defer close(done)
		defer cancel()
		if err := a.speaker.Speak(uctx, lang, text); err != nil && !errors.Is(err, context.Canceled) {
			a.log.Warn(ctx, "speech failed", "lang", lang.String(), "error", err)
		}
	}()
}

// Stop cancels the active utterance, if any, and waits for it to end.
func (a *Announcer) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopLocked()
}

// Wait blocks until the active utterance finishes.
func (a *Announcer) Wait() {
	a.mu.Lock()
	done := a.done
	a.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (a *Announcer) stopLocked() {
	if a.cancel == nil {
		return
	}
	a.cancel()
	<-a.done
	a.cancel, a.done = nil, nil
}

// WriterSpeaker prints utterances, one per line, instead of speaking them.
type WriterSpeaker struct {
	mu sync.Mutex
	W  io.Writer
}

func (s *WriterSpeaker) Speak(ctx context.Context, lang language.Tag, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintf(s.W, "[%s] %s\n", lang, text)
	return err
}
