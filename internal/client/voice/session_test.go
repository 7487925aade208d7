package voice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// chanRecognizer streams whatever the test sends.
type chanRecognizer struct {
	events chan Event
	err    error
	// started, when set, receives once per Recognize call.
	started chan struct{}
}

func (c *chanRecognizer) Recognize(ctx context.Context) (<-chan Event, error) {
	if c.err != nil {
		return nil, c.err
	}
	if c.started != nil {
		c.started <- struct{}{}
	}
	out := make(chan Event)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-c.events:
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func TestSession_InterpretsFinalResults(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(t, nil)
	s := NewSession(TextRecognizer{Lines: []string{
		"hmm weather",
		"rise fertilizer | rice fertilizer",
	}}, f.interp, nil)

	require.NoError(t, s.Listen(context.Background()))
	f.announcer.Stop()

	calls := f.handler.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "weather", calls[0].method)
	assert.Equal(t, "fertilizer", calls[1].method)
	assert.Equal(t, "rice", calls[1].req.Crop)
}

func TestSession_IgnoresInterimResults(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(t, nil)
	rec := &chanRecognizer{events: make(chan Event)}
	s := NewSession(rec, f.interp, nil)

	done := make(chan error, 1)
	go func() { done <- s.Listen(context.Background()) }()

	rec.events <- Event{Result: Result{Transcript: "wea"}}
	rec.events <- Event{Result: Result{Transcript: "weather", Final: true}}
	require.Eventually(t, func() bool { return len(f.handler.Calls()) == 1 }, time.Second, 5*time.Millisecond)

	s.Stop()
	require.NoError(t, <-done)
	f.announcer.Stop()
}

func TestSession_RecognitionErrorIsAnnouncedAndRestartable(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(t, nil)
	s := NewSession(TextRecognizer{Lines: []string{"!no-speech", "weather"}}, f.interp, nil)

	err := s.Listen(context.Background())
	var re *RecognitionError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, KindNoSpeech, re.Kind)
	assert.Equal(t, []string{"I did not hear anything. Please try again."}, f.spoken())
	assert.Empty(t, f.handler.Calls())

	s.rec = TextRecognizer{Lines: []string{"weather"}}
	require.NoError(t, s.Listen(context.Background()))
	assert.Len(t, f.handler.Calls(), 1)
	f.announcer.Stop()
}

func TestSession_StartFailure(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(t, nil)
	f.lang = "mr"
	s := NewSession(&chanRecognizer{err: &RecognitionError{Kind: KindNotAllowed}}, f.interp, nil)

	err := s.Listen(context.Background())
	var re *RecognitionError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, KindNotAllowed, re.Kind)
	said := f.spoken()
	require.Len(t, said, 1)
	assert.Contains(t, said[0], "परवानगी")

	s = NewSession(&chanRecognizer{err: errors.New("device busy")}, f.interp, nil)
	err = s.Listen(context.Background())
	require.ErrorAs(t, err, &re)
	assert.Equal(t, KindAborted, re.Kind)
	assert.ErrorContains(t, err, "device busy")
	f.announcer.Stop()
}

func TestSession_SecondListenRejected(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(t, nil)
	rec := &chanRecognizer{events: make(chan Event), started: make(chan struct{}, 1)}
	s := NewSession(rec, f.interp, nil)

	done := make(chan error, 1)
	go func() { done <- s.Listen(context.Background()) }()
	<-rec.started

	assert.ErrorIs(t, s.Listen(context.Background()), ErrSessionActive)

	s.Stop()
	require.NoError(t, <-done)
}

func TestParseRecognitionKind(t *testing.T) {
	assert.Equal(t, KindNetwork, ParseRecognitionKind("network"))
	assert.Equal(t, KindAborted, ParseRecognitionKind("service-not-allowed"))
}
