package voice

import (
	"errors"
	"fmt"
)

// ErrSessionActive is returned when Listen is called on a running session.
var ErrSessionActive = errors.New("voice session already listening")

// RecognitionKind classifies recognizer failures.
type RecognitionKind string

const (
	KindNoSpeech     RecognitionKind = "no-speech"
	KindAudioCapture RecognitionKind = "audio-capture"
	KindNotAllowed   RecognitionKind = "not-allowed"
	KindNetwork      RecognitionKind = "network"
	KindAborted      RecognitionKind = "aborted"
)

// ParseRecognitionKind maps a recognizer error code to a kind. Unknown codes
// are reported as aborted.
func ParseRecognitionKind(s string) RecognitionKind {
	switch k := RecognitionKind(s); k {
	case KindNoSpeech, KindAudioCapture, KindNotAllowed, KindNetwork, KindAborted:
		return k
	default:
		return KindAborted
	}
}

func (k RecognitionKind) messageKey() string { return "error." + string(k) }

// RecognitionError is a non-fatal recognizer failure. The session that
// reported it may be started again.
type RecognitionError struct {
	Kind RecognitionKind
	Err  error
}

func (e *RecognitionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("speech recognition: %s", e.Kind)
	}
	return fmt.Sprintf("speech recognition: %s: %v", e.Kind, e.Err)
}

func (e *RecognitionError) Unwrap() error { return e.Err }

func asRecognitionError(err error) *RecognitionError {
	var re *RecognitionError
	if errors.As(err, &re) {
		return re
	}
	return &RecognitionError{Kind: KindAborted, Err: err}
}
