// Package ledger keeps the writes a sync backend has accepted, keyed by
// idempotency key so a redelivered task is applied once.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/dmitrijs2005/farmadvisor/internal/client/models"
)

var (
	// ErrDuplicate means the idempotency key was already applied.
	ErrDuplicate = errors.New("task already applied")
	// ErrInvalid means the submission cannot be applied.
	ErrInvalid = errors.New("invalid submission")
)

var knownTypes = []string{
	models.TaskFarmLogCreate,
	models.TaskSoilSampleCreate,
	models.TaskRecommendationCreate,
	models.TaskProfileUpdate,
}

// Entry is one applied submission.
type Entry struct {
	Key        string
	Submission models.Submission
	ReceivedAt time.Time
}

// Ledger is an in-memory, concurrency-safe record of applied submissions.
type Ledger struct {
	mu      sync.Mutex
	byKey   map[string]int
	entries []Entry
	now     func() time.Time
}

func New(now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{byKey: make(map[string]int), now: now}
}

// Apply records sub under key. A key seen before returns ErrDuplicate and
// leaves the ledger unchanged. Submissions without a key are always applied.
func (l *Ledger) Apply(ctx context.Context, key string, sub models.Submission) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !slices.Contains(knownTypes, sub.Type) {
		return fmt.Errorf("%w: unknown type %q", ErrInvalid, sub.Type)
	}
	if len(sub.Payload) == 0 || string(sub.Payload) == "null" {
		return fmt.Errorf("%w: empty payload", ErrInvalid)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if key != "" {
		if _, ok := l.byKey[key]; ok {
			return ErrDuplicate
		}
		l.byKey[key] = len(l.entries)
	}
	l.entries = append(l.entries, Entry{Key: key, Submission: sub, ReceivedAt: l.now()})
	return nil
}

// Entries returns a copy of everything applied, oldest first.
func (l *Ledger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.entries)
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
