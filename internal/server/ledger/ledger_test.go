package ledger

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/farmadvisor/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sub(typ string) models.Submission {
	return models.Submission{Type: typ, Payload: json.RawMessage(`{"date":"2025-07-14"}`), Timestamp: time.Now()}
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2025, 7, 14, 6, 0, 0, 0, time.UTC)
	l := New(func() time.Time { return at })

	require.NoError(t, l.Apply(ctx, "k1", sub(models.TaskFarmLogCreate)))
	assert.ErrorIs(t, l.Apply(ctx, "k1", sub(models.TaskFarmLogCreate)), ErrDuplicate)
	require.NoError(t, l.Apply(ctx, "", sub(models.TaskSoilSampleCreate)))
	require.NoError(t, l.Apply(ctx, "", sub(models.TaskSoilSampleCreate)))

	entries := l.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "k1", entries[0].Key)
	assert.Equal(t, at, entries[0].ReceivedAt)
}

func TestApply_Invalid(t *testing.T) {
	ctx := context.Background()
	l := New(nil)

	tests := []struct {
		name string
		sub  models.Submission
	}{
		{"unknown type", sub("entry.create")},
		{"empty type", sub("")},
		{"null payload", models.Submission{Type: models.TaskFarmLogCreate, Payload: json.RawMessage("null")}},
		{"missing payload", models.Submission{Type: models.TaskFarmLogCreate}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, l.Apply(ctx, "k-"+tt.name, tt.sub), ErrInvalid)
		})
	}
	assert.Zero(t, l.Len())
}

func TestApply_ConcurrentSameKey(t *testing.T) {
	ctx := context.Background()
	l := New(nil)

	var wg sync.WaitGroup
	var mu sync.Mutex
	applied := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Apply(ctx, "same", sub(models.TaskProfileUpdate)) == nil {
				mu.Lock()
				applied++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, applied)
	assert.Equal(t, 1, l.Len())
}
