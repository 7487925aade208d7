package interceptor

import (
	"context"
	_ "embed"
	"encoding/json"
	"strings"

	"github.com/dmitrijs2005/farmadvisor/internal/client/models"
	"github.com/dmitrijs2005/farmadvisor/internal/client/store"
)

//go:embed assets/offline.html
var offlinePage []byte

// OfflinePage returns the landing document served to navigations that
// neither the network nor the cache can answer.
func OfflinePage() []byte { return offlinePage }

// OfflineMessage is the human-readable text of synthesized payloads.
const OfflineMessage = "You are offline. Showing information saved on this device."

// OfflinePayload is the body returned for reads that cannot be answered.
type OfflinePayload struct {
	Offline bool   `json:"offline"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// ReferenceSource supplies locally available data for an endpoint path.
type ReferenceSource interface {
	Reference(ctx context.Context, path string) (data any, ok bool)
}

// StoreReference answers crop, pest and fertilizer endpoints from the static
// collections of the local store.
type StoreReference struct {
	Store store.Store
}

var referencePaths = []struct {
	prefix string
	coll   models.Collection
}{
	{"/api/crops", models.CollCropDatabase},
	{"/api/pests", models.CollPestDatabase},
	{"/api/fertilizers", models.CollFertilizer},
}

func (r StoreReference) Reference(ctx context.Context, path string) (any, bool) {
	for _, p := range referencePaths {
		if !strings.HasPrefix(path, p.prefix) {
			continue
		}

		// /api/crops/rice narrows to one record
		if key := strings.Trim(strings.TrimPrefix(path, p.prefix), "/"); key != "" {
			rec, found, err := r.Store.Get(ctx, p.coll, key)
			if err != nil || !found {
				return nil, false
			}
			return rec.Payload, true
		}

		recs, err := r.Store.GetAll(ctx, p.coll)
		if err != nil {
			return nil, false
		}
		out := make([]json.RawMessage, 0, len(recs))
		for _, rec := range recs {
			out = append(out, rec.Payload)
		}
		return out, true
	}
	return nil, false
}

func offlineBody(ctx context.Context, src ReferenceSource, path string) []byte {
	p := OfflinePayload{Offline: true, Message: OfflineMessage}
	if src != nil {
		if data, ok := src.Reference(ctx, path); ok {
			p.Data = data
		}
	}
	b, err := json.Marshal(p)
	if err != nil {
		return []byte(`{"offline":true,"message":"` + OfflineMessage + `","data":null}`)
	}
	return b
}
