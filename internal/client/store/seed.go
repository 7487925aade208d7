package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/farmadvisor/internal/client/migrations"
	"github.com/dmitrijs2005/farmadvisor/internal/client/models"
	"github.com/dmitrijs2005/farmadvisor/internal/client/repositories/records"
	"gopkg.in/yaml.v3"
)

// ReferenceData is the static seed shipped with the client.
type ReferenceData struct {
	Crops       []models.CropFact       `yaml:"crops"`
	Pests       []models.PestFact       `yaml:"pests"`
	Fertilizers []models.FertilizerFact `yaml:"fertilizers"`
}

// LoadReferenceData decodes the embedded seed file.
func LoadReferenceData() (ReferenceData, error) {
	var d ReferenceData
	if err := yaml.Unmarshal(migrations.Seed, &d); err != nil {
		return ReferenceData{}, fmt.Errorf("decode seed data: %w", err)
	}
	return d, nil
}

// Seed inserts the reference data rows that are not stored yet and returns
// how many were written. Running it again inserts nothing.
func Seed(ctx context.Context, repo records.Repository, now time.Time) (int, error) {
	d, err := LoadReferenceData()
	if err != nil {
		return 0, storageErr("seed", "", err)
	}

	var recs []models.Record
	for _, c := range d.Crops {
		recs = append(recs, c)
	}
	for _, p := range d.Pests {
		recs = append(recs, p)
	}
	for _, f := range d.Fertilizers {
		recs = append(recs, f)
	}

	inserted := 0
	for _, r := range recs {
		if err := models.Validate(r); err != nil {
			return inserted, storageErr("seed", r.Collection(), err)
		}
		payload, err := json.Marshal(r)
		if err != nil {
			return inserted, storageErr("seed", r.Collection(), err)
		}

		ok, err := repo.InsertIfAbsent(ctx, models.CachedRecord{
			ID:         r.Key(),
			Collection: r.Collection(),
			IndexKey:   r.Index(),
			Payload:    payload,
			Synced:     true,
			Static:     true,
			CreatedAt:  now.UTC(),
			UpdatedAt:  now.UTC(),
		})
		if err != nil {
			return inserted, storageErr("seed", r.Collection(), err)
		}
		if ok {
			inserted++
		}
	}
	return inserted, nil
}
