// Package models defines the records the farm advisor client keeps locally:
// the per-collection record types, the storage envelope, queued sync tasks
// and cached HTTP responses.
package models

import "fmt"

// Collection names a logical group of records in the local store.
type Collection string

const (
	CollRecommendations Collection = "recommendations"
	CollSoilData        Collection = "soilData"
	CollWeatherCache    Collection = "weatherCache"
	CollUserProfile     Collection = "userProfile"
	CollCropDatabase    Collection = "cropDatabase"
	CollPestDatabase    Collection = "pestDatabase"
	CollFertilizer      Collection = "fertilizerDatabase"
	CollSyncQueue       Collection = "syncQueue"
	CollFarmLogs        Collection = "farmLogs"
)

// Collections lists every collection in declaration order.
var Collections = []Collection{
	CollRecommendations,
	CollSoilData,
	CollWeatherCache,
	CollUserProfile,
	CollCropDatabase,
	CollPestDatabase,
	CollFertilizer,
	CollSyncQueue,
	CollFarmLogs,
}

// KeyKind tells how a collection identifies its records.
type KeyKind int

const (
	// KeySurrogate collections get a generated id when none is given.
	KeySurrogate KeyKind = iota
	// KeyNatural collections are keyed by a domain value (crop name, location).
	KeyNatural
)

var keyKinds = map[Collection]KeyKind{
	CollRecommendations: KeySurrogate,
	CollSoilData:        KeySurrogate,
	CollFarmLogs:        KeySurrogate,
	CollSyncQueue:       KeySurrogate,
	CollWeatherCache:    KeyNatural,
	CollUserProfile:     KeyNatural,
	CollCropDatabase:    KeyNatural,
	CollPestDatabase:    KeyNatural,
	CollFertilizer:      KeyNatural,
}

// Valid reports whether c is one of the known collections.
func (c Collection) Valid() bool {
	_, ok := keyKinds[c]
	return ok
}

// KeyKind returns how records of c are keyed. Unknown collections report
// KeyNatural so that nothing is generated for them.
func (c Collection) KeyKind() KeyKind {
	if k, ok := keyKinds[c]; ok {
		return k
	}
	return KeyNatural
}

// Static reports whether c holds seeded reference data.
func (c Collection) Static() bool {
	switch c {
	case CollCropDatabase, CollPestDatabase, CollFertilizer:
		return true
	}
	return false
}

// ParseCollection maps a user supplied name to a Collection.
func ParseCollection(s string) (Collection, error) {
	c := Collection(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown collection %q", s)
	}
	return c, nil
}
