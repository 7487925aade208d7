package models

import (
	"net/http"
	"time"
)

// CacheCategory groups cached HTTP responses that share a freshness window.
type CacheCategory string

const (
	CategoryWeather      CacheCategory = "weather"
	CategoryReference    CacheCategory = "reference"
	CategoryMarket       CacheCategory = "market"
	CategoryTranslations CacheCategory = "translations"
	CategoryShell        CacheCategory = "shell"
	CategoryDefault      CacheCategory = "default"
)

// CacheEntry is a stored HTTP response keyed by request identity.
type CacheEntry struct {
	Key        string
	Method     string
	URL        string
	Category   CacheCategory
	StatusCode int
	Header     http.Header
	Body       []byte
	CapturedAt time.Time
}

// Age returns how old the entry is at now.
func (e CacheEntry) Age(now time.Time) time.Duration {
	return now.Sub(e.CapturedAt)
}

// Fresh reports whether the entry is still within ttl at now.
// An entry exactly ttl old is still fresh.
func (e CacheEntry) Fresh(now time.Time, ttl time.Duration) bool {
	return e.Age(now) <= ttl
}
