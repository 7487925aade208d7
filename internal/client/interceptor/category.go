package interceptor

import (
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/farmadvisor/internal/client/models"
)

// Class is how a request is treated by the cache policy.
type Class int

const (
	ClassRead Class = iota
	ClassWrite
	ClassNavigation
)

func (c Class) String() string {
	switch c {
	case ClassWrite:
		return "write"
	case ClassNavigation:
		return "navigation"
	default:
		return "read"
	}
}

// Classify sorts req into a request class. Navigations are GETs asking for
// HTML or flagged by the browser with Sec-Fetch-Mode: navigate.
func Classify(req *http.Request) Class {
	switch req.Method {
	case http.MethodGet, http.MethodHead, "":
	case http.MethodOptions:
		return ClassRead
	default:
		return ClassWrite
	}

	if req.Header.Get("Sec-Fetch-Mode") == "navigate" {
		return ClassNavigation
	}
	if strings.Contains(req.Header.Get("Accept"), "text/html") {
		return ClassNavigation
	}
	return ClassRead
}

var categoryPrefixes = []struct {
	prefix string
	cat    models.CacheCategory
}{
	{"/api/weather", models.CategoryWeather},
	{"/api/crops", models.CategoryReference},
	{"/api/pests", models.CategoryReference},
	{"/api/fertilizers", models.CategoryReference},
	{"/api/market", models.CategoryMarket},
	{"/api/translations", models.CategoryTranslations},
	{"/locales", models.CategoryTranslations},
}

// CategoryOf picks the cache category of a request path.
func CategoryOf(class Class, path string) models.CacheCategory {
	if class == ClassNavigation {
		return models.CategoryShell
	}
	for _, p := range categoryPrefixes {
		if strings.HasPrefix(path, p.prefix) {
			return p.cat
		}
	}
	return models.CategoryDefault
}

// DefaultTTLs are the freshness windows used when none are configured.
func DefaultTTLs() map[models.CacheCategory]time.Duration {
	return map[models.CacheCategory]time.Duration{
		models.CategoryWeather:      30 * time.Minute,
		models.CategoryReference:    24 * time.Hour,
		models.CategoryMarket:       time.Hour,
		models.CategoryTranslations: 7 * 24 * time.Hour,
		models.CategoryShell:        24 * time.Hour,
		models.CategoryDefault:      5 * time.Minute,
	}
}
