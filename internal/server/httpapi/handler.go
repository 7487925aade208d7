// Package httpapi serves the JSON side of the sync backend.
package httpapi

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/farmadvisor/internal/client/models"
	"github.com/dmitrijs2005/farmadvisor/internal/logging"
	"github.com/dmitrijs2005/farmadvisor/internal/server/ledger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const maxBody = 1 << 20

// Options configures NewRouter.
type Options struct {
	// AuthToken, when set, must be presented as a bearer token on /api/sync.
	AuthToken string
	Logger    logging.Logger
}

type handler struct {
	ledger *ledger.Ledger
	log    logging.Logger
}

// NewRouter exposes ping, task submission and the development stubs the
// client's voice commands call.
func NewRouter(l *ledger.Ledger, opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	h := &handler{ledger: l, log: log.With("module", "http_api")}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/api/ping", h.ping)
	r.Group(func(r chi.Router) {
		r.Use(requireToken(opts.AuthToken))
		r.Post("/api/sync/tasks", h.submit)
	})
	r.Get("/api/market", h.market)
	r.Get("/api/weather", h.weather)
	r.Post("/api/chat", h.chat)
	return r
}

func requireToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		want := []byte("Bearer " + token)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if subtle.ConstantTimeCompare([]byte(r.Header.Get("Authorization")), want) != 1 {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (h *handler) ping(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

func (h *handler) submit(w http.ResponseWriter, r *http.Request) {
	var sub models.Submission
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&sub); err != nil {
		http.Error(w, "malformed submission", http.StatusBadRequest)
		return
	}
	key := r.Header.Get(models.IdempotencyHeader)

	err := h.ledger.Apply(r.Context(), key, sub)
	switch {
	case err == nil:
		h.log.Info(r.Context(), "task applied", "type", sub.Type, "key", key)
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
	case errors.Is(err, ledger.ErrDuplicate):
		writeJSON(w, http.StatusConflict, map[string]string{"status": "duplicate"})
	case errors.Is(err, ledger.ErrInvalid):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.log.Error(r.Context(), "cannot apply task", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// market answers with fixed prices; a real price feed is out of scope.
func (h *handler) market(w http.ResponseWriter, r *http.Request) {
	prices := map[string]int{"rice": 2300, "wheat": 2275, "onion": 1800, "cotton": 7020, "maize": 2090}
	if crop := strings.ToLower(r.URL.Query().Get("crop")); crop != "" {
		p, ok := prices[crop]
		if !ok {
			http.Error(w, "no price for "+crop, http.StatusNotFound)
			return
		}
		prices = map[string]int{crop: p}
	}
	writeJSON(w, http.StatusOK, map[string]any{"unit": "INR/quintal", "prices": prices})
}

// weather answers with the same conditions for every location.
func (h *handler) weather(w http.ResponseWriter, r *http.Request) {
	loc := strings.TrimSpace(r.URL.Query().Get("location"))
	if loc == "" {
		http.Error(w, "location required", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, models.WeatherSnapshot{
		Location:     loc,
		TemperatureC: 29.5,
		Humidity:     68,
		RainfallMM:   2.4,
		WindKPH:      11,
		Condition:    "partly cloudy",
	})
}

type chatRequest struct {
	Message  string `json:"message"`
	Language string `json:"language"`
}

func (h *handler) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		http.Error(w, "message required", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"reply": "No advisor is connected to this backend. You asked: " + req.Message,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
