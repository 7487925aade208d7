package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/farmadvisor/internal/client/interceptor"
	"github.com/dmitrijs2005/farmadvisor/internal/client/models"
	"github.com/dmitrijs2005/farmadvisor/internal/client/store"
	"github.com/dmitrijs2005/farmadvisor/internal/client/voice"
)

// Voice runs one typed utterance through a recognition session. Alternatives
// follow the transcript separated by "|"; "!no-speech" and the other error
// codes simulate recognizer failures.
func (a *App) Voice(ctx context.Context, utterance string) error {
	s := voice.NewSession(voice.TextRecognizer{Lines: []string{utterance}}, a.voice, a.log)
	err := s.Listen(ctx)
	a.announcer.Wait()

	var re *voice.RecognitionError
	if errors.As(err, &re) {
		return nil
	}
	return err
}

// voiceHandler shows what each spoken command asks for.
type voiceHandler struct {
	app *App
}

func (h *voiceHandler) navigate(ctx context.Context, view string) error {
	return h.app.state.SetView(ctx, view)
}

func (h *voiceHandler) printf(format string, args ...any) {
	fmt.Fprintf(h.app.out, format, args...)
}

func (h *voiceHandler) Weather(ctx context.Context, r voice.Request) error {
	if err := h.navigate(ctx, voice.IntentWeather.View()); err != nil {
		return err
	}
	loc := h.app.location(ctx)
	snap, found, err := h.app.weather.Current(ctx, loc)
	if err != nil {
		return err
	}
	if !found {
		if snap, err = h.fetchWeather(ctx, loc); err != nil {
			return err
		}
	}
	if snap == nil {
		h.printf("No recent weather for %s\n", loc)
		return nil
	}
	h.printf("%s: %s, %.1f°C, humidity %.0f%%, rain %.1f mm (as of %s)\n",
		snap.Location, snap.Condition, snap.TemperatureC, snap.Humidity, snap.RainfallMM,
		snap.CapturedAt.Local().Format("15:04"))
	return nil
}

// fetchWeather asks the backend for loc and keeps the answer for offline
// use. A nil snapshot means nothing could be had.
func (h *voiceHandler) fetchWeather(ctx context.Context, loc string) (*models.WeatherSnapshot, error) {
	res, err := h.app.get(ctx, "/api/weather", url.Values{"location": {loc}})
	if err != nil {
		h.app.log.Info(ctx, "weather unavailable", "location", loc, "error", err)
		return nil, nil
	}
	if res.origin == fromOffline {
		return nil, nil
	}

	var snap models.WeatherSnapshot
	if err := json.Unmarshal([]byte(res.body), &snap); err != nil {
		return nil, fmt.Errorf("weather: %w", err)
	}
	if snap.Location == "" {
		snap.Location = loc
	}
	if snap.CapturedAt.IsZero() && res.origin == fromCache {
		snap.CapturedAt = h.app.now().Add(-res.age).UTC()
	}
	if err := h.app.weather.Remember(ctx, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (h *voiceHandler) Recommendation(ctx context.Context, r voice.Request) error {
	if err := h.navigate(ctx, voice.IntentRecommendation.View()); err != nil {
		return err
	}
	var recs []models.Recommendation
	var err error
	if r.Crop != "" {
		recs, err = store.GetAllTypedByIndex[models.Recommendation](ctx, h.app.store, r.Crop)
	} else {
		recs, err = store.GetAllTyped[models.Recommendation](ctx, h.app.store)
	}
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		h.printf("No saved recommendations%s\n", forCrop(r.Crop))
		return nil
	}
	for _, rec := range recs {
		h.printf("- [%s] %s: %s\n", rec.Crop, rec.Title, rec.Advice)
	}
	return nil
}

func (h *voiceHandler) Pest(ctx context.Context, r voice.Request) error {
	if err := h.navigate(ctx, voice.IntentPest.View()); err != nil {
		return err
	}
	pests, err := store.GetAllTyped[models.PestFact](ctx, h.app.store)
	if err != nil {
		return err
	}
	n := 0
	for _, p := range pests {
		if r.Crop != "" && !slices.Contains(p.Crops, r.Crop) {
			continue
		}
		h.printf("- %s: %s. Treatment: %s\n", p.Name, p.Symptoms, p.Treatment)
		n++
	}
	if n == 0 {
		h.printf("No pest information%s\n", forCrop(r.Crop))
	}
	return nil
}

func (h *voiceHandler) Fertilizer(ctx context.Context, r voice.Request) error {
	if err := h.navigate(ctx, voice.IntentFertilizer.View()); err != nil {
		return err
	}
	ferts, err := store.GetAllTyped[models.FertilizerFact](ctx, h.app.store)
	if err != nil {
		return err
	}
	n := 0
	for _, f := range ferts {
		if r.Crop != "" && len(f.Crops) > 0 && !slices.Contains(f.Crops, r.Crop) {
			continue
		}
		h.printf("- %s (NPK %s): %s\n", f.Type, f.NPK, f.Usage)
		n++
	}
	if n == 0 {
		h.printf("No fertilizer information%s\n", forCrop(r.Crop))
	}
	return nil
}

// Market fetches prices through the interceptor so a cached answer is shown
// while offline.
func (h *voiceHandler) Market(ctx context.Context, r voice.Request) error {
	if err := h.navigate(ctx, voice.IntentMarket.View()); err != nil {
		return err
	}
	q := url.Values{}
	if r.Crop != "" {
		q.Set("crop", r.Crop)
	}
	res, err := h.app.get(ctx, "/api/market", q)
	if err != nil {
		return err
	}
	switch res.origin {
	case fromOffline:
		h.printf("Market prices are not available offline.\n")
		return nil
	case fromCache:
		h.printf("(offline, cached prices from %s ago)\n", res.age)
	}
	h.printf("%s\n", res.body)
	return nil
}

func (h *voiceHandler) Irrigation(ctx context.Context, r voice.Request) error {
	if err := h.navigate(ctx, voice.IntentIrrigation.View()); err != nil {
		return err
	}
	if r.Crop == "" {
		h.printf("Water early in the morning and check soil moisture before irrigating.\n")
		return nil
	}
	fact, found, err := store.GetTyped[models.CropFact](ctx, h.app.store, r.Crop)
	if err != nil {
		return err
	}
	if !found {
		h.printf("No irrigation data%s\n", forCrop(r.Crop))
		return nil
	}
	h.printf("%s water need: %s\n", fact.Name, fact.WaterNeed)
	return nil
}

func (h *voiceHandler) Soil(ctx context.Context, r voice.Request) error {
	if err := h.navigate(ctx, voice.IntentSoil.View()); err != nil {
		return err
	}
	var samples []models.SoilSample
	var err error
	if r.Crop != "" {
		samples, err = store.GetAllTypedByIndex[models.SoilSample](ctx, h.app.store, r.Crop)
	} else {
		samples, err = store.GetAllTyped[models.SoilSample](ctx, h.app.store)
	}
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		h.printf("No soil tests recorded%s. Use 'soil' to add one.\n", forCrop(r.Crop))
		return nil
	}
	for _, s := range samples {
		h.printf("- %s %s: pH %.1f, N %.0f, P %.0f, K %.0f\n",
			s.SampledAt.Local().Format("2006-01-02"), s.Location, s.PH, s.Nitrogen, s.Phosphorus, s.Potassium)
	}
	return nil
}

func (h *voiceHandler) Help(ctx context.Context, r voice.Request) error {
	if err := h.navigate(ctx, voice.IntentHelp.View()); err != nil {
		return err
	}
	h.printf("%s\n", helpText)
	return nil
}

func (h *voiceHandler) CropInfo(ctx context.Context, r voice.Request, fact *models.CropFact) error {
	if err := h.navigate(ctx, "crops"); err != nil {
		return err
	}
	if fact == nil {
		return nil
	}
	h.printf("%s: season %s, water %s, soil %s, pH %s, %d days\n",
		fact.Name, fact.Season, fact.WaterNeed, fact.Soil, fact.PH, fact.DurationDays)
	return nil
}

type chatRequest struct {
	Message  string `json:"message"`
	Language string `json:"language"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

// FreeText posts the transcript to the chat endpoint.
func (h *voiceHandler) FreeText(ctx context.Context, r voice.Request) (string, error) {
	if err := h.navigate(ctx, "chat"); err != nil {
		return "", err
	}
	body, err := json.Marshal(chatRequest{Message: r.Transcript, Language: r.Lang.String()})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.app.endpoint("/api/chat", nil), bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.app.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat: unexpected status %s", resp.Status)
	}
	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("chat: %w", err)
	}
	h.printf("%s\n", out.Reply)
	return out.Reply, nil
}

func forCrop(crop string) string {
	if crop == "" {
		return ""
	}
	return " for " + crop
}

// location is the village from the user's profile, or "default".
func (a *App) location(ctx context.Context) string {
	p, found, err := store.GetTyped[models.UserProfile](ctx, a.store, models.DefaultProfileID)
	if err != nil || !found || p.Village == "" {
		return "default"
	}
	return p.Village
}

func (a *App) endpoint(path string, q url.Values) string {
	base := "http://127.0.0.1"
	if a.config != nil {
		base = a.config.BackendURL
	}
	u := strings.TrimRight(base, "/") + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

// origin tells where a backend answer came from.
type origin int

const (
	fromNetwork origin = iota
	// fromCache is a stored response replayed by the interceptor.
	fromCache
	// fromOffline is the interceptor's placeholder when nothing was stored.
	fromOffline
)

type fetched struct {
	body   string
	origin origin
	age    time.Duration
}

// get reads a backend resource through the request cache.
func (a *App) get(ctx context.Context, path string, q url.Values) (fetched, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.endpoint(path, q), nil)
	if err != nil {
		return fetched{}, err
	}
	resp, err := a.http.Do(req)
	if err != nil {
		return fetched{}, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return fetched{}, err
	}
	res := fetched{body: strings.TrimSpace(string(b))}
	switch {
	case resp.Header.Get(interceptor.HeaderCache) == interceptor.CacheHitOffline:
		res.origin = fromCache
		if secs, err := strconv.Atoi(resp.Header.Get(interceptor.HeaderCacheAge)); err == nil {
			res.age = time.Duration(secs) * time.Second
		}
	case resp.Header.Get(interceptor.HeaderOffline) != "":
		res.origin = fromOffline
		return res, nil
	}
	if resp.StatusCode >= 400 {
		return fetched{}, fmt.Errorf("%s: unexpected status %s", path, resp.Status)
	}
	return res, nil
}
