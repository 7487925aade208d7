package interceptor

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/dmitrijs2005/farmadvisor/internal/logging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// HealthPath answers locally, without touching the backend.
const HealthPath = "/_local/health"

// ProxyOptions configures NewProxy.
type ProxyOptions struct {
	// AllowedOrigins lists browser origins allowed by CORS.
	AllowedOrigins []string
	Logger         logging.Logger
}

// NewProxy returns a handler forwarding every request to target through ic.
func NewProxy(target *url.URL, ic *Interceptor, opts ProxyOptions) http.Handler {
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	log = log.With("module", "proxy")

	rp := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
		},
		Transport: ic,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			code := http.StatusBadGateway
			var ne *NetworkError
			if !errors.As(err, &ne) {
				log.Error(r.Context(), "proxy error", "url", r.URL.String(), "error", err)
			}
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set(HeaderOffline, "1")
			w.WriteHeader(code)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"offline": true,
				"error":   "the backend could not be reached; the change was not sent",
			})
		},
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "Idempotency-Key"},
		ExposedHeaders: []string{HeaderCache, HeaderCacheAge, HeaderOffline},
		MaxAge:         300,
	}))
	r.Use(accessLog(log))

	r.Get(HealthPath, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/*", rp)
	return r
}

func accessLog(log logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			log.Info(r.Context(), "proxy request",
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"cache", ww.Header().Get(HeaderCache),
				"duration", time.Since(start),
			)
		})
	}
}
