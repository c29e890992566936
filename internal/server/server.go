package server

import (
	"io/fs"
	"log"
	"net/http"
	"path"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler assembles the full HTTP surface: the UI websocket, the meeting-bot
// ingest websocket, the REST API, Prometheus metrics, and an optional static
// SPA. staticFS may be nil for a headless deployment.
func Handler(staticFS fs.FS, hub *Hub, store SessionStore, engine IngestEngine, controls SessionControls, ingestHooks IngestHooks) http.Handler {
	mux := http.NewServeMux()

	registerWSRoute(mux, hub)
	registerIngestRoute(mux, engine, ingestHooks)
	registerAPIRoutes(mux, store, controls)
	mux.Handle("GET /metrics", promhttp.Handler())

	if staticFS != nil {
		fileServer := http.FileServer(http.FS(staticFS))
		mux.HandleFunc("/", serveSPA(fileServer))
	}

	return mux
}

// Serve runs the HTTP server on addr until it fails.
func Serve(addr string, staticFS fs.FS, hub *Hub, store SessionStore, engine IngestEngine, controls SessionControls, ingestHooks IngestHooks) error {
	h := Handler(staticFS, hub, store, engine, controls, ingestHooks)

	log.Printf("listening on http://%s", addr)
	return http.ListenAndServe(addr, h)
}

func serveSPA(fileServer http.Handler) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") || r.URL.Path == "/ws" || r.URL.Path == "/ingest" || r.URL.Path == "/metrics" {
			http.NotFound(w, r)
			return
		}

		cleanPath := path.Clean(strings.TrimPrefix(r.URL.Path, "/"))
		if cleanPath == "." || cleanPath == "" {
			r.URL.Path = "/"
		} else if !strings.Contains(cleanPath, ".") {
			r.URL.Path = "/index.html"
		} else {
			r.URL.Path = "/" + cleanPath
		}

		fileServer.ServeHTTP(w, r)
	}
}
