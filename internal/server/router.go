package server

import (
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vendlabs/vmhistory/internal/handlers"
	"github.com/vendlabs/vmhistory/internal/logging"
	"github.com/vendlabs/vmhistory/internal/middleware"
)

// RouterConfig controls the outer surface of the router.
type RouterConfig struct {
	// StaticDir is served at "/" when it names an existing directory.
	StaticDir string
	CORS      middleware.CORSConfig
	Logger    *logging.Logger
}

// NewRouter constructs a ServeMux with the history API routes registered.
func NewRouter(h *handlers.HistoryHandler, cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	// Ingestion
	mux.HandleFunc("POST /api/transaction", h.Transaction)
	mux.HandleFunc("POST /api/state", h.State)
	mux.HandleFunc("POST /api/log", h.Log)

	// History
	mux.HandleFunc("GET /api/history", h.History)
	mux.HandleFunc("GET /api/history/text", h.HistoryText)
	mux.HandleFunc("POST /api/history/clear", h.Clear)

	mux.HandleFunc("GET /api/health", h.Health)

	// Prometheus metrics
	mux.Handle("GET /metrics", promhttp.Handler())

	if dirExists(cfg.StaticDir) {
		mux.Handle("/", http.FileServer(http.Dir(cfg.StaticDir)))
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	var handler http.Handler = mux
	handler = logging.Middleware(logger)(handler)
	handler = middleware.CORS(cfg.CORS)(handler)
	handler = middleware.SecurityHeaders(handler)
	return middleware.RequestID(handler)
}

func dirExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
