package http

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/stem-explorer/internal/lifecycle"
	"github.com/kjstillabower/stem-explorer/internal/observability"
	"github.com/kjstillabower/stem-explorer/internal/profile"
	"github.com/kjstillabower/stem-explorer/internal/service"
	"github.com/kjstillabower/stem-explorer/internal/traffic"
)

// Config holds page settings and health thresholds for the handlers.
type Config struct {
	SiteTitle      string
	Profile        profile.Profile
	MaxUploadBytes int64
	// HealthWindow is the traffic window read by the health check (0 disables
	// the overload and degraded checks).
	HealthWindow         time.Duration
	OverloadThresholdPct int // denials as a percentage of all requests in the window
	DegradedErrorPct     int // 5xx responses as a percentage of served requests
	// CachePing, when set, is called to check cache reachability. Used when backend is memcached.
	CachePing func() error
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	publications     *service.Publications
	explorer         *service.Explorer
	contact          *service.Contact
	cfg              Config
	logger           *zap.Logger
	traffic          *traffic.Tracker
	pages            *pageSet
	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler. HTML templates are parsed once here.
func NewHandler(
	publications *service.Publications,
	explorer *service.Explorer,
	contact *service.Contact,
	cfg Config,
	logger *zap.Logger,
) *Handler {
	if cfg.SiteTitle == "" {
		cfg.SiteTitle = "Researcher Profile and STEM Data Explorer"
	}
	cfg.Profile = cfg.Profile.Merge()
	return &Handler{
		publications: publications,
		explorer:     explorer,
		contact:      contact,
		cfg:          cfg,
		logger:       logger,
		traffic:      traffic.Default(),
		pages:        mustParsePages(),
	}
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus()

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	checks := map[string]string{}
	if h.cfg.CachePing != nil {
		if result.reason == "cache_unreachable" {
			checks["cache"] = "unhealthy"
		} else {
			checks["cache"] = "healthy"
		}
	}
	resp := map[string]interface{}{
		"status":    result.status,
		"service":   observability.ServiceName,
		"version":   "dev",
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	writeJSON(w, result.statusCode, resp)
}

// computeHealthStatus evaluates conditions in priority order:
// shutting-down > cache unreachable > overloaded > degraded > healthy.
func (h *Handler) computeHealthStatus() healthResult {
	if lifecycle.IsShuttingDown() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal"}
	}
	if h.cfg.CachePing != nil {
		if err := h.cfg.CachePing(); err != nil {
			return healthResult{"degraded", http.StatusServiceUnavailable, "cache_unreachable"}
		}
	}
	if h.cfg.HealthWindow <= 0 {
		return healthResult{"healthy", http.StatusOK, ""}
	}
	counts := h.traffic.Window(h.cfg.HealthWindow)
	if h.cfg.OverloadThresholdPct > 0 && counts.Total() > 0 {
		if float64(counts.Denied)*100/float64(counts.Total()) >= float64(h.cfg.OverloadThresholdPct) {
			return healthResult{"overloaded", http.StatusServiceUnavailable, "overload_threshold"}
		}
	}
	if h.cfg.DegradedErrorPct > 0 && counts.ErrorPct() >= float64(h.cfg.DegradedErrorPct) {
		return healthResult{"degraded", http.StatusServiceUnavailable, "error_rate_breach"}
	}
	return healthResult{"healthy", http.StatusOK, ""}
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// apiError is the body of every JSON error response.
type apiError struct {
	Code      string   `json:"code"`
	Message   string   `json:"message"`
	RequestID string   `json:"requestId"`
	Missing   []string `json:"missing,omitempty"`
	Invalid   []string `json:"invalid,omitempty"`
}

// writeError writes an error response in the standard error format with code, message,
// and requestId (correlation ID) if available in request context.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeErrorBody(w, r, status, apiError{Code: code, Message: message})
}

func writeErrorBody(w http.ResponseWriter, r *http.Request, status int, body apiError) {
	body.RequestID = observability.CorrelationID(r.Context())
	writeJSON(w, status, map[string]apiError{"error": body})
}

// writeInternalError writes a 500 and logs the underlying error.
func writeInternalError(w http.ResponseWriter, r *http.Request, err error) {
	observability.LoggerOrNop(r.Context()).Error("request failed", zap.Error(err))
	writeError(w, r, http.StatusInternalServerError, "INTERNAL", "Internal error")
}
