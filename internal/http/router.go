package httpx

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/LuisErlacher/Archon/internal/domain"
)

// AuthService verifies bearer tokens against the identity provider.
type AuthService interface {
	VerifyToken(ctx context.Context, token string) (*domain.AuthenticatedUser, error)
	RequireAuth(ctx context.Context, header string) (*domain.AuthenticatedUser, error)
}

// MCPService answers MCP status, configuration and session queries.
type MCPService interface {
	Status(ctx context.Context) domain.StatusRecord
	Config(ctx context.Context) domain.MCPConfig
	Sessions(ctx context.Context) domain.SessionInfo
	Clients(ctx context.Context) domain.ClientList
}

// Options tune optional router behaviour.
type Options struct {
	// AuthEnabled installs the bearer-token gate in front of every non-public path.
	AuthEnabled bool
	Limiter     RateLimiter

	// HealthChecks are reported as components of GET /health, keyed by component name.
	HealthChecks map[string]func(context.Context) error
}

// Router wires HTTP endpoints to services.
type Router struct {
	mux         *http.ServeMux
	handler     http.Handler
	logger      *slog.Logger
	auth        AuthService
	mcp         MCPService
	limiter     RateLimiter
	authEnabled bool
	checks      map[string]func(context.Context) error
	routes      map[string]struct{}

	metricsOnce        sync.Once
	metricsInitialized bool
	requestTotal       *prometheus.CounterVec
	requestLatency     *prometheus.HistogramVec
	rateLimitHits      *prometheus.CounterVec
	probeResults       *prometheus.CounterVec
}

const (
	rateWindowDefault  = time.Minute
	rateLimitVerify    = 30
	rateLimitUserRead  = 120
	healthCheckTimeout = 2 * time.Second
	routeUnmatched     = "unmatched"
)

// NewRouter assembles routes with dependencies.
func NewRouter(logger *slog.Logger, authSvc AuthService, mcpSvc MCPService, opts Options) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{
		mux:         http.NewServeMux(),
		logger:      logger,
		auth:        authSvc,
		mcp:         mcpSvc,
		limiter:     opts.Limiter,
		authEnabled: opts.AuthEnabled,
		checks:      opts.HealthChecks,
		routes:      make(map[string]struct{}),
	}
	if r.limiter == nil {
		r.limiter = NewMemoryRateLimiter()
	}
	r.initMetrics()
	r.register()

	var h http.Handler = r.mux
	if r.authEnabled {
		h = r.gate(h)
	}
	r.handler = r.audit(h)
	return r
}

// ServeHTTP delegates to the middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.handler.ServeHTTP(w, req)
}

// Close releases background resources.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
}

func (r *Router) handle(pattern string, h http.HandlerFunc) {
	r.routes[pattern] = struct{}{}
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) register() {
	r.handle("/health", r.handleHealth)

	r.handle("/api/auth/verify", r.withRateLimit("/api/auth/verify", rateLimitVerify, rateWindowDefault, rateLimitKeyIP, r.handleVerifyToken))
	r.handle("/api/auth/user", r.handlerAuthRate("/api/auth/user", rateLimitUserRead, rateWindowDefault, r.handleCurrentUser))
	r.handle("/api/auth/health", r.handleAuthHealth)

	r.handle("/api/mcp/status", r.handleMCPStatus)
	r.handle("/api/mcp/config", r.handleMCPConfig)
	r.handle("/api/mcp/clients", r.handleMCPClients)
	r.handle("/api/mcp/sessions", r.handleMCPSessions)
	r.handle("/api/mcp/health", r.handleMCPHealth)
}

func (r *Router) routeLabel(path string) string {
	if _, ok := r.routes[path]; ok {
		return path
	}
	return routeUnmatched
}

func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	components := make(map[string]any, len(r.checks))
	status := "healthy"
	ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
	defer cancel()
	for name, check := range r.checks {
		if err := check(ctx); err != nil {
			status = "degraded"
			components[name] = map[string]any{
				"status": "down",
				"error":  err.Error(),
			}
			continue
		}
		components[name] = map[string]any{"status": "up"}
	}
	payload := map[string]any{
		"status":     status,
		"service":    "api",
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	}
	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, payload)
}

// audit logs one line per request, records request metrics and turns panics into 500s.
func (r *Router) audit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		reqID := strings.TrimSpace(req.Header.Get("X-Request-ID"))
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", reqID)

		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		func() {
			defer func() {
				if p := recover(); p != nil {
					r.logger.Error("handler panic", "path", req.URL.Path, "panic", p, "request_id", reqID)
					if recorder.status == 0 {
						writeError(recorder, http.StatusInternalServerError, fmt.Sprint(p))
					}
				}
			}()
			next.ServeHTTP(recorder, req)
		}()

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		ctx := recorder.ctx
		if ctx == nil {
			ctx = req.Context()
		}
		duration := time.Since(start)
		r.recordRequestMetrics(req.Method, r.routeLabel(req.URL.Path), status, duration)

		actor := "anonymous"
		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", duration.Milliseconds(),
			"request_id", reqID,
		}
		if ip := clientIP(req); ip != "" {
			fields = append(fields, "ip", ip)
		}
		if user, ok := userFromContext(ctx); ok {
			actor = "user"
			fields = append(fields, "user_id", user.ID)
		}
		fields = append(fields, "actor", actor)

		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
	ctx    context.Context
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) SetContext(ctx context.Context) {
	sr.ctx = ctx
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := sr.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errors.New("hijacker not supported")
}

func clientIP(req *http.Request) string {
	if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(req.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}

func (r *Router) applyRateHeaders(w http.ResponseWriter, limit int, decision rateDecision) {
	if limit <= 0 {
		return
	}
	remaining := limit - decision.count
	if remaining < 0 {
		remaining = 0
	}
	headers := w.Header()
	headers.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	headers.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	if !decision.windowEnd.IsZero() {
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(decision.windowEnd.Unix(), 10))
	}
}

func (r *Router) methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
