// internal/server/mux.go
// Package server implements the HTTP handlers and routing for the campus
// content proxy. Every list endpoint guarantees the canonical
// {results, count, next, previous} contract and degrades to an empty list on
// upstream failure; detail endpoints surface 404 and 500.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/campuskit/campus-proxy-go/internal/canonical"
	errordefs "github.com/campuskit/campus-proxy-go/internal/errors"
	"github.com/campuskit/campus-proxy-go/internal/events"
	"github.com/campuskit/campus-proxy-go/internal/media"
	"github.com/campuskit/campus-proxy-go/internal/metrics"
	"github.com/campuskit/campus-proxy-go/internal/normalize"
	"github.com/campuskit/campus-proxy-go/internal/query"
	"github.com/campuskit/campus-proxy-go/internal/resolve"
	"github.com/campuskit/campus-proxy-go/internal/upstream"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ContextKey is used for context values to avoid collisions
// when storing values in request context
type ContextKey string

// ContextKeyCorrelationID stores the unique ID for request tracking.
const ContextKeyCorrelationID ContextKey = "correlationId"

const tracerName = "campus-proxy"

// Options carries the handler-level configuration.
type Options struct {
	MediaBaseURL       string   // Base for resolving relative media paths
	CORSAllowedOrigins []string // Allowed origins for CORS (empty means deny all)
}

// Mux handles HTTP requests for the proxy service.
type Mux struct {
	mux      *http.ServeMux
	up       *upstream.Client
	agg      *events.Aggregator
	resolver *resolve.Resolver
	metrics  *metrics.Metrics

	mediaBase          string
	corsAllowedOrigins []string
}

// NewMux creates the HTTP mux with all proxy endpoints.
func NewMux(up *upstream.Client, opts Options) *http.ServeMux {
	m := &Mux{
		mux:                http.NewServeMux(),
		up:                 up,
		agg:                events.NewAggregator(up, EventsSpec, slog.Default(), metrics.NewMetrics()),
		resolver:           resolve.New(up, slog.Default()),
		metrics:            metrics.NewMetrics(),
		mediaBase:          opts.MediaBaseURL,
		corsAllowedOrigins: opts.CORSAllowedOrigins,
	}

	// Health and observability endpoints
	m.mux.HandleFunc("/healthz", m.handleHealthz)
	m.mux.HandleFunc("/readyz", m.handleReadyz)
	m.mux.Handle("/metrics", promhttp.Handler())

	// Generic list proxies
	for _, spec := range Resources {
		m.mux.HandleFunc("/api/"+spec.Name, m.method("GET", m.withMiddleware(m.handleList(spec))))
		if detailResources[spec.Name] {
			m.mux.HandleFunc("/api/"+spec.Name+"/", m.method("GET", m.withMiddleware(m.handleDetail(spec, false))))
		}
	}

	// Event aggregation and detail
	m.mux.HandleFunc("/api/events", m.method("GET", m.withMiddleware(m.handleEvents)))
	m.mux.HandleFunc("/api/events/", m.method("GET", m.withMiddleware(m.handleDetail(EventsSpec, true))))

	return m.mux
}

// method ensures the HTTP method matches the expected method
func (m *Mux) method(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			m.writeErrorDef(w, errordefs.New(errordefs.PROXY_BAD_REQUEST, "method not allowed", correlationID(r.Context())))
			return
		}
		h(w, r)
	}
}

// withMiddleware applies CORS headers, the correlation id and request
// logging/metrics to handlers.
func (m *Mux) withMiddleware(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		if origin := r.Header.Get("Origin"); origin != "" && m.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Correlation-Id")
		}
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		cid := r.Header.Get("X-Correlation-Id")
		if cid == "" {
			cid = uuid.New().String()
		}
		r = r.WithContext(context.WithValue(r.Context(), ContextKeyCorrelationID, cid))
		w.Header().Set("X-Correlation-Id", cid)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)

		m.logRequest(r, rec.status, time.Since(start), cid)
	}
}

// originAllowed checks the configured CORS allow-list.
func (m *Mux) originAllowed(origin string) bool {
	for _, allowed := range m.corsAllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// statusRecorder captures the response status for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// logRequest logs request details and records request metrics.
func (m *Mux) logRequest(r *http.Request, status int, duration time.Duration, cid string) {
	slog.LogAttrs(r.Context(), slog.LevelInfo, "request completed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status", status),
		slog.Duration("duration", duration),
		slog.String("correlation_id", cid),
	)
	statusLabel := fmt.Sprintf("%d", status)
	m.metrics.HTTPRequestTotal.WithLabelValues(r.Method, r.URL.Path, statusLabel).Inc()
	m.metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path, statusLabel).Observe(duration.Seconds())
}

// correlationID extracts the request correlation id from the context.
func correlationID(ctx context.Context) string {
	if cid, ok := ctx.Value(ContextKeyCorrelationID).(string); ok {
		return cid
	}
	return ""
}

// handleHealthz handles liveness health check requests
func (m *Mux) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReadyz handles readiness health check requests by probing upstream
// reachability. The proxy still serves degraded (empty-list) responses when
// the CMS is down, but readiness reports the dependency honestly.
func (m *Mux) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := m.up.Ping(ctx); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleList serves GET /api/<resource>: translate the inbound query, fetch
// the upstream collection, degrade failures to the empty canonical list,
// resolve media URLs and normalize key casing.
func (m *Mux) handleList(spec query.ResourceSpec) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := otel.Tracer(tracerName).Start(r.Context(), "handleList")
		defer span.End()
		span.SetAttributes(attribute.String("resource", spec.Name))

		q := query.Translate(r.URL.Query(), spec)
		list := m.fetchListSafe(ctx, spec, q)
		m.writeList(w, spec, list)
	}
}

// handleEvents serves GET /api/events through the aggregator.
func (m *Mux) handleEvents(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer(tracerName).Start(r.Context(), "handleEvents")
	defer span.End()
	span.SetAttributes(
		attribute.String("resource", "events"),
		attribute.String("type", r.URL.Query().Get("type")),
	)

	list := m.agg.Aggregate(ctx, r.URL.Query())
	m.writeList(w, EventsSpec, list)
}

// handleDetail serves GET /api/<resource>/{id} through the UUID-or-slug
// resolver. Event detail additionally infers the source classification.
func (m *Mux) handleDetail(spec query.ResourceSpec, classifySource bool) http.HandlerFunc {
	prefix := "/api/" + spec.Name + "/"
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := otel.Tracer(tracerName).Start(r.Context(), "handleDetail")
		defer span.End()

		id := strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")
		span.SetAttributes(attribute.String("resource", spec.Name), attribute.String("id", id))
		if id == "" || strings.Contains(id, "/") {
			m.writeErrorDef(w, errordefs.New(errordefs.PROXY_BAD_REQUEST, "identifier is required", correlationID(ctx)))
			return
		}

		obj, err := m.resolver.Resolve(ctx, spec, id, r.URL.Query())
		if err != nil {
			cid := correlationID(ctx)
			var nfe *resolve.NotFoundError
			if errors.As(err, &nfe) {
				// Not-found is a normal outcome, not a fault; the candidate
				// slugs are non-contractual debugging context.
				span.SetStatus(codes.Error, "not found")
				m.writeErrorDef(w, errordefs.NewWithDetails(errordefs.PROXY_NOT_FOUND,
					entityLabel(spec.Name)+" not found", cid, nfe.CandidateSlugs))
				return
			}
			span.SetStatus(codes.Error, "upstream failure")
			m.logUpstreamFailure(ctx, "object", spec.Name, err)
			m.writeErrorDef(w, errordefs.New(errordefs.PROXY_UPSTREAM_UNREACHABLE,
				"failed to fetch "+entityLabel(spec.Name), cid))
			return
		}

		if classifySource {
			if src, ok := events.Classify(obj); ok {
				obj["source"] = string(src)
			}
		}
		media.ResolveItem(obj, m.mediaBase)
		m.setCacheControl(w, spec.CacheTTL)
		m.writeJSON(w, http.StatusOK, normalize.Keys(obj))
	}
}

// fetchListSafe is the error-to-empty adapter for list operations: any
// upstream failure is logged and converted into the empty canonical list, so
// list endpoints never surface a 5xx to the browser.
func (m *Mux) fetchListSafe(ctx context.Context, spec query.ResourceSpec, q url.Values) canonical.List {
	list, err := m.up.FetchList(ctx, spec.Name, spec.Path, q, spec.CacheTTL)
	if err != nil {
		m.logUpstreamFailure(ctx, "list", spec.Name, err)
		m.metrics.EmptyFallbackTotal.WithLabelValues(spec.Name, "list").Inc()
		return canonical.Empty()
	}
	return list
}

// logUpstreamFailure records a recovered upstream failure with enough context
// for server-side diagnosis.
func (m *Mux) logUpstreamFailure(ctx context.Context, kind, resource string, err error) {
	slog.LogAttrs(ctx, slog.LevelError, "upstream request failed",
		slog.String("operation", kind),
		slog.String("resource", resource),
		slog.String("correlation_id", correlationID(ctx)),
		slog.String("error", err.Error()),
	)
}

// writeList applies the media and key-normalization steps and writes a
// canonical list response with its caching headers.
func (m *Mux) writeList(w http.ResponseWriter, spec query.ResourceSpec, list canonical.List) {
	media.ResolveResults(list.Results, m.mediaBase)
	if rs, ok := normalize.Keys(list.Results).([]any); ok {
		list.Results = rs
	}
	m.setCacheControl(w, spec.CacheTTL)
	m.writeJSON(w, http.StatusOK, list)
}

// setCacheControl advertises the resource's freshness window to CDN layers.
func (m *Mux) setCacheControl(w http.ResponseWriter, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	w.Header().Set("Cache-Control",
		fmt.Sprintf("public, s-maxage=%d, stale-while-revalidate=3600", int(ttl.Seconds())))
}

// writeJSON writes a JSON response body.
func (m *Mux) writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// errorBody is the wire shape of detail-endpoint errors: a short error label,
// an optional human-readable message and optional debug candidates.
type errorBody struct {
	Error      string   `json:"error"`
	Message    string   `json:"message,omitempty"`
	Candidates []string `json:"candidates,omitempty"`
}

// writeErrorDef writes an error response using the error definitions package.
func (m *Mux) writeErrorDef(w http.ResponseWriter, err *errordefs.Error) {
	body := errorBody{Error: err.Message}
	if err.HTTPStatus >= 500 {
		body.Error = "upstream request failed"
		body.Message = err.Message
	}
	if slugs, ok := err.Details.([]string); ok {
		body.Candidates = slugs
	}
	m.writeJSON(w, err.HTTPStatus, body)
}

// entityLabel renders a singular human-readable entity name for error bodies.
func entityLabel(resource string) string {
	singular := strings.TrimSuffix(resource, "s")
	if len(singular) == 0 {
		singular = resource
	}
	return strings.ToUpper(singular[:1]) + singular[1:]
}
