// Package http serves the booking dashboard JSON API.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"flightdash/internal/cache"
	"flightdash/internal/core"
	"flightdash/internal/dataset"
	"flightdash/internal/log"
	"flightdash/internal/report"
)

// RefreshPublisher fans a refresh request out to worker processes. It is
// optional; without one, POST /api/refresh only reloads this process.
type RefreshPublisher interface {
	PublishRefresh(ctx context.Context, locator, reason string) error
}

type Server struct {
	http.Server

	loader    *dataset.Loader
	locator   string
	publisher RefreshPublisher
	logger    *log.Logger

	// Reports are cached per selection so repeated chart loads for the same
	// filters do not rebuild the aggregations.
	reports     *cache.LRUCache[*report.Report]
	rateLimiter *rateLimiter

	shutdownOnce sync.Once
}

// NewServer configures routes, returning a ready-to-run server. reportTTL
// bounds how long a built report may be served before it is recomputed.
func NewServer(addr string, loader *dataset.Loader, locator string, publisher RefreshPublisher, reportTTL time.Duration, logger *log.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		loader:      loader,
		locator:     locator,
		publisher:   publisher,
		logger:      logger.WithComponent("http"),
		reports:     cache.NewLRUCache[*report.Report](128, reportTTL),
		rateLimiter: newRateLimiter(),
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.withSecurityHeaders(s.handleReady))

	mux.HandleFunc("/api/facets", s.withSecurityHeaders(s.handleFacets))
	mux.HandleFunc("/api/summary", s.withSecurityHeaders(s.handleSummary))
	mux.HandleFunc("/api/flight-types", s.withSecurityHeaders(s.chartHandler(flightTypes)))
	mux.HandleFunc("/api/destinations", s.withSecurityHeaders(s.chartHandler(topDestinations)))
	mux.HandleFunc("/api/routes", s.withSecurityHeaders(s.chartHandler(topRoutes)))
	mux.HandleFunc("/api/financials/commission-by-type", s.withSecurityHeaders(s.chartHandler(commissionByType)))
	mux.HandleFunc("/api/financials/price-ranges", s.withSecurityHeaders(s.chartHandler(priceRanges)))
	mux.HandleFunc("/api/payments/commission", s.withSecurityHeaders(s.chartHandler(paymentCommission)))
	mux.HandleFunc("/api/payments/usage", s.withSecurityHeaders(s.chartHandler(paymentUsage)))
	mux.HandleFunc("/api/airports/commission", s.withSecurityHeaders(s.chartHandler(airportCommission)))
	mux.HandleFunc("/api/airports/sales", s.withSecurityHeaders(s.chartHandler(airportSales)))
	mux.HandleFunc("/api/airports/volume", s.withSecurityHeaders(s.chartHandler(airportVolume)))
	mux.HandleFunc("/api/export.csv", s.withSecurityHeaders(s.handleExportCSV))
	mux.HandleFunc("/api/refresh", s.withSecurityHeaders(s.handleRefresh))

	return s
}

// ReportCache exposes the selection cache for cleanup registration.
func (s *Server) ReportCache() cache.Cleaner {
	return s.reports
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// report returns the cached report for the selection, building it from the
// loaded dataset on a miss.
func (s *Server) report(ctx context.Context, sel report.Selection) (*report.Report, error) {
	key := s.locator + "|" + sel.Key()
	if r, ok := s.reports.Get(key); ok {
		return r, nil
	}

	ds, err := s.loader.Load(ctx, s.locator)
	if err != nil {
		return nil, err
	}
	r := report.Build(ds, sel)
	s.reports.Set(key, r)
	return r, nil
}

// selectionFromQuery parses the years and months query parameters. Both take
// comma-separated lists; an empty or absent parameter means no filter.
func selectionFromQuery(r *http.Request) (report.Selection, error) {
	var sel report.Selection

	if v := strings.TrimSpace(r.URL.Query().Get("years")); v != "" {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			year, err := strconv.Atoi(part)
			if err != nil {
				return sel, fmt.Errorf("invalid year %q", part)
			}
			sel.Years = append(sel.Years, year)
		}
	}

	if v := strings.TrimSpace(r.URL.Query().Get("months")); v != "" {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			month, ok := core.MonthIndex(part)
			if !ok {
				return sel, fmt.Errorf("invalid month %q", part)
			}
			sel.Months = append(sel.Months, month.String())
		}
	}

	return sel, nil
}

// Simple in-memory rate limiter for mutating requests.
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries removes client entries older than 10 minutes.
func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		if rl.stopCleanup != nil {
			close(rl.stopCleanup)
		}
	})
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]

	if !exists {
		rl.clients[clientIP] = &clientInfo{
			lastRequest: now,
			requests:    1,
		}
		return true
	}

	// Reset counter if more than 1 minute has passed
	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	// Allow up to 60 requests per minute
	client.requests++
	client.lastRequest = now

	return client.requests <= 60
}

// withSecurityHeaders adds security headers, rate limiting, and request
// logging to responses.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		// Rate limit mutating requests only; chart reads are cached anyway.
		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP) {
			s.logger.WarnContext(ctx, "rate limit exceeded",
				"client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.logger.InfoContext(ctx, "request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", clientIP)
	}
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}
