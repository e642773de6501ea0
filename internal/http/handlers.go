package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/core"
	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/importer"
	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/log"
	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/services"
)

// handleHealth is the liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewHTMXResponse().JSON(map[string]string{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
	}).Write(w)
}

// handleReady checks templates and the record store.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	code := http.StatusOK
	checks := make(map[string]string)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, code = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	switch {
	case s.store == nil:
		checks["database"] = "not_configured"
		status, code = "not_ready", http.StatusServiceUnavailable
	default:
		if err := s.store.Ping(ctx); err != nil {
			checks["database"] = fmt.Sprintf("failed: %v", err)
			status, code = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["database"] = "ok"
		}
	}

	NewHTMXResponse().Status(code).JSON(map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	traceMetrics := s.traceMiddleware.GetMetrics()
	rateMetrics := s.rateLimiter.GetMetrics()
	securityMetrics := s.securityDetector.GetMetrics()

	cacheEntries := 0
	if s.dashboard != nil {
		cacheEntries = s.dashboard.Cache().Size()
	}

	var b bytes.Buffer
	metric := func(name, kind, help string, value int64) {
		fmt.Fprintf(&b, "# HELP %s %s\n# TYPE %s %s\n%s %d\n\n", name, help, name, kind, name, value)
	}
	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("http_client_errors_total", "counter", "Responses with a 4xx status", traceMetrics.ClientErrors)
	metric("http_server_errors_total", "counter", "Responses with a 5xx status", traceMetrics.ServerErrors)
	metric("http_response_time_avg_microseconds", "gauge", "Average response time", traceMetrics.AverageResponseTime)
	metric("dashboard_cache_entries", "gauge", "Cached dashboard read models", int64(cacheEntries))
	metric("rate_limit_hits_total", "counter", "Requests rejected by the rate limiter", rateMetrics.TotalHits)
	metric("rate_limit_clients", "gauge", "Clients tracked by the rate limiter", rateMetrics.ClientCount)
	metric("security_suspicious_requests_total", "counter", "Requests flagged as suspicious", securityMetrics.SuspiciousRequests)
	metric("uptime_seconds", "gauge", "Seconds since start", int64(time.Since(s.startedAt).Seconds()))

	NewHTMXResponse().
		Header("Content-Type", "text/plain; version=0.0.4; charset=utf-8").
		Body(b.Bytes()).
		Write(w)
}

// wantsJSON is true for API clients; browsers get HTML pages.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	return r.URL.Query().Get("format") == "json"
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// render executes a page template, or fails with 500 when templates are missing.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data interface{}) {
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded", log.FieldPath, r.URL.Path)
		InternalServerError("templates not loaded").Write(w)
		return
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.events.LogError(r.Context(), "Template execution failed", err, log.ErrorTypeInternal, log.OpRender)
		InternalServerError("gagal menampilkan halaman").Write(w)
		return
	}
	NewHTMXResponse().BodyHTML(buf.String()).Write(w)
}

// writeError maps service errors to status codes.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var verr *services.ValidationError
	status := http.StatusInternalServerError
	message := "Terjadi kesalahan pada server"
	errType := log.ErrorTypeInternal

	switch {
	case errors.As(err, &verr):
		s.events.LogError(r.Context(), "Validation failed", err, log.ErrorTypeValidation, op)
		if isHTMX(r) {
			HTMLErrorResponse(http.StatusUnprocessableEntity, verr.Error()).Write(w)
			return
		}
		FieldErrorResponse("Data tidak valid", verr.Fields).Write(w)
		return
	case errors.Is(err, core.ErrNotFound):
		status, message, errType = http.StatusNotFound, "Data tidak ditemukan", log.ErrorTypeNotFound
	case errors.Is(err, errInvalidID), errors.Is(err, errInvalidMonth), errors.Is(err, errMissingUpload):
		status, message, errType = http.StatusBadRequest, err.Error(), log.ErrorTypeValidation
	case errors.Is(err, errBodyTooLarge):
		status, message, errType = http.StatusRequestEntityTooLarge, "Ukuran file terlalu besar", log.ErrorTypeValidation
	case errors.Is(err, importer.ErrUnreadable):
		status, message, errType = http.StatusBadRequest, "File CSV tidak dapat dibaca", log.ErrorTypeValidation
	case errors.Is(err, core.ErrInvalidYear),
		errors.Is(err, core.ErrInvalidMonth),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrEmptyEmployee),
		errors.Is(err, core.ErrInvalidType),
		errors.Is(err, core.ErrInvalidDateRange):
		status, message, errType = http.StatusUnprocessableEntity, err.Error(), log.ErrorTypeValidation
	}

	if status == http.StatusInternalServerError {
		errType = log.ErrorTypeDatabase
	}
	s.events.LogError(r.Context(), "Request failed", err, errType, op)

	if isHTMX(r) {
		HTMLErrorResponse(status, message).Write(w)
		return
	}
	ErrorResponse(status, message).Write(w)
}

// writeMutation answers a successful write and asks the page to refresh.
func writeMutation(w http.ResponseWriter, status int, category, message string, payload map[string]interface{}) {
	if payload == nil {
		payload = make(map[string]interface{})
	}
	payload["success"] = true
	payload["message"] = message
	NewHTMXResponse().
		Status(status).
		TriggerRecordsChanged(category).
		TriggerSuccessNotification(message).
		JSON(payload).
		Write(w)
}

// writeDownload sends a generated file as an attachment.
func writeDownload(w http.ResponseWriter, d services.Download) {
	NewHTMXResponse().
		Header("Content-Type", d.ContentType).
		Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", d.Filename)).
		Header("Content-Length", strconv.Itoa(len(d.Body))).
		Header("Cache-Control", "no-store").
		Body(d.Body).
		Write(w)
}

// formPart reads one multipart upload field, enforcing the import limit.
func (s *Server) formPart(w http.ResponseWriter, r *http.Request, field string) (*uploadedFile, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.importMaxBytes)
	if err := r.ParseMultipartForm(s.importMaxBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, errBodyTooLarge
		}
		return nil, fmt.Errorf("%w: %v", errMissingUpload, err)
	}
	f, hdr, err := r.FormFile(field)
	if err != nil {
		return nil, fmt.Errorf("%w: field %s", errMissingUpload, field)
	}
	return &uploadedFile{File: f, Name: hdr.Filename, Size: hdr.Size}, nil
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64) + "%"
}
