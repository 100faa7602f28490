// Package handlers provides HTTP request handlers for the prescriptions API endpoints.
// This file implements the HTTPHandler interface with dependency injection.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/giygas/prescriptions-api/catalogparser"
	"github.com/giygas/prescriptions-api/interfaces"
	"github.com/giygas/prescriptions-api/logging"
	"github.com/giygas/prescriptions-api/metrics"
	"github.com/giygas/prescriptions-api/prescription"
	"github.com/giygas/prescriptions-api/render"
)

// HTTPHandlerImpl implements the interfaces.HTTPHandler interface
type HTTPHandlerImpl struct {
	dataStore     interfaces.DataStore
	validator     interfaces.DataValidator
	healthChecker interfaces.HealthChecker
	renderers     map[string]interfaces.DocumentRenderer
	now           func() time.Time
}

// NewHTTPHandler creates a new HTTP handler with injected dependencies
func NewHTTPHandler(dataStore interfaces.DataStore, validator interfaces.DataValidator,
	healthChecker interfaces.HealthChecker, renderers ...interfaces.DocumentRenderer) interfaces.HTTPHandler {

	byFormat := make(map[string]interfaces.DocumentRenderer, len(renderers))
	for _, r := range renderers {
		byFormat[r.Format()] = r
	}

	return &HTTPHandlerImpl{
		dataStore:     dataStore,
		validator:     validator,
		healthChecker: healthChecker,
		renderers:     byFormat,
		now:           time.Now,
	}
}

// HealthResponse defines the structure for consistent JSON ordering
type HealthResponse struct {
	Status        string         `json:"status"`
	Uptime        string         `json:"uptime"`
	UptimeSeconds float64        `json:"uptime_seconds"`
	Data          map[string]any `json:"data"`
	System        map[string]any `json:"system"`
}

// MedicationsResponse is the selection list of the form
type MedicationsResponse struct {
	Count       int      `json:"count"`
	Medications []string `json:"medications"`
	LastUpdated string   `json:"lastUpdated"`
}

// RespondWithJSON writes a JSON response
func (h *HTTPHandlerImpl) RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal JSON response", "error", err, "payload_type", fmt.Sprintf("%T", payload))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
	w.WriteHeader(code)
	if _, err := w.Write(data); err != nil {
		logging.Warn("Failed to write response", "error", err)
	}
}

// RespondWithError writes a JSON error response
func (h *HTTPHandlerImpl) RespondWithError(w http.ResponseWriter, code int, message string) {
	errorResponse := map[string]any{
		"error":   http.StatusText(code),
		"message": message,
		"code":    code,
	}
	h.RespondWithJSON(w, code, errorResponse)
}

// requireCatalog answers 503 until the first catalog has been loaded
func (h *HTTPHandlerImpl) requireCatalog(w http.ResponseWriter) (*catalogparser.Catalog, bool) {
	if !h.dataStore.HasCatalog() {
		h.RespondWithError(w, http.StatusServiceUnavailable, "Drug catalog is not loaded yet")
		return nil, false
	}
	return h.dataStore.GetCatalog(), true
}

// formatUptimeHuman formats duration into a human-readable string
func formatUptimeHuman(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	var parts []string

	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 || hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	parts = append(parts, fmt.Sprintf("%ds", seconds))

	return strings.Join(parts, " ")
}

// ListMedications returns the sorted selection labels, optionally filtered by ?q=
func (h *HTTPHandlerImpl) ListMedications(w http.ResponseWriter, r *http.Request) {
	catalog, ok := h.requireCatalog(w)
	if !ok {
		return
	}

	labels := catalog.Labels()

	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		if err := h.validator.ValidateInput(q); err != nil {
			logging.Warn("Unusual user input", "q", q)
			h.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		needle := strings.ToLower(q)
		filtered := make([]string, 0)
		for _, label := range labels {
			if strings.Contains(strings.ToLower(label), needle) {
				filtered = append(filtered, label)
			}
		}
		labels = filtered
	}

	h.RespondWithJSON(w, http.StatusOK, MedicationsResponse{
		Count:       len(labels),
		Medications: labels,
		LastUpdated: h.dataStore.GetLastUpdated().Format(time.RFC3339),
	})
}

// LookupMedication returns the catalog entry with the exact ?label=
func (h *HTTPHandlerImpl) LookupMedication(w http.ResponseWriter, r *http.Request) {
	catalog, ok := h.requireCatalog(w)
	if !ok {
		return
	}

	label := r.URL.Query().Get("label")
	if label == "" {
		h.RespondWithError(w, http.StatusBadRequest, "Missing label")
		return
	}

	entry, err := catalog.Lookup(label)
	if err != nil {
		if catalogparser.IsNotFound(err) {
			h.RespondWithError(w, http.StatusNotFound, err.Error())
			return
		}
		h.RespondWithError(w, http.StatusInternalServerError, "Lookup failed")
		return
	}

	h.RespondWithJSON(w, http.StatusOK, entry)
}

// ListFrequencies returns the dosing frequencies with their daily factor
func (h *HTTPHandlerImpl) ListFrequencies(w http.ResponseWriter, r *http.Request) {
	h.RespondWithJSON(w, http.StatusOK, prescription.Frequencies())
}

// PreviewPrescription assembles the prescription without rendering a document
func (h *HTTPHandlerImpl) PreviewPrescription(w http.ResponseWriter, r *http.Request) {
	rx, ok := h.assemble(w, r)
	if !ok {
		return
	}
	h.RespondWithJSON(w, http.StatusOK, rx)
}

// ExportText returns the prescription as a plain text attachment
func (h *HTTPHandlerImpl) ExportText(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, render.FormatText)
}

// ExportPDF returns the prescription as a PDF attachment
func (h *HTTPHandlerImpl) ExportPDF(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, render.FormatPDF)
}

func (h *HTTPHandlerImpl) export(w http.ResponseWriter, r *http.Request, format string) {
	renderer, exists := h.renderers[format]
	if !exists {
		h.RespondWithError(w, http.StatusNotImplemented, fmt.Sprintf("%s export is not available", format))
		return
	}

	rx, ok := h.assemble(w, r)
	if !ok {
		return
	}

	doc, err := renderer.Render(r.Context(), rx)
	if err != nil {
		metrics.DocumentsRendered.WithLabelValues(format, "error").Inc()
		logging.Error("Failed to render prescription", "error", err, "format", format, "id", rx.ID)
		h.RespondWithError(w, http.StatusInternalServerError, "Failed to render document")
		return
	}
	metrics.DocumentsRendered.WithLabelValues(format, "ok").Inc()

	logging.Info("Prescription exported", "format", format, "id", rx.ID, "bytes", len(doc.Content))

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc.Content); err != nil {
		logging.Warn("Failed to write document", "error", err, "id", rx.ID)
	}
}

// assemble decodes, validates and assembles the posted form, answering the
// request itself when it cannot
func (h *HTTPHandlerImpl) assemble(w http.ResponseWriter, r *http.Request) (*prescription.Prescription, bool) {
	catalog, ok := h.requireCatalog(w)
	if !ok {
		return nil, false
	}

	var form prescription.Form
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&form); err != nil {
		var maxBytesErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxBytesErr):
			h.RespondWithError(w, http.StatusRequestEntityTooLarge, "Request body too large")
		case errors.Is(err, io.EOF):
			h.RespondWithError(w, http.StatusBadRequest, "Request body is empty")
		default:
			h.RespondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid prescription form: %v", err))
		}
		return nil, false
	}

	if err := h.validator.ValidatePrescription(&form); err != nil {
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}

	entry, err := catalog.Lookup(form.Medication)
	if err != nil {
		h.RespondWithError(w, http.StatusNotFound, err.Error())
		return nil, false
	}

	rx, err := prescription.Assemble(entry, form, h.now())
	if err != nil {
		logging.Error("Failed to assemble prescription", "error", err, "medication", form.Medication)
		h.RespondWithError(w, http.StatusInternalServerError, "Failed to assemble prescription")
		return nil, false
	}

	return rx, true
}

// HealthCheck returns server health information
func (h *HTTPHandlerImpl) HealthCheck(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	status, data, httpStatus := h.healthChecker.HealthCheck()

	var uptime time.Duration
	if start := h.dataStore.GetServerStartTime(); !start.IsZero() {
		uptime = time.Since(start)
	}

	response := HealthResponse{
		Status:        status,
		Uptime:        formatUptimeHuman(uptime),
		UptimeSeconds: uptime.Seconds(),
		Data:          data,
		System: map[string]any{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb": int(m.Alloc / 1024 / 1024),
				"sys_mb":   int(m.Sys / 1024 / 1024),
				"num_gc":   m.NumGC,
			},
		},
	}

	h.RespondWithJSON(w, httpStatus, response)
}
