// Package health provides health checking functionality for the prescriptions API.
package health

import (
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/giygas/prescriptions-api/interfaces"
)

// DefaultRefreshAt matches the scheduler default
const DefaultRefreshAt = "06:00;18:00"

// HealthCheckerImpl implements the interfaces.HealthChecker interface
type HealthCheckerImpl struct {
	dataStore    interfaces.DataStore
	refreshTimes []time.Duration // offsets from midnight, sorted
}

// NewHealthChecker creates a new health checker with injected dependencies.
// refreshAt uses the "HH:MM;HH:MM" syntax of the scheduler.
func NewHealthChecker(dataStore interfaces.DataStore, refreshAt string) (interfaces.HealthChecker, error) {
	times, err := ParseRefreshTimes(refreshAt)
	if err != nil {
		return nil, err
	}
	return &HealthCheckerImpl{
		dataStore:    dataStore,
		refreshTimes: times,
	}, nil
}

// ParseRefreshTimes parses "HH:MM;HH:MM" into sorted offsets from midnight
func ParseRefreshTimes(refreshAt string) ([]time.Duration, error) {
	if refreshAt == "" {
		refreshAt = DefaultRefreshAt
	}

	var times []time.Duration
	for _, part := range strings.Split(refreshAt, ";") {
		hh, mm, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			return nil, fmt.Errorf("invalid refresh time %q", part)
		}
		h, errH := strconv.Atoi(hh)
		m, errM := strconv.Atoi(mm)
		if errH != nil || errM != nil || h < 0 || h > 23 || m < 0 || m > 59 {
			return nil, fmt.Errorf("invalid refresh time %q", part)
		}
		times = append(times, time.Duration(h)*time.Hour+time.Duration(m)*time.Minute)
	}

	sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })
	return times, nil
}

// HealthCheck returns HTTP-specific health data
// Used by /health HTTP endpoint
func (h *HealthCheckerImpl) HealthCheck() (status string, data map[string]any, httpStatus int) {
	catalog := h.dataStore.GetCatalog()
	lastUpdate := h.dataStore.GetLastUpdated()
	isUpdating := h.dataStore.IsUpdating()

	dataAge := time.Since(lastUpdate)

	switch {
	case !h.dataStore.HasCatalog() || catalog.Len() == 0:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case dataAge > 48*time.Hour:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case dataAge > 24*time.Hour:
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable

	case isUpdating && dataAge > 6*time.Hour:
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable

	default:
		status = "healthy"
		httpStatus = http.StatusOK
	}

	data = map[string]any{
		"last_update":    lastUpdate.Format(time.RFC3339),
		"data_age_hours": math.Round(dataAge.Hours()*10) / 10,
		"next_update":    h.CalculateNextUpdate().Format(time.RFC3339),
		"medications":    catalog.Len(),
		"is_updating":    isUpdating,
	}

	if start := h.dataStore.GetServerStartTime(); !start.IsZero() {
		data["uptime_seconds"] = math.Round(time.Since(start).Seconds())
	}

	if report := h.dataStore.GetQualityReport(); report != nil {
		data["data_quality"] = map[string]any{
			"without_dose":     report.EntriesWithoutDose,
			"without_form":     report.EntriesWithoutForm,
			"without_route":    report.EntriesWithoutRoute,
			"label_collisions": report.LabelCollisions,
		}
	}

	return status, data, httpStatus
}

// CalculateNextUpdate returns the next scheduled refresh time
func (h *HealthCheckerImpl) CalculateNextUpdate() time.Time {
	return nextRefresh(time.Now(), h.refreshTimes)
}

func nextRefresh(now time.Time, times []time.Duration) time.Time {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	for _, offset := range times {
		candidate := midnight.Add(offset)
		if now.Before(candidate) {
			return candidate
		}
	}

	// All of today's refreshes are past, first one tomorrow
	return midnight.AddDate(0, 0, 1).Add(times[0])
}
