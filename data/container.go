// Package data provides thread-safe storage of the drug catalog.
// The DataContainer swaps the whole catalog atomically so requests keep
// reading the previous one while a refresh is in progress.
package data

import (
	"sync/atomic"
	"time"

	"github.com/giygas/prescriptions-api/catalogparser"
	"github.com/giygas/prescriptions-api/interfaces"
	"github.com/giygas/prescriptions-api/logging"
	"github.com/giygas/prescriptions-api/metrics"
)

// Compile-time check to ensure DataContainer implements DataStore
var _ interfaces.DataStore = (*DataContainer)(nil)

var emptyCatalog = catalogparser.NewCatalog(nil, 0)

// DataContainer holds the current catalog behind atomic values
type DataContainer struct {
	catalog         atomic.Pointer[catalogparser.Catalog]
	report          atomic.Pointer[interfaces.DataQualityReport]
	lastUpdated     atomic.Value // time.Time
	updating        atomic.Bool
	serverStartTime atomic.Value // time.Time
}

// NewDataContainer creates a container with no catalog loaded
func NewDataContainer() *DataContainer {
	dc := &DataContainer{}
	dc.lastUpdated.Store(time.Time{})
	dc.serverStartTime.Store(time.Time{})
	return dc
}

// GetCatalog returns the current catalog, or an empty one before the first load
func (dc *DataContainer) GetCatalog() *catalogparser.Catalog {
	if c := dc.catalog.Load(); c != nil {
		return c
	}
	return emptyCatalog
}

// HasCatalog reports whether a catalog has been loaded at least once
func (dc *DataContainer) HasCatalog() bool {
	return dc.catalog.Load() != nil
}

// GetQualityReport returns the report of the current catalog, nil before the first load
func (dc *DataContainer) GetQualityReport() *interfaces.DataQualityReport {
	return dc.report.Load()
}

// GetLastUpdated returns the timestamp of the last catalog swap
func (dc *DataContainer) GetLastUpdated() time.Time {
	if v := dc.lastUpdated.Load(); v != nil {
		if lastUpdated, ok := v.(time.Time); ok {
			return lastUpdated
		}
	}

	logging.Warn("Could not get the last updated value")
	return time.Time{}
}

// IsUpdating returns true if a catalog refresh is currently in progress
func (dc *DataContainer) IsUpdating() bool {
	return dc.updating.Load()
}

// SetServerStartTime sets the server start time
func (dc *DataContainer) SetServerStartTime(startTime time.Time) {
	dc.serverStartTime.Store(startTime)
}

// GetServerStartTime returns the server start time
func (dc *DataContainer) GetServerStartTime() time.Time {
	if v := dc.serverStartTime.Load(); v != nil {
		if startTime, ok := v.(time.Time); ok {
			return startTime
		}
	}

	logging.Warn("Could not get the server start time value")
	return time.Time{}
}

// UpdateCatalog atomically replaces the catalog. A nil catalog is ignored.
func (dc *DataContainer) UpdateCatalog(catalog *catalogparser.Catalog, report *interfaces.DataQualityReport) {
	if catalog == nil {
		logging.Warn("Refusing to store a nil catalog")
		return
	}

	dc.catalog.Store(catalog)
	dc.report.Store(report)
	dc.lastUpdated.Store(time.Now())
	metrics.CatalogEntries.Set(float64(catalog.Len()))
}

// BeginUpdate marks the start of a refresh.
// Returns true if the refresh can proceed, false if another one is in progress
func (dc *DataContainer) BeginUpdate() bool {
	return dc.updating.CompareAndSwap(false, true)
}

// EndUpdate marks the end of a refresh
func (dc *DataContainer) EndUpdate() {
	dc.updating.Store(false)
}
