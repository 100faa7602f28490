// Package interfaces defines core abstractions for the prescriptions API
// to improve testability, maintainability, and separation of concerns.
package interfaces

import (
	"context"
	"net/http"
	"time"

	"github.com/giygas/prescriptions-api/catalogparser"
	"github.com/giygas/prescriptions-api/prescription"
	"github.com/giygas/prescriptions-api/render"
)

// DataQualityReport summarizes gaps in the drug catalog
type DataQualityReport struct {
	Entries             int      `json:"entries"`
	EntriesWithoutDose  int      `json:"entriesWithoutDose"`
	EntriesWithoutForm  int      `json:"entriesWithoutForm"`
	EntriesWithoutRoute int      `json:"entriesWithoutRoute"`
	LabelCollisions     int      `json:"labelCollisions"`
	SampleWithoutDose   []string `json:"sampleWithoutDose,omitempty"` // First few labels, for the logs
}

// DataStore defines the contract for the catalog container.
// The catalog is swapped atomically so readers never see a partial rebuild.
type DataStore interface {
	GetCatalog() *catalogparser.Catalog
	HasCatalog() bool
	GetLastUpdated() time.Time
	IsUpdating() bool
	GetServerStartTime() time.Time
	GetQualityReport() *DataQualityReport

	UpdateCatalog(catalog *catalogparser.Catalog, report *DataQualityReport)
	BeginUpdate() bool
	EndUpdate()
}

// Parser defines the contract for loading the drug catalog from its source.
type Parser interface {
	// ParseCatalog loads the dataset and returns its catalog, or a DataLoadError
	ParseCatalog() (*catalogparser.Catalog, error)
}

// Scheduler defines the contract for job scheduling.
// It manages the initial catalog load and its periodic refresh.
type Scheduler interface {
	Start() error
	Stop()
}

// HTTPHandler defines the contract for HTTP request handlers.
type HTTPHandler interface {
	ListMedications(w http.ResponseWriter, r *http.Request)
	LookupMedication(w http.ResponseWriter, r *http.Request)
	ListFrequencies(w http.ResponseWriter, r *http.Request)
	PreviewPrescription(w http.ResponseWriter, r *http.Request)
	ExportText(w http.ResponseWriter, r *http.Request)
	ExportPDF(w http.ResponseWriter, r *http.Request)
	HealthCheck(w http.ResponseWriter, r *http.Request)
}

// HealthChecker defines the contract for health check functionality.
type HealthChecker interface {
	// HealthCheck returns current system health status and the HTTP code to answer with
	HealthCheck() (status string, details map[string]any, httpStatus int)

	// CalculateNextUpdate returns the next scheduled refresh time
	CalculateNextUpdate() time.Time
}

// DataValidator defines the contract for validation of user input and catalog data.
type DataValidator interface {
	// ValidatePrescription checks the form before a prescription is assembled
	ValidatePrescription(form *prescription.Form) error

	ValidateNPI(npi string) error
	ValidateDEA(dea string) error

	// ValidateInput validates free text coming from the HTTP surface
	ValidateInput(input string) error

	// ReportDataQuality generates a data quality report for a freshly built catalog
	ReportDataQuality(catalog *catalogparser.Catalog) *DataQualityReport
}

// DocumentRenderer turns an assembled prescription into a downloadable document.
type DocumentRenderer interface {
	Format() string
	Render(ctx context.Context, rx *prescription.Prescription) (*render.Document, error)
}
