package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/giygas/prescriptions-api/catalogparser"
	"github.com/giygas/prescriptions-api/catalogparser/entities"
	"github.com/giygas/prescriptions-api/data"
	"github.com/giygas/prescriptions-api/health"
	"github.com/giygas/prescriptions-api/interfaces"
	"github.com/giygas/prescriptions-api/prescription"
	"github.com/giygas/prescriptions-api/render"
	"github.com/giygas/prescriptions-api/validation"
)

// ============================================================================
// TEST DATA FACTORY
// ============================================================================

const tylenolLabel = "Tylenol 500mg (Tablet, Oral)"

func newTestCatalog() *catalogparser.Catalog {
	return catalogparser.NewCatalog([]entities.CatalogEntry{
		{DrugName: "Tylenol", Dose: "500mg", Form: "Tablet", Route: "Oral"},
		{DrugName: "Advil", Dose: "200mg", Form: "Capsule", Route: "Oral"},
		{DrugName: "Oxycodone", Dose: "5mg", Form: "Tablet", Route: "Oral"},
	}, 1)
}

func newValidForm() prescription.Form {
	return prescription.Form{
		PatientName:    "Jane Doe",
		DateOfBirth:    "1980-05-02",
		PrescriberName: "Dr. John Smith",
		NPI:            "1234567893",
		Medication:     tylenolLabel,
		Frequency:      prescription.TwiceDaily,
		AutoQuantity:   true,
		DaysSupply:     10,
		Refills:        1,
	}
}

// fakePDFRenderer stands in for Chromium
type fakePDFRenderer struct {
	fail bool
}

func (f *fakePDFRenderer) Format() string { return render.FormatPDF }

func (f *fakePDFRenderer) Render(_ context.Context, rx *prescription.Prescription) (*render.Document, error) {
	if f.fail {
		return nil, errors.New("chrome not found")
	}
	return &render.Document{
		Filename:    "prescription-" + rx.ID + ".pdf",
		ContentType: "application/pdf",
		Content:     []byte("%PDF-1.4 fake"),
	}, nil
}

// newTestHandler wires a handler over a real container; a nil catalog leaves it empty
func newTestHandler(t *testing.T, catalog *catalogparser.Catalog, renderers ...interfaces.DocumentRenderer) *HTTPHandlerImpl {
	t.Helper()

	store := data.NewDataContainer()
	store.SetServerStartTime(time.Now().Add(-90 * time.Minute))
	if catalog != nil {
		store.UpdateCatalog(catalog, nil)
	}

	checker, err := health.NewHealthChecker(store, health.DefaultRefreshAt)
	if err != nil {
		t.Fatalf("NewHealthChecker failed: %v", err)
	}

	if len(renderers) == 0 {
		renderers = []interfaces.DocumentRenderer{render.NewTextRenderer(), &fakePDFRenderer{}}
	}

	h := NewHTTPHandler(store, validation.NewDataValidator(), checker, renderers...).(*HTTPHandlerImpl)
	h.now = func() time.Time { return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC) }
	return h
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Failed to marshal payload: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var resp map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode error response: %v", err)
	}
	return resp
}
