package validation

import (
	"strings"
	"testing"

	"github.com/giygas/prescriptions-api/catalogparser"
	"github.com/giygas/prescriptions-api/catalogparser/entities"
	"github.com/giygas/prescriptions-api/prescription"
)

func validForm() *prescription.Form {
	return &prescription.Form{
		PatientName:    "Jane O'Connor-Dupré",
		DateOfBirth:    "1980-05-02",
		PrescriberName: "Dr. John Smith, MD",
		NPI:            "1234567893",
		Medication:     "Tylenol 500mg (Tablet, Oral)",
		Frequency:      prescription.TwiceDaily,
		Quantity:       20,
		DaysSupply:     10,
		Refills:        1,
	}
}

func TestNewDataValidator(t *testing.T) {
	validator := NewDataValidator()

	if validator == nil {
		t.Fatal("NewDataValidator returned nil")
	}
	if _, ok := validator.(*DataValidatorImpl); !ok {
		t.Error("NewDataValidator should return *DataValidatorImpl")
	}
}

func TestValidatePrescription_Valid(t *testing.T) {
	validator := NewDataValidator()

	if err := validator.ValidatePrescription(validForm()); err != nil {
		t.Errorf("Expected no error for valid form, got: %v", err)
	}
}

func TestValidatePrescription_Nil(t *testing.T) {
	validator := NewDataValidator()

	err := validator.ValidatePrescription(nil)
	if err == nil || err.Error() != "prescription form is nil" {
		t.Errorf("Expected nil form error, got %v", err)
	}
}

func TestValidatePrescription_Invalid(t *testing.T) {
	validator := NewDataValidator()

	testCases := []struct {
		name     string
		mutate   func(f *prescription.Form)
		expected string
	}{
		{"missing patient", func(f *prescription.Form) { f.PatientName = "  " }, "patientName is required"},
		{"missing prescriber", func(f *prescription.Form) { f.PrescriberName = "" }, "prescriberName is required"},
		{"patient with markup", func(f *prescription.Form) { f.PatientName = "<b>Jane</b>" }, "patientName contains invalid characters"},
		{"long name", func(f *prescription.Form) { f.PatientName = strings.Repeat("a", 101) }, "patientName too long"},
		{"bad birth date", func(f *prescription.Form) { f.DateOfBirth = "02/05/1980" }, "YYYY-MM-DD"},
		{"future birth date", func(f *prescription.Form) { f.DateOfBirth = "2999-01-01" }, "in the future"},
		{"missing medication", func(f *prescription.Form) { f.Medication = "" }, "medication is required"},
		{"unknown frequency", func(f *prescription.Form) { f.Frequency = "hourly" }, "not one of the supported frequencies"},
		{"zero days supply", func(f *prescription.Form) { f.DaysSupply = 0 }, "daysSupply must be between 1 and 365"},
		{"days supply too long", func(f *prescription.Form) { f.DaysSupply = 366 }, "daysSupply must be between 1 and 365"},
		{"zero quantity", func(f *prescription.Form) { f.Quantity = 0 }, "quantity must be at least 1"},
		{"negative refills", func(f *prescription.Form) { f.Refills = -1 }, "refills must be between 0 and 11"},
		{"too many refills", func(f *prescription.Form) { f.Refills = 12 }, "refills must be between 0 and 11"},
		{"bad npi", func(f *prescription.Form) { f.NPI = "1234567890" }, "invalid check digit"},
		{"bad dea", func(f *prescription.Form) { f.DEA = "AB1234567" }, "invalid check digit"},
		{"controlled without dea", func(f *prescription.Form) { f.Controlled = true }, "dea is required for controlled substances"},
		{"controlled refills", func(f *prescription.Form) {
			f.Controlled = true
			f.DEA = "AB1234563"
			f.Refills = 6
		}, "at most 5 refills"},
		{"dangerous notes", func(f *prescription.Form) { f.Notes = "<script>alert(1)</script>" }, "notes: input contains potentially dangerous content"},
		{"dangerous body", func(f *prescription.Form) { f.Body = "RX: <iframe src=x>" }, "body: input contains potentially dangerous content"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			form := validForm()
			tc.mutate(form)

			err := validator.ValidatePrescription(form)
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tc.expected) {
				t.Errorf("Expected error containing %q, got %v", tc.expected, err)
			}
		})
	}
}

func TestValidatePrescription_AutoQuantity(t *testing.T) {
	validator := NewDataValidator()

	form := validForm()
	form.Quantity = 0
	form.AutoQuantity = true

	if err := validator.ValidatePrescription(form); err != nil {
		t.Errorf("Auto quantity should replace the manual quantity, got %v", err)
	}
}

func TestValidatePrescription_ReportsAllErrors(t *testing.T) {
	validator := NewDataValidator()

	form := validForm()
	form.PatientName = ""
	form.DaysSupply = 0

	err := validator.ValidatePrescription(form)
	if err == nil {
		t.Fatal("Expected error")
	}
	for _, want := range []string{"patientName is required", "daysSupply"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Expected %q in %v", want, err)
		}
	}
}

func TestValidateNPI(t *testing.T) {
	validator := NewDataValidator()

	testCases := []struct {
		npi   string
		valid bool
	}{
		{"1234567893", true},
		{" 1234567893 ", true},
		{"1245319599", true},
		{"1234567890", false},
		{"123456789", false},
		{"12345678901", false},
		{"12345abcde", false},
		{"", false},
	}

	for _, tc := range testCases {
		t.Run(tc.npi, func(t *testing.T) {
			err := validator.ValidateNPI(tc.npi)
			if tc.valid && err != nil {
				t.Errorf("Expected %q to be valid, got %v", tc.npi, err)
			}
			if !tc.valid && err == nil {
				t.Errorf("Expected %q to be invalid", tc.npi)
			}
		})
	}
}

func TestValidateDEA(t *testing.T) {
	validator := NewDataValidator()

	testCases := []struct {
		dea   string
		valid bool
	}{
		{"AB1234563", true},
		{"ab1234563", true},
		{"BJ6125341", true},
		{"M91234563", true},
		{"AB1234567", false},
		{"IB1234563", false},
		{"A1234563", false},
		{"AB12345630", false},
		{"", false},
	}

	for _, tc := range testCases {
		t.Run(tc.dea, func(t *testing.T) {
			err := validator.ValidateDEA(tc.dea)
			if tc.valid && err != nil {
				t.Errorf("Expected %q to be valid, got %v", tc.dea, err)
			}
			if !tc.valid && err == nil {
				t.Errorf("Expected %q to be invalid", tc.dea)
			}
		})
	}
}

func TestValidateInput(t *testing.T) {
	validator := NewDataValidator()

	testCases := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"plain text", "Take with food; avoid alcohol.", false},
		{"prescription body", "RX: Tylenol 500mg\nTAKE: 1 Tablet via Oral twice daily.", false},
		{"accents", "Prendre après le repas", false},
		{"separator", strings.Repeat("-", 30), false},
		{"empty", "   ", true},
		{"too long", strings.Repeat("ab", 1001), true},
		{"script", "hello <SCRIPT>", true},
		{"javascript url", "javascript:alert(1)", true},
		{"event handler", "<img onerror=x>", true},
		{"null byte", "abc\x00def", true},
		{"invalid utf-8", "caf\xe9", true},
		{"repetition", strings.Repeat("a", 41), true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := validator.ValidateInput(tc.input)
			if tc.wantErr && err == nil {
				t.Errorf("Expected error for %q", tc.input)
			}
			if !tc.wantErr && err != nil {
				t.Errorf("Unexpected error for %q: %v", tc.input, err)
			}
		})
	}
}

func TestReportDataQuality(t *testing.T) {
	validator := NewDataValidator()

	catalog := catalogparser.NewCatalog([]entities.CatalogEntry{
		{DrugName: "Tylenol", Dose: "500mg", Form: "Tablet", Route: "Oral"},
		{DrugName: "Saline"},
		{DrugName: "Advil", Form: "Cream"},
	}, 1)

	report := validator.ReportDataQuality(catalog)

	if report.Entries != 3 {
		t.Errorf("Expected 3 entries, got %d", report.Entries)
	}
	if report.EntriesWithoutDose != 2 {
		t.Errorf("Expected 2 entries without dose, got %d", report.EntriesWithoutDose)
	}
	if report.EntriesWithoutForm != 1 {
		t.Errorf("Expected 1 entry without form, got %d", report.EntriesWithoutForm)
	}
	if report.EntriesWithoutRoute != 2 {
		t.Errorf("Expected 2 entries without route, got %d", report.EntriesWithoutRoute)
	}
	if len(report.SampleWithoutDose) != 2 || report.SampleWithoutDose[0] != "Saline  (, )" {
		t.Errorf("Unexpected sample %v", report.SampleWithoutDose)
	}

	if empty := validator.ReportDataQuality(nil); empty.Entries != 0 {
		t.Errorf("Expected empty report for nil catalog, got %+v", empty)
	}
}
