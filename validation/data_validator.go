// Package validation checks prescription forms, prescriber identifiers and catalog data quality.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/giygas/prescriptions-api/catalogparser"
	"github.com/giygas/prescriptions-api/interfaces"
	"github.com/giygas/prescriptions-api/logging"
	"github.com/giygas/prescriptions-api/prescription"
)

const (
	maxNameLength        = 100
	maxFreeTextLength    = 2000
	maxDaysSupply        = 365
	maxRefills           = 11
	maxControlledRefills = 5
	sampleSize           = 5
)

// Pre-compiled regex patterns, compiled once at package initialization
var (
	// Person names: letters in any script, digits for suffixes, and common punctuation
	nameRegex = regexp.MustCompile(`^[\p{L}\p{M}0-9\s\-\.',]+$`)

	npiRegex = regexp.MustCompile(`^\d{10}$`)

	// Registrant type letter, then a letter (or 9 for mid-level practitioners), then seven digits
	deaRegex = regexp.MustCompile(`^[ABCDEFGHJKLMPRSTUX][A-Z9]\d{7}$`)

	// Substrings that must never reach the rendered documents
	dangerousPatterns = []string{
		"<script", "</script>", "javascript:", "vbscript:", "data:text/html",
		"<iframe", "<object", "<embed", "<link", "<meta", "<style",
		"onload=", "onerror=", "onclick=", "onmouseover=", "onfocus=", "onblur=",
		"expression(", "@import", "\x00",
	}
)

// DataValidatorImpl implements the interfaces.DataValidator interface
type DataValidatorImpl struct{}

// NewDataValidator creates a new data validator
func NewDataValidator() interfaces.DataValidator {
	return &DataValidatorImpl{}
}

// ValidatePrescription checks every field of the form and reports all problems at once
func (v *DataValidatorImpl) ValidatePrescription(form *prescription.Form) error {
	if form == nil {
		return fmt.Errorf("prescription form is nil")
	}

	var errs []error

	if err := v.validateName("patientName", form.PatientName); err != nil {
		errs = append(errs, err)
	}
	if err := v.validateName("prescriberName", form.PrescriberName); err != nil {
		errs = append(errs, err)
	}
	if err := validateDateOfBirth(form.DateOfBirth); err != nil {
		errs = append(errs, err)
	}

	if strings.TrimSpace(form.Medication) == "" {
		errs = append(errs, fmt.Errorf("medication is required"))
	}
	if !form.Frequency.Valid() {
		errs = append(errs, fmt.Errorf("frequency %q is not one of the supported frequencies", form.Frequency))
	}

	if form.DaysSupply < 1 || form.DaysSupply > maxDaysSupply {
		errs = append(errs, fmt.Errorf("daysSupply must be between 1 and %d, got %d", maxDaysSupply, form.DaysSupply))
	}
	if q := form.EffectiveQuantity(); q < 1 {
		errs = append(errs, fmt.Errorf("quantity must be at least 1, got %d", q))
	}
	if form.Refills < 0 || form.Refills > maxRefills {
		errs = append(errs, fmt.Errorf("refills must be between 0 and %d, got %d", maxRefills, form.Refills))
	}

	if form.NPI != "" {
		if err := v.ValidateNPI(form.NPI); err != nil {
			errs = append(errs, err)
		}
	}
	if form.DEA != "" {
		if err := v.ValidateDEA(form.DEA); err != nil {
			errs = append(errs, err)
		}
	}

	if form.Controlled {
		if strings.TrimSpace(form.DEA) == "" {
			errs = append(errs, fmt.Errorf("dea is required for controlled substances"))
		}
		if form.Refills > maxControlledRefills {
			errs = append(errs, fmt.Errorf("controlled substances allow at most %d refills, got %d", maxControlledRefills, form.Refills))
		}
	}

	freeText := []struct{ field, text string }{
		{"body", form.Body},
		{"notes", form.Notes},
	}
	for _, ft := range freeText {
		if ft.text == "" {
			continue
		}
		if err := v.ValidateInput(ft.text); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ft.field, err))
		}
	}

	return errors.Join(errs...)
}

func (v *DataValidatorImpl) validateName(field, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%s is required", field)
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return fmt.Errorf("%s too long: maximum %d characters", field, maxNameLength)
	}
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("%s contains invalid characters", field)
	}
	return nil
}

func validateDateOfBirth(dob string) error {
	if dob == "" {
		return nil
	}
	t, err := time.Parse(prescription.DateLayout, strings.TrimSpace(dob))
	if err != nil {
		return fmt.Errorf("dateOfBirth must use the YYYY-MM-DD format")
	}
	if t.After(time.Now()) {
		return fmt.Errorf("dateOfBirth cannot be in the future")
	}
	return nil
}

// ValidateNPI checks the format and the Luhn check digit of a National Provider Identifier.
// The check digit is computed with the 80840 card issuer prefix.
func (v *DataValidatorImpl) ValidateNPI(npi string) error {
	npi = strings.TrimSpace(npi)
	if !npiRegex.MatchString(npi) {
		return fmt.Errorf("npi must be exactly 10 digits")
	}

	if !luhnValid("80840" + npi) {
		return fmt.Errorf("npi %s has an invalid check digit", npi)
	}
	return nil
}

func luhnValid(digits string) bool {
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// ValidateDEA checks the format and checksum of a DEA registration number
func (v *DataValidatorImpl) ValidateDEA(dea string) error {
	dea = strings.ToUpper(strings.TrimSpace(dea))
	if !deaRegex.MatchString(dea) {
		return fmt.Errorf("dea must be two letters followed by seven digits")
	}

	d := make([]int, 7)
	for i := range d {
		d[i] = int(dea[2+i] - '0')
	}
	check := (d[0] + d[2] + d[4]) + 2*(d[1]+d[3]+d[5])
	if check%10 != d[6] {
		return fmt.Errorf("dea %s has an invalid check digit", dea)
	}
	return nil
}

// ValidateInput validates free text submitted with a prescription
func (v *DataValidatorImpl) ValidateInput(input string) error {
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("input cannot be empty")
	}

	if len(input) > maxFreeTextLength {
		return fmt.Errorf("input too long: maximum %d characters", maxFreeTextLength)
	}

	if !utf8.ValidString(input) {
		return fmt.Errorf("input is not valid UTF-8")
	}

	// strings.Contains is much cheaper than a regex for these
	lowerInput := strings.ToLower(input)
	for _, pattern := range dangerousPatterns {
		if strings.Contains(lowerInput, pattern) {
			return fmt.Errorf("input contains potentially dangerous content")
		}
	}

	if v.hasExcessiveRepetition(input) {
		return fmt.Errorf("input contains excessive character repetition")
	}

	return nil
}

// hasExcessiveRepetition reports the same byte repeated more than 40 times in a row.
// Signature lines and separators stay well below that.
func (v *DataValidatorImpl) hasExcessiveRepetition(input string) bool {
	const limit = 40
	run := 1
	for i := 1; i < len(input); i++ {
		if input[i] == input[i-1] {
			run++
			if run > limit {
				return true
			}
		} else {
			run = 1
		}
	}
	return false
}

// ReportDataQuality counts catalog entries missing a dose, a form or a route
func (v *DataValidatorImpl) ReportDataQuality(catalog *catalogparser.Catalog) *interfaces.DataQualityReport {
	report := &interfaces.DataQualityReport{}
	if catalog == nil {
		return report
	}

	report.Entries = catalog.Len()
	report.LabelCollisions = catalog.LabelCollisions()

	for _, e := range catalog.Entries() {
		if e.Dose == "" {
			report.EntriesWithoutDose++
			if len(report.SampleWithoutDose) < sampleSize {
				report.SampleWithoutDose = append(report.SampleWithoutDose, e.Label)
			}
		}
		if e.Form == "" {
			report.EntriesWithoutForm++
		}
		if e.Route == "" {
			report.EntriesWithoutRoute++
		}
	}

	logging.Info("Catalog data quality",
		"entries", report.Entries,
		"without_dose", report.EntriesWithoutDose,
		"without_form", report.EntriesWithoutForm,
		"without_route", report.EntriesWithoutRoute,
		"label_collisions", report.LabelCollisions)

	return report
}
