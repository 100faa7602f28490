// Package prescription assembles prescription documents from a catalog entry
// and the fields of the prescription form.
package prescription

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/giygas/prescriptions-api/catalogparser/entities"
	"github.com/google/uuid"
)

// DateLayout is used for the date of birth and the written date
const DateLayout = "2006-01-02"

// Form holds what the prescriber fills in. Medication is the catalog label.
type Form struct {
	PatientName       string    `json:"patientName"`
	DateOfBirth       string    `json:"dateOfBirth,omitempty"`
	PrescriberName    string    `json:"prescriberName"`
	NPI               string    `json:"npi,omitempty"`
	DEA               string    `json:"dea,omitempty"`
	Medication        string    `json:"medication"`
	Frequency         Frequency `json:"frequency"`
	Quantity          int       `json:"quantity"`
	AutoQuantity      bool      `json:"autoQuantity"`
	DaysSupply        int       `json:"daysSupply"`
	Refills           int       `json:"refills"`
	DispenseAsWritten bool      `json:"dispenseAsWritten"`
	Controlled        bool      `json:"controlled"`
	Body              string    `json:"body,omitempty"` // edited body, replaces the generated one
	Notes             string    `json:"notes,omitempty"`
}

// EffectiveQuantity is the quantity to dispense once the auto-quantity rule is applied
func (f Form) EffectiveQuantity() int {
	if f.AutoQuantity {
		return AutoQuantity(f.Frequency, f.DaysSupply)
	}
	return f.Quantity
}

// Prescription is an assembled document, ready to render
type Prescription struct {
	ID                string                `json:"id"`
	WrittenAt         time.Time             `json:"writtenAt"`
	PatientName       string                `json:"patientName"`
	DateOfBirth       string                `json:"dateOfBirth,omitempty"`
	PrescriberName    string                `json:"prescriberName"`
	NPI               string                `json:"npi,omitempty"`
	DEA               string                `json:"dea,omitempty"`
	Medication        entities.CatalogEntry `json:"medication"`
	Frequency         Frequency             `json:"frequency"`
	Sig               string                `json:"sig"`
	Quantity          int                   `json:"quantity"`
	DaysSupply        int                   `json:"daysSupply"`
	Refills           int                   `json:"refills"`
	DispenseAsWritten bool                  `json:"dispenseAsWritten"`
	Controlled        bool                  `json:"controlled"`
	Body              string                `json:"body"`
	Edited            bool                  `json:"edited"`
	Notes             string                `json:"notes,omitempty"`
}

// WrittenDate formats the date the prescription was written
func (p *Prescription) WrittenDate() string {
	return p.WrittenAt.Format(DateLayout)
}

var bodyTemplate = template.Must(template.New("prescription").Parse(
	`RX: {{.DrugName}} {{.Dose}}
TAKE: 1 {{.Form}} via {{.Route}} {{.Frequency}}.
DISPENSE: {{.Quantity}} ({{.DaysSupply}} day supply)
REFILLS: {{.Refills}}
DISPENSE AS WRITTEN: {{if .DispenseAsWritten}}YES{{else}}NO{{end}}
`))

type bodyFields struct {
	DrugName          string
	Dose              string
	Form              string
	Route             string
	Frequency         Frequency
	Quantity          int
	DaysSupply        int
	Refills           int
	DispenseAsWritten bool
}

// Sig renders the directions line without the "TAKE:" prefix
func Sig(entry entities.CatalogEntry, f Frequency) string {
	return collapseLine(fmt.Sprintf("1 %s via %s %s.", entry.Form, entry.Route, f))
}

// Body fills the prescription template. Empty fields never leave doubled
// spaces behind.
func Body(entry entities.CatalogEntry, form Form) (string, error) {
	var buf bytes.Buffer
	err := bodyTemplate.Execute(&buf, bodyFields{
		DrugName:          entry.DrugName,
		Dose:              entry.Dose,
		Form:              entry.Form,
		Route:             entry.Route,
		Frequency:         form.Frequency,
		Quantity:          form.EffectiveQuantity(),
		DaysSupply:        form.DaysSupply,
		Refills:           form.Refills,
		DispenseAsWritten: form.DispenseAsWritten,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render prescription body: %w", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	for i, line := range lines {
		lines[i] = collapseLine(line)
	}
	return strings.Join(lines, "\n"), nil
}

func collapseLine(line string) string {
	line = strings.Join(strings.Fields(line), " ")
	return strings.ReplaceAll(line, " .", ".")
}

// Assemble builds the prescription for entry from the form. The caller is
// expected to have validated the form.
func Assemble(entry entities.CatalogEntry, form Form, now time.Time) (*Prescription, error) {
	body := form.Body
	edited := strings.TrimSpace(body) != ""
	if !edited {
		generated, err := Body(entry, form)
		if err != nil {
			return nil, err
		}
		body = generated
	}

	return &Prescription{
		ID:                uuid.NewString(),
		WrittenAt:         now,
		PatientName:       strings.TrimSpace(form.PatientName),
		DateOfBirth:       strings.TrimSpace(form.DateOfBirth),
		PrescriberName:    strings.TrimSpace(form.PrescriberName),
		NPI:               strings.TrimSpace(form.NPI),
		DEA:               strings.ToUpper(strings.TrimSpace(form.DEA)),
		Medication:        entry,
		Frequency:         form.Frequency,
		Sig:               Sig(entry, form.Frequency),
		Quantity:          form.EffectiveQuantity(),
		DaysSupply:        form.DaysSupply,
		Refills:           form.Refills,
		DispenseAsWritten: form.DispenseAsWritten,
		Controlled:        form.Controlled,
		Body:              body,
		Edited:            edited,
		Notes:             strings.TrimSpace(form.Notes),
	}, nil
}
