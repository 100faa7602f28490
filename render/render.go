// Package render turns assembled prescriptions into downloadable documents.
package render

import (
	"fmt"
	"strconv"

	"github.com/giygas/prescriptions-api/prescription"
)

const (
	FormatText = "text"
	FormatPDF  = "pdf"
)

// ControlledWarning is printed on every controlled-substance prescription
const ControlledWarning = "CONTROLLED SUBSTANCE: verify prescriber DEA registration before dispensing"

// Document is a rendered prescription
type Document struct {
	Filename    string
	ContentType string
	Content     []byte
}

type field struct {
	Label string
	Value string
}

// headerFields lists the labeled fields in print order
func headerFields(rx *prescription.Prescription) []field {
	medication := rx.Medication.DrugName
	if rx.Medication.Dose != "" {
		medication += " " + rx.Medication.Dose
	}

	return []field{
		{"Patient", rx.PatientName},
		{"Date of birth", rx.DateOfBirth},
		{"Date", rx.WrittenDate()},
		{"Medication", medication},
		{"Sig", rx.Sig},
		{"Quantity", strconv.Itoa(rx.Quantity)},
		{"Days supply", strconv.Itoa(rx.DaysSupply)},
		{"Refills", strconv.Itoa(rx.Refills)},
		{"Dispense as written", yesNo(rx.DispenseAsWritten)},
		{"Prescriber", rx.PrescriberName},
		{"NPI", rx.NPI},
		{"DEA", rx.DEA},
	}
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func filename(rx *prescription.Prescription, ext string) string {
	return fmt.Sprintf("prescription-%s.%s", rx.ID, ext)
}
